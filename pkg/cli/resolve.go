package cli

import (
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mockhost/mockhost/pkg/chaos"
	"github.com/mockhost/mockhost/pkg/config"
	"github.com/mockhost/mockhost/pkg/engine"
	"github.com/mockhost/mockhost/pkg/mock"
)

type resolveFlags struct {
	files       []string
	headers     []string
	query       []string
	data        string
	contentType string
	seed        uint64
}

// ResolveOutput is the JSON form of an offline resolution.
type ResolveOutput struct {
	Status  int               `json:"status"`
	Headers map[string]string `json:"headers"`
	Body    mock.Value        `json:"body"`
	DelayMs int64             `json:"delayMs"`
	Failed  bool              `json:"failed"`
	Outcome engine.Outcome    `json:"outcome"`
	Trace   *engine.Trace     `json:"trace,omitempty"`
}

func newResolveCmd(g *globalFlags) *cobra.Command {
	f := &resolveFlags{}

	cmd := &cobra.Command{
		Use:   "resolve METHOD PATH",
		Short: "Show which response a request would receive",
		Long: `Resolve a request against the configuration without serving it.

Prints the response that would be sent and the trace explaining which
endpoint, variant and rules were chosen. Delays are reported, not slept.`,
		Example: `  mockhost resolve GET /users/42
  mockhost resolve POST '/orders?dry=1' -H 'X-Tier: gold' -d '{"total": 250}'
  mockhost resolve GET /flaky --seed 7 --json`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(cmd, g, f, args[0], args[1])
		},
	}

	cmd.Flags().StringArrayVarP(&f.files, "config", "c", nil, "Config file path or glob (repeatable)")
	cmd.Flags().StringArrayVarP(&f.headers, "header", "H", nil, `Request header "Name: value" (repeatable)`)
	cmd.Flags().StringArrayVarP(&f.query, "query", "q", nil, "Query parameter key=value (repeatable)")
	cmd.Flags().StringVarP(&f.data, "data", "d", "", "Request body")
	cmd.Flags().StringVar(&f.contentType, "content-type", "application/json", "Content-Type of the request body")
	cmd.Flags().Uint64Var(&f.seed, "seed", 0, "Seed for the failure draw (0 is random)")
	return cmd
}

func runResolve(cmd *cobra.Command, g *globalFlags, f *resolveFlags, method, target string) error {
	file, err := config.Load(configPaths(f.files)...)
	if err != nil {
		return err
	}
	endpoints, err := file.ToEndpoints()
	if err != nil {
		return err
	}
	snap, err := engine.Compile(endpoints)
	if err != nil {
		return err
	}

	r, err := buildRequest(cmd, f, method, target)
	if err != nil {
		return err
	}
	req, err := engine.NewRequest(r, file.ServerOrDefault().MaxBodyBytes)
	if err != nil {
		return err
	}

	var sources chaos.SourceFactory
	if f.seed != 0 {
		sources = chaos.SeededStream(f.seed)
	}
	resp := engine.NewResolver(sources).Resolve(snap, req)

	out := ResolveOutput{
		Status:  resp.Status,
		Headers: resp.Headers,
		Body:    resp.Body,
		DelayMs: resp.Delay.Milliseconds(),
		Failed:  resp.Failed,
		Outcome: resp.Outcome,
		Trace:   resp.Trace,
	}
	if g.json {
		return writeJSON(cmd.OutOrStdout(), out)
	}
	return printResolved(cmd.OutOrStdout(), &out)
}

func buildRequest(cmd *cobra.Command, f *resolveFlags, method, target string) (*http.Request, error) {
	if !strings.HasPrefix(target, "/") {
		return nil, fmt.Errorf("path must start with /: %q", target)
	}

	var body io.Reader = http.NoBody
	if f.data != "" {
		body = strings.NewReader(f.data)
	}
	r, err := http.NewRequestWithContext(cmd.Context(), strings.ToUpper(method), "http://mockhost"+target, body)
	if err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}

	headers, err := parseHeaders(f.headers)
	if err != nil {
		return nil, err
	}
	for k, vs := range headers {
		r.Header[k] = vs
	}
	if f.data != "" && r.Header.Get("Content-Type") == "" {
		r.Header.Set("Content-Type", f.contentType)
	}

	extra, err := parseQuery(f.query)
	if err != nil {
		return nil, err
	}
	if len(extra) > 0 {
		q := r.URL.Query()
		for k, vs := range extra {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		r.URL.RawQuery = q.Encode()
	}
	return r, nil
}

func printResolved(w io.Writer, out *ResolveOutput) error {
	data, contentType, err := engine.EncodeBody(out.Body)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "%d %s\n", out.Status, out.Outcome)
	if t := out.Trace; t != nil {
		if t.Endpoint != "" {
			fmt.Fprintf(w, "endpoint: %s\n", t.Endpoint)
		}
		if t.Variant != "" || t.Endpoint != "" {
			fmt.Fprintf(w, "variant:  %s (index %d, default %t)\n", t.Variant, t.VariantIndex, t.UsedDefault)
		}
		for _, a := range t.Anomalies {
			fmt.Fprintf(w, "warning:  %s\n", a)
		}
	}
	if out.DelayMs > 0 {
		fmt.Fprintf(w, "delay:    %dms\n", out.DelayMs)
	}
	fmt.Fprintln(w)

	keys := make([]string, 0, len(out.Headers))
	hasContentType := false
	for k := range out.Headers {
		keys = append(keys, k)
		if strings.EqualFold(k, "Content-Type") {
			hasContentType = true
		}
	}
	sort.Strings(keys)
	if !hasContentType {
		fmt.Fprintf(w, "Content-Type: %s\n", contentType)
	}
	for _, k := range keys {
		fmt.Fprintf(w, "%s: %s\n", k, out.Headers[k])
	}
	fmt.Fprintln(w)

	_, err = w.Write(append(data, '\n'))
	return err
}
