package engine

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
)

// MaxRequestBodySize is the default cap on the request body read for rule
// evaluation (10MB).
const MaxRequestBodySize = 10 << 20

// ErrBodyTooLarge is returned when a request body exceeds the configured cap.
var ErrBodyTooLarge = errors.New("request body too large")

// NewRequest reads r into a Request. At most maxBody bytes of the body are
// read; a larger body yields ErrBodyTooLarge. JSON bodies (application/json
// or any +json type) are decoded keeping numbers as written, form bodies
// become a map of first values, and any other or malformed body is
// treated as absent.
func NewRequest(r *http.Request, maxBody int64) (*Request, error) {
	if maxBody <= 0 {
		maxBody = MaxRequestBodySize
	}

	req := &Request{
		Method:  r.Method,
		Path:    r.URL.Path,
		Headers: r.Header,
		Query:   r.URL.Query(),
	}
	if req.Path == "" {
		req.Path = "/"
	}

	if r.Body == nil || r.Body == http.NoBody {
		return req, nil
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("reading request body: %w", err)
	}
	if int64(len(data)) > maxBody {
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrBodyTooLarge, maxBody)
	}

	req.Body = parseBody(r.Header.Get("Content-Type"), data)
	return req, nil
}

func parseBody(contentType string, data []byte) any {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(contentType))
	}

	switch {
	case mediaType == "application/x-www-form-urlencoded":
		values, err := url.ParseQuery(string(data))
		if err != nil {
			return nil
		}
		fields := make(map[string]any, len(values))
		for k, vals := range values {
			if len(vals) > 0 {
				fields[k] = vals[0]
			}
		}
		return fields
	case mediaType == "application/json", strings.HasSuffix(mediaType, "+json"), mediaType == "":
		return decodeJSON(data)
	default:
		return nil
	}
}

// decodeJSON decodes a single JSON document keeping numbers as json.Number.
// Trailing data or a syntax error yields nil.
func decodeJSON(data []byte) any {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil
	}
	if dec.More() {
		return nil
	}
	return v
}
