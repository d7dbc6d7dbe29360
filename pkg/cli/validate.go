package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mockhost/mockhost/pkg/config"
)

// ValidateOutput is the JSON form of a validation report.
type ValidateOutput struct {
	Valid     bool     `json:"valid"`
	Files     []string `json:"files"`
	Endpoints int      `json:"endpoints"`
	Errors    []string `json:"errors,omitempty"`
}

// errValidation is returned after a failed report has been printed.
var errValidation = errors.New("configuration is invalid")

func newValidateCmd(g *globalFlags) *cobra.Command {
	var files []string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration files without serving",
		Long: `Validate configuration files without starting a server.

Checks YAML or JSON syntax, the configuration schema, server settings,
path templates and rule operands. Every problem found is reported.`,
		Example: `  # Validate mockhost.yaml in the current directory
  mockhost validate

  # Validate every file under mocks/
  mockhost validate -c 'mocks/**/*.yaml'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			paths := configPaths(files)
			report := ValidateOutput{Files: paths}

			file, err := config.Load(paths...)
			if err == nil {
				err = file.Validate()
			}
			if err != nil {
				report.Errors = errorLines(err)
			} else {
				report.Valid = true
				report.Endpoints = len(file.Endpoints)
			}

			w := cmd.OutOrStdout()
			if g.json {
				if err := writeJSON(w, report); err != nil {
					return err
				}
			} else if report.Valid {
				fmt.Fprintf(w, "Configuration valid: %d endpoint(s)\n", report.Endpoints)
			} else {
				fmt.Fprintln(w, "Configuration invalid:")
				for _, e := range report.Errors {
					fmt.Fprintf(w, "  - %s\n", e)
				}
			}

			if !report.Valid {
				return errValidation
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&files, "config", "c", nil, "Config file path or glob (repeatable)")
	return cmd
}

// errorLines flattens joined errors into one line per failure.
func errorLines(err error) []string {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var lines []string
		for _, e := range joined.Unwrap() {
			lines = append(lines, errorLines(e)...)
		}
		return lines
	}
	return []string{err.Error()}
}
