package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/straja-ai/fieldsense/internal/app"
	"github.com/straja-ai/fieldsense/internal/field"
)

var (
	classifyFields string
	classifyURL    string
)

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Classify a JSON list of fields and print the outcomes",
	Long: `Reads a JSON array of fields (label, id, name, type, options, section,
placeholder) from a file, or from stdin when --fields is "-", and prints
one outcome per field.

Examples:
  fieldsense classify --fields page.json --url https://boards.greenhouse.io/acme/jobs/1
  cat page.json | fieldsense classify --fields -`,
	RunE: func(cmd *cobra.Command, args []string) error {
		fields, err := readFields(classifyFields)
		if err != nil {
			return err
		}
		return withApp(cmd.Context(), func(a *app.App) error {
			out, runErr := a.Pipeline.Run(cmd.Context(), classifyURL, fields)
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(out); err != nil {
				return err
			}
			return runErr
		})
	},
}

func init() {
	classifyCmd.Flags().StringVar(&classifyFields, "fields", "-", `JSON file with the fields, "-" for stdin`)
	classifyCmd.Flags().StringVar(&classifyURL, "url", "", "page URL, used for platform detection")
}

func readFields(path string) ([]field.Field, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	var fields []field.Field
	if err := json.NewDecoder(r).Decode(&fields); err != nil {
		return nil, fmt.Errorf("decode fields: %w", err)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("no fields in %s", path)
	}
	return fields, nil
}
