package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/tradebook/importer"
)

func newImportCmd(ro *rootOptions) *cobra.Command {
	var (
		kindName string
		preview  bool
		mapping  map[string]string
		asOfStr  string
	)

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import an executions, positions or account snapshot CSV",
		Long: `Import a broker CSV export into the journal.

The file type and column mapping are detected from the header row. Use
--kind to force the type and --map field=Header to correct a mapping.
Executions already in the journal are skipped.

Examples:
  tradebook import trades.csv
  tradebook import --preview positions.csv
  tradebook import --kind snapshots --map equity=NAV summary.csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}
			filename := filepath.Base(path)
			out := cmd.OutOrStdout()

			p, err := importer.Preview(filename, bytes.NewReader(data))
			if err != nil {
				return fmt.Errorf("preview: %w", err)
			}

			kind := p.Kind
			if kindName != "" {
				if kind, err = importer.ParseKind(kindName); err != nil {
					return err
				}
			}

			if preview {
				fmt.Fprintf(out, "File:    %s\n", p.Filename)
				fmt.Fprintf(out, "Kind:    %s\n", kind)
				if kind != p.Kind && kind != importer.KindUnknown {
					p.Mapping = importer.DetectMapping(kind, p.Headers)
					p.Errors = nil
					for _, f := range importer.MissingFields(kind, p.Mapping) {
						p.Errors = append(p.Errors, "missing required mapping for "+f)
					}
				}

				table := newTable(out, "Field", "Column")
				for _, f := range importer.Fields(kind) {
					col := p.Mapping[f]
					if v, ok := mapping[f]; ok {
						col = v
					}
					table.Append(f, col)
				}
				table.Render()

				if len(p.Rows) > 0 {
					rows := newTable(out, anySlice(p.Headers)...)
					for _, r := range p.Rows {
						vals := make([]any, len(p.Headers))
						for i, h := range p.Headers {
							vals[i] = r[h]
						}
						rows.Append(vals...)
					}
					rows.Render()
				}
				for _, e := range p.Errors {
					fmt.Fprintf(out, "! %s\n", e)
				}
				return nil
			}

			asOf := time.Now()
			if asOfStr != "" {
				if asOf, err = time.Parse("2006-01-02", asOfStr); err != nil {
					return fmt.Errorf("bad --as-of: %w", err)
				}
			}

			parsed, err := importer.Parse(kind, bytes.NewReader(data), importer.Mapping(mapping), ro.importOptions())
			if err != nil {
				return fmt.Errorf("parse %s: %w", filename, err)
			}

			j, err := ro.openJournal()
			if err != nil {
				return err
			}
			defer j.Close()

			batch, err := j.Import(cmd.Context(), filename, parsed, asOf)
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "Imported %s: %d of %d rows (%d skipped)\n",
				batch.Kind, batch.RowsImported, batch.RowsSeen, batch.RowsSkipped)
			if parsed.Filtered > 0 {
				fmt.Fprintf(out, "  %d forex rows excluded\n", parsed.Filtered)
			}
			if batch.Notes != "" {
				fmt.Fprintf(out, "  %s\n", batch.Notes)
			}
			for _, e := range parsed.Skipped {
				fmt.Fprintf(out, "  %s\n", e.Error())
			}
			fmt.Fprintf(out, "  batch %s\n", batch.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&kindName, "kind", "k", "", "file type: "+strings.Join([]string{
		string(importer.KindExecutions), string(importer.KindPositions), string(importer.KindSnapshots),
	}, "|"))
	cmd.Flags().BoolVar(&preview, "preview", false, "show the detected type, mapping and first rows without importing")
	cmd.Flags().StringToStringVar(&mapping, "map", nil, "field=Header mapping overrides")
	cmd.Flags().StringVar(&asOfStr, "as-of", "", "report date (YYYY-MM-DD) for position files without one")
	return cmd
}

func anySlice(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
