package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hemaweb/featmock/pkg/cli/internal/output"
)

type validateResult struct {
	File   string   `json:"file"`
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

var validateCmd = &cobra.Command{
	Use:   "validate [file...]",
	Short: "Check mock files without serving them",
	Long: `Check mock files without serving them.

Each file is decoded, checked against the namespace schema and compiled,
including expr bodies, patterns and handler names. Without arguments every
discovered mock file is checked. The exit status is 1 if any file is invalid.

Examples:
  featmock validate
  featmock validate packages/feat-orders/mocks/orders.mock.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		log, closeLog, err := quietLogger(cfg, cmd)
		if err != nil {
			return err
		}
		defer closeLog()

		collector, err := newCollector(cfg, log)
		if err != nil {
			return err
		}

		files := args
		if len(files) == 0 {
			if files, err = collector.Discover(); err != nil {
				return err
			}
		}
		if len(files) == 0 {
			return fmt.Errorf("no mock files found under %s", collector.Options().Root)
		}

		results := make([]validateResult, 0, len(files))
		failed := 0
		for _, file := range files {
			r := validateResult{File: displayPath(collector.Options().Root, file), Valid: true}
			for _, e := range collector.ValidateFile(file) {
				r.Valid = false
				r.Errors = append(r.Errors, e.Error())
			}
			if !r.Valid {
				failed++
			}
			results = append(results, r)
		}

		out := cmd.OutOrStdout()
		if jsonOutput {
			if err := output.JSON(out, results); err != nil {
				return err
			}
		} else {
			for _, r := range results {
				if r.Valid {
					fmt.Fprintf(out, "ok      %s\n", r.File)
					continue
				}
				fmt.Fprintf(out, "FAIL    %s\n", r.File)
				for _, e := range r.Errors {
					fmt.Fprintf(out, "        %s\n", e)
				}
			}
		}

		if failed > 0 {
			fmt.Fprintf(cmd.ErrOrStderr(), "%d of %d mock files invalid\n", failed, len(results))
			return errSilent
		}
		return nil
	},
}

func init() {
	addMockFlags(validateCmd)
	rootCmd.AddCommand(validateCmd)
}

// displayPath shows discovered absolute paths relative to root and leaves
// user-supplied relative paths alone.
func displayPath(root, path string) string {
	if filepath.IsAbs(path) {
		if rel, err := filepath.Rel(root, path); err == nil {
			return filepath.ToSlash(rel)
		}
	}
	return filepath.ToSlash(path)
}
