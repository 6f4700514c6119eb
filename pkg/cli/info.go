package cli

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hemaweb/featmock/pkg/cli/internal/output"
	"github.com/hemaweb/featmock/pkg/config"
	"github.com/hemaweb/featmock/pkg/logging"
	"github.com/hemaweb/featmock/pkg/mock"
	"github.com/hemaweb/featmock/pkg/registry"
)

var infoRoutes bool

type routeInfo struct {
	Feature string `json:"feature"`
	Method  string `json:"method"`
	Path    string `json:"path"`
	Pattern bool   `json:"pattern,omitempty"`
	DelayMs int    `json:"delayMs,omitempty"`
	Status  int    `json:"status"`
}

type infoResult struct {
	registry.Info
	Files    []string    `json:"files"`
	Routes   []routeInfo `json:"routes,omitempty"`
	Problems []string    `json:"problems"`
}

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show the features and routes featmock would serve",
	Long: `Show the features and routes featmock would serve.

Examples:
  # Route counts per feature
  featmock info

  # Every route in match order
  featmock info --routes

  # Machine-readable
  featmock info --json`,
	Args: cobra.NoArgs,
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
		res, err := collector.CollectResult(cmd.Context())
		if err != nil {
			return err
		}

		result := infoResult{
			Info:     registry.Summary(res.Namespaces),
			Files:    relPaths(collector.Options().Root, res.Files),
			Problems: make([]string, 0, len(res.Problems)),
		}
		for _, p := range res.Problems {
			result.Problems = append(result.Problems, p.Error())
		}
		if infoRoutes {
			for _, fr := range mock.Flatten(res.Namespaces) {
				result.Routes = append(result.Routes, routeInfo{
					Feature: fr.Feature,
					Method:  fr.Method,
					Path:    fr.Display(),
					Pattern: fr.Pattern != nil,
					DelayMs: fr.DelayMs,
					Status:  fr.StatusOrDefault(),
				})
			}
		}

		out := cmd.OutOrStdout()
		if jsonOutput {
			return output.JSON(out, result)
		}

		tw := output.Table(out)
		fmt.Fprintln(tw, "FEATURE\tROUTES")
		for _, f := range result.Features {
			fmt.Fprintf(tw, "%s\t%d\n", f.Name, f.Routes)
		}
		_ = tw.Flush()
		fmt.Fprintf(out, "\n%d features, %d routes from %d files under %s\n",
			len(result.Features), result.TotalRoutes, len(result.Files), cfg.Mock.Base)

		if infoRoutes && len(result.Routes) > 0 {
			fmt.Fprintln(out)
			tw = output.Table(out)
			fmt.Fprintln(tw, "METHOD\tPATH\tFEATURE\tSTATUS\tDELAY")
			for _, r := range result.Routes {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%dms\n", r.Method, r.Path, r.Feature, r.Status, r.DelayMs)
			}
			_ = tw.Flush()
		}

		for _, p := range result.Problems {
			output.Warn(cmd.ErrOrStderr(), "%s", p)
		}
		return nil
	},
}

func init() {
	infoCmd.Flags().BoolVar(&infoRoutes, "routes", false, "List every route in match order")
	addMockFlags(infoCmd)
	rootCmd.AddCommand(infoCmd)
}

// quietLogger discards collection logs unless --verbose is set, since the
// command prints problems itself.
func quietLogger(cfg *config.Config, cmd *cobra.Command) (*slog.Logger, func(), error) {
	if !cfg.Mock.Verbose {
		return logging.Nop(), func() {}, nil
	}
	return newLogger(cfg, cmd.ErrOrStderr())
}

// relPaths makes paths relative to root for display.
func relPaths(root string, paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		if rel, err := filepath.Rel(root, p); err == nil {
			p = rel
		}
		out[i] = filepath.ToSlash(p)
	}
	return out
}
