package cli

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/hemaweb/featmock/pkg/cli/internal/output"
	"github.com/hemaweb/featmock/pkg/scaffold"
)

var (
	newEntity      string
	newDisplayName string
	newRoot        string
	newWithAPI     bool
	newNoMock      bool
	newNoI18n      bool
	newNoStore     bool
)

var newCmd = &cobra.Command{
	Use:   "new [name]",
	Short: "Generate a new feature package",
	Long: `Generate packages/feat-<name> with a manifest, mock routes, seed data and
translations. Run without a name in a terminal to be prompted.

Examples:
  featmock new orders
  featmock new order-items --entity LineItem --display-name "Order items" --with-api
  featmock new reports --no-store --no-i18n`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := scaffold.NewConfig("")
		if len(args) == 1 {
			cfg.Name = args[0]
		}
		cfg.Entity = newEntity
		cfg.DisplayName = newDisplayName
		cfg.Root = newRoot
		cfg.WithAPI = newWithAPI
		cfg.WithMock = !newNoMock
		cfg.WithI18n = !newNoI18n
		cfg.WithStore = !newNoStore

		if cfg.Name == "" {
			if !isatty.IsTerminal(os.Stdin.Fd()) && !isatty.IsCygwinTerminal(os.Stdin.Fd()) {
				return errors.New("feature name is required")
			}
			if err := promptFeature(&cfg); err != nil {
				return err
			}
		}

		res, err := scaffold.Generate(cmd.Context(), cfg)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if jsonOutput {
			return output.JSON(out, res)
		}
		fmt.Fprintf(out, "Created feat-%s\n", cfg.Name)
		for _, f := range res.Files {
			fmt.Fprintf(out, "  %s\n", f)
		}
		if cfg.WithMock {
			fmt.Fprintf(out, "\nMocks are served under /api/%s by 'featmock serve'.\n", cfg.Name)
		}
		return nil
	},
}

// promptFeature asks for the name and options the flags left open.
func promptFeature(cfg *scaffold.Config) error {
	parts := []string{}
	if cfg.WithMock {
		parts = append(parts, "mock")
	}
	if cfg.WithStore {
		parts = append(parts, "store")
	}
	if cfg.WithI18n {
		parts = append(parts, "i18n")
	}
	if cfg.WithAPI {
		parts = append(parts, "api")
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Feature name").
				Description("Lower-case kebab case, without the feat- prefix").
				Placeholder("orders").
				Value(&cfg.Name).
				Validate(scaffold.ValidateName),
			huh.NewInput().
				Title("Entity name").
				Description("Leave empty for the singular of the feature name").
				Value(&cfg.Entity),
			huh.NewInput().
				Title("Display name").
				Value(&cfg.DisplayName),
			huh.NewMultiSelect[string]().
				Title("Generate").
				Options(
					huh.NewOption("Mock routes", "mock"),
					huh.NewOption("Seed data file", "store"),
					huh.NewOption("Translations", "i18n"),
					huh.NewOption("OpenAPI contract", "api"),
				).
				Value(&parts),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}

	cfg.WithMock = slices.Contains(parts, "mock")
	cfg.WithStore = slices.Contains(parts, "store")
	cfg.WithI18n = slices.Contains(parts, "i18n")
	cfg.WithAPI = slices.Contains(parts, "api")
	return nil
}

func init() {
	f := newCmd.Flags()
	f.StringVar(&newEntity, "entity", "", "Entity name (default: PascalCase singular of the name)")
	f.StringVar(&newDisplayName, "display-name", "", "Human-readable name (default: the name)")
	f.StringVar(&newRoot, "root", ".", "Project root holding packages/")
	f.BoolVar(&newWithAPI, "with-api", false, "Also generate an OpenAPI contract")
	f.BoolVar(&newNoMock, "no-mock", false, "Skip mock routes")
	f.BoolVar(&newNoI18n, "no-i18n", false, "Skip translations")
	f.BoolVar(&newNoStore, "no-store", false, "Keep seed data inline instead of a data file")
	rootCmd.AddCommand(newCmd)
}
