package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hemaweb/featmock/pkg/cli/help"
)

var topicsCmd = &cobra.Command{
	Use:   "topics [topic]",
	Short: "Read reference topics on mock files, expressions and configuration",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if len(args) == 0 {
			fmt.Fprint(out, "featmock - Help Topics\n\nAvailable Topics:\n")
			fmt.Fprint(out, help.ListTopics())
			fmt.Fprint(out, "\nUsage: featmock topics <topic>\n\nExample: featmock topics mocks\n")
			return nil
		}
		content, err := help.GetTopic(args[0])
		if err != nil {
			return err
		}
		fmt.Fprint(out, content)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(topicsCmd)
}
