package cli

import (
	"fmt"
	"io"

	"metadataexporter/internal/handlers"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var handlersListQuiet bool
var handlersCmd = &cobra.Command{
	Use:   "handlers",
	Short: "Manage and list handlers",
	Long: `Manage metadataexporter handlers.

This command group helps you discover which handlers exist and what each handler does.
Handlers run on every node of a batch walk (see "metadataexporter export --help").

Examples:
  # List all available handlers
  metadataexporter handlers list
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var handlersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available handlers",
	Long: `List all handlers currently registered in this build.

Handlers are sorted by handler ID.

Examples:
  metadataexporter handlers list

Output:
  A vertical list of handlers:
    ----------------------------------------
    HANDLER: {ID}
    ----------------------------------------
    {TITLE}
    {DESCRIPTION}
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, h := range handlers.List(handlers.Env{}) {
			if handlersListQuiet {
				fmt.Fprintln(cmd.OutOrStdout(), h.ID())
			} else {
				printHandler(cmd.OutOrStdout(), h)
			}
		}
		return nil
	},
}

var handlersShowCmd = &cobra.Command{
	Use:   "show [handler-id]",
	Short: "Show details of a specific handler",
	Long: `Show details of a specific handler by its ID, including its options.

Examples:
  metadataexporter handlers show checksum
`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hs, err := handlers.Resolve(args[0], handlers.Env{})
		if err != nil {
			return err
		}
		if len(hs) == 0 {
			return fmt.Errorf("handler not found: %s", args[0])
		}
		printHandler(cmd.OutOrStdout(), hs[0])
		return nil
	},
}

func printHandler(w io.Writer, h handlers.Handler) {
	bold := color.New(color.Bold)
	fmt.Fprintln(w, "----------------------------------------")
	bold.Fprintf(w, "HANDLER: %s\n", h.ID())
	fmt.Fprintln(w, "----------------------------------------")
	fmt.Fprintln(w, h.Title())
	fmt.Fprintln(w, h.Description())

	if ch, ok := h.(handlers.ConfigurableHandler); ok {
		opts := ch.Options()
		if len(opts) > 0 {
			fmt.Fprintln(w)
			fmt.Fprintln(w, "Options:")
			for _, opt := range opts {
				def := opt.Default
				if def == "" {
					def = "\"\""
				}
				fmt.Fprintf(w, "  %s\n", opt.Name)
				fmt.Fprintf(w, "    Description: %s\n", opt.Description)
				fmt.Fprintf(w, "    Default:     %s\n", def)
			}
		}
	}
	fmt.Fprintln(w)
}

func init() {
	rootCmd.AddCommand(handlersCmd)
	handlersCmd.AddCommand(handlersListCmd)
	handlersListCmd.Flags().BoolVarP(&handlersListQuiet, "quiet", "q", false, "Only print handler IDs")
	handlersCmd.AddCommand(handlersShowCmd)
}
