package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zjrosen/implindex/internal/exitcode"
	"github.com/zjrosen/implindex/internal/presentation"
)

var showCmd = &cobra.Command{
	Use:   "show MODULE",
	Short: "Render one module's implementors as markdown",
	Long: `Assemble the index and render the implementors registered for MODULE,
grouped by interface.

Examples:
  implindex show std::fmt
  implindex show core::iter --raw`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)
	addAssemblyFlags(showCmd)
	showCmd.Flags().Bool("raw", false, "print markdown source instead of rendering it")
}

func runShow(c *cobra.Command, args []string) error {
	conf, err := effectiveConfig(c)
	if err != nil {
		return err
	}
	rt, loadErr, err := assembleDir(c, conf, conf.FragmentsDir)
	if err != nil {
		return err
	}
	defer rt.Close(c.Context())
	_ = reportLoadErrors(c, loadErr, false)

	idx, ok := rt.index.Module(args[0])
	if !ok {
		return exitcode.New(exitcode.InvalidArguments, fmt.Errorf("module %q has no registered implementors", args[0]))
	}

	md := presentation.ModuleMarkdown(idx)
	if raw, _ := c.Flags().GetBool("raw"); raw {
		_, err := fmt.Fprint(c.OutOrStdout(), md)
		return err
	}

	renderer, err := presentation.NewRenderer(conf.UI.Width, conf.UI.MarkdownStyle)
	if err != nil {
		return err
	}
	out, err := renderer.Render(md)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(c.OutOrStdout(), out)
	return err
}
