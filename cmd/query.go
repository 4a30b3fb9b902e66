package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/zjrosen/implindex/internal/consumer"
	"github.com/zjrosen/implindex/internal/exitcode"
	"github.com/zjrosen/implindex/internal/presentation"
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Search the assembled index across modules",
	Long: `Find records across every module, either by the interface they implement
or by the implementing type.

Examples:
  implindex query --implementors-of Display
  implindex query --type Wrapper<T>`,
	Args: cobra.NoArgs,
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)
	addAssemblyFlags(queryCmd)
	queryCmd.Flags().String("implementors-of", "", "interface name to search for")
	queryCmd.Flags().String("type", "", "implementing type label to search for")
	queryCmd.MarkFlagsMutuallyExclusive("implementors-of", "type")
}

func runQuery(c *cobra.Command, _ []string) error {
	iface, _ := c.Flags().GetString("implementors-of")
	typeLabel, _ := c.Flags().GetString("type")
	if iface == "" && typeLabel == "" {
		return exitcode.New(exitcode.InvalidArguments, errors.New("one of --implementors-of or --type is required"))
	}

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

	var hits []consumer.Hit
	if iface != "" {
		hits, err = rt.index.ImplementorsOf(c.Context(), iface)
		if err != nil {
			return err
		}
	} else {
		hits = rt.index.InterfacesOf(typeLabel)
	}
	return presentation.NewFormatter(c.OutOrStdout()).FormatHits(presentation.FromHits(hits))
}
