package cmd

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/zjrosen/implindex/internal/exitcode"
	"github.com/zjrosen/implindex/internal/infrastructure/sqlite"
	"github.com/zjrosen/implindex/internal/presentation"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List, show or delete stored index snapshots",
	Long: `Snapshots are written by 'implindex build --save'. Without flags the stored
snapshots are listed newest first.

Examples:
  implindex history
  implindex history --show 3f1c...
  implindex history --delete 3f1c...`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().String("store", "", "snapshot database path (default from config)")
	historyCmd.Flags().String("show", "", "print the snapshot with this build id as JSON")
	historyCmd.Flags().String("delete", "", "delete the snapshot with this build id")
	historyCmd.MarkFlagsMutuallyExclusive("show", "delete")
}

func runHistory(c *cobra.Command, _ []string) error {
	conf, err := effectiveConfig(c)
	if err != nil {
		return err
	}
	db, err := sqlite.NewDB(conf.Store.Path)
	if err != nil {
		return exitcode.New(exitcode.FileSystemError, err)
	}
	defer func() { _ = db.Close() }()
	repo := db.SnapshotRepository()
	out := c.OutOrStdout()

	if id, _ := c.Flags().GetString("show"); id != "" {
		snap, err := repo.Load(c.Context(), id)
		if err != nil {
			return notFoundAsArgs(err)
		}
		return presentation.NewFormatter(out).FormatIndex(presentation.FromDomainModules(snap.BuildID, snap.Modules))
	}

	if id, _ := c.Flags().GetString("delete"); id != "" {
		if err := repo.Delete(c.Context(), id); err != nil {
			return notFoundAsArgs(err)
		}
		_, err := fmt.Fprintf(out, "deleted snapshot %s\n", id)
		return err
	}

	summaries, err := repo.List(c.Context())
	if err != nil {
		return err
	}
	if len(summaries) == 0 {
		_, err := fmt.Fprintln(out, "no snapshots stored")
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "BUILD ID\tMODULES\tCREATED")
	for _, s := range summaries {
		fmt.Fprintf(tw, "%s\t%d\t%s\n", s.BuildID, s.ModuleCount, s.CreatedAt.Local().Format(time.DateTime))
	}
	return tw.Flush()
}

func notFoundAsArgs(err error) error {
	if errors.Is(err, sqlite.ErrSnapshotNotFound) {
		return exitcode.New(exitcode.InvalidArguments, err)
	}
	return err
}
