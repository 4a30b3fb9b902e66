package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zjrosen/implindex/internal/config"
	"github.com/zjrosen/implindex/internal/domain/implementors"
	"github.com/zjrosen/implindex/internal/exitcode"
	"github.com/zjrosen/implindex/internal/infrastructure/sqlite"
	"github.com/zjrosen/implindex/internal/presentation"
)

var diffCmd = &cobra.Command{
	Use:   "diff DIR_A [DIR_B]",
	Short: "Compare two assembled indexes",
	Long: `Assemble an index from each fragments directory and print the modules that
were added, removed or changed between them. With --latest, DIR_A is compared
against the most recently stored snapshot instead.

Examples:
  implindex diff old/implementors new/implementors
  implindex diff --latest target/doc/implementors`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runDiff,
}

func init() {
	rootCmd.AddCommand(diffCmd)
	diffCmd.Flags().String("policy", "", "duplicate policy used while assembling (default from config)")
	diffCmd.Flags().Bool("latest", false, "compare DIR_A against the latest stored snapshot")
	diffCmd.Flags().String("store", "", "snapshot database path (default from config)")
}

func runDiff(c *cobra.Command, args []string) error {
	conf, err := effectiveConfig(c)
	if err != nil {
		return err
	}
	latest, _ := c.Flags().GetBool("latest")
	if latest == (len(args) == 2) {
		return exitcode.New(exitcode.InvalidArguments, errors.New("diff needs either two directories or one directory with --latest"))
	}

	var before, after []implementors.ModuleIndex
	if latest {
		db, err := sqlite.NewDB(conf.Store.Path)
		if err != nil {
			return exitcode.New(exitcode.FileSystemError, err)
		}
		defer func() { _ = db.Close() }()
		snap, err := db.SnapshotRepository().Latest(c.Context())
		if err != nil {
			if errors.Is(err, sqlite.ErrSnapshotNotFound) {
				return exitcode.New(exitcode.InvalidArguments, fmt.Errorf("no stored snapshot to compare against: %w", err))
			}
			return err
		}
		before = snap.Modules
		if after, err = assembleModules(c, withDir(conf, args[0])); err != nil {
			return err
		}
	} else {
		if before, err = assembleModules(c, withDir(conf, args[0])); err != nil {
			return err
		}
		if after, err = assembleModules(c, withDir(conf, args[1])); err != nil {
			return err
		}
	}

	_, err = fmt.Fprint(c.OutOrStdout(), presentation.FormatDiff(presentation.Diff(before, after)))
	return err
}

// assembleModules runs one isolated handoff over conf's fragments directory.
func assembleModules(c *cobra.Command, conf config.Config) ([]implementors.ModuleIndex, error) {
	rt, loadErr, err := assembleDir(c, conf, conf.FragmentsDir)
	if err != nil {
		return nil, err
	}
	defer rt.Close(c.Context())
	_ = reportLoadErrors(c, loadErr, false)
	return rt.index.Snapshot(), nil
}

func withDir(conf config.Config, dir string) config.Config {
	conf.FragmentsDir = dir
	return conf
}
