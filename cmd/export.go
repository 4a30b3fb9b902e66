package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zjrosen/implindex/internal/domain/implementors"
	"github.com/zjrosen/implindex/internal/exitcode"
	"github.com/zjrosen/implindex/internal/fragment"
	"github.com/zjrosen/implindex/internal/infrastructure/sqlite"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the assembled index back out as one fragment per module",
	Long: `Assemble the index (or load a stored snapshot) and write one fragment file
per module into the output directory. Use it to convert fragments between
formats or to restore a snapshot onto disk.

Examples:
  implindex export --out build/yaml --format yaml
  implindex export --snapshot 3f1c... --out restored`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	addAssemblyFlags(exportCmd)
	exportCmd.Flags().String("out", "", "output directory")
	exportCmd.Flags().String("format", "", "output format: json, yaml or msgpack (default from config)")
	exportCmd.Flags().String("snapshot", "", "export a stored snapshot by build id instead of assembling")
	exportCmd.Flags().String("store", "", "snapshot database path (default from config)")
	_ = exportCmd.MarkFlagRequired("out")
}

func runExport(c *cobra.Command, _ []string) error {
	conf, err := effectiveConfig(c)
	if err != nil {
		return err
	}
	format, err := fragment.ParseFormat(conf.Format)
	if err != nil {
		return exitcode.New(exitcode.InvalidArguments, err)
	}
	out, _ := c.Flags().GetString("out")

	var (
		buildID string
		modules []implementors.ModuleIndex
	)
	if id, _ := c.Flags().GetString("snapshot"); id != "" {
		db, err := sqlite.NewDB(conf.Store.Path)
		if err != nil {
			return exitcode.New(exitcode.FileSystemError, err)
		}
		defer func() { _ = db.Close() }()
		snap, err := db.SnapshotRepository().Load(c.Context(), id)
		if err != nil {
			if errors.Is(err, sqlite.ErrSnapshotNotFound) {
				return exitcode.New(exitcode.InvalidArguments, err)
			}
			return err
		}
		buildID, modules = snap.BuildID, snap.Modules
	} else {
		rt, loadErr, err := assembleDir(c, conf, conf.FragmentsDir)
		if err != nil {
			return err
		}
		defer rt.Close(c.Context())
		if err := reportLoadErrors(c, loadErr, false); err != nil {
			return err
		}
		modules = rt.index.Snapshot()
	}

	paths, err := fragment.WriteDir(out, format, modules, buildID)
	if err != nil {
		return exitcode.New(exitcode.FileSystemError, err)
	}
	_, err = fmt.Fprintf(c.OutOrStdout(), "wrote %d fragments to %s\n", len(paths), out)
	return err
}
