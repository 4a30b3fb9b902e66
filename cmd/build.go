package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zjrosen/implindex/internal/config"
	"github.com/zjrosen/implindex/internal/exitcode"
	"github.com/zjrosen/implindex/internal/infrastructure/sqlite"
	"github.com/zjrosen/implindex/internal/log"
	"github.com/zjrosen/implindex/internal/presentation"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Assemble the implementor index from a fragments directory",
	Long: `Load every fragment under the fragments directory, hand the modules to
the index consumer and print the assembled index as JSON.

With --attach=late (the default) every fragment is buffered first and replayed
when the consumer attaches. With --attach=early the consumer is attached before
loading and each module is forwarded as it arrives.

Examples:
  implindex build --dir target/doc/implementors
  implindex build --policy reject --strict
  implindex build --save`,
	Args: cobra.NoArgs,
	RunE: runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)
	addAssemblyFlags(buildCmd)
	buildCmd.Flags().Bool("strict", false, "fail when any fragment is rejected")
	buildCmd.Flags().Bool("save", false, "store the assembled index as a snapshot")
	buildCmd.Flags().String("store", "", "snapshot database path (default from config)")
	buildCmd.Flags().String("build-id", "", "snapshot build id (default: generated)")
}

// addAssemblyFlags registers the flags shared by commands that assemble an index.
func addAssemblyFlags(c *cobra.Command) {
	c.Flags().String("dir", "", "fragments directory (default from config)")
	c.Flags().String("attach", "", "consumer attach mode: early or late (default from config)")
	c.Flags().String("policy", "", "duplicate policy: overwrite, reject or merge-append (default from config)")
}

// effectiveConfig overlays the assembly flags set on c onto the loaded config.
func effectiveConfig(c *cobra.Command) (config.Config, error) {
	out := cfg
	overlay := func(flag string, dst *string) {
		if f := c.Flags().Lookup(flag); f != nil && f.Changed {
			*dst = f.Value.String()
		}
	}
	overlay("dir", &out.FragmentsDir)
	overlay("attach", &out.Attach)
	overlay("policy", &out.DuplicatePolicy)
	overlay("store", &out.Store.Path)
	overlay("format", &out.Format)
	if err := config.Validate(out); err != nil {
		return out, exitcode.New(exitcode.InvalidArguments, err)
	}
	return out, nil
}

// assembleDir builds a runtime over dir and returns it with the index attached.
// Fragment failures are returned separately so callers can decide whether
// a partial index is acceptable.
func assembleDir(c *cobra.Command, conf config.Config, dir string) (rt *runtime, loadErr error, err error) {
	rt, err = newRuntime(conf)
	if err != nil {
		return nil, nil, err
	}
	mode, err := config.ParseAttachMode(conf.Attach)
	if err != nil {
		rt.Close(c.Context())
		return nil, nil, err
	}
	loadErr, err = rt.assemble(c.Context(), dir, mode)
	if err != nil {
		rt.Close(c.Context())
		return nil, loadErr, err
	}
	return rt, loadErr, nil
}

// reportLoadErrors writes fragment failures to stderr. In strict mode they
// become the command's error.
func reportLoadErrors(c *cobra.Command, loadErr error, strict bool) error {
	if loadErr == nil {
		return nil
	}
	if strict {
		return loadErr
	}
	for _, e := range flatten(loadErr) {
		fmt.Fprintf(c.ErrOrStderr(), "warning: %v\n", e)
	}
	return nil
}

func flatten(err error) []error {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		return joined.Unwrap()
	}
	return []error{err}
}

func runBuild(c *cobra.Command, _ []string) error {
	conf, err := effectiveConfig(c)
	if err != nil {
		return err
	}
	rt, loadErr, err := assembleDir(c, conf, conf.FragmentsDir)
	if err != nil {
		return err
	}
	defer rt.Close(c.Context())

	strict, _ := c.Flags().GetBool("strict")
	if err := reportLoadErrors(c, loadErr, strict); err != nil {
		return err
	}

	modules := rt.index.Snapshot()
	buildID, _ := c.Flags().GetString("build-id")

	if save, _ := c.Flags().GetBool("save"); save {
		if buildID == "" {
			buildID = sqlite.NewBuildID()
		}
		db, err := sqlite.NewDB(conf.Store.Path)
		if err != nil {
			return exitcode.New(exitcode.FileSystemError, err)
		}
		defer func() { _ = db.Close() }()

		summary, err := db.SnapshotRepository().WithTracer(rt.tracing.Tracer()).Save(c.Context(), buildID, modules)
		if err != nil {
			if errors.Is(err, sqlite.ErrDuplicateBuildID) {
				return exitcode.New(exitcode.InvalidArguments, err)
			}
			return err
		}
		log.Info(log.CatStore, "snapshot saved", "build_id", summary.BuildID, "modules", summary.ModuleCount)
	}

	formatter := presentation.NewFormatter(c.OutOrStdout())
	return formatter.FormatIndex(presentation.FromDomainModules(buildID, modules))
}
