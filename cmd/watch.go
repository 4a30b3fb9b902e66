package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/zjrosen/implindex/internal/log"
	"github.com/zjrosen/implindex/internal/ui/live"
	"github.com/zjrosen/implindex/internal/watcher"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Keep the index attached and register fragments as they are written",
	Long: `Assemble the index from the fragments directory, then watch it. Every
fragment written afterwards is registered through the attached handoff and
forwarded straight to the index.

Examples:
  implindex watch --dir target/doc/implementors
  implindex watch --tui`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
	addAssemblyFlags(watchCmd)
	watchCmd.Flags().Bool("tui", false, "show a live table instead of printing events")
}

func runWatch(c *cobra.Command, _ []string) error {
	conf, err := effectiveConfig(c)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, loadErr, err := assembleDir(c, conf, conf.FragmentsDir)
	if err != nil {
		return err
	}
	defer rt.Close(c.Context())
	_ = reportLoadErrors(c, loadErr, false)

	// Subscribe before the watcher starts so no delivery is missed.
	events := rt.index.Subscribe(ctx)

	w, err := watcher.New(watcher.Config{Dir: conf.FragmentsDir, DebounceDur: conf.Watch.Debounce})
	if err != nil {
		return err
	}
	batches, err := w.Start()
	if err != nil {
		return err
	}
	defer func() { _ = w.Stop() }()

	go func() {
		for batch := range batches {
			log.Debug(log.CatWatcher, "fragment batch", "count", len(batch))
			_ = rt.registerPaths(ctx, conf.FragmentsDir, batch)
		}
	}()

	if tui, _ := c.Flags().GetBool("tui"); tui {
		model := live.New(ctx, rt.index, "implindex · "+conf.FragmentsDir)
		p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
		if _, err := p.Run(); err != nil && ctx.Err() == nil {
			return fmt.Errorf("running program: %w", err)
		}
		return nil
	}

	out := c.OutOrStdout()
	for _, idx := range rt.index.Modules() {
		fmt.Fprintf(out, "loaded %s (%d records)\n", idx.Name(), idx.Len())
	}
	fmt.Fprintf(out, "watching %s, press ctrl+c to stop\n", conf.FragmentsDir)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			fmt.Fprintf(out, "%s %s (%d records)\n", ev.Type, ev.Payload.Module, ev.Payload.Records)
		}
	}
}
