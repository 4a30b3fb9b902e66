package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zjrosen/implindex/internal/config"
	"github.com/zjrosen/implindex/internal/exitcode"
	"github.com/zjrosen/implindex/internal/log"
)

func init() {
	// Query the terminal background before any Bubble Tea program starts so
	// the OSC 11 response cannot race with the input loop.
	//
	// See: https://github.com/charmbracelet/bubbletea/issues/1036
	_ = lipgloss.HasDarkBackground()
}

// localConfigPath is checked before the user config directory.
const localConfigPath = ".implindex/config.yaml"

var (
	version    = "dev"
	cfgFile    string
	debugFlag  bool
	cfg        config.Config
	cfgErr     error
	logCleanup func()
)

var rootCmd = &cobra.Command{
	Use:   "implindex",
	Short: "Assemble documentation implementor indexes from per-module fragments",
	Long: `implindex collects the implementor records that each documented module
produces and hands them to a single index consumer. Fragments registered
before the consumer attaches are buffered and replayed in arrival order;
fragments registered afterwards are forwarded directly.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := initLogging(); err != nil {
			return err
		}
		if editsConfig(cmd) {
			return nil
		}
		if cfgErr != nil {
			return exitcode.New(exitcode.ConfigurationError, cfgErr)
		}
		if err := config.Validate(cfg); err != nil {
			return exitcode.New(exitcode.ConfigurationError, err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCleanup != nil {
			logCleanup()
			logCleanup = nil
		}
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: .implindex/config.yaml, then ~/.config/implindex/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&debugFlag, "debug", "d", false,
		"write debug logs (path from IMPLINDEX_LOG, default debug.log; level from IMPLINDEX_LOG_LEVEL)")
}

func initConfig() {
	defaults := config.Defaults()
	viper.SetDefault("fragments_dir", defaults.FragmentsDir)
	viper.SetDefault("format", defaults.Format)
	viper.SetDefault("duplicate_policy", defaults.DuplicatePolicy)
	viper.SetDefault("attach", defaults.Attach)
	viper.SetDefault("load_concurrency", defaults.LoadConcurrency)
	viper.SetDefault("cache.ttl", defaults.Cache.TTL)
	viper.SetDefault("watch.debounce", defaults.Watch.Debounce)
	viper.SetDefault("store.path", defaults.Store.Path)
	viper.SetDefault("ui.markdown_style", defaults.UI.MarkdownStyle)
	viper.SetDefault("ui.width", defaults.UI.Width)
	viper.SetDefault("tracing.enabled", defaults.Tracing.Enabled)
	viper.SetDefault("tracing.exporter", defaults.Tracing.Exporter)
	viper.SetDefault("tracing.file_path", config.DefaultTracesFilePath())
	viper.SetDefault("tracing.otlp_endpoint", defaults.Tracing.OTLPEndpoint)
	viper.SetDefault("tracing.sample_rate", defaults.Tracing.SampleRate)
	viper.SetDefault("tracing.service_name", defaults.Tracing.ServiceName)

	viper.SetEnvPrefix("IMPLINDEX")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// Config lookup order:
		// 1. .implindex/config.yaml (current directory)
		// 2. ~/.config/implindex/config.yaml (user config)
		if _, err := os.Stat(localConfigPath); err == nil {
			viper.SetConfigFile(localConfigPath)
		} else {
			home, _ := os.UserHomeDir()
			viper.AddConfigPath(filepath.Join(home, ".config", "implindex"))
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
	}

	cfgErr = nil
	if err := viper.ReadInConfig(); err != nil {
		// Running without any config file is fine; defaults apply.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			cfgErr = fmt.Errorf("%w: reading %s: %w", config.ErrInvalidConfig, viper.ConfigFileUsed(), err)
			return
		}
	}

	cfg = config.Config{}
	if err := viper.Unmarshal(&cfg); err != nil {
		cfgErr = fmt.Errorf("%w: %w", config.ErrInvalidConfig, err)
	}
}

func initLogging() error {
	if !debugFlag && os.Getenv("IMPLINDEX_DEBUG") == "" {
		return nil
	}
	logPath := os.Getenv("IMPLINDEX_LOG")
	if logPath == "" {
		logPath = "debug.log"
	}
	cleanup, err := log.Init(logPath)
	if err != nil {
		return exitcode.New(exitcode.FileSystemError, fmt.Errorf("opening debug log: %w", err))
	}
	logCleanup = cleanup
	if level := os.Getenv("IMPLINDEX_LOG_LEVEL"); level != "" {
		log.SetMinLevel(log.ParseLevel(level))
	}
	log.Info(log.CatConfig, "implindex starting", "version", version, "config", viper.ConfigFileUsed())
	return nil
}

// annotationEditsConfig marks commands that must run even when the loaded
// config is invalid, so a broken file can be repaired.
const annotationEditsConfig = "implindex/edits-config"

func editsConfig(c *cobra.Command) bool {
	for ; c != nil; c = c.Parent() {
		if _, ok := c.Annotations[annotationEditsConfig]; ok {
			return true
		}
	}
	return false
}

// configPath is the file that config-writing commands target.
func configPath() string {
	if used := viper.ConfigFileUsed(); used != "" {
		return used
	}
	return localConfigPath
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version string (called from main with ldflags)
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}
