package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zjrosen/implindex/internal/config"
	"github.com/zjrosen/implindex/internal/exitcode"
)

var initCmd = &cobra.Command{
	Use:         "init",
	Short:       "Write a commented default config to .implindex/config.yaml",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{annotationEditsConfig: "true"},
	RunE: func(c *cobra.Command, _ []string) error {
		path := localConfigPath
		if cfgFile != "" {
			path = cfgFile
		}
		force, _ := c.Flags().GetBool("force")
		if _, err := os.Stat(path); err == nil && !force {
			return exitcode.New(exitcode.InvalidArguments, errors.New(path+" already exists (use --force to overwrite)"))
		}
		if err := config.WriteDefaultConfig(path); err != nil {
			return exitcode.New(exitcode.FileSystemError, err)
		}
		_, err := fmt.Fprintf(c.OutOrStdout(), "wrote %s\n", path)
		return err
	},
}

var configCmd = &cobra.Command{
	Use:         "config",
	Short:       "Inspect or edit the configuration file",
	Annotations: map[string]string{annotationEditsConfig: "true"},
}

var configSetCmd = &cobra.Command{
	Use:   "set KEY VALUE",
	Short: "Set a dotted config key, keeping the file's comments",
	Long: `Examples:
  implindex config set duplicate_policy reject
  implindex config set cache.ttl 30s`,
	Args: cobra.ExactArgs(2),
	RunE: func(c *cobra.Command, args []string) error {
		path := configPath()
		if err := config.SetValue(path, args[0], args[1]); err != nil {
			return err
		}
		_, err := fmt.Fprintf(c.OutOrStdout(), "set %s = %s in %s\n", args[0], args[1], path)
		return err
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file in use",
	Args:  cobra.NoArgs,
	RunE: func(c *cobra.Command, _ []string) error {
		_, err := fmt.Fprintln(c.OutOrStdout(), configPath())
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().Bool("force", false, "overwrite an existing config file")

	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configSetCmd, configPathCmd)
}
