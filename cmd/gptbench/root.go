package main

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/metalagman/gptbench/internal/config"
	"github.com/metalagman/gptbench/internal/logging"
)

// version is set at build time.
var version = "dev"

var (
	cfgFile string
	debug   bool
	rootCmd = &cobra.Command{
		Use:           "gptbench",
		Short:         "gptbench benchmarks small local models on instructions, tool calls and agent tasks",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// Execute runs the root command.
func Execute() error {
	// subcommands with their own persistent hooks still need logging set up
	cobra.EnableTraverseRunHooks = true
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", config.DefaultPath, "config file path")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	if err := viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config")); err != nil {
		return fmt.Errorf("bind config flag: %w", err)
	}
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, _ []string) {
		logging.Init(debug)
		// .env is optional; it commonly carries OLLAMA_HOST or OPENAI_API_KEY.
		if err := godotenv.Load(); err == nil {
			log.Debug().Msg("loaded .env")
		}
	}
	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(toolsCmd())
	rootCmd.AddCommand(suitesCmd())
	rootCmd.AddCommand(mcpCmd())
	rootCmd.AddCommand(runsCmd())
	rootCmd.AddCommand(uiCmd())
	return rootCmd.Execute()
}

// loadConfig merges the config file, GPTBENCH_* environment and the command's
// bound flags.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	explicit := cmd.Flags().Changed("config")
	return config.Load(viper.GetViper(), cfgFile, explicit)
}

// bindFlags binds command flags to config keys. It runs when the command runs,
// so commands sharing a flag name do not steal each other's binding.
func bindFlags(flags *pflag.FlagSet, keys map[string]string) error {
	for flag, key := range keys {
		if err := viper.BindPFlag(key, flags.Lookup(flag)); err != nil {
			return fmt.Errorf("bind %s flag: %w", flag, err)
		}
	}
	return nil
}
