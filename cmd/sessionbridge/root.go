// Package main provides the entry point for the session bridge.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/opencode-ai/sessionbridge/internal/config"
	"github.com/opencode-ai/sessionbridge/internal/logging"
)

var (
	// Version is set at build time.
	Version   = "0.1.0"
	BuildTime = "dev"
)

var (
	configPath string
	printLogs  bool
	logLevel   string
	logFile    bool
	showConfig bool
)

var rootCmd = &cobra.Command{
	Use:   "sessionbridge",
	Short: "Session teleport bridge between a terminal agent and a chat frontend",
	Long: `sessionbridge is a long-lived process that bridges a terminal-hosted
AI coding agent with a chat frontend, so a running task can be handed
off to a phone and picked back up at the terminal.

Run 'sessionbridge serve' to start the orchestrator.`,
	Version: Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logCfg := logging.Config{
			Level:     logging.ParseLevel(logLevel),
			Output:    os.Stderr,
			Pretty:    printLogs,
			LogToFile: logFile,
		}
		if !printLogs && !logFile {
			logCfg.Level = logging.FatalLevel
		}
		logging.Init(logCfg)

		if logFile {
			logging.Info().
				Str("version", Version).
				Str("logFile", logging.GetLogFilePath()).
				Msg("sessionbridge started with file logging")
		}

		if showConfig {
			cfg, err := config.Load(configPath)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
				os.Exit(1)
			}
			fmt.Printf("%+v\n", cfg)
			os.Exit(0)
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.GlobalConfigPath(), "Path to sessionbridge.toml")
	rootCmd.PersistentFlags().BoolVar(&printLogs, "print-logs", false, "Print logs to stderr")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "INFO", "Log level (DEBUG|INFO|WARN|ERROR)")
	rootCmd.PersistentFlags().BoolVar(&logFile, "log-file", false, "Write logs to /tmp/sessionbridge-YYYYMMDD-HHMMSS.log")
	rootCmd.PersistentFlags().BoolVar(&showConfig, "show-config", false, "Print merged configuration and exit")

	rootCmd.SetVersionTemplate(fmt.Sprintf("sessionbridge %s (%s)\n", Version, BuildTime))

	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
