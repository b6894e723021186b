package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"student-roster-go/config"
	"student-roster-go/db"
)

var (
	// Global flags
	configPath string
	dataFile   string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "roster",
	Short: "Student roster with a chat assistant",
	Long: `roster keeps a JSON file of students (given name, family name, course)
and serves a chat endpoint where a local language model answers questions
about them by calling roster tools.

Run without a subcommand to start the HTTP server.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if dataFile != "" {
			cfg.DataFile = dataFile
		}

		zc := zap.NewProductionConfig()
		if verbose || cfg.Debug {
			zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		logger, err = zc.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dataFile, "data", "", "roster JSON file (overrides data_file)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(serveCmd, listCmd, addCmd, searchCmd, importCmd)
}

// openStore builds the roster store from the loaded config and reads the file.
// A missing or broken file is logged by the store and yields an empty roster.
func openStore() *db.JSONStore {
	store, _ := db.OpenJSONStore(cfg.DataFile, logger, db.WithUniqueNames(cfg.UniqueNames))
	return store
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
