// temtrack is the aviation safety-event annotation service: a REST API
// where annotators record threat/error/UAS classifications and reviewers
// approve them through a structured workflow.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/avialab/temtrack/review"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var version = "0.3.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "temtrack",
		Short: "Aviation safety-event annotation service",
		Long: `temtrack serves the annotation review API: labeling items move through
draft -> submitted -> reviewed/approved, with field-level reviewer feedback
and an append-only audit trail.`,
	}

	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.temtrack/config.yaml)")

	cobra.OnInitialize(func() {
		initConfig(rootCmd)
	})

	rootCmd.AddCommand(
		newServeCmd(),
		newMigrateCmd(),
		newFieldsCmd(),
		newVersionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initConfig(rootCmd *cobra.Command) {
	if cfgFile, _ := rootCmd.PersistentFlags().GetString("config"); strings.TrimSpace(cfgFile) != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil && strings.TrimSpace(home) != "" {
			viper.AddConfigPath(home + "/.temtrack")
		}
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("TEMTRACK")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("server.addr", ":8600")
	viper.SetDefault("db.driver", "sqlite")
	viper.SetDefault("db.automigrate", true)
	viper.SetDefault("log.level", "info")

	// Missing config file is fine; defaults and env cover everything.
	_ = viper.ReadInConfig()
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("temtrack version %s\n", version)
		},
	}
}

func newFieldsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fields",
		Short: "List the reviewable fields of a labeling item",
		Run: func(cmd *cobra.Command, args []string) {
			for _, name := range review.ReviewableFields() {
				fmt.Println(name)
			}
		},
	}
}

func loggerFromViper() *slog.Logger {
	var level slog.Level
	switch strings.ToLower(strings.TrimSpace(viper.GetString("log.level"))) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.ToLower(strings.TrimSpace(viper.GetString("log.format"))) == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
