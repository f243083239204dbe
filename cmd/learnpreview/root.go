package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ericfisherdev/learnpreview/internal/config"
	"github.com/ericfisherdev/learnpreview/internal/logging"
)

var (
	// cfgFile is the --config flag. Empty means ./learnpreview.yaml if present.
	cfgFile string

	v         = config.NewViper()
	appConfig *config.Config
	logger    = zerolog.Nop()

	stopSignals context.CancelFunc
)

var rootCmd = &cobra.Command{
	Use:   "learnpreview",
	Short: "Preview documentation pull request files on Learn",
	Long: `learnpreview resolves the published Learn preview of files changed in a
documentation pull request. It locates the PR's build status check, parses the
build report it links to and maps each file to its preview URL.

Run "learnpreview serve" to back the in-page button, or use "resolve" for a
single file.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		stopSignals = stop
		cmd.SetContext(ctx)
		return initConfig()
	},
	PersistentPostRun: func(*cobra.Command, []string) {
		if stopSignals != nil {
			stopSignals()
		}
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is ./learnpreview.yaml)")
	flags.String("db-path", "learnpreview.db", "SQLite file holding the encrypted token")
	flags.String("check-name", "OpenPublishing.Build", "status check context to look for")
	flags.String("log-level", "info", "log level (trace, debug, info, warn, error)")
	flags.String("log-format", "console", "log format (console or json)")

	mustBind("db_path", flags.Lookup("db-path"))
	mustBind("check_name", flags.Lookup("check-name"))
	mustBind("log.level", flags.Lookup("log-level"))
	mustBind("log.format", flags.Lookup("log-format"))

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(tokenCmd)
}

func mustBind(key string, flag *pflag.Flag) {
	if err := v.BindPFlag(key, flag); err != nil {
		panic(fmt.Sprintf("bind flag %s: %v", flag.Name, err))
	}
}

// initConfig reads the optional config file, then validates the merged
// flag, environment, file and default values.
func initConfig() error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("learnpreview")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}

	cfg, err := config.Load(v)
	if err != nil {
		return err
	}
	appConfig = cfg

	l, err := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	if err != nil {
		return err
	}
	logger = l

	if used := v.ConfigFileUsed(); used != "" {
		logger.Debug().Str("file", used).Msg("config file loaded")
	}
	return nil
}
