package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"rulemerge/config"
	"rulemerge/updater"
)

var (
	configPath string
	dataDir    string
	outputPath string
	logLevel   string
	once       bool
)

var rootCmd = &cobra.Command{
	Use:          "rulemerge",
	Short:        "Merge upstream ad-blocking lists into one minimal Loon rule file",
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.Flags().StringVar(&configPath, "config", "config.yaml", "path to configuration file")
	rootCmd.Flags().StringVar(&dataDir, "data", "", "directory for caching fetched lists (overrides fetch.data_dir)")
	rootCmd.Flags().StringVarP(&outputPath, "output", "o", "", "output rule file (overrides output.path)")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (overrides log.level)")
	rootCmd.Flags().BoolVar(&once, "once", false, "build once and exit even if an interval is configured")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	// 1. Load Config
	cfgMgr := config.NewManager(configPath)
	loadErr := cfgMgr.Load()

	if err := cfgMgr.Update(applyFlags(cmd)); err != nil {
		return err
	}
	cfg := cfgMgr.Get()

	// 2. Logging
	if err := setupLogging(cfg.Log); err != nil {
		return err
	}
	if loadErr != nil {
		log.Warnf("Failed to load config: %v. Using defaults.", loadErr)
	} else {
		log.Infof("Configuration loaded successfully from %s", configPath)
	}

	// 3. Build
	upd := updater.NewUpdater(cfgMgr)
	if cfg.Interval <= 0 {
		_, err := upd.Build(cmd.Context())
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- upd.Run(ctx)
	}()

	// 4. Wait for shutdown, reload on SIGHUP
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	for {
		select {
		case err := <-done:
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		case s := <-sigChan:
			if s == syscall.SIGHUP {
				if err := cfgMgr.Load(); err != nil {
					log.Errorf("Reload failed: %v", err)
				} else if err := cfgMgr.Update(applyFlags(cmd)); err != nil {
					log.Errorf("Reload failed: %v", err)
				} else {
					log.Infof("Configuration reloaded from %s", configPath)
				}
				continue
			}
			log.Infof("Received signal %v, shutting down...", s)
			upd.Stop()
			cancel()
			return nil
		}
	}
}

// applyFlags returns an update that lays explicit command-line flags over
// the loaded configuration.
func applyFlags(cmd *cobra.Command) func(*config.Config) {
	return func(cfg *config.Config) {
		if cmd.Flags().Changed("data") {
			cfg.Fetch.DataDir = dataDir
		}
		if cmd.Flags().Changed("output") {
			cfg.Output.Path = outputPath
		}
		if cmd.Flags().Changed("log-level") {
			cfg.Log.Level = logLevel
		}
		if once {
			cfg.Interval = 0
		}
	}
}
