// Command himitsud runs the Himitsu secret-scanning daemon: it binds a
// local Unix-domain rendezvous point and services ScanCodeDiff requests
// from precommit checkers and editor shims until it receives a shutdown
// signal.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	himitsu "github.com/obelisk/himitsu/pkg"
)

const (
	exitOK int = iota
	exitBadConfig
	exitBindFailed
)

func main() {
	if code := run(); code != exitOK {
		os.Exit(code)
	}
}

func run() int {
	var (
		socketPath string
		configPath string
		configURL  string
		configKey  string
		verbose    bool
	)

	root := &cobra.Command{
		Use:   "himitsud",
		Short: "Run the Himitsu secret-scanning daemon",
	}
	root.Flags().StringVar(&socketPath, "socket", himitsu.DefaultSocketPath(), "path to bind the daemon's Unix-domain socket")
	root.Flags().StringVar(&configPath, "config", "", "path to a JSON configuration file (mutually exclusive with --config-url)")
	root.Flags().StringVar(&configURL, "config-url", "", "URL to fetch a base64 (optionally encrypted) configuration from")
	root.Flags().StringVar(&configKey, "config-key", os.Getenv("HIMITSU_KEY"), "64-char hex AES-256-GCM key, required if the configuration is encrypted")
	root.Flags().BoolVar(&verbose, "verbose", false, "enable debug logging")

	exitCode := exitOK
	root.RunE = func(cmd *cobra.Command, args []string) error {
		if verbose {
			zerolog.SetGlobalLevel(zerolog.DebugLevel)
		} else {
			zerolog.SetGlobalLevel(zerolog.InfoLevel)
		}

		loader := buildLoader(configPath, configURL, configKey)
		config, err := loader()
		if err != nil {
			log.Error().Err(err).Msg("failed to build initial configuration, falling back to defaults")
			config, err = himitsu.NewDefaultConfiguration()
			if err != nil {
				exitCode = exitBadConfig
				return err
			}
		}

		handler := himitsu.NewHandler(config, loader)
		dispatcher, err := himitsu.NewDispatcher(socketPath, handler)
		if err != nil {
			exitCode = exitBindFailed
			return fmt.Errorf("failed to bind %s: %w", socketPath, err)
		}

		control := dispatcher.Control()
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			<-sigs
			log.Info().Msg("received shutdown signal")
			control <- himitsu.ShutdownMessage()
		}()

		log.Info().Str("socket", socketPath).Msg("himitsu daemon listening")
		dispatcher.Run()
		return nil
	}

	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg("himitsud exited with an error")
		if exitCode == exitOK {
			exitCode = exitBadConfig
		}
	}
	return exitCode
}

func buildLoader(configPath, configURL, configKey string) himitsu.ConfigLoader {
	switch {
	case configPath != "":
		return func() (*himitsu.Configuration, error) { return himitsu.NewConfigurationFromFile(configPath) }
	case configURL != "":
		return func() (*himitsu.Configuration, error) { return himitsu.NewConfigurationFromURL(configURL, configKey) }
	default:
		return func() (*himitsu.Configuration, error) { return himitsu.NewDefaultConfiguration() }
	}
}
