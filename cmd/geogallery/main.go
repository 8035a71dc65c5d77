package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/lewtec/geogallery/internal/config"
	"github.com/lewtec/geogallery/internal/logging"
	"github.com/lewtec/geogallery/internal/web"
)

const defaultConfigFile = "geogallery.yaml"

// cfg is loaded before any command runs
var cfg *config.Config

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "geogallery",
	Short: "Capture geotagged photos and browse them as a gallery or a map",
	Long: strings.TrimSpace(`
Keeps a local catalogue of photographs tagged with GPS coordinates. Images are
captured from files or uploads, stored in a media library and listed as a grid
gallery or as markers on a map.
    `),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configFile, _ := cmd.Flags().GetString("config")
		// init creates the file it is pointed at
		explicit := cmd.Flags().Changed("config") && cmd.Name() != "init"
		loaded, err := loadConfig(configFile, explicit)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if level, _ := cmd.Flags().GetString("log-level"); level != "" {
			loaded.Log.Level = level
		}
		if err := logging.SetupWriter(cmd.ErrOrStderr(), loaded.Log.Level, loaded.Log.Format); err != nil {
			return err
		}
		web.SetLanguage(loaded.Language)
		cfg = loaded
		return nil
	},
}

// loadConfig reads filename. The default file is optional; an explicit one is not.
func loadConfig(filename string, explicit bool) (*config.Config, error) {
	if !explicit {
		if _, err := os.Stat(filename); errors.Is(err, os.ErrNotExist) {
			return config.Default(), nil
		}
	}
	return config.Load(filename)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// replaced once the config is read
	logging.Setup("info", "console")

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("error executing command")
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", defaultConfigFile, "Config file")
	rootCmd.PersistentFlags().String("log-level", "", "Override log.level (trace, debug, info, warn, error)")
}
