package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/lewtec/geogallery/internal/config"
	"github.com/lewtec/geogallery/internal/database"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init [folder]",
	Short: "Initialize a new gallery",
	Long: `Initialize a new gallery by creating:
- A sample configuration file (geogallery.yaml)
- An empty SQLite database
- The media library directory

Example:
  geogallery init ./trip
  geogallery init --config custom.yaml`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		configFile, _ := cmd.Flags().GetString("config")
		if len(args) == 1 {
			if err := os.MkdirAll(args[0], 0755); err != nil {
				return fmt.Errorf("failed to create folder: %w", err)
			}
			configFile = filepath.Join(args[0], defaultConfigFile)
		}

		if _, err := os.Stat(configFile); errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(out, "Creating sample configuration file: %s\n", configFile)
			if err := config.WriteSample(configFile); err != nil {
				return fmt.Errorf("failed to create config file: %w", err)
			}
		} else {
			fmt.Fprintf(out, "Config file already exists: %s\n", configFile)
		}

		loaded, err := config.Load(configFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		fmt.Fprintf(out, "Creating database: %s\n", loaded.Database.Path)
		db, err := database.OpenAndMigrate(cmd.Context(), loaded.Database.Path)
		if err != nil {
			return fmt.Errorf("failed to create database: %w", err)
		}
		defer db.Close()

		fmt.Fprintf(out, "Creating media library: %s\n", loaded.Media.Dir)
		if err := os.MkdirAll(loaded.Media.Dir, 0755); err != nil {
			return fmt.Errorf("failed to create media dir: %w", err)
		}
		if loaded.Capture.InboxDir != "" {
			if err := os.MkdirAll(loaded.Capture.InboxDir, 0755); err != nil {
				return fmt.Errorf("failed to create inbox dir: %w", err)
			}
		}

		fmt.Fprintln(out, "\nInitialization complete. Next steps:")
		fmt.Fprintf(out, "  geogallery -c %s import <photos...>\n", configFile)
		fmt.Fprintf(out, "  geogallery -c %s serve\n", configFile)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
