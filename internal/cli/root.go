package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/everforgeworks/fabline/internal/game"
)

var (
	// Global flags
	configPath  string
	catalogPath string
)

// NewRootCommand creates the root command for the CLI
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "fabline",
		Short: "FabLine - semiconductor supply chain game server",
		Long: `FabLine runs the turn based fab production game: players forecast demand,
start wafers, and balance capacity, inventory and on-time delivery.

Examples:
  fabline serve --config fabline.yaml
  fabline simulate --level 2 --units 1300 --overtime fab --seed 42
  fabline levels`,
		SilenceUsage: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Path to server config file (default: ./fabline.yaml if present)")
	rootCmd.PersistentFlags().StringVar(&catalogPath, "levels", "",
		"Path to the level catalog (overrides levels.file)")

	rootCmd.AddCommand(NewServeCommand())
	rootCmd.AddCommand(NewSimulateCommand())
	rootCmd.AddCommand(NewLevelsCommand())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadCatalog reads the catalog file, falling back to the built-in campaign
// when the file does not exist.
func loadCatalog(path string) (*game.Catalog, error) {
	if catalogPath != "" {
		path = catalogPath
	}
	c, err := game.LoadCatalog(path)
	if errors.Is(err, fs.ErrNotExist) {
		log.Printf("CATALOG: %s not found, using built-in levels", path)
		return game.DefaultCatalog(), nil
	}
	return c, err
}
