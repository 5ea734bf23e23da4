package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/everforgeworks/fabline/internal/config"
	"github.com/everforgeworks/fabline/internal/game"
)

// NewLevelsCommand lists the level catalog
func NewLevelsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "levels",
		Short: "List the levels in the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(configPath)
			if err != nil {
				return err
			}
			catalog, err := loadCatalog(cfg.Levels.File)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTITLE\tPLAYABLE\tTURNS\tSTAGES")
			for _, e := range catalog.Levels {
				turns, stages := "-", "-"
				if e.Playable() {
					turns = fmt.Sprint(e.Simulation.TotalTurns)
					stages = stageSummary(e)
				}
				fmt.Fprintf(w, "%d\t%s\t%t\t%s\t%s\n", e.ID, e.Title, e.Playable(), turns, stages)
			}
			return w.Flush()
		},
	}
}

func stageSummary(e game.LevelEntry) string {
	names := make([]string, 0, len(e.Simulation.Stages))
	for _, st := range e.Simulation.Stages {
		names = append(names, st.Name)
	}
	return strings.Join(names, ">")
}
