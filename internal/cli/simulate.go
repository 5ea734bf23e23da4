package cli

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/everforgeworks/fabline/internal/config"
	"github.com/everforgeworks/fabline/internal/game"
	"github.com/everforgeworks/fabline/internal/sim"
)

// NewSimulateCommand plays a level headlessly with a constant decision
func NewSimulateCommand() *cobra.Command {
	var (
		level    int
		units    string
		seed     int64
		overtime []string
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Play a level with the same decision every turn",
		Long: `Runs a full playthrough without a frontend and prints one line per turn.

Examples:
  fabline simulate --level 1 --units 900 --seed 42
  fabline simulate --level 2 --units 1300 --overtime fab,atp`,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := sim.ParseUnits(units)
			if err != nil {
				return err
			}

			cfg, err := config.LoadConfig(configPath)
			if err != nil {
				return err
			}
			catalog, err := loadCatalog(cfg.Levels.File)
			if err != nil {
				return err
			}
			entry, ok := catalog.Level(level)
			if !ok {
				return fmt.Errorf("%w: %d", game.ErrLevelNotFound, level)
			}
			if !entry.Playable() {
				return fmt.Errorf("%w: %d", game.ErrLevelNotPlayable, level)
			}

			allowed := game.OvertimeStages(*entry.Simulation)
			decision := sim.Decision{Units: n, Overtime: map[string]bool{}}
			for _, name := range overtime {
				name = strings.TrimSpace(name)
				if !slices.Contains(allowed, name) {
					return sim.NewInputError("overtime", fmt.Sprintf("stage %q has no overtime mode (level %d offers: %s)",
						name, level, offered(allowed)))
				}
				decision.Overtime[name] = true
			}

			p, err := game.Autoplay(*entry.Simulation, sim.NewSeededSource(seed), decision)
			if err != nil {
				return err
			}
			printPlaythrough(cmd, entry, p)
			return nil
		},
	}

	cmd.Flags().IntVar(&level, "level", 1, "Level id to play")
	cmd.Flags().StringVar(&units, "units", "", "Wafers to start every turn")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Demand seed (0 = random)")
	cmd.Flags().StringSliceVar(&overtime, "overtime", nil, "Stages to run on overtime every turn")
	cmd.MarkFlagRequired("units")

	return cmd
}

func offered(names []string) string {
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ", ")
}

func printPlaythrough(cmd *cobra.Command, entry game.LevelEntry, p game.Playthrough) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Level %d: %s\n", entry.ID, entry.Title)
	for _, rec := range p.History {
		fmt.Fprintf(out, "turn %d  demand %5d  started %5d  released %5d  sold %5d  stock %5d  wip %5d  profit %10s  cum %10s  otd %3d%%\n",
			rec.Turn, rec.Demand, rec.Decision.Units, rec.Released, rec.Sold, rec.Inventory, rec.WorkInProcess,
			rec.Profit.StringFixed(2), rec.CumulativeProfit.StringFixed(2), rec.OTD)
	}

	o := p.Outcome
	fmt.Fprintf(out, "result: %s  profit %s (target met: %t)  otd %d%% (target met: %t)\n",
		strings.ToUpper(string(o.Status)), o.CumulativeProfit.StringFixed(2), o.ProfitMet, o.FinalOTD, o.OTDMet)
}
