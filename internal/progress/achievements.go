package progress

import (
	"github.com/shopspring/decimal"

	"github.com/everforgeworks/fabline/internal/sim"
)

const (
	AchievementFirstWin         = "first_win"
	AchievementCapacityMaster   = "capacity_master"
	AchievementEfficiencyExpert = "efficiency_expert"
)

var (
	capacityMasterUtilization = 90
	efficiencyExpertCostLimit = decimal.NewFromInt(500)
)

// EarnedAchievements lists the achievements a finished playthrough qualifies for.
// Only wins earn achievements.
func EarnedAchievements(o sim.Outcome) []string {
	if o.Status != sim.StatusWon {
		return nil
	}

	earned := []string{AchievementFirstWin}

	// the line-management achievements need at least one capped stage
	if len(o.FinalUtilization) == 0 {
		return earned
	}

	// every capped stage ran at >= 90% on the final turn
	master := true
	for _, u := range o.FinalUtilization {
		if u < capacityMasterUtilization {
			master = false
			break
		}
	}
	if master {
		earned = append(earned, AchievementCapacityMaster)
	}

	if o.AverageInventoryCost.LessThan(efficiencyExpertCostLimit) {
		earned = append(earned, AchievementEfficiencyExpert)
	}
	return earned
}
