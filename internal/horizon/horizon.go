// Package horizon enumerates the futures contract months covered by one acquisition cycle.
//
// Months are derived by stepping 30 days at a time from "now", not by calendar month
// arithmetic. Near month ends a step can land in the same month twice or skip one; callers
// receive that sequence unchanged and storage deduplicates repeated months.
package horizon

import (
	"time"

	"github.com/rickgao/vix-data/internal/model"
)

// Defaults for the VIX futures horizon.
const (
	DefaultRoot   = "VX"
	DefaultMonths = 9
	StepDays      = 30
	MonthLayout   = "200601"
)

// Generator produces contract identifiers for a fixed forward window.
type Generator struct {
	Root   string // Prefix for display symbols
	Months int    // Number of identifiers per horizon
}

// NewGenerator returns a Generator with the given root and length.
// Empty root or non-positive months fall back to the defaults.
func NewGenerator(root string, months int) Generator {
	if root == "" {
		root = DefaultRoot
	}
	if months <= 0 {
		months = DefaultMonths
	}
	return Generator{Root: root, Months: months}
}

// Generate returns the horizon starting at now, in generation order.
func (g Generator) Generate(now time.Time) []model.ContractID {
	ids := make([]model.ContractID, 0, g.Months)
	for i := 0; i < g.Months; i++ {
		month := now.AddDate(0, 0, i*StepDays).Format(MonthLayout)
		ids = append(ids, model.ContractID{
			Symbol: g.Root + month,
			Month:  month,
		})
	}
	return ids
}

// Generate returns a horizon of the given length using the default root.
func Generate(now time.Time, months int) []model.ContractID {
	return Generator{Root: DefaultRoot, Months: months}.Generate(now)
}
