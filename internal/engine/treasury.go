package engine

import (
	"log/slog"
	"math"

	"github.com/dustin/go-humanize"

	"github.com/talgya/statecraft/internal/social"
)

// processTreasury collects tax from every owned region, spends the
// investment share of the treasury on infrastructure and erodes the treasury
// by positive inflation.
func (ns *NationSystem) processTreasury(n *social.Nation) {
	regions := ns.ownedRegions(n)
	ne := n.Economy

	collected := 0
	for _, r := range regions {
		tax := int(float64(r.Economy.Wealth) * ne.TaxRate)
		if tax <= 0 {
			continue
		}
		collected += -r.Economy.Credit(-tax)
	}
	ne.TreasuryBalance += collected

	invested := 0
	if len(regions) > 0 && ne.TreasuryBalance > 0 {
		per := int(float64(ne.TreasuryBalance)*ne.InfrastructureInvestment) / len(regions)
		if per > 0 {
			for _, r := range regions {
				gain := ns.infra.CalculateInvestmentGain(float64(per), r.Infrastructure.Level)
				r.Infrastructure.Improve(gain)
			}
			invested = per * len(regions)
			ne.TreasuryBalance -= invested
		}
	}

	ne.Inflation = ns.source.InflationRate()
	if ne.Inflation > 0 && ne.TreasuryBalance > 0 {
		ne.TreasuryBalance -= int(math.Round(float64(ne.TreasuryBalance) * ne.Inflation))
		ne.TreasuryBalance = max(ne.TreasuryBalance, 0)
	}

	slog.Debug("treasury",
		"nation", n.ID,
		"collected", humanize.Comma(int64(collected)),
		"invested", humanize.Comma(int64(invested)),
		"balance", humanize.Comma(int64(ne.TreasuryBalance)),
	)
}
