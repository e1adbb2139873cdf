package social

import (
	"errors"
	"fmt"
	"math"
)

// GDPHistoryLength bounds the GDP history kept per nation.
const GDPHistoryLength = 10

// Defaults for a new nation's treasury settings.
const (
	DefaultTaxRate    = 0.1
	DefaultInvestment = 0.1
	DefaultInflation  = 0.0
)

// ErrInvalidTaxRate is returned for tax rates outside [0,1].
var ErrInvalidTaxRate = errors.New("tax rate must be within [0,1]")

// ErrInvalidInvestment is returned for investment fractions outside [0,1].
var ErrInvalidInvestment = errors.New("investment fraction must be within [0,1]")

// NationEconomy aggregates owned regions and holds the treasury.
type NationEconomy struct {
	// Recomputed each turn from owned regions.
	TotalWealth           int     `json:"total_wealth"`
	TotalProduction       int     `json:"total_production"`
	AverageInfrastructure float64 `json:"average_infrastructure"`

	TreasuryBalance          int     `json:"treasury_balance"`
	TaxRate                  float64 `json:"tax_rate"`
	InfrastructureInvestment float64 `json:"infrastructure_investment"` // Fraction of treasury spent per turn

	GDP           float64   `json:"gdp"`
	PreviousGDP   float64   `json:"previous_gdp"`
	GDPGrowthRate float64   `json:"gdp_growth_rate"`
	Inflation     float64   `json:"inflation"`
	GDPHistory    []float64 `json:"gdp_history"`
}

// NewNationEconomy returns an economy with default rates and an empty treasury.
func NewNationEconomy() *NationEconomy {
	return &NationEconomy{
		TaxRate:                  DefaultTaxRate,
		InfrastructureInvestment: DefaultInvestment,
		Inflation:                DefaultInflation,
	}
}

// SetTaxRate changes the tax rate. Out-of-range values are rejected and the
// previous rate kept.
func (e *NationEconomy) SetTaxRate(rate float64) error {
	if math.IsNaN(rate) || rate < 0 || rate > 1 {
		return fmt.Errorf("%w: got %.3f", ErrInvalidTaxRate, rate)
	}
	e.TaxRate = rate
	return nil
}

// SetInvestment changes the infrastructure investment fraction.
func (e *NationEconomy) SetInvestment(fraction float64) error {
	if math.IsNaN(fraction) || fraction < 0 || fraction > 1 {
		return fmt.Errorf("%w: got %.3f", ErrInvalidInvestment, fraction)
	}
	e.InfrastructureInvestment = fraction
	return nil
}

// RecordGDP rolls GDP forward, recomputes growth and appends to the bounded history.
func (e *NationEconomy) RecordGDP(gdp float64) {
	e.PreviousGDP = e.GDP
	e.GDP = gdp
	if e.PreviousGDP > 0 {
		e.GDPGrowthRate = (e.GDP - e.PreviousGDP) / e.PreviousGDP
	} else {
		e.GDPGrowthRate = 0
	}
	e.GDPHistory = append(e.GDPHistory, gdp)
	if len(e.GDPHistory) > GDPHistoryLength {
		e.GDPHistory = e.GDPHistory[len(e.GDPHistory)-GDPHistoryLength:]
	}
}
