// Package config loads the simulation configuration from YAML. Every option
// is read once at construction; systems never consult the file again.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/talgya/statecraft/internal/world"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config is the complete configuration surface.
type Config struct {
	Seed         int64         `yaml:"seed"`          // 0 = nondeterministic price shocks and generation
	TurnInterval time.Duration `yaml:"turn_interval"` // Real-time length of one turn in `run` mode

	Economy  Economy  `yaml:"economy"`
	Nations  Nations  `yaml:"nations"`
	Server   Server   `yaml:"server"`
	Scenario Scenario `yaml:"scenario"`
}

// Economy configures the calculators and the economic tick.
type Economy struct {
	ProductivityFactor float64 `yaml:"productivity_factor"`
	LaborElasticity    float64 `yaml:"labor_elasticity"`
	CapitalElasticity  float64 `yaml:"capital_elasticity"`

	EfficiencyModifier    float64 `yaml:"efficiency_modifier"`
	DecayRate             float64 `yaml:"decay_rate"`
	MaintenanceCostFactor float64 `yaml:"maintenance_cost_factor"`

	BaseConsumptionRate       float64 `yaml:"base_consumption_rate"`
	WealthConsumptionExponent float64 `yaml:"wealth_consumption_exponent"`
	UnmetDemandUnrestFactor   float64 `yaml:"unmet_demand_unrest_factor"`

	CycleLength          int  `yaml:"cycle_length"`
	EnableEconomicCycles bool `yaml:"enable_economic_cycles"`

	ResourceTypes   []string          `yaml:"resource_types"`
	ResourceClasses map[string]string `yaml:"resource_classes"` // type → necessity|standard|luxury

	IncomeFraction             float64 `yaml:"income_fraction"` // Share of production credited back as wealth
	MaxPriceChange             float64 `yaml:"max_price_change"`
	MaxPriceShock              float64 `yaml:"max_price_shock"`
	EnableInfrastructureUpkeep bool    `yaml:"enable_infrastructure_upkeep"`
}

// Nations configures the per-turn nation subsystems.
type Nations struct {
	DefaultTaxRate    float64 `yaml:"default_tax_rate"`
	DefaultInvestment float64 `yaml:"default_investment"`
	RelationDecay     float64 `yaml:"relation_decay"`     // Fraction of score lost per turn
	InfluenceRegen    float64 `yaml:"influence_regen"`    // Influence per turn at full reputation
	StabilityRecovery float64 `yaml:"stability_recovery"` // Stability gained per calm turn
	FactorDecay       float64 `yaml:"factor_decay"`       // Fraction of severity lost per turn
	TreatyCost        float64 `yaml:"treaty_cost"`        // Influence spent on a treaty
	PovertyThreshold  int     `yaml:"poverty_threshold"`  // Mean region wealth below which poverty unrest appears
}

// Server configures the HTTP API and history store used by `run`.
type Server struct {
	Port           int      `yaml:"port"`
	DBPath         string   `yaml:"db_path"`         // Empty disables the history store
	TrustedProxies []string `yaml:"trusted_proxies"` // Reverse proxy addresses allowed to set X-Forwarded-For
}

// Scenario describes the starting regions and nations. Empty lists fall
// back to generated regions and the sample nations.
type Scenario struct {
	Width     int        `yaml:"width"`
	Height    int        `yaml:"height"`
	Regions   []Region   `yaml:"regions"`
	Nations   []Nation   `yaml:"nations"`
	Relations []Relation `yaml:"relations"`
}

// Region is one hand-authored region.
type Region struct {
	ID             string             `yaml:"id"`
	Name           string             `yaml:"name"`
	Q              int                `yaml:"q"`
	R              int                `yaml:"r"`
	Wealth         int                `yaml:"wealth"`
	Population     int                `yaml:"population"`
	LaborShare     float64            `yaml:"labor_share"`
	Infrastructure float64            `yaml:"infrastructure"`
	Quality        float64            `yaml:"quality"`
	Resources      map[string]float64 `yaml:"resources"`
}

// Nation is one hand-authored nation with its starting regions.
type Nation struct {
	ID      string             `yaml:"id"`
	Name    string             `yaml:"name"`
	Color   string             `yaml:"color"`
	TaxRate *float64           `yaml:"tax_rate"`
	Sliders map[string]float64 `yaml:"sliders"` // policy type → value
	Regions []string           `yaml:"regions"`
}

// Relation seeds the score between two nations.
type Relation struct {
	A     string  `yaml:"a"`
	B     string  `yaml:"b"`
	Score float64 `yaml:"score"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Seed:         0,
		TurnInterval: 2 * time.Second,
		Economy: Economy{
			ProductivityFactor:         1.0,
			LaborElasticity:            0.7,
			CapitalElasticity:          0.3,
			EfficiencyModifier:         0.5,
			DecayRate:                  0.02,
			MaintenanceCostFactor:      2.0,
			BaseConsumptionRate:        0.1,
			WealthConsumptionExponent:  0.5,
			UnmetDemandUnrestFactor:    0.5,
			CycleLength:                20,
			EnableEconomicCycles:       true,
			ResourceTypes:              append([]string(nil), world.DefaultResourceTypes...),
			ResourceClasses:            map[string]string{},
			IncomeFraction:             0.5,
			MaxPriceChange:             0.1,
			MaxPriceShock:              0.05,
			EnableInfrastructureUpkeep: true,
		},
		Nations: Nations{
			DefaultTaxRate:    0.1,
			DefaultInvestment: 0.1,
			RelationDecay:     0.02,
			InfluenceRegen:    10,
			StabilityRecovery: 0.01,
			FactorDecay:       0.1,
			TreatyCost:        20,
			PovertyThreshold:  100,
		},
		Server: Server{
			Port:   8080,
			DBPath: "data/statecraft.db",
		},
		Scenario: Scenario{
			Width:  6,
			Height: 4,
		},
	}
}

// Load reads path on top of Default and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects out-of-range values.
func (c Config) Validate() error {
	e := c.Economy
	if e.ProductivityFactor < 0 || e.LaborElasticity < 0 || e.CapitalElasticity < 0 {
		return fmt.Errorf("%w: economy production parameters must be non-negative", ErrInvalid)
	}
	if e.DecayRate < 0 || e.DecayRate > 1 {
		return fmt.Errorf("%w: economy.decay_rate %v outside [0,1]", ErrInvalid, e.DecayRate)
	}
	if e.BaseConsumptionRate < 0 || e.UnmetDemandUnrestFactor < 0 {
		return fmt.Errorf("%w: economy consumption parameters must be non-negative", ErrInvalid)
	}
	if e.CycleLength <= 0 {
		return fmt.Errorf("%w: economy.cycle_length must be positive", ErrInvalid)
	}
	if len(e.ResourceTypes) == 0 {
		return fmt.Errorf("%w: economy.resource_types is empty", ErrInvalid)
	}
	seen := make(map[string]bool, len(e.ResourceTypes))
	for _, rt := range e.ResourceTypes {
		if rt == "" || seen[rt] {
			return fmt.Errorf("%w: economy.resource_types has empty or duplicate entry %q", ErrInvalid, rt)
		}
		seen[rt] = true
	}
	for rt, tag := range e.ResourceClasses {
		if _, ok := world.ParseResourceClass(tag); !ok {
			return fmt.Errorf("%w: economy.resource_classes[%s] = %q", ErrInvalid, rt, tag)
		}
	}
	if e.IncomeFraction < 0 || e.IncomeFraction > 1 {
		return fmt.Errorf("%w: economy.income_fraction %v outside [0,1]", ErrInvalid, e.IncomeFraction)
	}
	if e.MaxPriceChange <= 0 || e.MaxPriceChange > 0.9 {
		return fmt.Errorf("%w: economy.max_price_change %v outside (0,0.9]", ErrInvalid, e.MaxPriceChange)
	}
	if e.MaxPriceShock < 0 || e.MaxPriceShock > 0.9 {
		return fmt.Errorf("%w: economy.max_price_shock %v outside [0,0.9]", ErrInvalid, e.MaxPriceShock)
	}

	n := c.Nations
	for name, v := range map[string]float64{
		"default_tax_rate":   n.DefaultTaxRate,
		"default_investment": n.DefaultInvestment,
		"relation_decay":     n.RelationDecay,
		"stability_recovery": n.StabilityRecovery,
		"factor_decay":       n.FactorDecay,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%w: nations.%s %v outside [0,1]", ErrInvalid, name, v)
		}
	}
	if n.InfluenceRegen < 0 || n.TreatyCost < 0 {
		return fmt.Errorf("%w: nations influence parameters must be non-negative", ErrInvalid)
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server.port %d", ErrInvalid, c.Server.Port)
	}
	for _, ip := range c.Server.TrustedProxies {
		if net.ParseIP(ip) == nil {
			return fmt.Errorf("%w: server.trusted_proxies %q is not an IP address", ErrInvalid, ip)
		}
	}
	if c.TurnInterval < 0 {
		return fmt.Errorf("%w: turn_interval is negative", ErrInvalid)
	}

	return c.Scenario.validate()
}

func (s Scenario) validate() error {
	regionIDs := make(map[string]bool, len(s.Regions))
	for _, r := range s.Regions {
		if r.ID == "" || regionIDs[r.ID] {
			return fmt.Errorf("%w: scenario region id %q empty or duplicated", ErrInvalid, r.ID)
		}
		regionIDs[r.ID] = true
	}

	owner := make(map[string]string)
	nationIDs := make(map[string]bool, len(s.Nations))
	for _, n := range s.Nations {
		if n.ID == "" || nationIDs[n.ID] {
			return fmt.Errorf("%w: scenario nation id %q empty or duplicated", ErrInvalid, n.ID)
		}
		nationIDs[n.ID] = true
		if n.TaxRate != nil && (*n.TaxRate < 0 || *n.TaxRate > 1) {
			return fmt.Errorf("%w: nation %s tax_rate %v outside [0,1]", ErrInvalid, n.ID, *n.TaxRate)
		}
		for _, rid := range n.Regions {
			if prev, ok := owner[rid]; ok {
				return fmt.Errorf("%w: region %s assigned to both %s and %s", ErrInvalid, rid, prev, n.ID)
			}
			owner[rid] = n.ID
		}
	}
	for _, rel := range s.Relations {
		if !nationIDs[rel.A] || !nationIDs[rel.B] || rel.A == rel.B {
			return fmt.Errorf("%w: relation %s/%s names unknown nations", ErrInvalid, rel.A, rel.B)
		}
	}
	return nil
}

// Classifier converts resource_classes into a world.Classifier. Call after
// Validate; unknown tags are skipped.
func (e Economy) Classifier() world.Classifier {
	c := make(world.Classifier, len(e.ResourceClasses))
	for rt, tag := range e.ResourceClasses {
		if cls, ok := world.ParseResourceClass(tag); ok {
			c[rt] = cls
		}
	}
	return c
}

// Spec converts a configured region into a world.RegionSpec.
func (r Region) Spec() world.RegionSpec {
	return world.RegionSpec{
		ID:             r.ID,
		Name:           r.Name,
		Position:       world.Coord{Q: r.Q, R: r.R},
		Wealth:         r.Wealth,
		Population:     r.Population,
		LaborShare:     r.LaborShare,
		Infrastructure: r.Infrastructure,
		Quality:        r.Quality,
		ResourceRates:  r.Resources,
	}
}
