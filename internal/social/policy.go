package social

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// PolicyType enumerates the policy sliders.
type PolicyType uint8

const (
	PolicyEconomic PolicyType = iota
	PolicyDiplomatic
	PolicyMilitary
	PolicySocial

	policyTypeCount
)

// DefaultSlider is the balanced slider position.
const DefaultSlider = 0.5

// ErrInvalidPolicyType is returned for slider types outside the enumeration.
var ErrInvalidPolicyType = errors.New("invalid policy type")

// ErrInvalidPolicy is returned when a time-limited policy cannot be enacted.
var ErrInvalidPolicy = errors.New("invalid policy")

// Valid reports whether t is one of the enumerated types.
func (t PolicyType) Valid() bool {
	return t < policyTypeCount
}

// String returns a human-readable name.
func (t PolicyType) String() string {
	switch t {
	case PolicyEconomic:
		return "Economic"
	case PolicyDiplomatic:
		return "Diplomatic"
	case PolicyMilitary:
		return "Military"
	case PolicySocial:
		return "Social"
	default:
		return fmt.Sprintf("PolicyType(%d)", uint8(t))
	}
}

// ParsePolicyType maps a name back to a type, ignoring case.
func ParsePolicyType(name string) (PolicyType, error) {
	for t := PolicyEconomic; t < policyTypeCount; t++ {
		if strings.EqualFold(t.String(), name) {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidPolicyType, name)
}

// Policy is a time-limited measure with per-turn effects.
// Effects are fractional: 0.05 means +5% per turn.
type Policy struct {
	ID               string  `json:"id"`
	Name             string  `json:"name"`
	Cost             int     `json:"cost"`
	WealthEffect     float64 `json:"wealth_effect"`
	ProductionEffect float64 `json:"production_effect"`
	StabilityEffect  float64 `json:"stability_effect"`
	RemainingTurns   int     `json:"remaining_turns"`
}

// NewPolicy creates a policy with a fresh id.
func NewPolicy(name string, cost int, wealth, production, stability float64, turns int) *Policy {
	return &Policy{
		ID:               uuid.NewString(),
		Name:             name,
		Cost:             cost,
		WealthEffect:     wealth,
		ProductionEffect: production,
		StabilityEffect:  stability,
		RemainingTurns:   turns,
	}
}

// PolicySet holds the four sliders and the active time-limited policies.
type PolicySet struct {
	Sliders [policyTypeCount]float64 `json:"sliders"`
	Active  []*Policy                `json:"active"`
}

// NewPolicySet returns balanced sliders and no active policies.
func NewPolicySet() *PolicySet {
	ps := &PolicySet{}
	for i := range ps.Sliders {
		ps.Sliders[i] = DefaultSlider
	}
	return ps
}

// Slider returns the value of a slider.
func (ps *PolicySet) Slider(t PolicyType) (float64, error) {
	if !t.Valid() {
		return 0, fmt.Errorf("%w: %d", ErrInvalidPolicyType, uint8(t))
	}
	return ps.Sliders[t], nil
}

// SetSlider sets a slider, clamping the value to [0,1]. Invalid types are
// rejected and nothing changes.
func (ps *PolicySet) SetSlider(t PolicyType, value float64) error {
	if !t.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidPolicyType, uint8(t))
	}
	ps.Sliders[t] = lo.Clamp(value, 0, 1)
	return nil
}

// Add validates and appends a policy.
func (ps *PolicySet) Add(p *Policy) error {
	switch {
	case p == nil:
		return fmt.Errorf("%w: nil", ErrInvalidPolicy)
	case p.Name == "":
		return fmt.Errorf("%w: empty name", ErrInvalidPolicy)
	case p.RemainingTurns <= 0:
		return fmt.Errorf("%w: %q has non-positive duration", ErrInvalidPolicy, p.Name)
	case p.Cost < 0:
		return fmt.Errorf("%w: %q has negative cost", ErrInvalidPolicy, p.Name)
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	ps.Active = append(ps.Active, p)
	return nil
}

// Advance decrements every active policy and removes those that ran out.
// A policy enacted for N turns is applied on N turns: it stays active while
// its remaining count is zero or more after the decrement.
func (ps *PolicySet) Advance() (expired []*Policy) {
	kept := ps.Active[:0]
	for _, p := range ps.Active {
		p.RemainingTurns--
		if p.RemainingTurns < 0 {
			expired = append(expired, p)
			continue
		}
		kept = append(kept, p)
	}
	clear(ps.Active[len(kept):])
	ps.Active = kept
	return expired
}
