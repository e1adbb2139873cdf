package social

import "github.com/samber/lo"

// RelationStatus is the coarse state of a diplomatic relation.
type RelationStatus uint8

const (
	StatusNeutral RelationStatus = iota
	StatusAllied
	StatusHostile
)

// String returns a human-readable status name.
func (s RelationStatus) String() string {
	switch s {
	case StatusAllied:
		return "Allied"
	case StatusHostile:
		return "Hostile"
	default:
		return "Neutral"
	}
}

// Relation score bounds and status thresholds. Scores between the neutral
// band and the alliance/hostility thresholds leave the status unchanged.
const (
	MinRelationScore = -100.0
	MaxRelationScore = 100.0

	AllianceThreshold  = 60.0
	HostilityThreshold = -60.0
	NeutralBand        = 30.0 // Neutral when |score| < NeutralBand
)

// DiplomaticRelation is one nation's view of another.
type DiplomaticRelation struct {
	Score                float64        `json:"score"`
	Status               RelationStatus `json:"status"`
	TurnsInCurrentStatus int            `json:"turns_in_current_status"`
	HasTreaty            bool           `json:"has_treaty"`
	TradeValue           float64        `json:"trade_value"`
}

// Adjust moves the score by delta within [-100,100].
func (r *DiplomaticRelation) Adjust(delta float64) {
	r.Score = lo.Clamp(r.Score+delta, MinRelationScore, MaxRelationScore)
}

// EvaluateStatus applies the hysteresis thresholds and returns true when the
// status changed.
func (r *DiplomaticRelation) EvaluateStatus() bool {
	next := r.Status
	switch {
	case r.Score >= AllianceThreshold:
		next = StatusAllied
	case r.Score <= HostilityThreshold:
		next = StatusHostile
	case r.Score > -NeutralBand && r.Score < NeutralBand:
		next = StatusNeutral
	}
	if next == r.Status {
		r.TurnsInCurrentStatus++
		return false
	}
	r.Status = next
	r.TurnsInCurrentStatus = 0
	return true
}

// Diplomacy holds all relations of a nation plus its standing in the world.
type Diplomacy struct {
	Relations           map[NationID]*DiplomaticRelation `json:"relations"`
	GlobalReputation    float64                          `json:"global_reputation"` // 0–1
	DiplomaticInfluence float64                          `json:"diplomatic_influence"`
}

// Default standing of a new nation.
const (
	DefaultReputation = 0.5
	MaxInfluence      = 100.0
)

// NewDiplomacy returns a diplomacy component with no relations.
func NewDiplomacy() *Diplomacy {
	return &Diplomacy{
		Relations:        make(map[NationID]*DiplomaticRelation),
		GlobalReputation: DefaultReputation,
	}
}

// Relation returns the relation toward another nation, creating a neutral
// one on first reference.
func (d *Diplomacy) Relation(other NationID) *DiplomaticRelation {
	rel, ok := d.Relations[other]
	if !ok {
		rel = &DiplomaticRelation{Status: StatusNeutral}
		d.Relations[other] = rel
	}
	return rel
}

// AdjustReputation moves global reputation within [0,1].
func (d *Diplomacy) AdjustReputation(delta float64) {
	d.GlobalReputation = lo.Clamp(d.GlobalReputation+delta, 0, 1)
}

// SpendInfluence debits influence if enough is available.
func (d *Diplomacy) SpendInfluence(amount float64) bool {
	if amount < 0 || d.DiplomaticInfluence < amount {
		return false
	}
	d.DiplomaticInfluence -= amount
	return true
}

// RegenerateInfluence adds influence proportional to reputation, capped.
func (d *Diplomacy) RegenerateInfluence(rate float64) {
	d.DiplomaticInfluence = lo.Clamp(d.DiplomaticInfluence+d.GlobalReputation*rate, 0, MaxInfluence)
}
