package domain

import "time"

// UnitClass identifies the base measurement family a quantity belongs to.
type UnitClass string

const (
	UnitMl  UnitClass = "ml"
	UnitG   UnitClass = "g"
	UnitPcs UnitClass = "pcs"
	UnitDim UnitClass = "dim"
)

// Quantity is a parsed product amount normalized to its base unit.
type Quantity struct {
	Value float64
	Unit  UnitClass
}

// IsZero reports whether no quantity was parsed from the title.
func (q Quantity) IsZero() bool {
	return q.Value == 0 && q.Unit == ""
}

// Listing is a raw scraped store offer.
type Listing struct {
	ID    string
	Store string
	Title string
	Price float64
}

// Canonical is a listing enriched with extracted attributes.
type Canonical struct {
	Listing
	Name      string   // cleaned title
	Variants  []string // literal, transliterated, lexicon, both
	Tokens    []string // literal tokens
	AllTokens []string // union of tokens across variants, for indexing
	Brand    string
	Quantity Quantity
	Category string
	Suspect  bool // name too short or numeric-only; kept but flagged
}

// MatchType labels which tier produced a match.
type MatchType string

const (
	MatchExact     MatchType = "exact"
	MatchToken     MatchType = "token"
	MatchTranslit  MatchType = "translit"
	MatchEmbedding MatchType = "embedding"
)

// Pair is an accepted cross-store match between two listings.
type Pair struct {
	A          *Canonical
	B          *Canonical
	Confidence float64
	Type       MatchType
}

// MatchRecord is the persisted form of an accepted pair.
type MatchRecord struct {
	ListingA      string
	ListingB      string
	CanonicalName string
	Brand         string
	Category      string
	MatchType     MatchType
	Confidence    float64
	CreatedAt     time.Time
}

// GroupMember is one listing's slot inside a product group.
type GroupMember struct {
	Listing    *Canonical
	Confidence float64
}

// ProductGroup is a validated cluster of equivalent cross-store listings.
type ProductGroup struct {
	ID            string
	CanonicalName string
	Brand         string
	Category      string
	Members       []GroupMember
	StoreCount    int
	MinPrice      float64
	MaxPrice      float64
	Savings       float64
	SavingsPct    float64
}

// RunSummary aggregates pipeline counters for one matching run.
type RunSummary struct {
	Listings        int
	Canonicalized   int
	Suspect         int
	Candidates      int
	AcceptedByTier  map[MatchType]int
	RejectedByGate  map[string]int
	GroupsBuilt     int
	GroupsDissolved int
	Duration        time.Duration
}

// NewRunSummary returns a summary with initialized counter maps.
func NewRunSummary() *RunSummary {
	return &RunSummary{
		AcceptedByTier: make(map[MatchType]int),
		RejectedByGate: make(map[string]int),
	}
}
