// Package group assembles accepted pairs into validated cross-store
// product groups with price statistics.
package group

import (
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/promobg/matcher/internal/domain"
	"github.com/promobg/matcher/internal/match"
)

// Builder turns accepted pairs into product groups.
type Builder struct {
	gates *match.Gates
}

// NewBuilder builds a group builder sharing the run's gate set for
// whole-cluster re-validation.
func NewBuilder(gates *match.Gates) *Builder {
	return &Builder{gates: gates}
}

type cluster struct {
	members map[string]*domain.GroupMember
}

// Build consumes pairs strongest-first into transitively merged
// clusters, re-validates each cluster as a whole, dissolves violators
// entirely, dedups per store and computes price statistics. Returns
// the surviving groups and the number of dissolved clusters.
func (b *Builder) Build(pairs []domain.Pair) ([]domain.ProductGroup, int) {
	sorted := append([]domain.Pair(nil), pairs...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Confidence != sorted[j].Confidence {
			return sorted[i].Confidence > sorted[j].Confidence
		}
		ki, kj := pairKey(sorted[i]), pairKey(sorted[j])
		return ki < kj
	})

	owner := make(map[string]*cluster)
	for _, p := range sorted {
		ca, cb := owner[p.A.ID], owner[p.B.ID]

		switch {
		case ca == nil && cb == nil:
			c := &cluster{members: map[string]*domain.GroupMember{
				p.A.ID: {Listing: p.A, Confidence: p.Confidence},
				p.B.ID: {Listing: p.B, Confidence: p.Confidence},
			}}
			owner[p.A.ID] = c
			owner[p.B.ID] = c

		case ca != nil && cb == nil:
			ca.members[p.B.ID] = &domain.GroupMember{Listing: p.B, Confidence: p.Confidence}
			owner[p.B.ID] = ca

		case ca == nil && cb != nil:
			cb.members[p.A.ID] = &domain.GroupMember{Listing: p.A, Confidence: p.Confidence}
			owner[p.A.ID] = cb

		case ca == cb:
			bump(ca.members[p.A.ID], p.Confidence)
			bump(ca.members[p.B.ID], p.Confidence)

		default:
			// Transitive merge: fold the smaller cluster into the larger.
			if len(cb.members) > len(ca.members) {
				ca, cb = cb, ca
			}
			for id, m := range cb.members {
				ca.members[id] = m
				owner[id] = ca
			}
			bump(ca.members[p.A.ID], p.Confidence)
			bump(ca.members[p.B.ID], p.Confidence)
		}
	}

	seen := make(map[*cluster]struct{})
	var clusters []*cluster
	for _, c := range owner {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		clusters = append(clusters, c)
	}

	var groups []domain.ProductGroup
	dissolved := 0
	for _, c := range clusters {
		members := c.sortedMembers()
		if !b.valid(members) {
			dissolved++
			continue
		}
		members = resolveStoreDuplicates(members)
		groups = append(groups, b.finalize(members))
	}

	sort.Slice(groups, func(i, j int) bool {
		if groups[i].CanonicalName != groups[j].CanonicalName {
			return groups[i].CanonicalName < groups[j].CanonicalName
		}
		return groups[i].Members[0].Listing.ID < groups[j].Members[0].Listing.ID
	})
	return groups, dissolved
}

// valid re-checks the whole cluster. Any violation dissolves it
// entirely; there is no partial salvage.
func (b *Builder) valid(members []domain.GroupMember) bool {
	stores := make(map[string]struct{})
	generic := true
	minPrice, maxPrice := 0.0, 0.0

	for i, m := range members {
		stores[m.Listing.Store] = struct{}{}
		if !b.gates.IsGeneric(m.Listing.Category) {
			generic = false
		}
		if i == 0 || m.Listing.Price < minPrice {
			minPrice = m.Listing.Price
		}
		if m.Listing.Price > maxPrice {
			maxPrice = m.Listing.Price
		}
	}

	if len(stores) < 2 {
		return false
	}
	if minPrice <= 0 || maxPrice/minPrice > b.gates.PriceCeiling(generic) {
		return false
	}

	for i := 0; i < len(members); i++ {
		for j := i + 1; j < len(members); j++ {
			a, bb := members[i].Listing, members[j].Listing
			if !b.gates.BrandsReconcile(a, bb) {
				return false
			}
			if b.gates.TypesConflict(a, bb) {
				return false
			}
		}
	}
	return true
}

// resolveStoreDuplicates keeps one member per store: highest
// confidence, ties broken by lower price, then lower id. Membership is
// an identity claim, so the best-evidenced listing keeps the slot.
func resolveStoreDuplicates(members []domain.GroupMember) []domain.GroupMember {
	best := make(map[string]domain.GroupMember)
	for _, m := range members {
		cur, ok := best[m.Listing.Store]
		if !ok || betterMember(m, cur) {
			best[m.Listing.Store] = m
		}
	}

	out := make([]domain.GroupMember, 0, len(best))
	for _, m := range best {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		return betterMember(out[i], out[j])
	})
	return out
}

func betterMember(a, b domain.GroupMember) bool {
	if a.Confidence != b.Confidence {
		return a.Confidence > b.Confidence
	}
	if a.Listing.Price != b.Listing.Price {
		return a.Listing.Price < b.Listing.Price
	}
	return a.Listing.ID < b.Listing.ID
}

func (b *Builder) finalize(members []domain.GroupMember) domain.ProductGroup {
	top := members[0] // strongest member names the group

	brand := ""
	for _, m := range members {
		if m.Listing.Brand != "" {
			brand = m.Listing.Brand
			break
		}
	}

	stores := make(map[string]struct{})
	minPrice, maxPrice := members[0].Listing.Price, members[0].Listing.Price
	for _, m := range members {
		stores[m.Listing.Store] = struct{}{}
		if m.Listing.Price < minPrice {
			minPrice = m.Listing.Price
		}
		if m.Listing.Price > maxPrice {
			maxPrice = m.Listing.Price
		}
	}

	savings := maxPrice - minPrice
	pct := 0.0
	if maxPrice > 0 {
		pct = 100 * savings / maxPrice
	}

	return domain.ProductGroup{
		ID:            uuid.NewString(),
		CanonicalName: canonicalName(members),
		Brand:         brand,
		Category:      top.Listing.Category,
		Members:       members,
		StoreCount:    len(stores),
		MinPrice:      minPrice,
		MaxPrice:      maxPrice,
		Savings:       savings,
		SavingsPct:    pct,
	}
}

// canonicalName keeps the strongest member's tokens that appear in
// every member's name, in the strongest member's order. Clusters whose
// members share too little (cross-script groups, mostly) fall back to
// the strongest member's full name.
func canonicalName(members []domain.GroupMember) string {
	top := members[0].Listing.Name
	base := strings.Fields(top)

	var common []string
	for _, t := range base {
		inAll := true
		for _, m := range members[1:] {
			found := false
			for _, mt := range strings.Fields(m.Listing.Name) {
				if mt == t {
					found = true
					break
				}
			}
			if !found {
				inAll = false
				break
			}
		}
		if inAll {
			common = append(common, t)
		}
	}

	if len(common) < 2 {
		return top
	}
	return strings.Join(common, " ")
}

func (c *cluster) sortedMembers() []domain.GroupMember {
	out := make([]domain.GroupMember, 0, len(c.members))
	for _, m := range c.members {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool {
		return betterMember(out[i], out[j])
	})
	return out
}

func bump(m *domain.GroupMember, confidence float64) {
	if m != nil && confidence > m.Confidence {
		m.Confidence = confidence
	}
}

func pairKey(p domain.Pair) string {
	a, b := p.A.ID, p.B.ID
	if a > b {
		a, b = b, a
	}
	return a + "|" + b
}
