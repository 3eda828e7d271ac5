// Package pipeline orchestrates a full matching run: load, normalize,
// index, score through the tiers, build groups, persist and export.
package pipeline

import (
	"context"
	"runtime"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/promobg/matcher/internal/config"
	"github.com/promobg/matcher/internal/domain"
	"github.com/promobg/matcher/internal/extract"
	"github.com/promobg/matcher/internal/group"
	"github.com/promobg/matcher/internal/index"
	"github.com/promobg/matcher/internal/match"
)

// Storage is the persistence surface the pipeline needs.
type Storage interface {
	LoadListings(ctx context.Context, maxPrice float64) ([]domain.Listing, error)
	ReplaceMatches(ctx context.Context, records []domain.MatchRecord) error
	ReplaceGroups(ctx context.Context, groups []domain.ProductGroup) error
}

// Embedder supplies vectors for the embedding tier.
type Embedder interface {
	Embed(ctx context.Context, inputs []string) (map[string][]float32, error)
}

// Indexer publishes finished groups to the search index.
type Indexer interface {
	IndexGroups(groups []domain.ProductGroup) error
}

// Pipeline runs matching end to end.
type Pipeline struct {
	cfg      config.MatchingConfig
	log      *zap.Logger
	canon    *Canonicalizer
	matcher  *match.Matcher
	builder  *group.Builder
	storage  Storage
	embedder Embedder
	indexer  Indexer
}

// New wires a pipeline. embedder and indexer may be nil: the embedding
// tier and search export are then skipped.
func New(cfg config.MatchingConfig, log *zap.Logger, canon *Canonicalizer,
	matcher *match.Matcher, builder *group.Builder,
	storage Storage, embedder Embedder, indexer Indexer) *Pipeline {
	return &Pipeline{
		cfg:      cfg,
		log:      log,
		canon:    canon,
		matcher:  matcher,
		builder:  builder,
		storage:  storage,
		embedder: embedder,
		indexer:  indexer,
	}
}

// Run executes one full matching run and returns its summary.
func (p *Pipeline) Run(ctx context.Context) (*domain.RunSummary, error) {
	started := time.Now()
	summary := domain.NewRunSummary()

	listings, err := p.storage.LoadListings(ctx, p.cfg.MaxPrice)
	if err != nil {
		return nil, err
	}
	if len(listings) == 0 {
		return nil, domain.ErrNoListings
	}
	summary.Listings = len(listings)

	canonicals := p.canon.CanonicalizeAll(listings, p.cfg.Workers)
	summary.Canonicalized = len(canonicals)
	for _, c := range canonicals {
		if c.Suspect {
			summary.Suspect++
		}
	}
	p.log.Info("canonicalized listings",
		zap.Int("count", len(canonicals)), zap.Int("suspect", summary.Suspect))

	idx := index.Build(canonicals)

	matched := make(map[string]bool)
	var pairs []domain.Pair

	tierA := p.runTokenTier(idx, canonicals, summary)
	pairs = append(pairs, tierA...)
	consume(matched, tierA)
	p.log.Info("token tier done", zap.Int("accepted", len(tierA)))

	tierB := p.runTranslitTier(idx, canonicals, matched, summary)
	pairs = append(pairs, tierB...)
	consume(matched, tierB)
	p.log.Info("transliteration tier done", zap.Int("accepted", len(tierB)))

	tierC := p.runEmbeddingTier(ctx, canonicals, matched, summary)
	pairs = append(pairs, tierC...)
	p.log.Info("embedding tier done", zap.Int("accepted", len(tierC)))

	groups, dissolved := p.builder.Build(pairs)
	summary.GroupsBuilt = len(groups)
	summary.GroupsDissolved = dissolved

	if err := p.storage.ReplaceMatches(ctx, toRecords(pairs)); err != nil {
		return nil, err
	}
	if err := p.storage.ReplaceGroups(ctx, groups); err != nil {
		return nil, err
	}

	// The DB is the source of truth and is already updated; a search
	// index failure degrades like an oracle outage instead of failing
	// the run.
	if p.indexer != nil {
		if err := p.indexer.IndexGroups(groups); err != nil {
			p.log.Warn("search index export failed", zap.Error(err))
		}
	}

	summary.Duration = time.Since(started)
	p.logSummary(summary)
	return summary, nil
}

// runTokenTier scores literal cleaned names inside category partitions,
// one goroutine per category.
func (p *Pipeline) runTokenTier(idx *index.Index, canonicals []*domain.Canonical, summary *domain.RunSummary) []domain.Pair {
	byCategory := make(map[string][]*domain.Canonical)
	for _, c := range canonicals {
		byCategory[c.Category] = append(byCategory[c.Category], c)
	}

	workers := p.cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	sem := make(chan struct{}, workers)

	var mu sync.Mutex
	var pairs []domain.Pair
	var wg sync.WaitGroup

	for _, category := range idx.Categories() {
		members := byCategory[category]
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			var local []domain.Pair
			considered := 0
			for _, a := range members {
				for _, candID := range idx.Candidates(a) {
					if a.ID >= candID {
						continue // each cross pair scored once
					}
					considered++
					b := idx.Get(candID)

					score, matchType, ok := p.matcher.ScoreToken(a, b)
					if !ok {
						continue
					}
					if reason := p.matcher.Gates().Check(a, b); reason != "" {
						mu.Lock()
						summary.RejectedByGate[reason]++
						mu.Unlock()
						continue
					}
					local = append(local, domain.Pair{A: a, B: b, Confidence: score, Type: matchType})
				}
			}

			mu.Lock()
			pairs = append(pairs, local...)
			for _, pr := range local {
				summary.AcceptedByTier[pr.Type]++
			}
			summary.Candidates += considered
			mu.Unlock()
		}()
	}
	wg.Wait()

	return pairs
}

// runTranslitTier rescores the listings the token tier left unmatched,
// comparing every variant pair to bridge script differences.
func (p *Pipeline) runTranslitTier(idx *index.Index, canonicals []*domain.Canonical, matched map[string]bool, summary *domain.RunSummary) []domain.Pair {
	var pairs []domain.Pair

	for _, a := range canonicals {
		if matched[a.ID] {
			continue
		}
		for _, candID := range idx.Candidates(a) {
			if a.ID >= candID || matched[candID] {
				continue
			}
			b := idx.Get(candID)

			score, ok := p.matcher.ScoreTranslit(a, b)
			if !ok {
				continue
			}
			if reason := p.matcher.Gates().Check(a, b); reason != "" {
				summary.RejectedByGate[reason]++
				continue
			}
			pairs = append(pairs, domain.Pair{A: a, B: b, Confidence: score, Type: domain.MatchTranslit})
			summary.AcceptedByTier[domain.MatchTranslit]++
		}
	}

	return pairs
}

// runEmbeddingTier asks the oracle for vectors of the still-unmatched
// listings and keeps bidirectionally confirmed best matches. Oracle
// failures degrade to a warning; the run continues without this tier.
func (p *Pipeline) runEmbeddingTier(ctx context.Context, canonicals []*domain.Canonical, matched map[string]bool, summary *domain.RunSummary) []domain.Pair {
	if p.embedder == nil {
		return nil
	}

	byID := make(map[string]*domain.Canonical)
	byCategory := make(map[string][]string)
	var ids []string
	var names []string
	for _, c := range canonicals {
		if matched[c.ID] || c.Category == extract.Uncategorized {
			continue
		}
		byID[c.ID] = c
		byCategory[c.Category] = append(byCategory[c.Category], c.ID)
		ids = append(ids, c.ID)
		names = append(names, c.Name)
	}
	if len(ids) < 2 {
		return nil
	}

	vectorsByName, err := p.embedder.Embed(ctx, names)
	if err != nil {
		p.log.Warn("embedding tier skipped", zap.Error(err))
		return nil
	}

	vectors := make(map[string][]float32, len(ids))
	for _, id := range ids {
		if vec, ok := vectorsByName[byID[id].Name]; ok {
			vectors[id] = vec
		}
	}

	// This tier exists for pairs the token tiers cannot see, so the
	// candidate set is every unmatched cross-store listing in the same
	// category partition, with no shared-token requirement.
	candidates := func(id string) []string {
		l := byID[id]
		var out []string
		for _, candID := range byCategory[l.Category] {
			if candID == id || byID[candID].Store == l.Store {
				continue
			}
			out = append(out, candID)
		}
		return out
	}

	var pairs []domain.Pair
	for _, ep := range match.BestEmbeddingMatches(ids, vectors, candidates, p.cfg.FloorEmbedding) {
		a, b := byID[ep.A], byID[ep.B]
		if reason := p.matcher.Gates().Check(a, b); reason != "" {
			summary.RejectedByGate[reason]++
			continue
		}
		pairs = append(pairs, domain.Pair{A: a, B: b, Confidence: ep.Similarity, Type: domain.MatchEmbedding})
		summary.AcceptedByTier[domain.MatchEmbedding]++
	}

	return pairs
}

func consume(matched map[string]bool, pairs []domain.Pair) {
	for _, p := range pairs {
		matched[p.A.ID] = true
		matched[p.B.ID] = true
	}
}

func toRecords(pairs []domain.Pair) []domain.MatchRecord {
	now := time.Now().UTC()
	records := make([]domain.MatchRecord, 0, len(pairs))
	for _, p := range pairs {
		name := p.A.Name
		if len(p.B.Name) > len(name) {
			name = p.B.Name
		}
		brand := p.A.Brand
		if brand == "" {
			brand = p.B.Brand
		}
		category := p.A.Category
		if category == extract.Uncategorized {
			category = p.B.Category
		}

		records = append(records, domain.MatchRecord{
			ListingA:      p.A.ID,
			ListingB:      p.B.ID,
			CanonicalName: name,
			Brand:         brand,
			Category:      category,
			MatchType:     p.Type,
			Confidence:    p.Confidence,
			CreatedAt:     now,
		})
	}
	return records
}

func (p *Pipeline) logSummary(s *domain.RunSummary) {
	fields := []zap.Field{
		zap.Int("listings", s.Listings),
		zap.Int("canonicalized", s.Canonicalized),
		zap.Int("suspect", s.Suspect),
		zap.Int("groups_built", s.GroupsBuilt),
		zap.Int("groups_dissolved", s.GroupsDissolved),
		zap.Duration("duration", s.Duration),
	}
	for tier, n := range s.AcceptedByTier {
		fields = append(fields, zap.Int("accepted_"+string(tier), n))
	}
	for reason, n := range s.RejectedByGate {
		fields = append(fields, zap.Int("rejected_"+reason, n))
	}
	p.log.Info("run complete", fields...)
}
