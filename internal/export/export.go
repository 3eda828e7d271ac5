// Package export publishes product groups to Meilisearch and to a
// JSON file for downstream consumers.
package export

import (
	"encoding/json"
	"fmt"
	"os"

	meilisearch "github.com/meilisearch/meilisearch-go"
	"go.uber.org/zap"

	"github.com/promobg/matcher/internal/config"
	"github.com/promobg/matcher/internal/domain"
)

// Exporter pushes finished groups out of the pipeline.
type Exporter struct {
	cfg config.MeiliConfig
	log *zap.Logger
}

// New builds an exporter.
func New(cfg config.MeiliConfig, log *zap.Logger) *Exporter {
	return &Exporter{cfg: cfg, log: log}
}

type memberDoc struct {
	ListingID  string  `json:"listing_id"`
	Store      string  `json:"store"`
	Title      string  `json:"title"`
	Price      float64 `json:"price"`
	Confidence float64 `json:"confidence"`
}

type groupDoc struct {
	ID            string      `json:"id"`
	CanonicalName string      `json:"canonical_name"`
	Brand         string      `json:"brand"`
	Category      string      `json:"category"`
	StoreCount    int         `json:"store_count"`
	MinPrice      float64     `json:"min_price"`
	MaxPrice      float64     `json:"max_price"`
	Savings       float64     `json:"savings"`
	SavingsPct    float64     `json:"savings_pct"`
	Members       []memberDoc `json:"members"`
}

// IndexGroups rebuilds the Meilisearch index from scratch and loads
// the groups in batches.
func (e *Exporter) IndexGroups(groups []domain.ProductGroup) error {
	client := meilisearch.New(e.cfg.Host, meilisearch.WithAPIKey(e.cfg.APIKey))

	// Full rebuild: drop and recreate so stale groups never linger.
	_, _ = client.DeleteIndex(e.cfg.Index)
	if _, err := client.CreateIndex(&meilisearch.IndexConfig{Uid: e.cfg.Index, PrimaryKey: "id"}); err != nil {
		e.log.Warn("could not create index", zap.Error(err))
	}

	index := client.Index(e.cfg.Index)

	settings := meilisearch.Settings{
		SearchableAttributes: []string{"canonical_name", "brand", "category"},
		FilterableAttributes: []string{"category", "brand", "store_count"},
		SortableAttributes:   []string{"savings_pct", "min_price"},
	}
	if _, err := index.UpdateSettings(&settings); err != nil {
		e.log.Warn("could not update index settings", zap.Error(err))
	}

	batchSize := e.cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 1000
	}

	indexed := 0
	for start := 0; start < len(groups); start += batchSize {
		end := start + batchSize
		if end > len(groups) {
			end = len(groups)
		}

		docs := make([]groupDoc, 0, end-start)
		for _, g := range groups[start:end] {
			docs = append(docs, toDoc(g))
		}

		if _, err := index.AddDocuments(docs, nil); err != nil {
			return fmt.Errorf("add documents: %w", err)
		}
		indexed += len(docs)
		e.log.Info("indexed groups", zap.Int("indexed", indexed), zap.Int("total", len(groups)))
	}

	return nil
}

// WriteJSON dumps all groups with members to a file.
func (e *Exporter) WriteJSON(path string, groups []domain.ProductGroup) error {
	docs := make([]groupDoc, 0, len(groups))
	for _, g := range groups {
		docs = append(docs, toDoc(g))
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(docs); err != nil {
		return fmt.Errorf("encode groups: %w", err)
	}

	e.log.Info("wrote json export", zap.String("path", path), zap.Int("groups", len(docs)))
	return nil
}

func toDoc(g domain.ProductGroup) groupDoc {
	doc := groupDoc{
		ID:            g.ID,
		CanonicalName: g.CanonicalName,
		Brand:         g.Brand,
		Category:      g.Category,
		StoreCount:    g.StoreCount,
		MinPrice:      g.MinPrice,
		MaxPrice:      g.MaxPrice,
		Savings:       g.Savings,
		SavingsPct:    g.SavingsPct,
	}
	for _, m := range g.Members {
		doc.Members = append(doc.Members, memberDoc{
			ListingID:  m.Listing.ID,
			Store:      m.Listing.Store,
			Title:      m.Listing.Title,
			Price:      m.Listing.Price,
			Confidence: m.Confidence,
		})
	}
	return doc
}
