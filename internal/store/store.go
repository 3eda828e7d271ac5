// Package store persists listings, match records and product groups
// in Postgres. Each run fully replaces the previous run's output, so
// reruns are idempotent.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/promobg/matcher/internal/domain"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Store wraps the Postgres connection.
type Store struct {
	db  *sql.DB
	log *zap.Logger
}

// New opens a connection pool and verifies it.
func New(dsn string, maxOpenConns int, log *zap.Logger) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if maxOpenConns > 0 {
		db.SetMaxOpenConns(maxOpenConns)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db, log: log}, nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// LoadListings returns active listings with sane prices. Absurd prices
// are filtered in SQL so they never reach the matcher.
func (s *Store) LoadListings(ctx context.Context, maxPrice float64) ([]domain.Listing, error) {
	query, args, err := psql.
		Select("id", "store", "title", "price").
		From("listings").
		Where(sq.Gt{"price": 0}).
		Where(sq.Lt{"price": maxPrice}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build listings query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query listings: %w", err)
	}
	defer rows.Close()

	var listings []domain.Listing
	for rows.Next() {
		var l domain.Listing
		if err := rows.Scan(&l.ID, &l.Store, &l.Title, &l.Price); err != nil {
			return nil, fmt.Errorf("scan listing: %w", err)
		}
		listings = append(listings, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate listings: %w", err)
	}

	s.log.Info("loaded listings", zap.Int("count", len(listings)))
	return listings, nil
}

// ReplaceMatches swaps the previous run's match records for the new
// set inside one transaction.
func (s *Store) ReplaceMatches(ctx context.Context, records []domain.MatchRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin matches tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM cross_store_matches"); err != nil {
		return fmt.Errorf("clear matches: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO cross_store_matches
			(listing_a, listing_b, canonical_name, brand, category, match_type, confidence, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`)
	if err != nil {
		return fmt.Errorf("prepare match insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		createdAt := r.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		if _, err := stmt.ExecContext(ctx,
			r.ListingA, r.ListingB, r.CanonicalName, r.Brand, r.Category,
			string(r.MatchType), r.Confidence, createdAt); err != nil {
			return fmt.Errorf("insert match %s/%s: %w", r.ListingA, r.ListingB, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit matches: %w", err)
	}
	s.log.Info("replaced match records", zap.Int("count", len(records)))
	return nil
}

// ReplaceGroups swaps the previous run's groups and memberships for
// the new set inside one transaction.
func (s *Store) ReplaceGroups(ctx context.Context, groups []domain.ProductGroup) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin groups tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM product_group_members"); err != nil {
		return fmt.Errorf("clear group members: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM product_groups"); err != nil {
		return fmt.Errorf("clear groups: %w", err)
	}

	groupStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO product_groups
			(id, canonical_name, brand, category, store_count, min_price, max_price, savings, savings_pct, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`)
	if err != nil {
		return fmt.Errorf("prepare group insert: %w", err)
	}
	defer groupStmt.Close()

	memberStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO product_group_members (group_id, listing_id, store, price, confidence)
		VALUES ($1, $2, $3, $4, $5)`)
	if err != nil {
		return fmt.Errorf("prepare member insert: %w", err)
	}
	defer memberStmt.Close()

	now := time.Now().UTC()
	members := 0
	for _, g := range groups {
		if _, err := groupStmt.ExecContext(ctx,
			g.ID, g.CanonicalName, g.Brand, g.Category, g.StoreCount,
			g.MinPrice, g.MaxPrice, g.Savings, g.SavingsPct, now); err != nil {
			return fmt.Errorf("insert group %s: %w", g.ID, err)
		}
		for _, m := range g.Members {
			if _, err := memberStmt.ExecContext(ctx,
				g.ID, m.Listing.ID, m.Listing.Store, m.Listing.Price, m.Confidence); err != nil {
				return fmt.Errorf("insert member %s of group %s: %w", m.Listing.ID, g.ID, err)
			}
			members++
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit groups: %w", err)
	}
	s.log.Info("replaced product groups",
		zap.Int("groups", len(groups)), zap.Int("members", members))
	return nil
}

// LoadGroups reads the persisted groups with their members, joining
// listings for display titles.
func (s *Store) LoadGroups(ctx context.Context) ([]domain.ProductGroup, error) {
	query, args, err := psql.
		Select("id", "canonical_name", "brand", "category", "store_count",
			"min_price", "max_price", "savings", "savings_pct").
		From("product_groups").
		OrderBy("canonical_name", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build groups query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query groups: %w", err)
	}
	defer rows.Close()

	var groups []domain.ProductGroup
	byID := make(map[string]int)
	for rows.Next() {
		var g domain.ProductGroup
		if err := rows.Scan(&g.ID, &g.CanonicalName, &g.Brand, &g.Category,
			&g.StoreCount, &g.MinPrice, &g.MaxPrice, &g.Savings, &g.SavingsPct); err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		byID[g.ID] = len(groups)
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate groups: %w", err)
	}

	memberQuery, memberArgs, err := psql.
		Select("m.group_id", "m.listing_id", "m.store", "m.price", "m.confidence", "l.title").
		From("product_group_members m").
		Join("listings l ON l.id = m.listing_id").
		OrderBy("m.group_id", "m.confidence DESC", "m.listing_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build members query: %w", err)
	}

	memberRows, err := s.db.QueryContext(ctx, memberQuery, memberArgs...)
	if err != nil {
		return nil, fmt.Errorf("query members: %w", err)
	}
	defer memberRows.Close()

	for memberRows.Next() {
		var groupID string
		var m domain.GroupMember
		listing := &domain.Canonical{}
		if err := memberRows.Scan(&groupID, &listing.ID, &listing.Store,
			&listing.Price, &m.Confidence, &listing.Title); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		m.Listing = listing
		if i, ok := byID[groupID]; ok {
			groups[i].Members = append(groups[i].Members, m)
		}
	}
	if err := memberRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate members: %w", err)
	}

	return groups, nil
}

// Stats summarizes the persisted output of the latest run.
type Stats struct {
	MatchesByType map[string]int
	Groups        int
	AvgSavingsPct float64
	MaxSavingsPct float64
}

// RunStats reads aggregate counters for the stats subcommand.
func (s *Store) RunStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{MatchesByType: make(map[string]int)}

	query, args, err := psql.
		Select("match_type", "COUNT(*)").
		From("cross_store_matches").
		GroupBy("match_type").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build match stats query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query match stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var matchType string
		var count int
		if err := rows.Scan(&matchType, &count); err != nil {
			return nil, fmt.Errorf("scan match stats: %w", err)
		}
		stats.MatchesByType[matchType] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate match stats: %w", err)
	}

	row := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*), COALESCE(AVG(savings_pct), 0), COALESCE(MAX(savings_pct), 0) FROM product_groups")
	if err := row.Scan(&stats.Groups, &stats.AvgSavingsPct, &stats.MaxSavingsPct); err != nil {
		return nil, fmt.Errorf("scan group stats: %w", err)
	}

	return stats, nil
}
