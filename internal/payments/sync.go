package payments

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/codr1/leaguehub/internal/db"
	"github.com/codr1/leaguehub/internal/metrics"
)

// ProductSyncer copies active processor products into the products table.
type ProductSyncer struct {
	processor Processor
	db        *db.DB
	metrics   *metrics.Recorder
}

func NewProductSyncer(processor Processor, database *db.DB, recorder *metrics.Recorder) *ProductSyncer {
	return &ProductSyncer{processor: processor, db: database, metrics: recorder}
}

// Sync upserts every active product in one transaction and returns the
// projection that was written.
func (s *ProductSyncer) Sync(ctx context.Context) ([]Product, error) {
	products, err := s.processor.ListActiveProducts(ctx)
	if err != nil {
		return nil, err
	}

	err = s.db.RunInTx(ctx, func(tx *db.DB) error {
		for _, p := range products {
			if err := tx.Queries.UpsertProduct(ctx, db.UpsertProductParams{
				ID:          p.ID,
				PriceID:     p.PriceID,
				Name:        p.Name,
				Description: p.Description,
				Mode:        p.Mode,
				Price:       p.Price,
				Currency:    p.Currency,
				Interval:    nullString(p.Interval),
			}); err != nil {
				return fmt.Errorf("upsert product %s: %w", p.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ProductsSynced(len(products))
	log.Ctx(ctx).Info().Int("count", len(products)).Msg("Synced products")
	if products == nil {
		products = []Product{}
	}
	return products, nil
}

// ProductFromRow projects a stored product row.
func ProductFromRow(row db.Product) Product {
	p := Product{
		ID:          row.ID,
		PriceID:     row.PriceID,
		Name:        row.Name,
		Description: row.Description,
		Mode:        row.Mode,
		Price:       row.Price,
		Currency:    row.Currency,
	}
	if row.Interval.Valid {
		interval := row.Interval.String
		p.Interval = &interval
	}
	return p
}

func nullString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
