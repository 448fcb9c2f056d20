package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/codr1/leaguehub/internal/payments"
)

const (
	JobProductSync  = "product-sync"
	JobInviteExpiry = "invite-expiry"
)

// ProductSync is satisfied by payments.ProductSyncer.
type ProductSync interface {
	Sync(ctx context.Context) ([]payments.Product, error)
}

// InviteExpirer marks old pending invites as expired.
type InviteExpirer interface {
	ExpirePendingInvites(ctx context.Context, createdBefore time.Time) (int64, error)
}

// JobsConfig selects which jobs to register. Nil dependencies skip the job.
type JobsConfig struct {
	ProductSyncCron  string
	InviteExpiryCron string
	InviteMaxAge     time.Duration

	Products ProductSync
	Invites  InviteExpirer
	Clock    clockwork.Clock
}

// RegisterJobs adds the product sync and invite expiry jobs.
func RegisterJobs(s *Service, cfg JobsConfig) error {
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}

	if cfg.Products != nil {
		if _, err := s.AddJob(JobProductSync, cfg.ProductSyncCron, SyncProducts(cfg.Products)); err != nil {
			return fmt.Errorf("register %s: %w", JobProductSync, err)
		}
	} else {
		log.Warn().Str("job_name", JobProductSync).Msg("Payment processor not configured, skipping job")
	}

	if cfg.Invites != nil {
		task := func(ctx context.Context) error {
			_, err := ExpireStaleInvites(ctx, cfg.Invites, cfg.Clock.Now(), cfg.InviteMaxAge)
			return err
		}
		if _, err := s.AddJob(JobInviteExpiry, cfg.InviteExpiryCron, task); err != nil {
			return fmt.Errorf("register %s: %w", JobInviteExpiry, err)
		}
	}
	return nil
}

// SyncProducts adapts a ProductSync to a scheduler Task.
func SyncProducts(syncer ProductSync) Task {
	return func(ctx context.Context) error {
		products, err := syncer.Sync(ctx)
		if err != nil {
			return fmt.Errorf("sync products: %w", err)
		}
		log.Ctx(ctx).Info().Int("count", len(products)).Msg("Scheduled product sync finished")
		return nil
	}
}

// ExpireStaleInvites expires pending invites created more than maxAge
// before now.
func ExpireStaleInvites(ctx context.Context, store InviteExpirer, now time.Time, maxAge time.Duration) (int64, error) {
	if store == nil {
		return 0, fmt.Errorf("invite expiry requires a store")
	}
	if maxAge <= 0 {
		return 0, fmt.Errorf("invite max age must be positive")
	}

	cutoff := now.Add(-maxAge)
	n, err := store.ExpirePendingInvites(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("expire invites: %w", err)
	}
	if n > 0 {
		log.Ctx(ctx).Info().Int64("expired", n).Time("cutoff", cutoff).Msg("Expired stale invites")
	}
	return n, nil
}
