package app

import (
	"context"
	"errors"
	"time"
)

// PruneOptions bound which archived snapshots are removed.
type PruneOptions struct {
	OlderThan time.Duration
	DryRun    bool
}

type snapshotPruner interface {
	CountSnapshots(ctx context.Context) (int64, error)
	DeleteSnapshotsBefore(ctx context.Context, olderThan time.Time) (int64, error)
}

// Prune deletes archived snapshots captured before now minus OlderThan.
func (a *App) Prune(ctx context.Context, opts PruneOptions) error {
	if opts.OlderThan <= 0 {
		return errors.New("--older-than must be positive")
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database.dsn not configured; nothing to prune")
	}
	if closeStore != nil {
		defer closeStore()
	}

	return a.prune(ctx, store, opts, time.Now().UTC())
}

func (a *App) prune(ctx context.Context, store snapshotPruner, opts PruneOptions, now time.Time) error {
	cutoff := now.Add(-opts.OlderThan)

	total, err := store.CountSnapshots(ctx)
	if err != nil {
		return err
	}

	if opts.DryRun {
		a.Logger.Warn().Time("cutoff", cutoff).Int64("archived", total).Msg("prune dry-run: nothing deleted")
		return nil
	}

	deleted, err := store.DeleteSnapshotsBefore(ctx, cutoff)
	if err != nil {
		return err
	}

	a.Logger.Info().Time("cutoff", cutoff).Int64("deleted", deleted).Int64("remaining", total-deleted).Msg("prune complete")
	return nil
}
