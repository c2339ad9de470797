package index

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/josephcasey/mybgg/internal/logging"
	"github.com/josephcasey/mybgg/internal/plays"
)

// ErrNoRecords stops a sync that would otherwise prune the whole index.
var ErrNoRecords = errors.New("index: no records to sync")

// Backend is a search or key-value store holding Records.
type Backend interface {
	ConfigureSchema(ctx context.Context, s Schema) error
	Upsert(ctx context.Context, recs []Record) (int, error)
	// DeleteNotIn removes every record whose play id is not in keep.
	DeleteNotIn(ctx context.Context, keep []int) error
}

type Uploader struct {
	backend Backend
	schema  Schema
	log     *zap.Logger
}

func NewUploader(b Backend, s Schema, lg *zap.Logger) *Uploader {
	return &Uploader{backend: b, schema: s, log: logging.OrNop(lg)}
}

// SyncResult reports one Sync run.
type SyncResult struct {
	Records  int
	Upserted int
}

// Sync flattens ps, configures the schema, upserts and prunes. Records with
// a repeated play id are sent once.
func (u *Uploader) Sync(ctx context.Context, ps []plays.PlayRecord) (SyncResult, error) {
	if len(ps) == 0 {
		return SyncResult{}, ErrNoRecords
	}
	seen := map[int]bool{}
	recs := make([]Record, 0, len(ps))
	keep := make([]int, 0, len(ps))
	for _, p := range ps {
		if seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		recs = append(recs, FromPlay(p))
		keep = append(keep, p.ID)
	}

	if err := u.backend.ConfigureSchema(ctx, u.schema); err != nil {
		return SyncResult{}, fmt.Errorf("configure schema: %w", err)
	}
	n, err := u.backend.Upsert(ctx, recs)
	if err != nil {
		return SyncResult{Records: len(recs), Upserted: n}, fmt.Errorf("upsert: %w", err)
	}
	if err := u.backend.DeleteNotIn(ctx, keep); err != nil {
		return SyncResult{Records: len(recs), Upserted: n}, fmt.Errorf("prune: %w", err)
	}
	u.log.Info("indexed plays", zap.Int("records", len(recs)), zap.Int("upserted", n))
	return SyncResult{Records: len(recs), Upserted: n}, nil
}
