package bgg

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/josephcasey/mybgg/internal/logging"
)

// Source is what the downloader needs from the API.
type Source interface {
	Collection(ctx context.Context, user string, params map[string]string) ([]CollectionItem, error)
	Plays(ctx context.Context, user string) ([]Play, error)
}

// Downloader pulls the collection and keeps only plays of games in it.
type Downloader struct {
	src Source
	log *zap.Logger
}

func NewDownloader(src Source, lg *zap.Logger) *Downloader {
	return &Downloader{src: src, log: logging.OrNop(lg)}
}

// Result holds one download.
type Result struct {
	Collection []CollectionItem
	Plays      []Play
}

// Download runs one collection request per param set, then fetches every
// play and drops plays of games outside the collection.
func (d *Downloader) Download(ctx context.Context, user string, paramSets []map[string]string) (*Result, error) {
	if len(paramSets) == 0 {
		paramSets = []map[string]string{{}}
	}
	var (
		items []CollectionItem
		seen  = map[int]bool{}
	)
	for _, params := range paramSets {
		got, err := d.src.Collection(ctx, user, params)
		if err != nil {
			return nil, fmt.Errorf("collection for %s: %w", user, err)
		}
		for _, it := range got {
			if seen[it.ID] {
				continue
			}
			seen[it.ID] = true
			items = append(items, it)
			d.log.Debug("collection item", zap.Int("id", it.ID), zap.String("name", it.Name), zap.Strings("status", it.Status.Tags()))
		}
	}

	all, err := d.src.Plays(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("plays for %s: %w", user, err)
	}
	kept := make([]Play, 0, len(all))
	for _, p := range all {
		if seen[p.Item.ObjectID] {
			kept = append(kept, p)
		}
	}
	d.log.Info("download complete",
		zap.Int("collection", len(items)),
		zap.Int("plays", len(all)),
		zap.Int("kept", len(kept)))
	return &Result{Collection: items, Plays: kept}, nil
}
