package index

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/algolia/algoliasearch-client-go/v3/algolia/opt"
	"github.com/algolia/algoliasearch-client-go/v3/algolia/search"
	"go.uber.org/zap"

	"github.com/josephcasey/mybgg/internal/logging"
)

// AlgoliaIndex is the part of an Algolia index the backend drives. Calls
// return once the task has been applied.
type AlgoliaIndex interface {
	SetSettings(ctx context.Context, s search.Settings) error
	SaveObjects(ctx context.Context, recs []Record) error
	DeleteBy(ctx context.Context, filter string) error
}

// Algolia writes records to a primary index and keeps its replicas'
// rankings in step.
type Algolia struct {
	name    string
	primary AlgoliaIndex
	open    func(name string) AlgoliaIndex
	log     *zap.Logger
}

// NewAlgolia connects with the admin key.
func NewAlgolia(appID, apiKey, indexName string, lg *zap.Logger) *Algolia {
	cl := search.NewClient(appID, apiKey)
	open := func(name string) AlgoliaIndex { return &searchIndex{idx: cl.InitIndex(name)} }
	return NewAlgoliaWith(indexName, open, lg)
}

// NewAlgoliaWith builds the backend over an index opener.
func NewAlgoliaWith(indexName string, open func(name string) AlgoliaIndex, lg *zap.Logger) *Algolia {
	return &Algolia{name: indexName, primary: open(indexName), open: open, log: logging.OrNop(lg)}
}

func (a *Algolia) ConfigureSchema(ctx context.Context, s Schema) error {
	replicas := make([]string, 0, len(s.Replicas))
	for _, r := range s.Replicas {
		replicas = append(replicas, a.name+r.Suffix)
	}
	settings := search.Settings{
		SearchableAttributes:  opt.SearchableAttributes(s.SearchableAttributes...),
		AttributesForFaceting: opt.AttributesForFaceting(s.Facets...),
		CustomRanking:         opt.CustomRanking(s.CustomRanking...),
		Replicas:              opt.Replicas(replicas...),
		HighlightPreTag:       opt.HighlightPreTag(`<strong class="highlight">`),
		HighlightPostTag:      opt.HighlightPostTag("</strong>"),
	}
	if s.HitsPerPage > 0 {
		settings.HitsPerPage = opt.HitsPerPage(s.HitsPerPage)
	}
	if err := a.primary.SetSettings(ctx, settings); err != nil {
		return err
	}
	for i, r := range s.Replicas {
		if err := a.open(replicas[i]).SetSettings(ctx, search.Settings{Ranking: opt.Ranking(r.Ranking...)}); err != nil {
			return err
		}
	}
	a.log.Debug("algolia settings applied", zap.String("index", a.name), zap.Strings("replicas", replicas))
	return nil
}

func (a *Algolia) Upsert(ctx context.Context, recs []Record) (int, error) {
	if len(recs) == 0 {
		return 0, nil
	}
	if err := a.primary.SaveObjects(ctx, recs); err != nil {
		return 0, err
	}
	return len(recs), nil
}

func (a *Algolia) DeleteNotIn(ctx context.Context, keep []int) error {
	if len(keep) == 0 {
		return ErrNoRecords
	}
	return a.primary.DeleteBy(ctx, DeleteFilter(keep))
}

// DeleteFilter matches every record whose play id is not listed.
func DeleteFilter(keep []int) string {
	parts := make([]string, len(keep))
	for i, id := range keep {
		parts[i] = "play_id != " + strconv.Itoa(id)
	}
	return strings.Join(parts, " AND ")
}

// searchIndex adapts *search.Index, waiting on each task.
type searchIndex struct {
	idx *search.Index
}

func (s *searchIndex) SetSettings(ctx context.Context, st search.Settings) error {
	res, err := s.idx.SetSettings(st, ctx)
	if err != nil {
		return err
	}
	return res.Wait(ctx)
}

func (s *searchIndex) SaveObjects(ctx context.Context, recs []Record) error {
	res, err := s.idx.SaveObjects(recs, ctx)
	if err != nil {
		return err
	}
	return res.Wait(ctx)
}

func (s *searchIndex) DeleteBy(ctx context.Context, filter string) error {
	if strings.TrimSpace(filter) == "" {
		return errors.New("refusing to delete with an empty filter")
	}
	res, err := s.idx.DeleteBy(opt.Filters(filter), ctx)
	if err != nil {
		return err
	}
	return res.Wait(ctx)
}
