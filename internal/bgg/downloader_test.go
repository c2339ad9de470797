package bgg

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	collections [][]CollectionItem
	plays       []Play
	err         error
	calls       []map[string]string
}

func (f *fakeSource) Collection(_ context.Context, _ string, params map[string]string) ([]CollectionItem, error) {
	f.calls = append(f.calls, params)
	if f.err != nil {
		return nil, f.err
	}
	i := len(f.calls) - 1
	if i >= len(f.collections) {
		return nil, nil
	}
	return f.collections[i], nil
}

func (f *fakeSource) Plays(context.Context, string) ([]Play, error) { return f.plays, nil }

func TestDownload_FiltersPlaysToCollection(t *testing.T) {
	src := &fakeSource{
		collections: [][]CollectionItem{
			{{ID: 285774, Name: "Marvel Champions"}},
			{{ID: 285774, Name: "Marvel Champions"}, {ID: 7, Name: "Wishlist Game"}},
		},
		plays: []Play{
			{ID: 1, Item: PlayItem{ObjectID: 285774}},
			{ID: 2, Item: PlayItem{ObjectID: 99}},
			{ID: 3, Item: PlayItem{ObjectID: 7}},
		},
	}
	res, err := NewDownloader(src, nil).Download(context.Background(), "jcasey",
		[]map[string]string{{"own": "1"}, {"wishlist": "1"}})
	require.NoError(t, err)

	assert.Len(t, src.calls, 2)
	assert.Len(t, res.Collection, 2)
	var ids []int
	for _, p := range res.Plays {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []int{1, 3}, ids)
}

func TestDownload_CollectionErrorIsFatal(t *testing.T) {
	boom := errors.New("boom")
	_, err := NewDownloader(&fakeSource{err: boom}, nil).Download(context.Background(), "jcasey", nil)
	assert.ErrorIs(t, err, boom)
}
