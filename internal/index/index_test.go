package index

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/algolia/algoliasearch-client-go/v3/algolia/search"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	ddb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josephcasey/mybgg/internal/plays"
)

func play(id int, villain, hero string, win bool) plays.PlayRecord {
	return plays.PlayRecord{ID: id, Villain: villain, Hero: hero, Hero1: hero, Win: win, Date: "2024-03-05", PlayType: plays.PlayTypeSolo}
}

func TestFromPlay(t *testing.T) {
	r := FromPlay(plays.PlayRecord{
		ID: 42, Villain: "Rhino", Hero: "Spider-Man + Hulk", Hero1: "Spider-Man", Hero2: "Hulk",
		TeamComposition: "Spider-Man + Hulk", Aspect: "Justice", Win: true, Date: "2024-03-05",
		Location: "Home", PlayType: plays.PlayTypeMultihanded,
	})
	want := Record{
		ObjectID: "play42", PlayID: 42, Villain: "Rhino", Hero: "Spider-Man + Hulk", Hero1: "Spider-Man",
		Hero2: "Hulk", TeamComposition: "Spider-Man + Hulk", Aspect: "Justice", Date: "2024-03-05",
		DateTimestamp: time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC).Unix(), Location: "Home", Win: 1,
		PlayType: plays.PlayTypeMultihanded,
	}
	if diff := cmp.Diff(want, r); diff != "" {
		t.Fatalf("record mismatch (-want +got):\n%s", diff)
	}

	assert.Zero(t, FromPlay(plays.PlayRecord{ID: 1, Date: "someday"}).DateTimestamp)
}

func TestDeleteFilter(t *testing.T) {
	assert.Equal(t, "play_id != 1 AND play_id != 22 AND play_id != 333", DeleteFilter([]int{1, 22, 333}))
	assert.Equal(t, "play_id != 7", DeleteFilter([]int{7}))
}

type fakeBackend struct {
	ops    []string
	recs   []Record
	keep   []int
	schema Schema
	failOn string
}

func (f *fakeBackend) ConfigureSchema(_ context.Context, s Schema) error {
	f.ops = append(f.ops, "schema")
	f.schema = s
	return f.fail("schema")
}

func (f *fakeBackend) Upsert(_ context.Context, recs []Record) (int, error) {
	f.ops = append(f.ops, "upsert")
	f.recs = recs
	return len(recs), f.fail("upsert")
}

func (f *fakeBackend) DeleteNotIn(_ context.Context, keep []int) error {
	f.ops = append(f.ops, "prune")
	f.keep = keep
	return f.fail("prune")
}

func (f *fakeBackend) fail(op string) error {
	if f.failOn == op {
		return errors.New(op + " boom")
	}
	return nil
}

func TestSync(t *testing.T) {
	fb := &fakeBackend{}
	res, err := NewUploader(fb, DefaultSchema(48), nil).Sync(context.Background(), []plays.PlayRecord{
		play(1, "Rhino", "Spider-Man", true),
		play(2, "Klaw", "Hulk", false),
		play(1, "Rhino", "Spider-Man", true),
	})
	require.NoError(t, err)
	assert.Equal(t, SyncResult{Records: 2, Upserted: 2}, res)
	assert.Equal(t, []string{"schema", "upsert", "prune"}, fb.ops)
	assert.Equal(t, []int{1, 2}, fb.keep)
	assert.Equal(t, 48, fb.schema.HitsPerPage)
}

func TestSync_StopsBeforePruneOnUpsertFailure(t *testing.T) {
	fb := &fakeBackend{failOn: "upsert"}
	_, err := NewUploader(fb, DefaultSchema(0), nil).Sync(context.Background(), []plays.PlayRecord{play(1, "Rhino", "Hulk", true)})
	require.Error(t, err)
	assert.Equal(t, []string{"schema", "upsert"}, fb.ops)

	_, err = NewUploader(&fakeBackend{}, DefaultSchema(0), nil).Sync(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoRecords)
}

type fakeAlgolia struct {
	settings []search.Settings
	saved    []Record
	filter   string
}

func TestAlgolia(t *testing.T) {
	opened := map[string]*fakeAlgolia{}
	open := func(name string) AlgoliaIndex {
		f := &fakeAlgolia{}
		opened[name] = f
		return f
	}
	a := NewAlgoliaWith("plays", open, nil)
	ctx := context.Background()

	require.NoError(t, a.ConfigureSchema(ctx, DefaultSchema(48)))
	primary := opened["plays"]
	require.Len(t, primary.settings, 1)
	assert.Equal(t, []string{"plays_date_ascending", "plays_villain_ascending", "plays_hero_ascending"}, primary.settings[0].Replicas.Get())
	assert.Equal(t, 48, primary.settings[0].HitsPerPage.Get())
	assert.Equal(t, []string{"asc(villain)"}, opened["plays_villain_ascending"].settings[0].Ranking.Get())

	n, err := a.Upsert(ctx, []Record{FromPlay(play(5, "Ultron", "Thor", false))})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "play5", primary.saved[0].ObjectID)

	require.NoError(t, a.DeleteNotIn(ctx, []int{5, 6}))
	assert.Equal(t, "play_id != 5 AND play_id != 6", primary.filter)
	assert.ErrorIs(t, a.DeleteNotIn(ctx, nil), ErrNoRecords)
}

func (f *fakeAlgolia) SetSettings(_ context.Context, s search.Settings) error {
	f.settings = append(f.settings, s)
	return nil
}

func (f *fakeAlgolia) SaveObjects(_ context.Context, recs []Record) error {
	f.saved = append(f.saved, recs...)
	return nil
}

func (f *fakeAlgolia) DeleteBy(_ context.Context, filter string) error {
	f.filter = filter
	return nil
}

// fakeDDB echoes the first batch write back as unprocessed and serves a
// two page scan.
type fakeDDB struct {
	writes    []*ddb.BatchWriteItemInput
	failFirst bool
	pages     [][]keyRow
	scans     int
}

func (f *fakeDDB) BatchWriteItem(_ context.Context, in *ddb.BatchWriteItemInput, _ ...func(*ddb.Options)) (*ddb.BatchWriteItemOutput, error) {
	f.writes = append(f.writes, in)
	if f.failFirst {
		f.failFirst = false
		return &ddb.BatchWriteItemOutput{UnprocessedItems: in.RequestItems}, nil
	}
	return &ddb.BatchWriteItemOutput{}, nil
}

func (f *fakeDDB) Scan(_ context.Context, in *ddb.ScanInput, _ ...func(*ddb.Options)) (*ddb.ScanOutput, error) {
	if f.scans > 0 && in.ExclusiveStartKey == nil {
		return nil, fmt.Errorf("scan %d missing start key", f.scans)
	}
	items, err := attributevalue.MarshalList(f.pages[f.scans])
	if err != nil {
		return nil, err
	}
	out := &ddb.ScanOutput{}
	for _, it := range items {
		out.Items = append(out.Items, it.(*types.AttributeValueMemberM).Value)
	}
	f.scans++
	if f.scans < len(f.pages) {
		out.LastEvaluatedKey = map[string]types.AttributeValue{"objectID": &types.AttributeValueMemberS{Value: "cursor"}}
	}
	return out, nil
}

func TestDynamo_UpsertBatchingAndRetry(t *testing.T) {
	var recs []Record
	for i := 0; i < 30; i++ {
		recs = append(recs, FromPlay(play(i+1, "Rhino", "Hulk", i%2 == 0)))
	}
	fc := &fakeDDB{failFirst: true}
	d := NewDynamo(fc, "plays", nil)
	d.sleep = func(time.Duration) {}

	n, err := d.Upsert(context.Background(), recs)
	require.NoError(t, err)
	assert.Equal(t, 30, n)
	// 25 + 5, the first batch retried once
	require.Len(t, fc.writes, 3)
	assert.Len(t, fc.writes[0].RequestItems["plays"], 25)
	assert.Len(t, fc.writes[1].RequestItems["plays"], 25)
	assert.Len(t, fc.writes[2].RequestItems["plays"], 5)

	var got Record
	require.NoError(t, attributevalue.UnmarshalMap(fc.writes[2].RequestItems["plays"][4].PutRequest.Item, &got))
	assert.Equal(t, recs[29], got)
}

func TestDynamo_DeleteNotIn(t *testing.T) {
	fc := &fakeDDB{pages: [][]keyRow{
		{{ObjectID: "play1", PlayID: 1}, {ObjectID: "play2", PlayID: 2}},
		{{ObjectID: "play3", PlayID: 3}},
	}}
	d := NewDynamo(fc, "plays", nil)

	require.NoError(t, d.DeleteNotIn(context.Background(), []int{2}))
	assert.Equal(t, 2, fc.scans)
	require.Len(t, fc.writes, 1)
	var deleted []string
	for _, w := range fc.writes[0].RequestItems["plays"] {
		deleted = append(deleted, w.DeleteRequest.Key["objectID"].(*types.AttributeValueMemberS).Value)
	}
	assert.Equal(t, []string{"play1", "play3"}, deleted)

	assert.ErrorIs(t, d.DeleteNotIn(context.Background(), nil), ErrNoRecords)
}
