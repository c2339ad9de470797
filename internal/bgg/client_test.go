package bgg

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
	)
}

const playsPage1 = `<?xml version="1.0" encoding="utf-8"?>
<plays username="jcasey" userid="1" total="2" page="1">
  <play id="101" date="2024-03-01" quantity="1" location="Home">
    <item name="Marvel Champions: The Card Game" objecttype="thing" objectid="285774"/>
    <comments>Rhino 1/2
#bgstats</comments>
    <players><player username="" name="Joe" color="Spider-Man" win="1"/></players>
  </play>
  <play id="102" date="2024-03-02" quantity="1" location="">
    <item name="Other Game" objecttype="thing" objectid="1"/>
    <players><player name="" color="" win=""/></players>
  </play>
</plays>`

const emptyPage = `<?xml version="1.0" encoding="utf-8"?><plays username="jcasey" total="2" page="2"></plays>`

func testClient(t *testing.T, h http.Handler, o Options) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	o.BaseURL = srv.URL
	o.HTTPClient = srv.Client()
	c := NewClient(o)
	c.sleep = func(context.Context, time.Duration) error { return nil }
	t.Cleanup(srv.Client().CloseIdleConnections)
	return c
}

func TestPlays_PaginatesUntilEmptyPage(t *testing.T) {
	var pages []string
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/plays", r.URL.Path)
		assert.Equal(t, "1", r.URL.Query().Get("version"))
		assert.Equal(t, "jcasey", r.URL.Query().Get("username"))
		page := r.URL.Query().Get("page")
		pages = append(pages, page)
		if page == "1" {
			fmt.Fprint(w, playsPage1)
			return
		}
		fmt.Fprint(w, emptyPage)
	}), Options{})

	plays, err := c.Plays(context.Background(), "jcasey")
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, pages)
	require.Len(t, plays, 2)

	p := plays[0]
	assert.Equal(t, 101, p.ID)
	assert.Equal(t, "2024-03-01", p.Date)
	assert.Equal(t, 285774, p.Item.ObjectID)
	assert.Equal(t, "Rhino 1/2\n#bgstats", p.Comments)
	require.Len(t, p.Players, 1)
	assert.Equal(t, "Spider-Man", p.Players[0].Color)
	assert.True(t, p.Players[0].Won())

	blank := plays[1].Players[0]
	assert.Equal(t, "Unknown", blank.Name)
	assert.Equal(t, "Unknown", blank.Color)
	assert.False(t, blank.Won())
}

func TestCollection_RetriesAcceptedMessage(t *testing.T) {
	var calls int32
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("own"))
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusAccepted)
			fmt.Fprint(w, `<message>Your request for this collection has been accepted and will be processed.  Please try again later for access.</message>`)
			return
		}
		fmt.Fprint(w, `<items totalitems="1"><item objecttype="thing" objectid="285774" subtype="boardgame">
			<name sortindex="1">Marvel Champions: The Card Game</name>
			<status own="1" prevowned="0" fortrade="0" want="0" wanttoplay="1" wanttobuy="0" wishlist="0" preordered="0"/>
			<numplays>42</numplays></item></items>`)
	}), Options{})

	items, err := c.Collection(context.Background(), "jcasey", map[string]string{"own": "1"})
	require.NoError(t, err)
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
	require.Len(t, items, 1)
	assert.Equal(t, 285774, items[0].ID)
	assert.Equal(t, 42, items[0].NumPlays)
	assert.Equal(t, []string{"own", "wanttoplay"}, items[0].Status.Tags())
}

func TestCollection_AcceptedForeverIsNotProcessed(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<message>Your request for this collection has been accepted and will be processed.</message>`)
	}), Options{})

	_, err := c.Collection(context.Background(), "jcasey", nil)
	assert.True(t, errors.Is(err, ErrNotProcessed))
}

func TestGet_ErrorsDocument(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<errors><error><message>Invalid username specified</message></error></errors>`)
	}), Options{})

	_, err := c.Collection(context.Background(), "nobody", nil)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, []string{"Invalid username specified"}, apiErr.Messages)
}

func TestGet_ServerErrorsRetryThenFail(t *testing.T) {
	var calls int32
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}), Options{})

	_, err := c.Plays(context.Background(), "jcasey")
	assert.True(t, errors.Is(err, ErrUnavailable))
	assert.EqualValues(t, maxConnTries+1, atomic.LoadInt32(&calls))
}

func TestGet_TooManyRequestsBudget(t *testing.T) {
	var calls int32
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}), Options{})

	_, err := c.Plays(context.Background(), "jcasey")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
	assert.EqualValues(t, maxThrottleTries+1, atomic.LoadInt32(&calls))
}

func TestGet_CacheServesRepeatRequests(t *testing.T) {
	cache, err := OpenCache(filepath.Join(t.TempDir(), "mybgg-cache.sqlite"), time.Hour)
	require.NoError(t, err)
	defer cache.Close()

	var calls int32
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		fmt.Fprint(w, emptyPage)
	}), Options{Cache: cache})

	for i := 0; i < 2; i++ {
		plays, err := c.Plays(context.Background(), "jcasey")
		require.NoError(t, err)
		assert.Empty(t, plays)
	}
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestCache_TTLExpiry(t *testing.T) {
	cache, err := OpenCache(filepath.Join(t.TempDir(), "c.sqlite"), time.Hour)
	require.NoError(t, err)
	defer cache.Close()

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }
	ctx := context.Background()
	require.NoError(t, cache.Put(ctx, "k", []byte("v")))

	body, ok, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", string(body))

	now = now.Add(2 * time.Hour)
	_, ok, err = cache.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	n, err := cache.Purge(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestJitterBounds(t *testing.T) {
	for tries := 0; tries < 4; tries++ {
		d := jitter(time.Second, tries)
		lo := time.Duration(float64(time.Second) * float64(int64(1)<<tries) * 0.5)
		hi := time.Duration(float64(time.Second) * float64(int64(1)<<tries) * 1.5)
		assert.GreaterOrEqual(t, d, lo)
		assert.Less(t, d, hi)
	}
}
