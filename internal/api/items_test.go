package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lapmarkt/lapcli/internal/cache"
	"github.com/lapmarkt/lapcli/internal/errs"
	"github.com/lapmarkt/lapcli/internal/event"
	"github.com/lapmarkt/lapcli/internal/httpclient"
	"github.com/lapmarkt/lapcli/internal/model"
)

// fakeMarket is an in-memory stand-in for the marketplace backend.
type fakeMarket struct {
	mu     sync.Mutex
	items  map[int64]model.Item
	nextID int64

	listCalls atomic.Int32
	getCalls  map[int64]*atomic.Int32
}

func newFakeMarket() *fakeMarket {
	return &fakeMarket{items: map[int64]model.Item{}, nextID: 1, getCalls: map[int64]*atomic.Int32{}}
}

func (f *fakeMarket) add(item model.Item) model.Item {
	f.mu.Lock()
	defer f.mu.Unlock()
	item.ID = f.nextID
	f.nextID++
	f.items[item.ID] = item
	f.getCalls[item.ID] = &atomic.Int32{}
	return item
}

func (f *fakeMarket) snapshot() []model.Item {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Item, 0, len(f.items))
	for id := int64(1); id < f.nextID; id++ {
		if it, ok := f.items[id]; ok {
			out = append(out, it)
		}
	}
	return out
}

func envelope(w http.ResponseWriter, data any) {
	_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "data": data})
}

func (f *fakeMarket) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /items", func(w http.ResponseWriter, r *http.Request) {
		f.listCalls.Add(1)
		items := f.snapshot()
		envelope(w, model.Page{
			Items:       items,
			CurrentPage: 0,
			TotalItems:  int64(len(items)),
			TotalPages:  1,
		})
	})
	mux.HandleFunc("GET /items/my-items", func(w http.ResponseWriter, r *http.Request) {
		envelope(w, f.snapshot())
	})
	mux.HandleFunc("GET /items/all", func(w http.ResponseWriter, r *http.Request) {
		envelope(w, f.snapshot())
	})
	mux.HandleFunc("GET /items/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)
		f.mu.Lock()
		item, ok := f.items[id]
		counter := f.getCalls[id]
		f.mu.Unlock()
		if counter != nil {
			counter.Add(1)
		}
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(map[string]string{"message": "item not found"})
			return
		}
		envelope(w, item)
	})
	mux.HandleFunc("POST /items/create", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(8<<20))
		item := f.add(model.Item{
			Title:       r.FormValue("title"),
			Description: r.FormValue("description"),
			Category:    r.FormValue("category"),
			Location:    r.FormValue("location"),
			Condition:   r.FormValue("condition"),
		})
		envelope(w, item)
	})
	mux.HandleFunc("POST /items/{id}/reserve", func(w http.ResponseWriter, r *http.Request) {
		id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)
		f.mu.Lock()
		item := f.items[id]
		item.IsReserved = !item.IsReserved
		f.items[id] = item
		f.mu.Unlock()
		envelope(w, item)
	})
	mux.HandleFunc("DELETE /items/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)
		f.mu.Lock()
		delete(f.items, id)
		f.mu.Unlock()
		envelope(w, map[string]string{"message": "deleted"})
	})

	return mux
}

type staticUser string

func (s staticUser) Username() string { return string(s) }

func newItemsAPI(t *testing.T, market *fakeMarket) (*Items, *cache.Cache, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(market.handler(t))
	t.Cleanup(srv.Close)
	client := httpclient.New(httpclient.Options{
		BaseURL: srv.URL,
		Timeout: 5 * time.Second,
		Bus:     event.NewBus(nil),
	})
	c := cache.New(time.Minute, nil)
	return NewItems(client, c, staticUser("maria")), c, srv
}

func TestItems_ListSendsCanonicalQuery(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		envelope(w, model.Page{})
	}))
	defer srv.Close()
	client := httpclient.New(httpclient.Options{BaseURL: srv.URL, Timeout: 5 * time.Second})
	items := NewItems(client, cache.New(time.Minute, nil), staticUser("maria"))

	_, err := items.List(context.Background(), ListParams{Page: 2, Size: 5, Category: "Möbel", Search: "lampe"})
	require.NoError(t, err)
	require.Contains(t, gotQuery, "page=2")
	require.Contains(t, gotQuery, "size=5")
	require.Contains(t, gotQuery, "search=lampe")
	require.Contains(t, gotQuery, "sortBy=createdAt")
	require.Contains(t, gotQuery, "sortDir=desc")
}

func TestItems_CreateInvalidatesListings(t *testing.T) {
	market := newFakeMarket()
	market.add(model.Item{Title: "Altes Sofa", Description: "Noch gut erhalten", Category: "Möbel", Location: "Berlin", Condition: "Gut"})
	items, _, _ := newItemsAPI(t, market)
	ctx := context.Background()

	page, err := items.List(ctx, ListParams{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)

	mine, err := items.MyItems(ctx)
	require.NoError(t, err)
	require.Len(t, mine, 1)

	created, err := items.Create(ctx, model.ItemDraft{
		Title:       "Stehlampe",
		Description: "Warmes Licht, wenig benutzt",
		Category:    "Möbel",
		Location:    "Hamburg",
		Condition:   "Wie neu",
	})
	require.NoError(t, err)
	require.NotZero(t, created.ID)

	// any filter and the my-items view must observe the new item
	page, err = items.List(ctx, ListParams{})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)

	mine, err = items.MyItems(ctx)
	require.NoError(t, err)
	require.Len(t, mine, 2)
}

func TestItems_ToggleReservationRefreshesOnlyThatItem(t *testing.T) {
	market := newFakeMarket()
	first := market.add(model.Item{Title: "Fahrrad", Description: "28 Zoll, fährt gut", Category: "Sport", Location: "Köln", Condition: "Gut"})
	second := market.add(model.Item{Title: "Bücherkiste", Description: "Romane gemischt", Category: "Bücher", Location: "Köln", Condition: "Akzeptabel"})
	items, c, _ := newItemsAPI(t, market)
	ctx := context.Background()

	got1, err := items.Get(ctx, first.ID)
	require.NoError(t, err)
	require.False(t, got1.IsReserved)
	_, err = items.Get(ctx, second.ID)
	require.NoError(t, err)
	callsBefore := market.getCalls[second.ID].Load()

	require.NoError(t, items.ToggleReservation(ctx, first.ID))

	got1, err = items.Get(ctx, first.ID)
	require.NoError(t, err)
	require.True(t, got1.IsReserved, "getItem must reflect the flipped reservation")

	// the other item's entry is untouched and still served from cache
	_, ok := c.Peek(cache.Key{Kind: cache.KindItem, ID: second.ID, Username: "maria"})
	require.True(t, ok)
	_, err = items.Get(ctx, second.ID)
	require.NoError(t, err)
	require.Equal(t, callsBefore, market.getCalls[second.ID].Load())
}

func TestItems_DeleteInvalidatesListings(t *testing.T) {
	market := newFakeMarket()
	item := market.add(model.Item{Title: "Regal", Description: "Weiß, drei Böden", Category: "Möbel", Location: "Bonn", Condition: "Gut"})
	items, _, _ := newItemsAPI(t, market)
	ctx := context.Background()

	page, err := items.List(ctx, ListParams{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)

	require.NoError(t, items.Delete(ctx, item.ID))

	page, err = items.List(ctx, ListParams{})
	require.NoError(t, err)
	require.Empty(t, page.Items)
}

func TestItems_GetUnknownIsNotFound(t *testing.T) {
	items, _, _ := newItemsAPI(t, newFakeMarket())
	_, err := items.Get(context.Background(), 999)
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestItems_ValidationStopsBeforeNetwork(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()
	client := httpclient.New(httpclient.Options{BaseURL: srv.URL, Timeout: 5 * time.Second})
	items := NewItems(client, cache.New(time.Minute, nil), nil)

	_, err := items.Create(context.Background(), model.ItemDraft{
		Title:       "ab", // too short
		Description: "lang genug um die Regel zu erfüllen",
		Category:    "Möbel",
		Location:    "Berlin",
		Condition:   "Gut",
	})
	require.True(t, errs.IsValidation(err), "want validation failure, got %v", err)
	require.Zero(t, hits.Load(), "validation errors never reach the network")

	tooMany := make([]model.ImageUpload, model.MaxItemImages+1)
	for i := range tooMany {
		tooMany[i] = model.ImageUpload{Filename: fmt.Sprintf("img%d.jpg", i), Data: []byte{1}}
	}
	_, err = items.Create(context.Background(), model.ItemDraft{
		Title:       "Stehlampe",
		Description: "Warmes Licht, wenig benutzt",
		Category:    "Möbel",
		Location:    "Berlin",
		Condition:   "Gut",
		Images:      tooMany,
	})
	require.True(t, errs.IsValidation(err))
	require.Zero(t, hits.Load())
}

func TestItems_ListingsPartitionedByUser(t *testing.T) {
	market := newFakeMarket()
	market.add(model.Item{Title: "Fahrrad", Description: "28 Zoll, fährt gut", Category: "Sport", Location: "Köln", Condition: "Gut"})
	srv := httptest.NewServer(market.handler(t))
	defer srv.Close()
	client := httpclient.New(httpclient.Options{BaseURL: srv.URL, Timeout: 5 * time.Second})
	c := cache.New(time.Minute, nil)

	asMaria := NewItems(client, c, staticUser("maria"))
	asJonas := NewItems(client, c, staticUser("jonas"))
	ctx := context.Background()

	_, err := asMaria.MyItems(ctx)
	require.NoError(t, err)
	_, err = asJonas.MyItems(ctx)
	require.NoError(t, err)

	// each identity has its own entry; neither sees the other's key
	_, ok := c.Peek(cache.Key{Kind: cache.KindMyItems, Username: "maria"})
	require.True(t, ok)
	_, ok = c.Peek(cache.Key{Kind: cache.KindMyItems, Username: "jonas"})
	require.True(t, ok)
	_, ok = c.Peek(cache.Key{Kind: cache.KindMyItems, Username: "lena"})
	require.False(t, ok)
}
