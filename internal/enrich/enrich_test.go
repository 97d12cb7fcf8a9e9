// Ludograph - Game Library Analytics and Collage Visualization
// Copyright 2026 A. Karlsen (akarlsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/akarlsen/ludograph

package enrich

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/akarlsen/ludograph/internal/cache"
	"github.com/akarlsen/ludograph/internal/config"
	"github.com/akarlsen/ludograph/internal/models"
	"github.com/akarlsen/ludograph/internal/steam"
	"github.com/akarlsen/ludograph/internal/store"
)

// fakeClient is a scriptable storefront double. Batch calls and per-item
// calls are counted separately so tests can assert "zero network" paths.
type fakeClient struct {
	mu sync.Mutex

	batchCalls  int
	batchResult map[int64]models.ItemMetadata
	batchErr    error

	itemCalls int
	// itemResponses maps itemID to a queue of responses, consumed in order.
	itemResponses map[int64][]itemResponse
}

type itemResponse struct {
	meta *models.ItemMetadata
	err  error
}

func (f *fakeClient) GetOwnedGames(ctx context.Context) (*models.LibrarySnapshot, error) {
	return nil, errors.New("not scripted")
}

func (f *fakeClient) GetOwnerReviews(ctx context.Context) (*models.ReviewSet, error) {
	return nil, errors.New("not scripted")
}

func (f *fakeClient) GetAppDetailsBatch(ctx context.Context, itemIDs []int64) (map[int64]models.ItemMetadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batchCalls++
	if f.batchErr != nil {
		return nil, f.batchErr
	}
	result := make(map[int64]models.ItemMetadata)
	for _, id := range itemIDs {
		if meta, ok := f.batchResult[id]; ok {
			result[id] = meta
		}
	}
	return result, nil
}

func (f *fakeClient) GetAppDetails(ctx context.Context, itemID int64) (*models.ItemMetadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.itemCalls++
	queue := f.itemResponses[itemID]
	if len(queue) == 0 {
		return nil, steam.ErrNoData
	}
	resp := queue[0]
	f.itemResponses[itemID] = queue[1:]
	return resp.meta, resp.err
}

func (f *fakeClient) counts() (batch, item int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.batchCalls, f.itemCalls
}

func validMeta(id int64) models.ItemMetadata {
	price := int64(999)
	return models.ItemMetadata{ItemID: id, CurrencyCode: "USD", PriceMinorUnits: &price}
}

func newTestMetadata(t *testing.T) *cache.MetadataCache {
	t.Helper()
	s, err := store.Open(config.StoreConfig{Path: ""})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return cache.New(s, config.CacheConfig{
		GamesTTL:    30 * time.Minute,
		MetadataTTL: 30 * 24 * time.Hour,
		AnalysisTTL: 7 * 24 * time.Hour,
		ReviewsTTL:  24 * time.Hour,
		L1TTL:       5 * time.Minute,
	}).Metadata
}

func TestEnrichAllCachedMakesNoCall(t *testing.T) {
	metadata := newTestMetadata(t)
	client := &fakeClient{}
	e := NewEnricher(client, metadata, 100)

	m1, m2 := validMeta(1), validMeta(2)
	metadata.Put(&m1)
	metadata.Put(&m2)

	got := e.Enrich(context.Background(), []int64{1, 2})
	if len(got) != 2 {
		t.Fatalf("Expected 2 items, got %d", len(got))
	}
	if batch, _ := client.counts(); batch != 0 {
		t.Errorf("Fully cached input must make zero upstream calls, made %d", batch)
	}
}

func TestEnrichFetchesOnlyMissing(t *testing.T) {
	metadata := newTestMetadata(t)
	client := &fakeClient{batchResult: map[int64]models.ItemMetadata{
		2: validMeta(2),
		3: validMeta(3),
	}}
	e := NewEnricher(client, metadata, 100)

	m1 := validMeta(1)
	metadata.Put(&m1)

	got := e.Enrich(context.Background(), []int64{1, 2, 3})
	if len(got) != 3 {
		t.Fatalf("Expected union of hit + fetched, got %v", got)
	}
	if batch, _ := client.counts(); batch != 1 {
		t.Errorf("Expected exactly one batch call, got %d", batch)
	}

	// The fetched items must now be cached: a second call is all-cached.
	got = e.Enrich(context.Background(), []int64{1, 2, 3})
	if len(got) != 3 {
		t.Fatalf("Second call should serve all three, got %v", got)
	}
	if batch, _ := client.counts(); batch != 1 {
		t.Errorf("Second call must be served from cache, batch calls=%d", batch)
	}
}

func TestEnrichUnresolvedNotCached(t *testing.T) {
	metadata := newTestMetadata(t)
	client := &fakeClient{batchResult: map[int64]models.ItemMetadata{1: validMeta(1)}}
	e := NewEnricher(client, metadata, 100)

	got := e.Enrich(context.Background(), []int64{1, 2})
	if _, ok := got[2]; ok {
		t.Error("Unresolved item must be absent from the result")
	}
	if _, ok := metadata.Get(2); ok {
		t.Error("Unresolved item must not be cached")
	}

	// Next call retries the unresolved item.
	e.Enrich(context.Background(), []int64{1, 2})
	if batch, _ := client.counts(); batch != 2 {
		t.Errorf("Unresolved item should be retried on the next call, batch calls=%d", batch)
	}
}

func TestEnrichUpstreamFailureReturnsHitsOnly(t *testing.T) {
	metadata := newTestMetadata(t)
	client := &fakeClient{batchErr: errors.New("connection refused")}
	e := NewEnricher(client, metadata, 100)

	m1 := validMeta(1)
	metadata.Put(&m1)

	got := e.Enrich(context.Background(), []int64{1, 2, 3})
	if len(got) != 1 {
		t.Fatalf("Expected cache hits only on upstream failure, got %v", got)
	}
	if _, ok := got[1]; !ok {
		t.Error("Cached item should survive the upstream failure")
	}
}

func TestEnrichEmptyInput(t *testing.T) {
	metadata := newTestMetadata(t)
	client := &fakeClient{}
	e := NewEnricher(client, metadata, 100)

	got := e.Enrich(context.Background(), nil)
	if len(got) != 0 {
		t.Errorf("Expected empty result, got %v", got)
	}
	if batch, _ := client.counts(); batch != 0 {
		t.Errorf("Empty input must make no upstream calls, made %d", batch)
	}
}

func throttleErr() error {
	return &steam.StatusError{Endpoint: "appdetails", Code: http.StatusTooManyRequests}
}

func testFetcherConfig() config.FetcherConfig {
	return config.FetcherConfig{
		MinInterval:  time.Millisecond,
		RetryBackoff: 2 * time.Second,
		MaxRetries:   2,
		LoopDelay:    100 * time.Millisecond,
		BatchLimit:   100,
	}
}

// newTestFetcher swaps the sleep function for one that records requested
// durations and returns instantly.
func newTestFetcher(t *testing.T, client steam.ClientInterface) (*Fetcher, *[]time.Duration) {
	t.Helper()
	f := NewFetcher(client, newTestMetadata(t), testFetcherConfig())

	var slept []time.Duration
	f.sleep = func(ctx context.Context, d time.Duration) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		slept = append(slept, d)
		return nil
	}
	return f, &slept
}

func TestFetchOneRetriesThrottleWithDoublingBackoff(t *testing.T) {
	meta := validMeta(42)
	client := &fakeClient{itemResponses: map[int64][]itemResponse{
		42: {
			{err: throttleErr()},
			{err: throttleErr()},
			{meta: &meta},
		},
	}}
	f, slept := newTestFetcher(t, client)

	got, err := f.FetchOne(context.Background(), 42)
	if err != nil {
		t.Fatalf("FetchOne failed: %v", err)
	}
	if got.ItemID != 42 {
		t.Errorf("Wrong item returned: %+v", got)
	}

	if _, item := client.counts(); item != 3 {
		t.Errorf("Expected 3 attempts, got %d", item)
	}
	want := []time.Duration{2 * time.Second, 4 * time.Second}
	if len(*slept) != 2 || (*slept)[0] != want[0] || (*slept)[1] != want[1] {
		t.Errorf("Expected doubling backoff %v, got %v", want, *slept)
	}
}

func TestFetchOneGivesUpAfterMaxRetries(t *testing.T) {
	client := &fakeClient{itemResponses: map[int64][]itemResponse{
		42: {
			{err: throttleErr()},
			{err: throttleErr()},
			{err: throttleErr()},
			{err: throttleErr()},
		},
	}}
	f, _ := newTestFetcher(t, client)

	_, err := f.FetchOne(context.Background(), 42)
	if err == nil {
		t.Fatal("Expected the final throttled response to surface")
	}
	if !steam.IsThrottled(err) {
		t.Errorf("Final error should still be the throttling response, got %v", err)
	}
	if _, item := client.counts(); item != 3 {
		t.Errorf("Expected initial attempt + 2 retries = 3 calls, got %d", item)
	}
}

func TestFetchOneDoesNotRetryOtherStatuses(t *testing.T) {
	client := &fakeClient{itemResponses: map[int64][]itemResponse{
		42: {{err: &steam.StatusError{Endpoint: "appdetails", Code: http.StatusInternalServerError}}},
	}}
	f, slept := newTestFetcher(t, client)

	if _, err := f.FetchOne(context.Background(), 42); err == nil {
		t.Fatal("Expected the 500 to surface")
	}
	if _, item := client.counts(); item != 1 {
		t.Errorf("Non-throttle status must not retry, got %d calls", item)
	}
	if len(*slept) != 0 {
		t.Errorf("No backoff expected, slept %v", *slept)
	}
}

func TestFetchAllSkipsFailedItems(t *testing.T) {
	m1, m3 := validMeta(1), validMeta(3)
	client := &fakeClient{itemResponses: map[int64][]itemResponse{
		1: {{meta: &m1}},
		2: {{err: steam.ErrNoData}},
		3: {{meta: &m3}},
	}}
	f, _ := newTestFetcher(t, client)

	var progressed []int64
	got, err := f.FetchAll(context.Background(), []int64{1, 2, 3}, func(done, total int, itemID int64) {
		progressed = append(progressed, itemID)
	})
	if err != nil {
		t.Fatalf("FetchAll failed: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("Expected items 1 and 3, got %v", got)
	}
	if _, ok := got[2]; ok {
		t.Error("Failed item must be absent from the result")
	}
	if _, ok := f.metadata.Get(2); ok {
		t.Error("Failed item must not be cached")
	}
	if len(progressed) != 3 {
		t.Errorf("Progress should fire per item regardless of outcome, got %v", progressed)
	}
}

func TestFetchAllIsIdempotent(t *testing.T) {
	m1, m2 := validMeta(1), validMeta(2)
	client := &fakeClient{itemResponses: map[int64][]itemResponse{
		1: {{meta: &m1}},
		2: {{meta: &m2}},
	}}
	f, _ := newTestFetcher(t, client)

	if _, err := f.FetchAll(context.Background(), []int64{1, 2}, nil); err != nil {
		t.Fatalf("First FetchAll failed: %v", err)
	}
	if _, item := client.counts(); item != 2 {
		t.Fatalf("Expected 2 fetches on first pass, got %d", item)
	}

	got, err := f.FetchAll(context.Background(), []int64{1, 2}, nil)
	if err != nil {
		t.Fatalf("Second FetchAll failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Second pass should serve both from cache, got %v", got)
	}
	if _, item := client.counts(); item != 2 {
		t.Errorf("Second pass must make zero network calls, total=%d", item)
	}
}

func TestFetchAllCancelDiscardsPartialResults(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	m1 := validMeta(1)
	client := &fakeClient{itemResponses: map[int64][]itemResponse{1: {{meta: &m1}}}}
	f, _ := newTestFetcher(t, client)

	progress := func(done, total int, itemID int64) {
		if done == 1 {
			cancel()
		}
	}

	got, err := f.FetchAll(ctx, []int64{1, 2, 3}, progress)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if got != nil {
		t.Errorf("Partial results must be discarded on cancel, got %v", got)
	}

	// Cache writes committed before the cancel stay.
	if _, ok := f.metadata.Get(1); !ok {
		t.Error("Committed cache write should survive cancellation")
	}
}

func TestFetchAllInterleavesLoopDelay(t *testing.T) {
	m1, m2, m3 := validMeta(1), validMeta(2), validMeta(3)
	client := &fakeClient{itemResponses: map[int64][]itemResponse{
		1: {{meta: &m1}},
		2: {{meta: &m2}},
		3: {{meta: &m3}},
	}}
	f, slept := newTestFetcher(t, client)

	if _, err := f.FetchAll(context.Background(), []int64{1, 2, 3}, nil); err != nil {
		t.Fatalf("FetchAll failed: %v", err)
	}

	// Two inter-iteration delays for three items, none after the last.
	delays := 0
	for _, d := range *slept {
		if d == f.cfg.LoopDelay {
			delays++
		}
	}
	if delays != 2 {
		t.Errorf("Expected 2 loop delays, got %d (%v)", delays, *slept)
	}
}

// Two back-to-back requests must be spaced by the limiter even when the
// caller adds no delay of its own. This one keeps the real sleep and a real
// interval, so it measures wall-clock pacing.
func TestFetchOnePacedByMinInterval(t *testing.T) {
	meta := validMeta(7)
	client := &fakeClient{itemResponses: map[int64][]itemResponse{
		7: {{meta: &meta}, {meta: &meta}},
	}}

	cfg := testFetcherConfig()
	cfg.MinInterval = 300 * time.Millisecond
	f := NewFetcher(client, newTestMetadata(t), cfg)

	start := time.Now()
	if _, err := f.FetchOne(context.Background(), 7); err != nil {
		t.Fatalf("First FetchOne failed: %v", err)
	}
	if _, err := f.FetchOne(context.Background(), 7); err != nil {
		t.Fatalf("Second FetchOne failed: %v", err)
	}

	// A little under the interval to absorb timer granularity.
	if elapsed := time.Since(start); elapsed < 290*time.Millisecond {
		t.Errorf("Back-to-back calls finished in %v, want at least ~%v between requests", elapsed, cfg.MinInterval)
	}
}
