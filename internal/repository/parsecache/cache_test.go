package parsecache

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/urbo-labs/casamatch/internal/db"
	"github.com/urbo-labs/casamatch/internal/domain"
)

type fakeStore struct {
	mu     sync.Mutex
	data   map[string][]byte
	getErr error
	setErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string][]byte)}
}

func (s *fakeStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	v, ok := s.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (s *fakeStore) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.setErr != nil {
		return s.setErr
	}
	s.data[key] = value
	return nil
}

func (s *fakeStore) SetWithTTL(ctx context.Context, key string, value []byte, _ time.Duration) error {
	return s.Set(ctx, key, value)
}

type countingChain struct {
	mu      sync.Mutex
	calls   int
	fs      domain.FeatureSet
	err     error
	blockCh chan struct{} // when non-nil, Parse waits until closed
}

func (c *countingChain) Parse(_ context.Context, _ domain.ParseRequest) (domain.FeatureSet, string, error) {
	c.mu.Lock()
	c.calls++
	block := c.blockCh
	c.mu.Unlock()
	if block != nil {
		<-block
	}
	if c.err != nil {
		return domain.FeatureSet{}, "", c.err
	}
	return c.fs, "openai", nil
}

func (c *countingChain) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func price(v float64) *float64 { return &v }

func TestParse_SecondCallHitsCache(t *testing.T) {
	chain := &countingChain{fs: domain.FeatureSet{Price: price(120_000), Currency: domain.CurrencyUSD}}
	cache := New(chain, newFakeStore(), 0, nil, zap.NewNop())

	req := domain.ParseRequest{Title: "Casa en venta", Description: "3 dormitorios"}

	first, prov1, err := cache.Parse(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, prov2, err := cache.Parse(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if chain.callCount() != 1 {
		t.Errorf("provider invoked %d times, want exactly 1", chain.callCount())
	}
	if !reflect.DeepEqual(first, second) || prov1 != prov2 {
		t.Error("cached result differs from original")
	}
	if prov1 != "openai" {
		t.Errorf("provider = %q, want openai", prov1)
	}
}

func TestParse_DifferentTextDifferentEntry(t *testing.T) {
	chain := &countingChain{fs: domain.FeatureSet{Price: price(50_000)}}
	cache := New(chain, newFakeStore(), 0, nil, zap.NewNop())

	_, _, _ = cache.Parse(context.Background(), domain.ParseRequest{Title: "a"})
	_, _, _ = cache.Parse(context.Background(), domain.ParseRequest{Title: "b"})

	if chain.callCount() != 2 {
		t.Errorf("provider invoked %d times, want 2 for distinct texts", chain.callCount())
	}
}

func TestParse_ErrorNotCached(t *testing.T) {
	chain := &countingChain{err: domain.ErrProvidersExhausted}
	cache := New(chain, newFakeStore(), 0, nil, zap.NewNop())

	req := domain.ParseRequest{Title: "x"}
	if _, _, err := cache.Parse(context.Background(), req); !errors.Is(err, domain.ErrProvidersExhausted) {
		t.Fatalf("err = %v, want ErrProvidersExhausted", err)
	}

	chain.err = nil
	chain.fs = domain.FeatureSet{Price: price(75_000)}
	fs, _, err := cache.Parse(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error after provider recovered: %v", err)
	}
	if fs.Price == nil || *fs.Price != 75_000 {
		t.Error("failure must not be cached")
	}
}

func TestParse_StoreFailureDegradesToMiss(t *testing.T) {
	chain := &countingChain{fs: domain.FeatureSet{Price: price(90_000)}}
	st := newFakeStore()
	st.getErr = errors.New("connection refused")
	st.setErr = errors.New("connection refused")
	cache := New(chain, st, 0, nil, zap.NewNop())

	fs, _, err := cache.Parse(context.Background(), domain.ParseRequest{Title: "x"})
	if err != nil {
		t.Fatalf("cache store failure must not fail parsing: %v", err)
	}
	if fs.Price == nil || *fs.Price != 90_000 {
		t.Error("result should come from the provider despite store failure")
	}
}

func TestParse_ConcurrentMissesCollapse(t *testing.T) {
	block := make(chan struct{})
	chain := &countingChain{fs: domain.FeatureSet{Price: price(60_000)}, blockCh: block}
	cache := New(chain, newFakeStore(), 0, nil, zap.NewNop())

	req := domain.ParseRequest{Title: "concurrent"}
	const callers = 8

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, _ = cache.Parse(context.Background(), req)
		}()
	}

	// Let all callers reach the flight, then release the provider.
	time.Sleep(50 * time.Millisecond)
	close(block)
	wg.Wait()

	if got := chain.callCount(); got != 1 {
		t.Errorf("provider invoked %d times under concurrency, want 1", got)
	}
}

func TestFingerprint_Stable(t *testing.T) {
	a := Fingerprint("title", "desc")
	b := Fingerprint("title", "desc")
	if a != b {
		t.Error("fingerprint not stable")
	}
	if Fingerprint("titled", "esc") == a {
		t.Error("fingerprint must separate title and description")
	}
}
