package render

import (
	"context"
	"errors"
	"io/fs"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/any-hub/render-hub/internal/cache"
)

func TestResolveCachesUntilSourceChanges(t *testing.T) {
	env := newPipelineEnv(t, false)
	env.writeFile("/assets/a.ttf", "font", env.base)

	opts := env.options("/a.ttf")
	if opts.File != "/assets/a.ttf" {
		t.Fatalf("unexpected file path: %s", opts.File)
	}

	first, err := env.pipeline.Resolve(context.Background(), *opts)
	if err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	if first.CacheHit {
		t.Fatalf("first resolve should compile")
	}
	if env.compiles.Load() != 1 {
		t.Fatalf("expected 1 compile, got %d", env.compiles.Load())
	}
	firstEntry, ok := env.store.Get(opts.CacheKey())
	if !ok {
		t.Fatalf("store should hold entry after first compile")
	}

	for i := 0; i < 5; i++ {
		result, err := env.pipeline.Resolve(context.Background(), *env.options("/a.ttf"))
		if err != nil {
			t.Fatalf("cached resolve: %v", err)
		}
		if !result.CacheHit {
			t.Fatalf("resolve #%d should hit cache", i)
		}
		if string(result.Data) != string(first.Data) {
			t.Fatalf("cached data mismatch: %s", string(result.Data))
		}
	}
	if env.compiles.Load() != 1 {
		t.Fatalf("compile count should stay at 1, got %d", env.compiles.Load())
	}

	// 将源文件 mtime 推进到缓存时间之后
	env.touch("/assets/a.ttf", firstEntry.StoredAt.Add(time.Minute))

	third, err := env.pipeline.Resolve(context.Background(), *env.options("/a.ttf"))
	if err != nil {
		t.Fatalf("third resolve: %v", err)
	}
	if third.CacheHit {
		t.Fatalf("modified source should trigger recompile")
	}
	if env.compiles.Load() != 2 {
		t.Fatalf("expected 2 compiles, got %d", env.compiles.Load())
	}
	secondEntry, _ := env.store.Get(opts.CacheKey())
	if !secondEntry.StoredAt.After(firstEntry.StoredAt) {
		t.Fatalf("stored_at should increase: %v -> %v", firstEntry.StoredAt, secondEntry.StoredAt)
	}
}

func TestResolveTreatsEqualTimestampAsStale(t *testing.T) {
	env := newPipelineEnv(t, false)
	env.writeFile("/assets/a.ttf", "font", env.base)

	if _, err := env.pipeline.Resolve(context.Background(), *env.options("/a.ttf")); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	entry, _ := env.store.Get("/assets/a.ttf")
	env.touch("/assets/a.ttf", entry.StoredAt)

	result, err := env.pipeline.Resolve(context.Background(), *env.options("/a.ttf"))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if result.CacheHit {
		t.Fatalf("equal timestamps must not be served from cache")
	}
	if env.compiles.Load() != 2 {
		t.Fatalf("expected recompile, got %d compiles", env.compiles.Load())
	}
}

func TestResolveOverrideCacheAlwaysCompiles(t *testing.T) {
	env := newPipelineEnv(t, false)
	env.writeFile("/assets/a.ttf", "font", env.base)

	opts := env.options("/a.ttf")
	opts.OverrideCache = true
	for i := 0; i < 3; i++ {
		result, err := env.pipeline.Resolve(context.Background(), *opts)
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}
		if result.CacheHit {
			t.Fatalf("override should bypass cache")
		}
	}
	if env.compiles.Load() != 3 {
		t.Fatalf("expected 3 compiles, got %d", env.compiles.Load())
	}
}

func TestResolveStatFailureWinsOverFreshEntry(t *testing.T) {
	env := newPipelineEnv(t, false)
	env.writeFile("/assets/a.ttf", "font", env.base)

	if _, err := env.pipeline.Resolve(context.Background(), *env.options("/a.ttf")); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if err := env.fs.Remove("/assets/a.ttf"); err != nil {
		t.Fatalf("remove fixture: %v", err)
	}

	for _, override := range []bool{false, true} {
		opts := env.options("/a.ttf")
		opts.OverrideCache = override
		_, err := env.pipeline.Resolve(context.Background(), *opts)
		if !errors.Is(err, fs.ErrNotExist) {
			t.Fatalf("override=%v: expected fs.ErrNotExist, got %v", override, err)
		}
	}
	if env.compiles.Load() != 1 {
		t.Fatalf("stat failure must not compile, got %d compiles", env.compiles.Load())
	}
}

func TestResolveCompileFailureKeepsEntry(t *testing.T) {
	env := newPipelineEnv(t, false)
	env.writeFile("/assets/a.ttf", "font", env.base)

	if _, err := env.pipeline.Resolve(context.Background(), *env.options("/a.ttf")); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	before, _ := env.store.Get("/assets/a.ttf")

	errBoom := errors.New("boom")
	opts := env.options("/a.ttf")
	opts.OverrideCache = true
	opts.Compiler = CompilerFunc(func(context.Context, Options) ([]byte, error) {
		return nil, errBoom
	})

	_, err := env.pipeline.Resolve(context.Background(), *opts)
	if err != errBoom {
		t.Fatalf("compile error should pass through unchanged, got %v", err)
	}

	after, ok := env.store.Get("/assets/a.ttf")
	if !ok {
		t.Fatalf("entry should survive compile failure")
	}
	if !after.StoredAt.Equal(before.StoredAt) || string(after.Data) != string(before.Data) {
		t.Fatalf("entry changed after compile failure: %+v", after)
	}
}

func TestResolveCompileFailureCreatesNoEntry(t *testing.T) {
	env := newPipelineEnv(t, false)
	env.writeFile("/assets/a.ttf", "font", env.base)

	opts := env.options("/a.ttf")
	opts.Compiler = CompilerFunc(func(context.Context, Options) ([]byte, error) {
		return nil, errors.New("broken")
	})
	if _, err := env.pipeline.Resolve(context.Background(), *opts); err == nil {
		t.Fatalf("expected compile error")
	}
	if env.store.Has("/assets/a.ttf") {
		t.Fatalf("failed compile must not create an entry")
	}
}

func TestResolveNilCompilerIsContractViolation(t *testing.T) {
	env := newPipelineEnv(t, false)
	env.writeFile("/assets/a.ttf", "font", env.base)

	opts := env.options("/a.ttf")
	opts.Compiler = nil
	if _, err := env.pipeline.Resolve(context.Background(), *opts); !errors.Is(err, ErrContractViolation) {
		t.Fatalf("expected ErrContractViolation, got %v", err)
	}
}

func TestResolveSingleFlightCollapsesCompiles(t *testing.T) {
	env := newPipelineEnv(t, true)
	env.writeFile("/assets/a.ttf", "font", env.base)

	release := make(chan struct{})
	var calls atomic.Int32
	blocking := CompilerFunc(func(context.Context, Options) ([]byte, error) {
		calls.Add(1)
		<-release
		return []byte("compiled"), nil
	})

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			opts := env.options("/a.ttf")
			opts.Compiler = blocking
			result, err := env.pipeline.Resolve(context.Background(), *opts)
			if err == nil && string(result.Data) != "compiled" {
				err = errors.New("unexpected payload " + string(result.Data))
			}
			errs <- err
		}()
	}

	for calls.Load() == 0 {
		time.Sleep(time.Millisecond)
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("resolve failed: %v", err)
		}
	}
	if calls.Load() != 1 {
		t.Fatalf("single-flight should compile once, got %d", calls.Load())
	}
}

func TestNewPipelineRequiresDependencies(t *testing.T) {
	if _, err := NewPipeline(PipelineOptions{}); err == nil {
		t.Fatalf("expected error without store")
	}
	if _, err := NewPipeline(PipelineOptions{Store: cache.NewStore()}); err == nil {
		t.Fatalf("expected error without oracle")
	}
}

type pipelineEnv struct {
	t        *testing.T
	fs       afero.Fs
	store    cache.Store
	pipeline *Pipeline
	compiles *atomic.Int32
	base     time.Time
	site     BaseOptions
}

// newPipelineEnv 使用内存文件系统与递增时钟：源文件 mtime 固定在 base，
// 每次写缓存时钟前进一秒，因此缓存时间总是晚于初始 mtime。
func newPipelineEnv(t *testing.T, singleFlight bool) *pipelineEnv {
	t.Helper()

	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	clock := base
	var mu sync.Mutex
	store := cache.NewStoreWithClock(func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		clock = clock.Add(time.Second)
		return clock
	})

	memFS := afero.NewMemMapFs()
	oracle, err := cache.NewOracle(memFS)
	if err != nil {
		t.Fatalf("new oracle: %v", err)
	}
	pipeline, err := NewPipeline(PipelineOptions{Store: store, Oracle: oracle, SingleFlight: singleFlight})
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}

	compiles := &atomic.Int32{}
	compiler := CompilerFunc(func(_ context.Context, opts Options) ([]byte, error) {
		n := compiles.Add(1)
		return []byte(opts.File + "#" + strconv.Itoa(int(n))), nil
	})

	return &pipelineEnv{
		t:        t,
		fs:       memFS,
		store:    store,
		pipeline: pipeline,
		compiles: compiles,
		base:     base,
		site: BaseOptions{
			Site:              "assets",
			Root:              "/assets",
			FileNameTransform: Identity,
			Compiler:          compiler,
		},
	}
}

func (e *pipelineEnv) options(requestPath string) *Options {
	e.t.Helper()
	opts, err := Normalize(requestPath, e.site)
	if err != nil {
		e.t.Fatalf("normalize: %v", err)
	}
	return opts
}

func (e *pipelineEnv) writeFile(name, content string, modTime time.Time) {
	e.t.Helper()
	if err := afero.WriteFile(e.fs, name, []byte(content), 0o644); err != nil {
		e.t.Fatalf("write fixture: %v", err)
	}
	e.touch(name, modTime)
}

func (e *pipelineEnv) touch(name string, modTime time.Time) {
	e.t.Helper()
	if err := e.fs.Chtimes(name, modTime, modTime); err != nil {
		e.t.Fatalf("chtimes: %v", err)
	}
}
