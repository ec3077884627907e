package render

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/any-hub/render-hub/internal/cache"
)

// Resolver is the part of Pipeline the Invoker depends on; tests inject fakes.
type Resolver interface {
	Resolve(ctx context.Context, opts Options) (Result, error)
}

// Result 是一次 Resolve 的产物及其来源。
type Result struct {
	Data     []byte
	CacheHit bool
	StoredAt time.Time
}

// PipelineOptions 汇总 Pipeline 的依赖。
type PipelineOptions struct {
	Store  cache.Store
	Oracle cache.Oracle
	// SingleFlight 打开后，同一 key 并发的编译只执行一次，其余请求共享结果。
	SingleFlight bool
}

// Pipeline 负责“stat → 比较 → 命中或编译写缓存”的判定流程。
type Pipeline struct {
	store  cache.Store
	oracle cache.Oracle
	group  *singleflight.Group
}

// NewPipeline 校验依赖并构建 Pipeline，每个站点启动时创建一份。
func NewPipeline(opts PipelineOptions) (*Pipeline, error) {
	if opts.Store == nil {
		return nil, errors.New("cache store is required")
	}
	if opts.Oracle == nil {
		return nil, errors.New("freshness oracle is required")
	}

	p := &Pipeline{
		store:  opts.Store,
		oracle: opts.Oracle,
	}
	if opts.SingleFlight {
		p.group = &singleflight.Group{}
	}
	return p, nil
}

// Resolve 先 stat 源文件：stat 失败时即便存在有效缓存也直接返回错误。
// 缓存条目仅在 StoredAt 严格晚于源文件 ModTime 且未要求 OverrideCache 时命中，
// 时间相等视为过期。
func (p *Pipeline) Resolve(ctx context.Context, opts Options) (Result, error) {
	stat, err := p.oracle.Stat(ctx, opts.File)
	if err != nil {
		return Result{}, err
	}

	key := opts.CacheKey()
	if entry, ok := p.store.Get(key); ok {
		if entry.StoredAt.After(stat.ModTime) && !opts.OverrideCache {
			return Result{Data: entry.Data, CacheHit: true, StoredAt: entry.StoredAt}, nil
		}
	}

	return p.compileAndStore(ctx, key, opts)
}

func (p *Pipeline) compileAndStore(ctx context.Context, key string, opts Options) (Result, error) {
	if p.group == nil {
		return p.compile(ctx, key, opts)
	}

	value, err, _ := p.group.Do(key, func() (any, error) {
		return p.compile(ctx, key, opts)
	})
	if err != nil {
		return Result{}, err
	}
	return value.(Result), nil
}

// compile 失败时不触碰缓存，错误原样返回以保留调用方的错误类型。
func (p *Pipeline) compile(ctx context.Context, key string, opts Options) (Result, error) {
	if opts.Compiler == nil {
		return Result{}, ErrContractViolation
	}

	data, err := opts.Compiler.Compile(ctx, opts)
	if err != nil {
		return Result{}, err
	}

	entry := p.store.Put(key, data)
	return Result{Data: entry.Data, StoredAt: entry.StoredAt}, nil
}
