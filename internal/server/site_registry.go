package server

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/any-hub/render-hub/internal/cache"
	"github.com/any-hub/render-hub/internal/compiler"
	"github.com/any-hub/render-hub/internal/config"
	"github.com/any-hub/render-hub/internal/logging"
	"github.com/any-hub/render-hub/internal/render"
)

// SiteRoute 将站点配置与启动时构建好的渲染依赖聚合在一起，请求期间只读。
type SiteRoute struct {
	// Config 是 config.toml 中声明的站点字段副本。
	Config config.SiteConfig
	// ListenPort 记录当前监听端口，方便日志输出。
	ListenPort int
	// Compiler 是站点选用的编译器定义，用于推断 Content-Type 与诊断输出。
	Compiler compiler.Definition
	// Base 是每个请求 Normalize 的输入。
	Base render.BaseOptions
	// Store 归属于该站点，生命周期与进程一致。
	Store   cache.Store
	Invoker *render.Invoker
}

// ContentTypeFor 返回 file 的响应类型：站点显式配置优先，其次为编译器默认值。
func (r *SiteRoute) ContentTypeFor(file string) string {
	if r.Config.ContentType != "" {
		return r.Config.ContentType
	}
	return r.Compiler.ContentTypeFor(file)
}

// RegistryOptions 汇总构建站点时共享的依赖。
type RegistryOptions struct {
	Fs     afero.Fs
	Logger *logrus.Logger
	// Clock 用于缓存时间戳，留空时使用 time.Now。
	Clock func() time.Time
}

// SiteRegistry 提供 Host/Host:port 到 SiteRoute 的查询能力。
type SiteRegistry struct {
	routes  map[string]*SiteRoute
	byName  map[string]*SiteRoute
	ordered []*SiteRoute
}

// NewSiteRegistry 根据配置构建所有站点。调用方应在启动阶段创建一次并复用。
func NewSiteRegistry(cfg *config.Config, opts RegistryOptions) (*SiteRegistry, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}

	registry := &SiteRegistry{
		routes: make(map[string]*SiteRoute, len(cfg.Sites)),
		byName: make(map[string]*SiteRoute, len(cfg.Sites)),
	}

	oracle, err := cache.NewOracle(opts.Fs)
	if err != nil {
		return nil, err
	}

	for _, site := range cfg.Sites {
		normalizedHost := normalizeDomain(site.Domain)
		if normalizedHost == "" {
			return nil, fmt.Errorf("invalid domain for site %s", site.Name)
		}
		if _, exists := registry.routes[normalizedHost]; exists {
			return nil, fmt.Errorf("duplicate domain mapping detected for %s", normalizedHost)
		}

		route, err := buildSiteRoute(cfg, site, oracle, opts)
		if err != nil {
			return nil, err
		}

		registry.routes[normalizedHost] = route
		registry.byName[site.Name] = route
		registry.ordered = append(registry.ordered, route)
	}

	return registry, nil
}

// Lookup 根据 Host 或 Host:port 查找 SiteRoute。
func (r *SiteRegistry) Lookup(host string) (*SiteRoute, bool) {
	if r == nil {
		return nil, false
	}

	normalizedHost, _ := normalizeHost(host)
	if normalizedHost == "" {
		return nil, false
	}

	route, ok := r.routes[normalizedHost]
	return route, ok
}

// Site 按站点名查找，供诊断接口使用。
func (r *SiteRegistry) Site(name string) (*SiteRoute, bool) {
	if r == nil {
		return nil, false
	}
	route, ok := r.byName[name]
	return route, ok
}

// List 返回按配置顺序排列的站点列表。
func (r *SiteRegistry) List() []*SiteRoute {
	if r == nil || len(r.ordered) == 0 {
		return nil
	}
	return append([]*SiteRoute(nil), r.ordered...)
}

func buildSiteRoute(cfg *config.Config, site config.SiteConfig, oracle cache.Oracle, opts RegistryOptions) (*SiteRoute, error) {
	transform, err := render.ParseTransform(site.FileNameTransform)
	if err != nil {
		return nil, fmt.Errorf("site %s: %w", site.Name, err)
	}

	comp, def, err := compiler.Build(site.Compiler, compiler.Env{Fs: opts.Fs})
	if err != nil {
		return nil, fmt.Errorf("site %s: %w", site.Name, err)
	}

	store := cache.NewStoreWithClock(opts.Clock)
	pipeline, err := render.NewPipeline(render.PipelineOptions{
		Store:        store,
		Oracle:       oracle,
		SingleFlight: cfg.Global.SingleFlight,
	})
	if err != nil {
		return nil, fmt.Errorf("site %s: %w", site.Name, err)
	}

	invoker, err := render.NewInvoker(pipeline, opts.Logger)
	if err != nil {
		return nil, fmt.Errorf("site %s: %w", site.Name, err)
	}

	return &SiteRoute{
		Config:     site,
		ListenPort: cfg.Global.ListenPort,
		Compiler:   def,
		Base: render.BaseOptions{
			Site:              site.Name,
			Root:              site.Root,
			FileNameTransform: transform,
			OverrideCache:     site.OverrideCache,
			Compiler:          comp,
			ContentType:       site.ContentType,
			Vars:              site.Vars,
		},
		Store:   store,
		Invoker: invoker,
	}, nil
}

func normalizeDomain(domain string) string {
	host, _ := normalizeHost(domain)
	return host
}

func normalizeHost(raw string) (string, int) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", 0
	}

	host := raw
	port := 0

	if strings.Contains(raw, ":") {
		if h, p, err := net.SplitHostPort(raw); err == nil {
			host = h
			if parsedPort, err := strconv.Atoi(p); err == nil {
				port = parsedPort
			}
		} else if idx := strings.LastIndex(raw, ":"); idx > -1 && strings.Count(raw[idx+1:], ":") == 0 {
			if parsedPort, err := strconv.Atoi(raw[idx+1:]); err == nil {
				host = raw[:idx]
				port = parsedPort
			}
		}
	}

	host = strings.TrimSuffix(host, ".")
	host = strings.ToLower(host)
	return host, port
}
