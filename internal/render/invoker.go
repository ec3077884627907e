package render

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"
)

// HeaderCacheHit 标记本次响应是否直接来自缓存。
const HeaderCacheHit = "X-Render-Cache-Hit"

// Continuation 是宿主管线的回调：成功时传 nil，失败时传错误；返回值作为 handler 的返回值。
type Continuation func(err error) error

// Invoker 是每个请求的渲染入口，驱动 Resolver 并把结果交给宿主。
type Invoker struct {
	resolver Resolver
	logger   *logrus.Logger
}

// NewInvoker constructs an Invoker around a Resolver and logger.
func NewInvoker(resolver Resolver, logger *logrus.Logger) (*Invoker, error) {
	if resolver == nil {
		return nil, errors.New("resolver is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}
	return &Invoker{resolver: resolver, logger: logger}, nil
}

// Invoke 校验参数后执行 Resolve。参数非法时同步返回 ErrInvalidArgument，不触发任何 I/O，
// 也不调用 next；其余情况下 next 恰好被调用一次：成功写出响应后传 nil，失败时传原始错误且不写响应。
func (i *Invoker) Invoke(c fiber.Ctx, opts *Options, next Continuation) error {
	if opts == nil || opts.File == "" || next == nil {
		return ErrInvalidArgument
	}

	started := time.Now()
	ctx := c.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	// 失败只交给 next，由宿主负责记录与响应。
	result, err := i.resolver.Resolve(ctx, *opts)
	if err != nil {
		return next(err)
	}
	if err := send(c, opts.ContentType, result); err != nil {
		return next(err)
	}

	i.logCompleted(opts, result.CacheHit, started)
	return next(nil)
}

// send 保留宿主已设置的 Content-Type；否则依次使用 contentType 与 text/html; charset=utf-8。
func send(c fiber.Ctx, contentType string, result Result) error {
	header := &c.Response().Header
	// fasthttp 未设置时会回落到 text/plain，这里关闭默认值以便判断宿主是否显式设置过。
	header.SetNoDefaultContentType(true)
	if len(header.ContentType()) == 0 {
		if contentType == "" {
			contentType = fiber.MIMETextHTMLCharsetUTF8
		}
		header.SetContentType(contentType)
	}
	c.Set(HeaderCacheHit, strconv.FormatBool(result.CacheHit))
	c.Response().Header.SetContentLength(len(result.Data))
	_, err := c.Write(result.Data)
	return err
}

func (i *Invoker) logCompleted(opts *Options, cacheHit bool, started time.Time) {
	i.logger.WithFields(logrus.Fields{
		"action":     "render",
		"site":       opts.Site,
		"file":       opts.File,
		"cache_hit":  cacheHit,
		"override":   opts.OverrideCache,
		"elapsed_ms": time.Since(started).Milliseconds(),
	}).Info("render_completed")
}
