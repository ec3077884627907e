package render

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
)

// Compiler 根据请求参数产出渲染结果。返回的错误会原样传给宿主，不做包装。
type Compiler interface {
	Compile(ctx context.Context, opts Options) ([]byte, error)
}

// CompilerFunc adapts a function to the Compiler interface.
type CompilerFunc func(ctx context.Context, opts Options) ([]byte, error)

// Compile makes CompilerFunc satisfy Compiler.
func (f CompilerFunc) Compile(ctx context.Context, opts Options) ([]byte, error) {
	return f(ctx, opts)
}

// Transform 将请求路径映射为站点根目录下的相对文件名。
type Transform func(requestPath string) string

// BaseOptions 是站点级配置，启动时构建一次，按请求经 Normalize 复制成 Options。
type BaseOptions struct {
	Site              string
	Root              string
	FileNameTransform Transform
	OverrideCache     bool
	Compiler          Compiler
	ContentType       string
	Vars              map[string]any
}

// Options 描述一次渲染请求。进入 Pipeline 后按值传递，视为只读。
type Options struct {
	Site          string
	RequestPath   string
	File          string
	OverrideCache bool
	Compiler      Compiler
	ContentType   string
	Vars          map[string]any
}

// CacheKey 返回缓存键；解析后的文件路径即缓存键。
func (o Options) CacheKey() string {
	return o.File
}

// Normalize 深拷贝站点配置并计算本次请求的源文件路径。
// 变换结果按带根的 slash 路径清理后再拼接 Root，".." 无法越出站点目录。
func Normalize(requestPath string, base BaseOptions) (*Options, error) {
	if base.Root == "" {
		return nil, fmt.Errorf("%w: root required", ErrInvalidArgument)
	}

	transform := base.FileNameTransform
	if transform == nil {
		transform = Identity
	}

	rel := path.Clean("/" + transform(requestPath))
	file := filepath.Join(base.Root, filepath.FromSlash(rel))

	return &Options{
		Site:          base.Site,
		RequestPath:   requestPath,
		File:          file,
		OverrideCache: base.OverrideCache,
		Compiler:      base.Compiler,
		ContentType:   base.ContentType,
		Vars:          copyVars(base.Vars),
	}, nil
}

func copyVars(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}
	dst := make(map[string]any, len(src))
	for key, value := range src {
		dst[key] = copyValue(value)
	}
	return dst
}

func copyValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		return copyVars(v)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = copyValue(item)
		}
		return out
	case []string:
		return append([]string(nil), v...)
	case []byte:
		return append([]byte(nil), v...)
	default:
		return v
	}
}
