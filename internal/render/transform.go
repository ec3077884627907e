package render

import (
	"fmt"
	"strings"
)

// Identity 原样返回请求路径。
func Identity(requestPath string) string {
	return requestPath
}

// ParseTransform 解析配置中的 FileNameTransform：
//
//	identity            原样映射（默认）
//	lower               转为小写
//	index:<name>        以 / 结尾的路径追加 <name>，例如 index:index.html
//	ext:<from>:<to>     替换末尾扩展名，例如 ext:.css:.styl
func ParseTransform(raw string) (Transform, error) {
	expr := strings.TrimSpace(raw)
	if expr == "" || expr == "identity" {
		return Identity, nil
	}
	if expr == "lower" {
		return strings.ToLower, nil
	}

	kind, args, _ := strings.Cut(expr, ":")
	switch kind {
	case "index":
		name := strings.TrimSpace(args)
		if name == "" || strings.Contains(name, "/") {
			return nil, fmt.Errorf("invalid index transform: %q", raw)
		}
		return func(p string) string {
			if p == "" || strings.HasSuffix(p, "/") {
				return p + name
			}
			return p
		}, nil
	case "ext":
		from, to, ok := strings.Cut(args, ":")
		if !ok || !strings.HasPrefix(from, ".") || !strings.HasPrefix(to, ".") {
			return nil, fmt.Errorf("invalid ext transform: %q", raw)
		}
		return func(p string) string {
			if strings.HasSuffix(p, from) {
				return strings.TrimSuffix(p, from) + to
			}
			return p
		}, nil
	default:
		return nil, fmt.Errorf("unsupported transform: %q", raw)
	}
}
