package compiler

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gofiber/fiber/v3"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/any-hub/render-hub/internal/render"
)

// YAMLKey 将 YAML 数据文件转换为 JSON 输出。
const YAMLKey = "yaml"

func init() {
	MustRegister(Definition{
		Key:         YAMLKey,
		Description: "convert yaml documents to json",
		ContentType: fiber.MIMEApplicationJSONCharsetUTF8,
		New: func(env Env) render.Compiler {
			return yamlCompiler{fs: env.Fs}
		},
	})
}

type yamlCompiler struct {
	fs afero.Fs
}

func (c yamlCompiler) Compile(ctx context.Context, opts render.Options) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	source, err := afero.ReadFile(c.fs, opts.File)
	if err != nil {
		return nil, err
	}

	var doc any
	if err := yaml.Unmarshal(source, &doc); err != nil {
		return nil, fmt.Errorf("decode yaml %s: %w", opts.File, err)
	}

	out, err := json.Marshal(stringKeys(doc))
	if err != nil {
		return nil, fmt.Errorf("encode json %s: %w", opts.File, err)
	}
	return out, nil
}

// stringKeys 把 yaml.v3 解出的 map[any]any（如整数键 200: ok）转换为 JSON 可编码的字符串键。
func stringKeys(value any) any {
	switch v := value.(type) {
	case map[string]any:
		for key, item := range v {
			v[key] = stringKeys(item)
		}
		return v
	case map[any]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[fmt.Sprint(key)] = stringKeys(item)
		}
		return out
	case []any:
		for i, item := range v {
			v[i] = stringKeys(item)
		}
		return v
	default:
		return v
	}
}
