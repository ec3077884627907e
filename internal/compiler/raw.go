package compiler

import (
	"context"
	"path/filepath"

	"github.com/gofiber/utils/v2"
	"github.com/spf13/afero"

	"github.com/any-hub/render-hub/internal/render"
)

// RawKey 原样输出源文件，用于字体、图片等静态资源。
const RawKey = "raw"

func init() {
	MustRegister(Definition{
		Key:               RawKey,
		Description:       "serve file bytes unchanged",
		DetectContentType: true,
		New: func(env Env) render.Compiler {
			return rawCompiler{fs: env.Fs}
		},
	})
}

type rawCompiler struct {
	fs afero.Fs
}

func (c rawCompiler) Compile(ctx context.Context, opts render.Options) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return afero.ReadFile(c.fs, opts.File)
}

// ContentTypeFor 根据扩展名推断 MIME，未知扩展名返回空字符串。
func ContentTypeFor(file string) string {
	ext := filepath.Ext(file)
	if ext == "" {
		return ""
	}
	return utils.GetMIME(ext)
}
