package compiler

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"path/filepath"

	"github.com/gofiber/fiber/v3"
	"github.com/spf13/afero"

	"github.com/any-hub/render-hub/internal/render"
)

// TemplateKey 以 html/template 渲染源文件，站点 Vars 作为模板数据。
const TemplateKey = "template"

func init() {
	MustRegister(Definition{
		Key:         TemplateKey,
		Description: "render html/template with site vars",
		ContentType: fiber.MIMETextHTMLCharsetUTF8,
		New: func(env Env) render.Compiler {
			return templateCompiler{fs: env.Fs}
		},
	})
}

// TemplateData 是模板可访问的数据。
type TemplateData struct {
	Site        string
	RequestPath string
	File        string
	Vars        map[string]any
}

type templateCompiler struct {
	fs afero.Fs
}

func (c templateCompiler) Compile(ctx context.Context, opts render.Options) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	source, err := afero.ReadFile(c.fs, opts.File)
	if err != nil {
		return nil, err
	}

	tmpl, err := template.New(filepath.Base(opts.File)).Option("missingkey=zero").Parse(string(source))
	if err != nil {
		return nil, fmt.Errorf("parse template %s: %w", opts.File, err)
	}

	var buf bytes.Buffer
	data := TemplateData{
		Site:        opts.Site,
		RequestPath: opts.RequestPath,
		File:        opts.File,
		Vars:        opts.Vars,
	}
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("execute template %s: %w", opts.File, err)
	}
	return buf.Bytes(), nil
}
