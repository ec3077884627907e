package cache

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/afero"
)

// ErrFilesystemRequired 表示构建 Oracle 时未提供文件系统。
var ErrFilesystemRequired = errors.New("filesystem required")

// FileStat 是 Oracle 返回的源文件元信息。
type FileStat struct {
	Path    string
	ModTime time.Time
	Size    int64
}

// Oracle 报告源文件的最后修改时间，不做任何缓存或重试。
type Oracle interface {
	Stat(ctx context.Context, path string) (FileStat, error)
}

// NewOracle 基于 afero 文件系统构建 Oracle；生产环境传入 afero.NewOsFs()。
func NewOracle(fs afero.Fs) (Oracle, error) {
	if fs == nil {
		return nil, ErrFilesystemRequired
	}
	return &fsOracle{fs: fs}, nil
}

type fsOracle struct {
	fs afero.Fs
}

// Stat 原样返回文件系统错误（例如 fs.ErrNotExist），调用方据此区分 404 与 500。
func (o *fsOracle) Stat(ctx context.Context, path string) (FileStat, error) {
	if err := ctx.Err(); err != nil {
		return FileStat{}, err
	}

	info, err := o.fs.Stat(path)
	if err != nil {
		return FileStat{}, err
	}

	return FileStat{
		Path:    path,
		ModTime: info.ModTime(),
		Size:    info.Size(),
	}, nil
}
