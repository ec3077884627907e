package render

import "errors"

var (
	// ErrInvalidArgument 表示调用方未提供有效的渲染参数，在任何 I/O 之前同步返回。
	ErrInvalidArgument = errors.New("render: invalid argument")

	// ErrContractViolation 表示需要编译时站点没有可用的 Compiler。
	ErrContractViolation = errors.New("render: compiler contract violation")
)
