package proxy

import (
	"errors"
	"fmt"
)

// ErrFileNotFound 表示 tarball 解包成功，但其中不存在请求的文件。
var ErrFileNotFound = errors.New("file not found in package")

// ResolveError 包装回源或解包阶段的失败，Op 为 fetch / extract。
type ResolveError struct {
	Op  string
	Key string
	Err error
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Key, e.Err)
}

func (e *ResolveError) Unwrap() error {
	return e.Err
}

const (
	opFetch   = "fetch"
	opExtract = "extract"
)
