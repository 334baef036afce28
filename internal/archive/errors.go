package archive

import "fmt"

// Stage 标记解包失败发生在哪个阶段。
type Stage string

const (
	StageDecompress Stage = "decompress"
	StageArchive    Stage = "archive"
)

// ExtractError 描述解包失败，Entry 为出错时正在处理的 tar 条目（可能为空）。
type ExtractError struct {
	Stage Stage
	Entry string
	Err   error
}

func (e *ExtractError) Error() string {
	if e.Entry != "" {
		return fmt.Sprintf("extract %s stage failed at %s: %v", e.Stage, e.Entry, e.Err)
	}
	return fmt.Sprintf("extract %s stage failed: %v", e.Stage, e.Err)
}

func (e *ExtractError) Unwrap() error {
	return e.Err
}
