package archive

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
)

// endMarkerSize 是 tar 结尾两个 512 字节全零块的长度。
const endMarkerSize = 2 * 512

// ErrMissingEndMarker 表示 tar 流在结束标记之前就结束了。
var ErrMissingEndMarker = errors.New("tar stream ended before end-of-archive marker")

// maxPrealloc 限制按头部声明大小预分配的内存，头部大小不可信。
const maxPrealloc = 8 << 20

// Extractor 负责 gzip 解压 + tar 解包，无内部状态，可被多个请求并发复用。
type Extractor struct{}

// NewExtractor 创建解包器。
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract 解包一段完整的压缩字节。
func (x *Extractor) Extract(ctx context.Context, compressed []byte) (*FileTable, error) {
	return x.ExtractReader(ctx, bytes.NewReader(compressed))
}

// ExtractReader 以流式方式读取压缩数据，逐个条目读满正文后再进入下一条目。
// 任何阶段失败都会丢弃已构建的部分结果。
func (x *Extractor) ExtractReader(ctx context.Context, r io.Reader) (*FileTable, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, &ExtractError{Stage: StageDecompress, Err: err}
	}
	defer gz.Close()

	entries := make(map[string][]byte)
	var size int64

	counter := &countingReader{r: gz}
	tr := tar.NewReader(counter)
	for {
		if err := ctx.Err(); err != nil {
			return nil, &ExtractError{Stage: StageArchive, Err: err}
		}

		before := counter.n
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			// 流在块边界处截断时 tar.Reader 同样返回 io.EOF，只有读到两个全零块才算完整结束。
			if counter.n-before < endMarkerSize {
				return nil, &ExtractError{Stage: StageArchive, Err: ErrMissingEndMarker}
			}
			break
		}
		if err != nil {
			return nil, &ExtractError{Stage: classify(err), Err: err}
		}

		// 目录、链接以及 PAX 等元数据条目没有正文，不进入文件表。
		if header.Typeflag != tar.TypeReg {
			continue
		}

		var buf bytes.Buffer
		if header.Size > 0 {
			buf.Grow(int(min(header.Size, maxPrealloc)))
		}
		n, err := io.Copy(&buf, tr)
		if err != nil {
			return nil, &ExtractError{Stage: classify(err), Entry: header.Name, Err: err}
		}
		entries[header.Name] = buf.Bytes()
		size += n
	}

	// tar 结束标记之后可能还有填充块，读完剩余数据才能校验 gzip 尾部的 CRC 与长度。
	if err := drain(gz); err != nil {
		return nil, &ExtractError{Stage: StageDecompress, Err: err}
	}

	return newFileTable(entries, size), nil
}

// classify 区分 gzip 层与 tar 层的错误，tar.Reader 会原样透传底层 gzip 的读错误。
func classify(err error) Stage {
	var corrupt flate.CorruptInputError
	switch {
	case errors.Is(err, gzip.ErrChecksum), errors.Is(err, gzip.ErrHeader), errors.As(err, &corrupt):
		return StageDecompress
	default:
		return StageArchive
	}
}

// drain 逐次 Read 到 EOF。gzip.Reader 会记住尾部校验错误并在后续 Read 中返回。
func drain(r io.Reader) error {
	buf := make([]byte, 32<<10)
	for {
		_, err := r.Read(buf)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// countingReader 记录经由 tar.Reader 消费的解压字节数。
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
