// Package testutil 提供测试用的 npm 风格 tarball 构造工具。
package testutil

import (
	"archive/tar"
	"bytes"
	"sort"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
)

// PackageRoot 是 npm tarball 约定的根目录前缀。
const PackageRoot = "package/"

// EndMarkerSize 是 tar 结尾两个全零块的长度。
const EndMarkerSize = 2 * 512

// Tarball 把 files（相对 package/ 的路径 → 内容）打包成 .tgz 字节，
// 会额外写入 package/ 目录条目，模拟真实 registry 产物。
func Tarball(t testing.TB, files map[string]string) []byte {
	t.Helper()
	return Gzip(t, Tar(t, files))
}

// Tar 返回未压缩的 tar 字节，以 EndMarkerSize 字节的全零块结尾。
func Tar(t testing.TB, files map[string]string) []byte {
	t.Helper()

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)

	modTime := time.Date(1985, time.October, 26, 8, 15, 0, 0, time.UTC)
	if err := tw.WriteHeader(&tar.Header{
		Name:     PackageRoot,
		Typeflag: tar.TypeDir,
		Mode:     0o755,
		ModTime:  modTime,
	}); err != nil {
		t.Fatalf("write dir header: %v", err)
	}
	for _, name := range names {
		body := []byte(files[name])
		if err := tw.WriteHeader(&tar.Header{
			Name:     PackageRoot + name,
			Typeflag: tar.TypeReg,
			Mode:     0o644,
			Size:     int64(len(body)),
			ModTime:  modTime,
		}); err != nil {
			t.Fatalf("write header %s: %v", name, err)
		}
		if _, err := tw.Write(body); err != nil {
			t.Fatalf("write body %s: %v", name, err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("close tar: %v", err)
	}
	return buf.Bytes()
}

// Gzip 压缩任意字节，用于构造“gzip 合法但 tar 非法”的输入。
func Gzip(t testing.TB, payload []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	if _, err := gw.Write(payload); err != nil {
		t.Fatalf("gzip write: %v", err)
	}
	if err := gw.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}
	return buf.Bytes()
}
