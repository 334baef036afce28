package archive

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/any-hub/tarball-proxy/internal/testutil"
)

func sampleFiles() map[string]string {
	return map[string]string{
		"package.json": `{"name":"left-pad","version":"1.3.0"}`,
		"index.js":     "module.exports = leftPad;",
		"lib/util.css": "body{}",
		"empty.txt":    "",
	}
}

func TestExtractBuildsFileTable(t *testing.T) {
	data := testutil.Tarball(t, sampleFiles())

	table, err := NewExtractor().Extract(context.Background(), data)
	require.NoError(t, err)

	assert.Equal(t, 4, table.Len())
	body, ok := table.Lookup("package/index.js")
	require.True(t, ok)
	assert.Equal(t, "module.exports = leftPad;", string(body))

	body, ok = table.Lookup("package/empty.txt")
	require.True(t, ok, "空文件也应进入文件表")
	assert.Empty(t, body)

	_, ok = table.Lookup("package/")
	assert.False(t, ok, "目录条目不应进入文件表")
	assert.Equal(t, []string{
		"package/empty.txt",
		"package/index.js",
		"package/lib/util.css",
		"package/package.json",
	}, table.Paths())
}

func TestExtractIsIdempotent(t *testing.T) {
	data := testutil.Tarball(t, sampleFiles())
	x := NewExtractor()

	first, err := x.Extract(context.Background(), data)
	require.NoError(t, err)
	second, err := x.Extract(context.Background(), data)
	require.NoError(t, err)

	require.Equal(t, first.Paths(), second.Paths())
	for _, p := range first.Paths() {
		a, _ := first.Lookup(p)
		b, _ := second.Lookup(p)
		assert.Equal(t, a, b, "entry %s differs", p)
	}
	assert.Equal(t, first.Size(), second.Size())
}

func TestExtractRejectsMalformedGzip(t *testing.T) {
	table, err := NewExtractor().Extract(context.Background(), []byte("definitely not gzip"))
	require.Error(t, err)
	assert.Nil(t, table)

	var extractErr *ExtractError
	require.True(t, errors.As(err, &extractErr))
	assert.Equal(t, StageDecompress, extractErr.Stage)
}

func TestExtractRejectsEmptyInput(t *testing.T) {
	table, err := NewExtractor().Extract(context.Background(), nil)
	require.Error(t, err)
	assert.Nil(t, table)
}

func TestExtractRejectsBadChecksum(t *testing.T) {
	data := testutil.Tarball(t, sampleFiles())
	// gzip 尾部 8 字节为 CRC32 + ISIZE，篡改 CRC 只能在读完全部数据后被发现。
	data[len(data)-8] ^= 0xff

	table, err := NewExtractor().Extract(context.Background(), data)
	require.Error(t, err)
	assert.Nil(t, table)

	var extractErr *ExtractError
	require.True(t, errors.As(err, &extractErr))
	assert.Equal(t, StageDecompress, extractErr.Stage)
}

func TestExtractRejectsTruncatedStream(t *testing.T) {
	data := testutil.Tarball(t, sampleFiles())

	for _, cut := range []int{len(data) / 2, len(data) - 4, 11} {
		table, err := NewExtractor().Extract(context.Background(), data[:cut])
		require.Error(t, err, "cut at %d", cut)
		assert.Nil(t, table, "cut at %d", cut)
	}
}

func TestExtractRejectsNonTarPayload(t *testing.T) {
	data := testutil.Gzip(t, []byte("just some text that is shorter than a tar block"))

	table, err := NewExtractor().Extract(context.Background(), data)
	require.Error(t, err)
	assert.Nil(t, table)

	var extractErr *ExtractError
	require.True(t, errors.As(err, &extractErr))
	assert.Equal(t, StageArchive, extractErr.Stage)
}

func TestExtractRejectsTarWithoutEndMarker(t *testing.T) {
	raw := testutil.Tar(t, sampleFiles())

	cases := map[string][]byte{
		"no zero blocks":  raw[:len(raw)-testutil.EndMarkerSize],
		"one zero block":  raw[:len(raw)-testutil.EndMarkerSize/2],
		"cut after entry": raw[:1024],
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			table, err := NewExtractor().Extract(context.Background(), testutil.Gzip(t, payload))
			require.Error(t, err)
			assert.Nil(t, table)

			var extractErr *ExtractError
			require.ErrorAs(t, err, &extractErr)
			assert.Equal(t, StageArchive, extractErr.Stage)
			assert.ErrorIs(t, err, ErrMissingEndMarker)
		})
	}
}

func TestExtractRejectsEmptyGzipPayload(t *testing.T) {
	table, err := NewExtractor().Extract(context.Background(), testutil.Gzip(t, nil))
	require.Error(t, err)
	assert.Nil(t, table)
	assert.ErrorIs(t, err, ErrMissingEndMarker)
}

func TestExtractAcceptsArchiveWithOnlyEndMarker(t *testing.T) {
	table, err := NewExtractor().Extract(context.Background(), testutil.Gzip(t, make([]byte, testutil.EndMarkerSize)))
	require.NoError(t, err)
	assert.Zero(t, table.Len())
}

func TestExtractHonoursCancelledContext(t *testing.T) {
	data := testutil.Tarball(t, sampleFiles())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	table, err := NewExtractor().Extract(ctx, data)
	require.Error(t, err)
	assert.Nil(t, table)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNilFileTableIsEmpty(t *testing.T) {
	var table *FileTable
	_, ok := table.Lookup("package/index.js")
	assert.False(t, ok)
	assert.Zero(t, table.Len())
	assert.Nil(t, table.Paths())
}
