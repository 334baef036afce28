package archive

import "sort"

// FileTable 保存一次完整解包的结果：条目路径 → 字节内容，构造后只读。
type FileTable struct {
	entries map[string][]byte
	size    int64
}

func newFileTable(entries map[string][]byte, size int64) *FileTable {
	return &FileTable{entries: entries, size: size}
}

// Lookup 返回 path 对应的内容。返回的切片与表共享底层数组，调用方不得修改。
func (t *FileTable) Lookup(path string) ([]byte, bool) {
	if t == nil {
		return nil, false
	}
	data, ok := t.entries[path]
	return data, ok
}

// Len 返回条目数量。
func (t *FileTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// Size 返回全部条目内容的字节总数。
func (t *FileTable) Size() int64 {
	if t == nil {
		return 0
	}
	return t.size
}

// Paths 返回排序后的条目路径列表。
func (t *FileTable) Paths() []string {
	if t == nil {
		return nil
	}
	paths := make([]string, 0, len(t.entries))
	for p := range t.entries {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
