package proxy

import (
	"path"
	"strings"
)

const defaultContentType = "application/octet-stream"

var contentTypes = map[string]string{
	".js":   "application/javascript",
	".css":  "text/css",
	".html": "text/html",
	".json": "application/json",
}

// ContentTypeFor 依据扩展名返回 MIME 类型，未知扩展名统一为二进制流。
func ContentTypeFor(entryPath string) string {
	ext := strings.ToLower(path.Ext(entryPath))
	if ct, ok := contentTypes[ext]; ok {
		return ct
	}
	return defaultContentType
}
