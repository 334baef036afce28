package proxy

import (
	"net/url"
	"strings"
)

// ParseRequestPath 解析 /<name>@<version>/<entryPath>，支持 @scope/name 形式的包名。
func ParseRequestPath(raw string) (name, version, entryPath string, ok bool) {
	if unescaped, err := url.PathUnescape(raw); err == nil {
		raw = unescaped
	}
	raw = strings.TrimPrefix(raw, "/")

	rest := raw
	prefix := ""
	if strings.HasPrefix(raw, "@") {
		// scoped 包名自身包含一个 /，需要跳过 scope 段。
		slash := strings.Index(raw, "/")
		if slash <= 1 {
			return "", "", "", false
		}
		prefix = raw[:slash+1]
		rest = raw[slash+1:]
	}

	slash := strings.Index(rest, "/")
	if slash < 0 {
		return "", "", "", false
	}
	nameVersion, entryPath := rest[:slash], rest[slash+1:]

	at := strings.LastIndex(nameVersion, "@")
	if at <= 0 || at == len(nameVersion)-1 {
		return "", "", "", false
	}
	name = prefix + nameVersion[:at]
	version = nameVersion[at+1:]

	if entryPath == "" || hasDotSegment(entryPath) {
		return "", "", "", false
	}
	return name, version, entryPath, true
}

func hasDotSegment(p string) bool {
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return true
		}
	}
	return false
}
