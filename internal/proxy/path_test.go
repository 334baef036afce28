package proxy

import "testing"

func TestParseRequestPath(t *testing.T) {
	cases := []struct {
		raw                 string
		name, version, path string
		ok                  bool
	}{
		{raw: "/left-pad@1.3.0/index.js", name: "left-pad", version: "1.3.0", path: "index.js", ok: true},
		{raw: "/left-pad@1.3.0/package/index.js", name: "left-pad", version: "1.3.0", path: "package/index.js", ok: true},
		{raw: "/react@18.2.0/umd/react.production.min.js", name: "react", version: "18.2.0", path: "umd/react.production.min.js", ok: true},
		{raw: "/@babel/core@7.24.0/lib/index.js", name: "@babel/core", version: "7.24.0", path: "lib/index.js", ok: true},
		{raw: "/%40babel%2Fcore@7.24.0/package.json", name: "@babel/core", version: "7.24.0", path: "package.json", ok: true},
		{raw: "/pkg@1.0.0-beta.1/a.js", name: "pkg", version: "1.0.0-beta.1", path: "a.js", ok: true},
		{raw: "/left-pad/index.js"},
		{raw: "/left-pad@1.3.0"},
		{raw: "/left-pad@1.3.0/"},
		{raw: "/@1.3.0/index.js"},
		{raw: "/left-pad@/index.js"},
		{raw: "/@scope@1.0.0/a.js"},
		{raw: "/pkg@1.0.0/../etc/passwd"},
		{raw: "/"},
	}

	for _, tc := range cases {
		name, version, path, ok := ParseRequestPath(tc.raw)
		if ok != tc.ok {
			t.Fatalf("%s: expected ok=%v, got %v", tc.raw, tc.ok, ok)
		}
		if !ok {
			continue
		}
		if name != tc.name || version != tc.version || path != tc.path {
			t.Fatalf("%s: got (%s, %s, %s)", tc.raw, name, version, path)
		}
	}
}
