// Package mimetype maps file extensions to media types and back.
//
// The table is fixed rather than delegated to the OS mime database so that a
// mock tree produces the same Content-Type on every machine it is checked out
// on.
package mimetype

import (
	"mime"
	"path/filepath"
	"strings"
)

// OctetStream is the fallback media type for unknown extensions.
const OctetStream = "application/octet-stream"

// JSON is the media type of engine-written structured files.
const JSON = "application/json"

var byExtension = map[string]string{
	".json":  "application/json",
	".yaml":  "application/yaml",
	".yml":   "application/yaml",
	".xml":   "application/xml",
	".txt":   "text/plain",
	".md":    "text/markdown",
	".csv":   "text/csv",
	".html":  "text/html",
	".htm":   "text/html",
	".css":   "text/css",
	".js":    "text/javascript",
	".mjs":   "text/javascript",
	".map":   "application/json",
	".wasm":  "application/wasm",
	".pdf":   "application/pdf",
	".zip":   "application/zip",
	".gz":    "application/gzip",
	".tar":   "application/x-tar",
	".png":   "image/png",
	".jpg":   "image/jpeg",
	".jpeg":  "image/jpeg",
	".gif":   "image/gif",
	".svg":   "image/svg+xml",
	".webp":  "image/webp",
	".ico":   "image/x-icon",
	".bmp":   "image/bmp",
	".mp3":   "audio/mpeg",
	".wav":   "audio/wav",
	".ogg":   "audio/ogg",
	".mp4":   "video/mp4",
	".webm":  "video/webm",
	".woff":  "font/woff",
	".woff2": "font/woff2",
	".ttf":   "font/ttf",
	".otf":   "font/otf",
	".bin":   OctetStream,
}

// Canonical extension per media type. Only one entry per type; ambiguous
// extensions (.yml, .htm, .jpeg) resolve through the forward map only.
var extensionByType = map[string]string{
	"application/json":         ".json",
	"application/yaml":         ".yaml",
	"application/xml":          ".xml",
	"text/plain":               ".txt",
	"text/markdown":            ".md",
	"text/csv":                 ".csv",
	"text/html":                ".html",
	"text/css":                 ".css",
	"text/javascript":          ".js",
	"application/javascript":   ".js",
	"application/wasm":         ".wasm",
	"application/pdf":          ".pdf",
	"application/zip":          ".zip",
	"application/gzip":         ".gz",
	"application/x-tar":        ".tar",
	"image/png":                ".png",
	"image/jpeg":               ".jpg",
	"image/gif":                ".gif",
	"image/svg+xml":            ".svg",
	"image/webp":               ".webp",
	"image/x-icon":             ".ico",
	"image/bmp":                ".bmp",
	"audio/mpeg":               ".mp3",
	"audio/wav":                ".wav",
	"audio/ogg":                ".ogg",
	"video/mp4":                ".mp4",
	"video/webm":               ".webm",
	"font/woff":                ".woff",
	"font/woff2":               ".woff2",
	"font/ttf":                 ".ttf",
	"font/otf":                 ".otf",
	"application/octet-stream": ".bin",
}

// ByExtension returns the media type for a file path based on its extension.
// Unknown or missing extensions yield application/octet-stream.
func ByExtension(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if mt, ok := byExtension[ext]; ok {
		return mt
	}
	return OctetStream
}

// ExtensionByType returns the canonical extension (with leading dot) for a
// Content-Type header value, ignoring parameters such as charset. Structured
// syntax suffixes resolve to the suffix family, so any +json type maps to
// ".json". Returns "" when no extension is known.
func ExtensionByType(contentType string) string {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	if ext, ok := extensionByType[mt]; ok {
		return ext
	}
	if i := strings.LastIndexByte(mt, '+'); i != -1 {
		switch mt[i+1:] {
		case "json":
			return ".json"
		case "xml":
			return ".xml"
		case "yaml":
			return ".yaml"
		}
	}
	return ""
}

// IsJSONType reports whether a Content-Type header value denotes JSON,
// including structured syntax suffix types such as merge-patch+json.
func IsJSONType(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}
