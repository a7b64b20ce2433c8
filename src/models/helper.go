package models

import (
	"mime"
	"path/filepath"
	"strings"
)

var (
	mimeExtMap = map[string]string{
		".jpg":  "image/jpeg",
		".jpeg": "image/jpeg",
		".png":  "image/png",
		".gif":  "image/gif",
		".webp": "image/webp",
		".bmp":  "image/bmp",
		".svg":  "image/svg+xml",
		".heic": "image/heic",
		".mp4":  "video/mp4",
		".mov":  "video/quicktime",
		".webm": "video/webm",
		".wav":  "audio/wav",
		".mp3":  "audio/mpeg",
		".ogg":  "audio/ogg",
		".pdf":  "application/pdf",
		".txt":  "text/plain",
		".md":   "text/markdown",
		".json": "application/json",
	}

	mimeAliasMap = map[string]string{
		"image/jpg":   "image/jpeg",
		"image/pjpeg": "image/jpeg",
		"image/x-png": "image/png",
		"video/mov":   "video/quicktime",
		"audio/x-wav": "audio/wav",
		"audio/wave":  "audio/wav",
	}
)

// NormalizeMIME fixes messy or aliased MIME types and falls back to the file extension.
func NormalizeMIME(name, m string) string {
	raw := strings.ToLower(strings.TrimSpace(m))
	if i := strings.IndexByte(raw, ';'); i >= 0 {
		raw = strings.TrimSpace(raw[:i])
	}
	for _, dup := range []string{"image/image/", "video/video/", "audio/audio/"} {
		for strings.HasPrefix(raw, dup) {
			raw = raw[len(dup)/2:]
		}
	}
	if alias, ok := mimeAliasMap[raw]; ok {
		return alias
	}
	if raw != "" && strings.Contains(raw, "/") && !strings.HasSuffix(raw, "/") {
		return raw
	}
	return mimeFromExt(name)
}

func mimeFromExt(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return ""
	}
	if mt, ok := mimeExtMap[ext]; ok {
		return mt
	}
	if mt := mime.TypeByExtension(ext); mt != "" {
		if i := strings.IndexByte(mt, ';'); i >= 0 {
			mt = mt[:i]
		}
		return strings.TrimSpace(mt)
	}
	return ""
}

// IsImage reports whether f's (normalized) MIME type starts with "image/".
func IsImage(f File) bool {
	return strings.HasPrefix(NormalizeMIME(f.Name, f.MIME), "image/")
}

// lastLine returns the last non-empty line of s.
func lastLine(s string) string {
	lines := strings.Split(s, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if candidate := strings.TrimSpace(lines[i]); candidate != "" {
			return candidate
		}
	}
	return ""
}
