package storage

import (
	"mime"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const fallbackContentType = "application/octet-stream"

func GetContentType(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	contentType := mime.TypeByExtension(ext)
	if contentType == "" {
		return fallbackContentType
	}
	return contentType
}

// DetectContentType prefers a declared type, then the file name, then the bytes.
func DetectContentType(declared, filename string, body []byte) string {
	if declared != "" && declared != fallbackContentType {
		if mediaType, _, err := mime.ParseMediaType(declared); err == nil {
			return mediaType
		}
	}
	if byName := GetContentType(filename); byName != fallbackContentType {
		return byName
	}
	detected := mimetype.Detect(body).String()
	if mediaType, _, err := mime.ParseMediaType(detected); err == nil {
		return mediaType
	}
	return fallbackContentType
}

// escapeKey escapes each segment of an object key for use in a URL path.
func escapeKey(key string) string {
	segments := strings.Split(key, "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return strings.Join(segments, "/")
}
