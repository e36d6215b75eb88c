package storage

import (
	"context"
	"mime"
	"path"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// AssetStore keeps binary interview assets and returns a retrievable URL.
type AssetStore interface {
	Save(ctx context.Context, data []byte, folder, ext string) (string, error)
}

var unsafeSegment = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// objectKey builds "<folder>/<uuid>.<ext>" with a sanitized folder.
func objectKey(folder, ext string) string {
	var parts []string
	for _, seg := range strings.Split(folder, "/") {
		if s := unsafeSegment.ReplaceAllString(seg, ""); s != "" {
			parts = append(parts, s)
		}
	}
	name := uuid.New().String()
	if ext = strings.TrimPrefix(strings.ToLower(ext), "."); ext != "" {
		name += "." + unsafeSegment.ReplaceAllString(ext, "")
	}
	return path.Join(append(parts, name)...)
}

func contentType(ext string) string {
	if t := mime.TypeByExtension("." + strings.TrimPrefix(ext, ".")); t != "" {
		return t
	}
	return "application/octet-stream"
}
