// Package media accepts course and profile uploads and stores them on the
// local disk or in S3. Only image, audio and video files are kept; anything
// else in a file field is dropped without error.
package media

import (
	"context"
	"fmt"
	"mime"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Folders objects are grouped under.
const (
	FolderThumbnails    = "course-thumbnails"
	FolderCourseMedia   = "course-media"
	FolderProfileImages = "profile-images"
)

// Uploader stores one file and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, folder string, fh *multipart.FileHeader) (string, error)
}

// Accepted reports whether contentType is image/*, audio/* or video/*.
func Accepted(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	switch strings.SplitN(mt, "/", 2)[0] {
	case "image", "audio", "video":
		return true
	}
	return false
}

// ContentType returns the part's declared type, falling back to the
// filename extension.
func ContentType(fh *multipart.FileHeader) string {
	if ct := fh.Header.Get("Content-Type"); ct != "" && ct != "application/octet-stream" {
		return ct
	}
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(fh.Filename))); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// ObjectName builds "<folder>/<uuid><ext>". The client filename only
// contributes its extension.
func ObjectName(folder, filename string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(filename)))
	if len(ext) > 10 || strings.ContainsAny(ext, `/\`) {
		ext = ""
	}
	return fmt.Sprintf("%s/%s%s", folder, uuid.NewString(), ext)
}

// UploadAll uploads files in order and returns their URLs. It stops at the
// first failure.
func UploadAll(ctx context.Context, up Uploader, folder string, files []*multipart.FileHeader) ([]string, error) {
	urls := make([]string, 0, len(files))
	for _, fh := range files {
		u, err := up.Upload(ctx, folder, fh)
		if err != nil {
			return nil, fmt.Errorf("upload %s: %w", fh.Filename, err)
		}
		urls = append(urls, u)
	}
	return urls, nil
}
