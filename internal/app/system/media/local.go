package media

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
)

// Local writes uploads under Root and serves them from URLPrefix.
type Local struct {
	Root      string
	URLPrefix string
}

// NewLocal ensures root exists.
func NewLocal(root, urlPrefix string) (*Local, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &Local{Root: root, URLPrefix: strings.TrimRight(urlPrefix, "/")}, nil
}

func (l *Local) Upload(ctx context.Context, folder string, fh *multipart.FileHeader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name := ObjectName(folder, fh.Filename)
	dst := filepath.Join(l.Root, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", err
	}

	src, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		_ = os.Remove(dst)
		return "", err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dst)
		return "", err
	}
	return l.URLPrefix + "/" + name, nil
}
