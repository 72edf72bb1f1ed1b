package media

import (
	"context"
	"mime/multipart"
	"sync"
)

// Memory records uploads without storing bytes. Tests use it in place of
// Local or S3; set Err to simulate an upstream failure.
type Memory struct {
	mu      sync.Mutex
	Uploads []string
	Err     error
}

func (m *Memory) Upload(ctx context.Context, folder string, fh *multipart.FileHeader) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return "", m.Err
	}
	u := "https://media.test/" + ObjectName(folder, fh.Filename)
	m.Uploads = append(m.Uploads, u)
	return u, nil
}

// Count returns the number of successful uploads.
func (m *Memory) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Uploads)
}
