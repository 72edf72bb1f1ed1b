package media

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dalemusser/learnhub/internal/app/system/apperr"
)

type part struct {
	field, filename, contentType, body string
}

func multipartRequest(t *testing.T, values map[string]string, parts ...part) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range values {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	for _, p := range parts {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+p.field+`"; filename="`+p.filename+`"`)
		h.Set("Content-Type", p.contentType)
		w, err := mw.CreatePart(h)
		if err != nil {
			t.Fatal(err)
		}
		w.Write([]byte(p.body))
	}
	mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

var courseFields = []FieldSpec{{Name: "thumbnail", MaxFiles: 1}, {Name: "mediaFiles", MaxFiles: 10}}

func TestAccepted(t *testing.T) {
	tests := []struct {
		ct   string
		want bool
	}{
		{"image/png", true},
		{"video/mp4", true},
		{"audio/mpeg", true},
		{"image/jpeg; charset=binary", true},
		{"application/pdf", false},
		{"text/plain", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := Accepted(tt.ct); got != tt.want {
			t.Errorf("Accepted(%q) = %v, want %v", tt.ct, got, tt.want)
		}
	}
}

func TestObjectName(t *testing.T) {
	name := ObjectName(FolderThumbnails, "../../etc/My Photo.PNG")
	if !strings.HasPrefix(name, FolderThumbnails+"/") {
		t.Errorf("name %q missing folder", name)
	}
	if !strings.HasSuffix(name, ".png") {
		t.Errorf("name %q should keep lowercased extension", name)
	}
	if strings.Contains(name, "..") || strings.Contains(name, "Photo") {
		t.Errorf("name %q leaks client filename", name)
	}
	if ObjectName("x", "a.png") == ObjectName("x", "a.png") {
		t.Error("object names should be unique")
	}
}

func TestParseForm_FiltersNonMedia(t *testing.T) {
	req := multipartRequest(t, map[string]string{"title": " Go 101 "},
		part{"thumbnail", "t.png", "image/png", "png"},
		part{"mediaFiles", "a.mp4", "video/mp4", "vid"},
		part{"mediaFiles", "notes.pdf", "application/pdf", "pdf"},
	)
	form, err := ParseForm(httptest.NewRecorder(), req, courseFields...)
	if err != nil {
		t.Fatalf("ParseForm: %v", err)
	}
	if form.Value("title") != "Go 101" {
		t.Errorf("title = %q", form.Value("title"))
	}
	if form.First("thumbnail") == nil {
		t.Error("thumbnail missing")
	}
	if n := len(form.Files["mediaFiles"]); n != 1 {
		t.Errorf("mediaFiles = %d, want 1 (pdf dropped)", n)
	}
}

func TestParseForm_TooManyFiles(t *testing.T) {
	req := multipartRequest(t, nil,
		part{"thumbnail", "a.png", "image/png", "a"},
		part{"thumbnail", "b.png", "image/png", "b"},
	)
	_, err := ParseForm(httptest.NewRecorder(), req, courseFields...)
	if apperr.KindOf(err) != apperr.ValidationFailed {
		t.Fatalf("err = %v, want ValidationFailed", err)
	}
}

func TestParseForm_NotMultipart(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	if IsMultipart(req) {
		t.Error("json request reported as multipart")
	}
	_, err := ParseForm(httptest.NewRecorder(), req, courseFields...)
	if apperr.KindOf(err) != apperr.ValidationFailed {
		t.Fatalf("err = %v, want ValidationFailed", err)
	}
}

func TestLocalUpload(t *testing.T) {
	root := t.TempDir()
	l, err := NewLocal(root, "/media/")
	if err != nil {
		t.Fatal(err)
	}
	req := multipartRequest(t, nil, part{"thumbnail", "t.png", "image/png", "pixels"})
	form, err := ParseForm(httptest.NewRecorder(), req, courseFields...)
	if err != nil {
		t.Fatal(err)
	}

	url, err := l.Upload(context.Background(), FolderThumbnails, form.First("thumbnail"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if !strings.HasPrefix(url, "/media/"+FolderThumbnails+"/") {
		t.Errorf("url = %q", url)
	}
	got, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(strings.TrimPrefix(url, "/media/"))))
	if err != nil {
		t.Fatalf("read stored file: %v", err)
	}
	if string(got) != "pixels" {
		t.Errorf("stored %q", got)
	}
}

func TestUploadAll_StopsOnError(t *testing.T) {
	req := multipartRequest(t, nil,
		part{"mediaFiles", "a.mp4", "video/mp4", "a"},
		part{"mediaFiles", "b.mp4", "video/mp4", "b"},
	)
	form, err := ParseForm(httptest.NewRecorder(), req, courseFields...)
	if err != nil {
		t.Fatal(err)
	}

	mem := &Memory{}
	urls, err := UploadAll(context.Background(), mem, FolderCourseMedia, form.Files["mediaFiles"])
	if err != nil || len(urls) != 2 {
		t.Fatalf("UploadAll = %v, %v", urls, err)
	}

	boom := errors.New("bucket down")
	mem.Err = boom
	if _, err := UploadAll(context.Background(), mem, FolderCourseMedia, form.Files["mediaFiles"]); !errors.Is(err, boom) {
		t.Errorf("err = %v, want wrapped %v", err, boom)
	}
}
