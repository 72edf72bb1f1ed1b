package media

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/dalemusser/learnhub/internal/app/system/apperr"
	"github.com/dalemusser/learnhub/internal/app/system/limits"
)

// FieldSpec limits one file field of a multipart form.
type FieldSpec struct {
	Name     string
	MaxFiles int
}

// Form is a parsed multipart request: text values plus accepted files per field.
type Form struct {
	Values map[string]string
	Files  map[string][]*multipart.FileHeader
}

// Value returns the trimmed text value of name.
func (f Form) Value(name string) string {
	return strings.TrimSpace(f.Values[name])
}

// First returns the first accepted file of field, or nil.
func (f Form) First(field string) *multipart.FileHeader {
	if fs := f.Files[field]; len(fs) > 0 {
		return fs[0]
	}
	return nil
}

// IsMultipart reports whether r carries a multipart/form-data body.
func IsMultipart(r *http.Request) bool {
	return strings.HasPrefix(strings.ToLower(r.Header.Get("Content-Type")), "multipart/form-data")
}

// ParseForm reads a multipart body. Unknown file fields are ignored. A
// field with more than MaxFiles parts, or any accepted file over
// limits.MaxUploadFileSize, is a ValidationFailed. Files whose type is not
// image, audio or video are dropped.
func ParseForm(w http.ResponseWriter, r *http.Request, specs ...FieldSpec) (Form, error) {
	r.Body = http.MaxBytesReader(w, r.Body, limits.MaxMultipartBody)
	if err := r.ParseMultipartForm(limits.MaxMultipartMemory); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return Form{}, apperr.Validation("request body too large")
		}
		return Form{}, apperr.Validation("malformed multipart form")
	}

	out := Form{
		Values: make(map[string]string, len(r.MultipartForm.Value)),
		Files:  make(map[string][]*multipart.FileHeader, len(specs)),
	}
	for k, v := range r.MultipartForm.Value {
		if len(v) > 0 {
			out.Values[k] = v[0]
		}
	}

	var details []apperr.FieldError
	for _, spec := range specs {
		parts := r.MultipartForm.File[spec.Name]
		if len(parts) > spec.MaxFiles {
			details = append(details, apperr.FieldError{
				Field:   spec.Name,
				Message: fmt.Sprintf("at most %d file(s) allowed", spec.MaxFiles),
			})
			continue
		}
		for _, fh := range parts {
			if !Accepted(ContentType(fh)) {
				continue
			}
			if fh.Size > limits.MaxUploadFileSize {
				details = append(details, apperr.FieldError{
					Field:   spec.Name,
					Message: fmt.Sprintf("%s exceeds the %d MB limit", fh.Filename, limits.MaxUploadFileSize>>20),
				})
				continue
			}
			out.Files[spec.Name] = append(out.Files[spec.Name], fh)
		}
	}
	if len(details) > 0 {
		return Form{}, apperr.Validation("invalid upload", details...)
	}
	return out, nil
}
