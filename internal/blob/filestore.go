package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"programhub/pkg/domain"
)

const (
	// DefaultMaxUploadSize caps a single document upload at 10 MiB.
	DefaultMaxUploadSize int64 = 10 << 20
	// DefaultBaseURL is the path prefix the HTTP adapter serves files from.
	DefaultBaseURL = "/files"
	// KeyPrefix groups document uploads inside the store.
	KeyPrefix = "documents/"
)

// allowedTypes maps each accepted extension to the MIME types clients may
// declare for it.
var allowedTypes = map[string][]string{
	"jpeg": {"image/jpeg"},
	"jpg":  {"image/jpeg"},
	"png":  {"image/png"},
	"gif":  {"image/gif"},
	"pdf":  {"application/pdf"},
	"doc":  {"application/msword"},
	"docx": {"application/vnd.openxmlformats-officedocument.wordprocessingml.document"},
	"xls":  {"application/vnd.ms-excel"},
	"xlsx": {"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"},
	"ppt":  {"application/vnd.ms-powerpoint"},
	"pptx": {"application/vnd.openxmlformats-officedocument.presentationml.presentation"},
	"txt":  {"text/plain"},
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

var errTooLarge = errors.New("upload exceeds size limit")

// FileStore implements domain.FileStore on top of a blob Store.
type FileStore struct {
	store   Store
	maxSize int64
	baseURL string
	newID   func() string
}

// FileStoreOption customizes a FileStore.
type FileStoreOption func(*FileStore)

// WithMaxSize overrides the upload size limit. Non-positive values keep the default.
func WithMaxSize(n int64) FileStoreOption {
	return func(f *FileStore) {
		if n > 0 {
			f.maxSize = n
		}
	}
}

// WithBaseURL sets the prefix document URLs are built from.
func WithBaseURL(base string) FileStoreOption {
	return func(f *FileStore) {
		if base = strings.TrimRight(strings.TrimSpace(base), "/"); base != "" {
			f.baseURL = base
		}
	}
}

// NewFileStore wraps store.
func NewFileStore(store Store, opts ...FileStoreOption) *FileStore {
	f := &FileStore{
		store:   store,
		maxSize: DefaultMaxUploadSize,
		baseURL: DefaultBaseURL,
		newID:   func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

var _ domain.FileStore = (*FileStore)(nil)

// MaxSize returns the configured upload limit.
func (f *FileStore) MaxSize() int64 { return f.maxSize }

// Backend returns the wrapped blob store.
func (f *FileStore) Backend() Store { return f.store }

// Store checks the file type and size and writes the bytes under a fresh key.
// Rejections are ValidationErrors on the "file" field.
func (f *FileStore) Store(ctx context.Context, r io.Reader, filename, mimeType string) (domain.StoredFile, error) {
	name := path.Base(filepath.ToSlash(strings.TrimSpace(filename)))
	if name == "" || name == "." || name == "/" {
		return domain.StoredFile{}, fileError(domain.CodeRequired, "file name is required")
	}
	mimeType, err := checkType(name, mimeType)
	if err != nil {
		return domain.StoredFile{}, err
	}

	key := KeyPrefix + f.newID() + "-" + sanitize(name)
	body := &limitedReader{r: r, remaining: f.maxSize}
	info, err := f.store.Put(ctx, key, body, PutOptions{
		ContentType: mimeType,
		Metadata:    map[string]string{"filename": name},
	})
	if err != nil {
		if errors.Is(err, errTooLarge) {
			return domain.StoredFile{}, fileError(domain.CodeInvalid, "file exceeds the %d byte limit", f.maxSize)
		}
		return domain.StoredFile{}, fmt.Errorf("store %s: %w", key, err)
	}
	return domain.StoredFile{Key: key, URL: f.URL(key), Size: info.Size, MimeType: mimeType}, nil
}

// Remove deletes a stored file. Missing keys are not an error.
func (f *FileStore) Remove(ctx context.Context, key string) error {
	if _, err := f.store.Delete(ctx, key); err != nil {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}

// URL returns the public URL for key.
func (f *FileStore) URL(key string) string { return f.baseURL + "/" + key }

// KeyFromURL reverses URL. The boolean is false for foreign URLs.
func (f *FileStore) KeyFromURL(raw string) (string, bool) {
	key, ok := strings.CutPrefix(raw, f.baseURL+"/")
	if !ok || !strings.HasPrefix(key, KeyPrefix) {
		return "", false
	}
	return key, true
}

func checkType(name, declared string) (string, error) {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
	accepted, ok := allowedTypes[ext]
	if !ok {
		return "", fileError(domain.CodeInvalid, "file type %q is not allowed", ext)
	}
	declared = strings.TrimSpace(declared)
	if declared == "" || declared == "application/octet-stream" {
		return accepted[0], nil
	}
	media, _, err := mime.ParseMediaType(declared)
	if err != nil {
		return "", fileError(domain.CodeInvalid, "mime type %q is malformed", declared)
	}
	for _, a := range accepted {
		if media == a {
			return media, nil
		}
	}
	return "", fileError(domain.CodeInvalid, "mime type %q does not match .%s", media, ext)
}

func sanitize(name string) string {
	clean := strings.Trim(unsafeName.ReplaceAllString(name, "_"), "._")
	if clean == "" {
		return "file"
	}
	return clean
}

func fileError(code, format string, args ...any) error {
	return domain.ValidationError{Entity: domain.EntityDocument, Violations: []domain.Violation{{
		Rule:     "upload",
		Severity: domain.SeverityBlock,
		Code:     code,
		Field:    "file",
		Message:  fmt.Sprintf(format, args...),
		Entity:   domain.EntityDocument,
	}}}
}

// limitedReader fails with errTooLarge once more than remaining bytes are read.
type limitedReader struct {
	r         io.Reader
	remaining int64
}

func (l *limitedReader) Read(p []byte) (int, error) {
	if l.remaining < 0 {
		return 0, errTooLarge
	}
	if int64(len(p)) > l.remaining+1 {
		p = p[:l.remaining+1]
	}
	n, err := l.r.Read(p)
	l.remaining -= int64(n)
	if l.remaining < 0 {
		return n, errTooLarge
	}
	return n, err
}
