package blob

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"programhub/internal/infra/blob/memory"
	"programhub/pkg/domain"
)

func newTestFileStore(opts ...FileStoreOption) (*FileStore, *memory.Store) {
	backend := memory.New()
	fs := NewFileStore(backend, opts...)
	fs.newID = func() string { return "0001" }
	return fs, backend
}

func fileViolation(t *testing.T, err error) domain.Violation {
	t.Helper()
	if domain.KindOf(err) != domain.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	vs := domain.ViolationsOf(err)
	if len(vs) != 1 || vs[0].Field != "file" {
		t.Fatalf("unexpected violations %+v", vs)
	}
	return vs[0]
}

func TestStoreWritesUnderDocumentsPrefix(t *testing.T) {
	ctx := context.Background()
	files, backend := newTestFileStore(WithBaseURL("https://hub.example.com/files/"))
	stored, err := files.Store(ctx, strings.NewReader("%PDF-1.7"), "Q3 plan (final).pdf", "application/pdf")
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	if stored.Key != "documents/0001-Q3_plan_final_.pdf" {
		t.Fatalf("key = %s", stored.Key)
	}
	if stored.URL != "https://hub.example.com/files/documents/0001-Q3_plan_final_.pdf" || stored.Size != 8 {
		t.Fatalf("unexpected stored file %+v", stored)
	}
	info, err := backend.Head(ctx, stored.Key)
	if err != nil || info.Metadata["filename"] != "Q3 plan (final).pdf" {
		t.Fatalf("head: %+v %v", info, err)
	}
	if key, ok := files.KeyFromURL(stored.URL); !ok || key != stored.Key {
		t.Fatalf("key from url = %s %v", key, ok)
	}
	if _, ok := files.KeyFromURL("https://elsewhere/x.pdf"); ok {
		t.Fatalf("foreign url must not map to a key")
	}
}

func TestStoreDerivesMimeFromExtension(t *testing.T) {
	files, _ := newTestFileStore()
	stored, err := files.Store(context.Background(), strings.NewReader("notes"), "notes.TXT", "")
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	if stored.MimeType != "text/plain" || stored.URL != "/files/documents/0001-notes.TXT" {
		t.Fatalf("unexpected stored file %+v", stored)
	}
	stored, err = files.Store(context.Background(), strings.NewReader("x"), "notes.txt", "text/plain; charset=utf-8")
	if err != nil || stored.MimeType != "text/plain" {
		t.Fatalf("mime parameters should be dropped: %+v %v", stored, err)
	}
	if _, err := files.Store(context.Background(), strings.NewReader("x"), "notes.txt", ""); err == nil {
		t.Fatalf("expected key collision to fail")
	}
}

func TestStoreRejectsDisallowedTypes(t *testing.T) {
	files, backend := newTestFileStore()
	cases := []struct{ name, mime string }{
		{"run.exe", "application/octet-stream"},
		{"noext", ""},
		{"photo.png", "application/pdf"},
		{"photo.png", "not a mime;;"},
	}
	for _, tc := range cases {
		_, err := files.Store(context.Background(), strings.NewReader("x"), tc.name, tc.mime)
		if v := fileViolation(t, err); v.Code != domain.CodeInvalid {
			t.Fatalf("%s: code = %s", tc.name, v.Code)
		}
	}
	if _, err := files.Store(context.Background(), strings.NewReader("x"), "  ", ""); fileViolation(t, err).Code != domain.CodeRequired {
		t.Fatalf("expected required code")
	}
	if backend.Len() != 0 {
		t.Fatalf("rejected files must not be stored")
	}
}

func TestStoreEnforcesSizeLimit(t *testing.T) {
	files, backend := newTestFileStore(WithMaxSize(4))
	if files.MaxSize() != 4 {
		t.Fatalf("max size = %d", files.MaxSize())
	}
	if _, err := files.Store(context.Background(), bytes.NewReader([]byte("12345")), "a.txt", "text/plain"); fileViolation(t, err).Code != domain.CodeInvalid {
		t.Fatalf("expected size violation")
	}
	if backend.Len() != 0 {
		t.Fatalf("oversized upload must not be stored")
	}
	if _, err := files.Store(context.Background(), bytes.NewReader([]byte("1234")), "a.txt", "text/plain"); err != nil {
		t.Fatalf("upload at the limit should pass: %v", err)
	}
}

func TestRemoveDeletesObject(t *testing.T) {
	ctx := context.Background()
	files, backend := newTestFileStore()
	stored, err := files.Store(ctx, strings.NewReader("img"), "a.gif", "image/gif")
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	if err := files.Remove(ctx, stored.Key); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := files.Remove(ctx, stored.Key); err != nil {
		t.Fatalf("second remove should be a no-op: %v", err)
	}
	if backend.Len() != 0 {
		t.Fatalf("expected empty backend")
	}
}

func TestLimitedReaderPassesSmallBodies(t *testing.T) {
	data, err := io.ReadAll(&limitedReader{r: strings.NewReader("abc"), remaining: 3})
	if err != nil || string(data) != "abc" {
		t.Fatalf("read: %q %v", data, err)
	}
}
