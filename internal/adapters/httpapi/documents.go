package httpapi

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"programhub/internal/blob"
	"programhub/internal/core"
	"programhub/internal/schema"
	"programhub/pkg/domain"
)

// multipartMemory is how much of a form is buffered before spilling to disk.
const multipartMemory = 4 << 20

func isMultipart(r *http.Request) bool {
	media, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && media == "multipart/form-data"
}

// upload handles POST /api/documents with a multipart `file` part. The other
// form fields become the document payload.
func (s *server) upload(w http.ResponseWriter, r *http.Request) {
	// Headroom for the form fields around the file part.
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload+multipartMemory)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, requestError(domain.EntityDocument, "file", "file exceeds the %d byte limit", s.maxUpload))
			return
		}
		writeError(w, requestError(domain.EntityDocument, "body", "malformed multipart form: %v", err))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	var body io.Reader
	var filename, mimeType string
	switch {
	case errors.Is(err, http.ErrMissingFile):
	case err != nil:
		writeError(w, requestError(domain.EntityDocument, "file", "unreadable file part: %v", err))
		return
	default:
		defer file.Close()
		body = file
		filename = header.Filename
		mimeType = header.Header.Get("Content-Type")
	}

	payload := schema.Payload{}
	for key, values := range r.MultipartForm.Value {
		switch len(values) {
		case 0:
		case 1:
			payload[key] = values[0]
		default:
			payload[key] = values
		}
	}
	doc, res, err := s.svc.UploadDocument(r.Context(), principal(r), core.Upload{Filename: filename, MimeType: mimeType, Body: body}, payload)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Location", "/api/documents/"+doc.ID)
	writeData(w, http.StatusCreated, core.RecordOf(doc), res)
}

// serveFile streams a stored document, or redirects to a presigned URL when
// the backend offers one.
func (s *server) serveFile(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")
	if !strings.HasPrefix(key, blob.KeyPrefix) {
		http.NotFound(w, r)
		return
	}
	backend := s.files.Backend()
	if url, err := backend.PresignURL(r.Context(), key, blob.SignedURLOptions{Method: http.MethodGet}); err == nil {
		http.Redirect(w, r, url, http.StatusFound)
		return
	} else if !errors.Is(err, blob.ErrUnsupported) {
		s.logger.Warn("presign file", zap.String("key", key), zap.Error(err))
	}
	info, rc, err := backend.Get(r.Context(), key)
	if err != nil {
		if !errors.Is(err, blob.ErrNotFound) {
			s.logger.Debug("read file", zap.String("key", key), zap.Error(err))
		}
		http.NotFound(w, r)
		return
	}
	defer rc.Close()
	if info.ContentType != "" {
		w.Header().Set("Content-Type", info.ContentType)
	}
	if info.ETag != "" {
		w.Header().Set("ETag", `"`+info.ETag+`"`)
	}
	w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	if name := info.Metadata["filename"]; name != "" {
		w.Header().Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": name}))
	}
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		_, _ = io.Copy(w, rc)
	}
}
