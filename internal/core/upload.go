package core

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"

	"programhub/internal/access"
	"programhub/internal/schema"
	"programhub/pkg/domain"
)

// ErrNoFileStore is returned by UploadDocument when no file store is configured.
var ErrNoFileStore = errors.New("file store not configured")

// Upload carries the bytes of a document upload.
type Upload struct {
	Filename string
	MimeType string
	Body     io.Reader
}

// UploadDocument stores the upload, then creates a Document whose url, size
// and mime_type come from the stored file. The uploader defaults to the
// principal and the name to the file name. When the document cannot be
// created the stored file is removed again.
func (s *Service) UploadDocument(ctx context.Context, principal Principal, upload Upload, payload schema.Payload) (Document, Result, error) {
	var (
		created Document
		res     Result
	)
	op := operation{name: "upload_document", kind: EntityDocument, action: ActionCreate, actor: principal.ID}
	err := s.run(ctx, op, func(ctx context.Context) (string, error) {
		if err := s.policy.Authorize(principal, access.OpCreate, EntityDocument, ""); err != nil {
			return "", err
		}
		if s.files == nil {
			return "", domain.InfrastructureError{Op: "upload document", Err: ErrNoFileStore}
		}
		if upload.Body == nil {
			return "", invalid(EntityDocument, "file", domain.CodeRequired, "is required")
		}
		for _, key := range []string{"url", "size", "mime_type"} {
			if _, ok := payload[key]; ok {
				return "", invalid(EntityDocument, key, domain.CodeInvalid, "is set from the uploaded file")
			}
		}
		stored, err := s.files.Store(ctx, upload.Body, upload.Filename, upload.MimeType)
		if err != nil {
			if domain.KindOf(err) == domain.KindUnknown {
				err = domain.InfrastructureError{Op: "store file", Err: err}
			}
			return "", err
		}

		fields := make(schema.Payload, len(payload)+4)
		for k, v := range payload {
			fields[k] = v
		}
		fields["url"] = stored.URL
		fields["size"] = float64(stored.Size)
		fields["mime_type"] = stored.MimeType
		if _, ok := fields["uploaded_by_id"]; !ok {
			fields["uploaded_by_id"] = principal.ID
		}
		if name, _ := fields["name"].(string); strings.TrimSpace(name) == "" {
			fields["name"] = path.Base(upload.Filename)
		}

		var entity Entity
		entity, res, err = s.create(ctx, principal, EntityDocument, fields)
		if err != nil {
			if rmErr := s.files.Remove(ctx, stored.Key); rmErr != nil {
				s.logger.Warn("remove orphaned upload", "key", stored.Key, "error", rmErr.Error())
			}
			return "", err
		}
		created = entity.(Document)
		return created.ID, nil
	})
	return created, res, err
}
