package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"auto-repeat/internal/model"
)

var (
	// ErrAlreadySubmitted is returned when submitting a non-draft document.
	ErrAlreadySubmitted = errors.New("document is not a draft")
	// ErrMissingSubject is returned when submitting a document without a subject.
	ErrMissingSubject = errors.New("subject is required")
)

// DocumentRepository stores host documents.
type DocumentRepository struct {
	db     *gorm.DB
	noCopy map[string]struct{}
}

// NewDocumentRepository returns a repository that drops the noCopy field
// names when documents are copied.
func NewDocumentRepository(db *gorm.DB, noCopy []string) *DocumentRepository {
	skip := make(map[string]struct{}, len(noCopy))
	for _, f := range noCopy {
		if f = strings.TrimSpace(f); f != "" {
			skip[f] = struct{}{}
		}
	}
	return &DocumentRepository{db: db, noCopy: skip}
}

func (r *DocumentRepository) Get(ctx context.Context, doctype, name string) (*model.Document, error) {
	var doc model.Document
	if err := r.db.WithContext(ctx).Where("doctype = ? AND name = ?", doctype, name).First(&doc).Error; err != nil {
		return nil, fmt.Errorf("get %s %q: %w", doctype, name, err)
	}
	return &doc, nil
}

// Insert persists a new document, naming it if no name was given.
func (r *DocumentRepository) Insert(ctx context.Context, doc *model.Document) error {
	if doc.Name == "" {
		doc.Name = uuid.NewString()
	}
	if err := r.db.WithContext(ctx).Create(doc).Error; err != nil {
		return fmt.Errorf("insert %s: %w", doc.Doctype, err)
	}
	return nil
}

// Copy returns an unsaved draft duplicate of doc without its no-copy fields.
func (r *DocumentRepository) Copy(doc *model.Document) *model.Document {
	dup := &model.Document{
		Doctype:   doc.Doctype,
		Subject:   doc.Subject,
		DocStatus: model.DocStatusDraft,
	}
	if doc.StartDate != nil {
		start := *doc.StartDate
		dup.StartDate = &start
	}
	if doc.EndDate != nil {
		end := *doc.EndDate
		dup.EndDate = &end
	}
	if doc.Fields != nil {
		dup.Fields = make(datatypes.JSONMap, len(doc.Fields))
		for k, v := range doc.Fields {
			if _, skip := r.noCopy[k]; skip {
				continue
			}
			dup.Fields[k] = v
		}
	}
	return dup
}

// Submit moves a draft document to the submitted state.
func (r *DocumentRepository) Submit(ctx context.Context, doc *model.Document) error {
	if doc.DocStatus != model.DocStatusDraft {
		return fmt.Errorf("submit %s %q: %w", doc.Doctype, doc.Name, ErrAlreadySubmitted)
	}
	if strings.TrimSpace(doc.Subject) == "" {
		return fmt.Errorf("submit %s %q: %w", doc.Doctype, doc.Name, ErrMissingSubject)
	}
	if err := r.db.WithContext(ctx).Model(doc).Update("doc_status", model.DocStatusSubmitted).Error; err != nil {
		return fmt.Errorf("submit %s %q: %w", doc.Doctype, doc.Name, err)
	}
	doc.DocStatus = model.DocStatusSubmitted
	return nil
}

// ListByAutoRepeat returns documents generated by the named auto repeat, oldest first.
func (r *DocumentRepository) ListByAutoRepeat(ctx context.Context, autoRepeat string) ([]model.Document, error) {
	var docs []model.Document
	if err := r.db.WithContext(ctx).Where("auto_repeat = ?", autoRepeat).Order("id ASC").Find(&docs).Error; err != nil {
		return nil, err
	}
	return docs, nil
}
