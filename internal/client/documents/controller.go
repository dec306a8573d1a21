// Package documents owns the canonical in-memory document collection and
// drives the upload -> processing -> completed/failed lifecycle against the
// backend. Views only ever see copies; all mutation happens here.
package documents

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/olexh/doctrans/internal/client/models"
	"github.com/olexh/doctrans/internal/logging"
)

// uploadDocumentType is the backend's bucket for user-supplied files, as
// opposed to documents pulled from a government archive.
const uploadDocumentType = "custom_upload"

// ErrDraftIncomplete means the upload draft is missing its file or target
// language and must not be submitted.
var ErrDraftIncomplete = errors.New("upload draft incomplete")

// API is the slice of the backend client the controller needs.
type API interface {
	ListDocuments(ctx context.Context) ([]models.DocumentRecord, error)
	Upload(ctx context.Context, file io.Reader, fileName, documentType, targetLanguage string) (string, error)
	Start(ctx context.Context, id string) error
	GetDocument(ctx context.Context, id string) (*models.DocumentRecord, error)
}

// Controller holds the canonical collection. The mutex stands in for the
// single event loop of a UI runtime: the dashboard poller writes from its
// own goroutine while the interactive loop reads.
type Controller struct {
	api API
	log logging.Logger

	mu   sync.Mutex
	docs []models.Document
}

func NewController(api API, log logging.Logger) *Controller {
	return &Controller{api: api, log: log}
}

// LoadAll fetches the full document list and replaces the canonical
// collection wholesale; local documents absent from the response are
// dropped. On failure the existing collection is kept untouched:
// stale-but-present beats empty.
func (c *Controller) LoadAll(ctx context.Context) error {
	records, err := c.api.ListDocuments(ctx)
	if err != nil {
		return fmt.Errorf("load documents: %w", err)
	}

	docs := make([]models.Document, 0, len(records))
	for _, r := range records {
		docs = append(docs, r.ToDocument())
	}

	// A response that outlived its caller must not touch torn-down state.
	if ctx.Err() != nil {
		return ctx.Err()
	}

	c.mu.Lock()
	c.docs = docs
	c.mu.Unlock()
	return nil
}

// Create submits the draft: upload the binary, then trigger processing for
// the identifier the backend generated. The two calls are strictly
// sequential and a new document appears locally, in processing state, only
// after both succeed. Any failure leaves zero local state behind.
func (c *Controller) Create(ctx context.Context, draft models.UploadDraft) (*models.Document, error) {
	if !draft.Ready() {
		return nil, ErrDraftIncomplete
	}

	f, err := os.Open(draft.FilePath)
	if err != nil {
		return nil, fmt.Errorf("open upload file: %w", err)
	}
	defer f.Close()

	id, err := c.api.Upload(ctx, f, draft.FileName, uploadDocumentType, draft.TargetLanguage)
	if err != nil {
		return nil, fmt.Errorf("upload: %w", err)
	}

	if err := c.api.Start(ctx, id); err != nil {
		return nil, fmt.Errorf("start processing: %w", err)
	}

	doc := models.Document{
		ID:             id,
		Title:          draft.FileName,
		Type:           uploadDocumentType,
		CreatedAt:      time.Now(),
		Status:         models.StatusProcessing,
		SourceLanguage: models.DefaultSourceLanguage,
		TargetLanguage: draft.TargetLanguage,
	}

	c.mu.Lock()
	c.docs = append([]models.Document{doc}, c.docs...)
	c.mu.Unlock()

	c.log.Info(ctx, "translation request created", "id", id, "target", draft.TargetLanguage)
	return &doc, nil
}

// Refresh reconciles a single document against the backend. A terminal
// document never moves back to processing, whatever the backend says.
func (c *Controller) Refresh(ctx context.Context, id string) (*models.Document, error) {
	rec, err := c.api.GetDocument(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("refresh document: %w", err)
	}
	incoming := rec.ToDocument()

	c.mu.Lock()
	defer c.mu.Unlock()
	for i, d := range c.docs {
		if d.ID != id {
			continue
		}
		if d.Terminal() && incoming.Status == models.StatusProcessing {
			return &d, nil
		}
		c.docs[i] = incoming
		return &incoming, nil
	}
	return &incoming, nil
}

// Snapshot returns a copy of the canonical collection for rendering.
func (c *Controller) Snapshot() []models.Document {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.Document, len(c.docs))
	copy(out, c.docs)
	return out
}

// Filter returns a copy of the documents in the given status.
func (c *Controller) Filter(status models.Status) []models.Document {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []models.Document
	for _, d := range c.docs {
		if d.Status == status {
			out = append(out, d)
		}
	}
	return out
}

// HasProcessing reports whether any document still awaits a terminal status.
func (c *Controller) HasProcessing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, d := range c.docs {
		if d.Status == models.StatusProcessing {
			return true
		}
	}
	return false
}
