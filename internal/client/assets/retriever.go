// Package assets fetches authenticated document binaries and exposes them
// as ephemeral local handles. A handle is scoped to the view that asked for
// it: it must be released on teardown and is never cached across view
// instances — re-opening a document always fetches fresh content.
package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/olexh/doctrans/internal/client/models"
	"github.com/olexh/doctrans/internal/logging"
)

// Kind selects which binary of a document to retrieve.
type Kind string

const (
	KindOriginal   Kind = "original"
	KindTranslated Kind = "translated"
)

// ErrAssetUnavailable means the requested binary cannot exist yet: the
// translation is not completed, or a completed document carries no
// translated reference (the degraded case). The caller should render a
// failure placeholder, not a spinner.
var ErrAssetUnavailable = errors.New("asset unavailable")

// Fetcher is the slice of the API client the retriever needs. Missing
// credentials are rejected there before any network call.
type Fetcher interface {
	FetchAsset(ctx context.Context, assetRef string, w io.Writer) (int64, error)
}

type Retriever struct {
	fetcher Fetcher
	dir     string
	log     logging.Logger
}

// NewRetriever stores fetched binaries under dir, one scratch file per
// handle.
func NewRetriever(fetcher Fetcher, dir string, log logging.Logger) *Retriever {
	return &Retriever{fetcher: fetcher, dir: dir, log: log}
}

// Fetch retrieves the requested binary into a scratch file and returns a
// releasable handle to it. On any failure no handle is produced and nothing
// is left on disk.
func (r *Retriever) Fetch(ctx context.Context, doc models.Document, kind Kind) (*Handle, error) {
	var ref string
	switch kind {
	case KindOriginal:
		ref = doc.OriginalAssetRef
	case KindTranslated:
		if doc.Status != models.StatusCompleted {
			return nil, fmt.Errorf("%w: translation not completed", ErrAssetUnavailable)
		}
		ref = doc.TranslatedAssetRef
	default:
		return nil, fmt.Errorf("unknown asset kind %q", kind)
	}
	if ref == "" {
		return nil, fmt.Errorf("%w: document has no %s reference", ErrAssetUnavailable, kind)
	}

	if err := os.MkdirAll(r.dir, 0o770); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", r.dir, err)
	}

	path := filepath.Join(r.dir, uuid.NewString()+".pdf")
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create scratch file: %w", err)
	}

	n, err := r.fetcher.FetchAsset(ctx, ref, f)
	cerr := f.Close()
	if err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return nil, err
	}

	r.log.Debug(ctx, "asset fetched", "id", doc.ID, "kind", string(kind), "bytes", n)
	return &Handle{path: path}, nil
}

// Handle is a temporary local reference to fetched binary content, valid
// until Release is called by the owning view.
type Handle struct {
	path     string
	released bool
}

// NewHandle wraps an existing file as a releasable handle.
func NewHandle(path string) *Handle {
	return &Handle{path: path}
}

// Path returns the local file backing the handle. Invalid after Release.
func (h *Handle) Path() string {
	return h.path
}

// Release deletes the backing file. Calling it more than once is safe.
func (h *Handle) Release() error {
	if h == nil || h.released {
		return nil
	}
	h.released = true
	if err := os.Remove(h.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("release asset: %w", err)
	}
	return nil
}
