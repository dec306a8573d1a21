// Package cli is the interactive front of the client: a small view state
// machine (login, dashboard, upload, detail) where each screen runs its own
// prompt loop and routes user intents to the document controller, the
// session store and the asset retriever.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/olexh/doctrans/internal/client/api"
	"github.com/olexh/doctrans/internal/client/assets"
	"github.com/olexh/doctrans/internal/client/config"
	"github.com/olexh/doctrans/internal/client/documents"
	"github.com/olexh/doctrans/internal/client/models"
	"github.com/olexh/doctrans/internal/client/session"
	"github.com/olexh/doctrans/internal/logging"
)

// The screen loops only depend on these narrow interfaces so tests can drive
// them with fakes.

type sessionStore interface {
	Restore(ctx context.Context) (*models.Session, error)
	Validate(ctx context.Context, l session.Lister) error
	Save(ctx context.Context, s *models.Session) error
	Clear(ctx context.Context) error
	Close() error
}

type apiClient interface {
	session.Lister
	Login(ctx context.Context, token string) (*api.LoginResult, error)
}

type docController interface {
	LoadAll(ctx context.Context) error
	Create(ctx context.Context, draft models.UploadDraft) (*models.Document, error)
	Refresh(ctx context.Context, id string) (*models.Document, error)
	Snapshot() []models.Document
	Filter(status models.Status) []models.Document
	HasProcessing() bool
}

type docPoller interface {
	Start(ctx context.Context)
	Stop()
	Running() bool
	SessionExpired() bool
}

type assetRetriever interface {
	Fetch(ctx context.Context, doc models.Document, kind assets.Kind) (*assets.Handle, error)
}

const filterAll = "all"

type App struct {
	cfg    *config.Config
	log    logging.Logger
	store  sessionStore
	api    apiClient
	ctrl   docController
	poller docPoller
	assets assetRetriever

	in  *bufio.Reader
	out io.Writer

	view     View
	session  *models.Session
	selected *models.Document
	filter   string
}

// NewApp wires the real dependencies: the sqlite session store under the
// data dir, the API client using the store as its credential source, the
// controller, its poller and the asset retriever.
func NewApp(ctx context.Context, cfg *config.Config, log logging.Logger) (*App, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o770); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	store, err := session.Open(ctx, filepath.Join(cfg.DataDir, "client.db"))
	if err != nil {
		return nil, err
	}

	apiClient := api.NewClient(cfg.APIBaseURL, store, log)
	ctrl := documents.NewController(apiClient, log)

	return &App{
		cfg:    cfg,
		log:    log,
		store:  store,
		api:    apiClient,
		ctrl:   ctrl,
		poller: documents.NewPoller(ctrl, cfg.PollInterval, log),
		assets: assets.NewRetriever(apiClient, filepath.Join(cfg.DataDir, "assets"), log),
		in:     bufio.NewReader(os.Stdin),
		out:    os.Stdout,
		view:   ViewLogin,
		filter: filterAll,
	}, nil
}

func (a *App) Close() error {
	return a.store.Close()
}

// Run drives the view state machine until the user exits or input ends.
func (a *App) Run(ctx context.Context) error {
	a.restoreSession(ctx)

	for {
		var quit bool
		switch a.view {
		case ViewDashboard:
			quit = a.dashboardScreen(ctx)
		case ViewUpload:
			a.uploadScreen(ctx)
		case ViewDetail:
			a.detailScreen(ctx)
		default:
			quit = a.loginScreen(ctx)
		}
		if quit {
			a.poller.Stop()
			return nil
		}
	}
}

// restoreSession loads the persisted session, confirms it against the
// backend and lands on the dashboard when it is still accepted. Anything
// else means the login screen.
func (a *App) restoreSession(ctx context.Context) {
	sess, err := a.store.Restore(ctx)
	if err != nil {
		a.log.Warn(ctx, "session restore failed", "error", err)
		return
	}
	if sess == nil {
		return
	}

	if err := a.store.Validate(ctx, a.api); err != nil {
		if errors.Is(err, session.ErrInvalidSession) {
			fmt.Fprintln(a.out, "Your session has expired. Please log in again.")
		} else {
			a.log.Warn(ctx, "session validation failed", "error", err)
			fmt.Fprintln(a.out, "Could not reach the server to restore your session.")
		}
		return
	}

	a.session = sess
	if err := a.ctrl.LoadAll(ctx); err != nil {
		a.log.Warn(ctx, "initial document load failed", "error", err)
	}
	fmt.Fprintf(a.out, "Welcome back, %s\n", sess.User.Name)
	a.view = ViewDashboard
}

// readCommand reads one line and splits it into a command and arguments.
func (a *App) readCommand(prompt string) (string, []string, error) {
	line, err := promptLine(a.in, a.out, prompt)
	if err != nil {
		return "", nil, err
	}
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return "", nil, nil
	}
	return parts[0], parts[1:], nil
}

// sessionLost handles the one error that preempts everything else: a 401.
// The persisted session is gone by now; drop all in-progress flow state and
// force the login screen. ErrUnauthenticated while a session object exists
// means the same thing: the store was invalidated out from under the view
// by a background poll's 401.
func (a *App) sessionLost(ctx context.Context, err error) bool {
	expired := errors.Is(err, api.ErrSessionExpired) ||
		(errors.Is(err, api.ErrUnauthenticated) && a.session != nil)
	if !expired {
		return false
	}
	fmt.Fprintln(a.out, "Session expired. Please log in again.")
	a.forceLogin(ctx)
	return true
}

func (a *App) forceLogin(ctx context.Context) {
	a.poller.Stop()
	if err := a.store.Clear(ctx); err != nil {
		a.log.Error(ctx, "failed to clear session", "error", err)
	}
	a.session = nil
	a.selected = nil
	a.view = ViewLogin
}

// ensurePolling starts the dashboard poller when something is still
// processing and no loop is running yet.
func (a *App) ensurePolling(ctx context.Context) {
	if a.ctrl.HasProcessing() && !a.poller.Running() {
		a.poller.Start(ctx)
	}
}

// userMessage turns an error into the line shown next to the action that
// triggered it.
func userMessage(err error) string {
	var reqErr *api.RequestError
	if errors.As(err, &reqErr) {
		if reqErr.Message != "" {
			return reqErr.Message
		}
		return "the server rejected the request"
	}
	if errors.Is(err, api.ErrUnauthenticated) {
		return "not logged in"
	}
	return err.Error()
}
