package cli

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olexh/doctrans/internal/client/api"
	"github.com/olexh/doctrans/internal/client/assets"
	"github.com/olexh/doctrans/internal/client/models"
	"github.com/olexh/doctrans/internal/client/session"
	"github.com/olexh/doctrans/internal/logging"
)

type fakeStore struct {
	sess        *models.Session
	restoreErr  error
	validateErr error
	saveErr     error
	saved       *models.Session
	cleared     int
}

func (f *fakeStore) Restore(ctx context.Context) (*models.Session, error) {
	return f.sess, f.restoreErr
}

func (f *fakeStore) Validate(ctx context.Context, l session.Lister) error {
	return f.validateErr
}

func (f *fakeStore) Save(ctx context.Context, s *models.Session) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = s
	return nil
}

func (f *fakeStore) Clear(ctx context.Context) error {
	f.cleared++
	f.sess = nil
	return nil
}

func (f *fakeStore) Close() error { return nil }

type fakeAPI struct {
	loginFn func(ctx context.Context, token string) (*api.LoginResult, error)
	listFn  func(ctx context.Context) ([]models.DocumentRecord, error)
}

func (f *fakeAPI) Login(ctx context.Context, token string) (*api.LoginResult, error) {
	return f.loginFn(ctx, token)
}

func (f *fakeAPI) ListDocuments(ctx context.Context) ([]models.DocumentRecord, error) {
	if f.listFn != nil {
		return f.listFn(ctx)
	}
	return nil, nil
}

type fakeCtrl struct {
	docs        []models.Document
	loadErr     error
	loadCalls   int
	createFn    func(ctx context.Context, draft models.UploadDraft) (*models.Document, error)
	createCalls int
	refreshFn   func(ctx context.Context, id string) (*models.Document, error)
	processing  bool
}

func (f *fakeCtrl) LoadAll(ctx context.Context) error {
	f.loadCalls++
	return f.loadErr
}

func (f *fakeCtrl) Create(ctx context.Context, draft models.UploadDraft) (*models.Document, error) {
	f.createCalls++
	return f.createFn(ctx, draft)
}

func (f *fakeCtrl) Refresh(ctx context.Context, id string) (*models.Document, error) {
	return f.refreshFn(ctx, id)
}

func (f *fakeCtrl) Snapshot() []models.Document {
	return append([]models.Document(nil), f.docs...)
}

func (f *fakeCtrl) Filter(status models.Status) []models.Document {
	var out []models.Document
	for _, d := range f.docs {
		if d.Status == status {
			out = append(out, d)
		}
	}
	return out
}

func (f *fakeCtrl) HasProcessing() bool { return f.processing }

type fakePoller struct {
	starts  int
	stops   int
	running bool
	expired bool
}

func (f *fakePoller) Start(ctx context.Context) { f.starts++; f.running = true; f.expired = false }
func (f *fakePoller) Stop()                     { f.stops++; f.running = false }
func (f *fakePoller) Running() bool             { return f.running }
func (f *fakePoller) SessionExpired() bool      { return f.expired }

type fakeRetriever struct {
	handles map[assets.Kind]*assets.Handle
	errs    map[assets.Kind]error
	calls   int
}

func (f *fakeRetriever) Fetch(ctx context.Context, doc models.Document, kind assets.Kind) (*assets.Handle, error) {
	f.calls++
	if err := f.errs[kind]; err != nil {
		return nil, err
	}
	return f.handles[kind], nil
}

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

type testDeps struct {
	store     *fakeStore
	api       *fakeAPI
	ctrl      *fakeCtrl
	poller    *fakePoller
	retriever *fakeRetriever
	out       *bytes.Buffer
}

func newTestApp(script string) (*App, *testDeps) {
	d := &testDeps{
		store:     &fakeStore{},
		api:       &fakeAPI{},
		ctrl:      &fakeCtrl{createFn: func(ctx context.Context, draft models.UploadDraft) (*models.Document, error) { return nil, nil }},
		poller:    &fakePoller{},
		retriever: &fakeRetriever{handles: map[assets.Kind]*assets.Handle{}, errs: map[assets.Kind]error{}},
		out:       &bytes.Buffer{},
	}
	app := &App{
		log:    testLogger(),
		store:  d.store,
		api:    d.api,
		ctrl:   d.ctrl,
		poller: d.poller,
		assets: d.retriever,
		in:     bufio.NewReader(strings.NewReader(script)),
		out:    d.out,
		view:   ViewLogin,
		filter: filterAll,
	}
	return app, d
}

func stubPassword(t *testing.T, value string) {
	t.Helper()
	orig := readPassword
	readPassword = func(fd int) ([]byte, error) { return []byte(value), nil }
	t.Cleanup(func() { readPassword = orig })
}

func TestRun_RestoredSessionLandsOnDashboard(t *testing.T) {
	app, d := newTestApp("exit\n")
	d.store.sess = &models.Session{Credential: "cred", User: models.User{Name: "Alice"}}

	require.NoError(t, app.Run(context.Background()))

	assert.Contains(t, d.out.String(), "Welcome back, Alice")
	assert.Equal(t, 1, d.ctrl.loadCalls)
	assert.GreaterOrEqual(t, d.poller.stops, 1)
}

func TestRun_NoSessionStartsAtLogin(t *testing.T) {
	app, d := newTestApp("exit\n")

	require.NoError(t, app.Run(context.Background()))

	assert.Contains(t, d.out.String(), "sign in")
	assert.Zero(t, d.ctrl.loadCalls)
}

func TestRun_RejectedSessionFallsBackToLogin(t *testing.T) {
	app, d := newTestApp("exit\n")
	d.store.sess = &models.Session{Credential: "stale"}
	d.store.validateErr = session.ErrInvalidSession

	require.NoError(t, app.Run(context.Background()))

	assert.Contains(t, d.out.String(), "expired")
	assert.Zero(t, d.ctrl.loadCalls)
}

func TestLogin_SuccessSavesSessionAndEntersDashboard(t *testing.T) {
	stubPassword(t, "identity-token")
	app, d := newTestApp("login\nexit\n")
	d.api.loginFn = func(ctx context.Context, token string) (*api.LoginResult, error) {
		assert.Equal(t, "identity-token", token)
		return &api.LoginResult{
			User:         models.User{Name: "Bob", Email: "bob@example.com"},
			SessionToken: "sess-42",
		}, nil
	}

	require.NoError(t, app.Run(context.Background()))

	require.NotNil(t, d.store.saved)
	assert.Equal(t, "sess-42", d.store.saved.Credential)
	assert.Equal(t, "Bob", d.store.saved.User.Name)
	assert.Contains(t, d.out.String(), "Logged in as Bob")
	assert.Equal(t, 1, d.ctrl.loadCalls)
}

func TestLogin_RejectedTokenStaysOnLogin(t *testing.T) {
	stubPassword(t, "bad-token")
	app, d := newTestApp("login\nexit\n")
	d.api.loginFn = func(ctx context.Context, token string) (*api.LoginResult, error) {
		return nil, &api.RequestError{StatusCode: 401, Message: "invalid identity token"}
	}

	require.NoError(t, app.Run(context.Background()))

	assert.Contains(t, d.out.String(), "Login failed: invalid identity token")
	assert.Nil(t, d.store.saved)
}

func TestDashboard_SessionExpiryForcesLogin(t *testing.T) {
	app, d := newTestApp("refresh\nexit\n")
	app.view = ViewDashboard
	app.session = &models.Session{Credential: "cred"}
	d.ctrl.loadErr = api.ErrSessionExpired

	require.NoError(t, app.Run(context.Background()))

	assert.Contains(t, d.out.String(), "Session expired")
	assert.GreaterOrEqual(t, d.store.cleared, 1)
	assert.Nil(t, app.session)
	// The second command is consumed by the login screen, not the dashboard.
	assert.Contains(t, d.out.String(), "sign in")
}

func TestDashboard_BackgroundPollExpiryForcesLogin(t *testing.T) {
	// A 401 hit by the poller while the dashboard is blocked on input: the
	// persisted credential is already gone, and the next keystroke must land
	// the user on the login screen, whatever was typed.
	app, d := newTestApp("list\nexit\n")
	app.view = ViewDashboard
	app.session = &models.Session{Credential: "cred"}
	d.poller.expired = true

	require.NoError(t, app.Run(context.Background()))

	assert.Contains(t, d.out.String(), "Session expired")
	assert.Contains(t, d.out.String(), "sign in")
	assert.Nil(t, app.session)
	assert.GreaterOrEqual(t, d.store.cleared, 1)
}

func TestDashboard_MissingCredentialForcesLogin(t *testing.T) {
	// The store can be invalidated underneath the view; a command that then
	// fails fast without a credential means the session is gone, not that
	// the user never logged in.
	app, d := newTestApp("refresh\nexit\n")
	app.view = ViewDashboard
	app.session = &models.Session{Credential: "cred"}
	d.ctrl.loadErr = api.ErrUnauthenticated

	require.NoError(t, app.Run(context.Background()))

	assert.Contains(t, d.out.String(), "Session expired")
	assert.Contains(t, d.out.String(), "sign in")
	assert.Nil(t, app.session)
	assert.GreaterOrEqual(t, d.store.cleared, 1)
}

func TestDashboard_ListsAndFilters(t *testing.T) {
	app, d := newTestApp("filter failed\nfilter all\nexit\n")
	app.view = ViewDashboard
	d.ctrl.docs = []models.Document{
		{ID: "1", Title: "contract.pdf", Status: models.StatusCompleted, CreatedAt: time.Unix(1732233600, 0), SourceLanguage: "Ukrainian", TargetLanguage: "en", TranslatedAssetRef: "/assets/1"},
		{ID: "2", Title: "letter.pdf", Status: models.StatusFailed, CreatedAt: time.Unix(1732233600, 0), SourceLanguage: "Ukrainian", TargetLanguage: "de"},
	}

	require.NoError(t, app.Run(context.Background()))

	out := d.out.String()
	assert.Contains(t, out, "contract.pdf")
	assert.Contains(t, out, "letter.pdf")
}

func TestDashboard_StartsPollerWhileProcessing(t *testing.T) {
	app, d := newTestApp("exit\n")
	app.view = ViewDashboard
	d.ctrl.processing = true
	d.ctrl.docs = []models.Document{{ID: "1", Title: "a.pdf", Status: models.StatusProcessing}}

	require.NoError(t, app.Run(context.Background()))

	assert.Equal(t, 1, d.poller.starts)
	// Quitting stops whatever the dashboard started.
	assert.GreaterOrEqual(t, d.poller.stops, 1)
}

func TestUpload_CancelHasNoSideEffects(t *testing.T) {
	app, d := newTestApp("cancel\n")
	app.view = ViewUpload

	app.uploadScreen(context.Background())

	assert.Equal(t, ViewDashboard, app.view)
	assert.Zero(t, d.ctrl.createCalls)
	assert.Zero(t, d.ctrl.loadCalls)
}

func TestUpload_SubmitFailureKeepsDraftForRetry(t *testing.T) {
	path := writeTempDoc(t)
	app, d := newTestApp(path + "\n1\nyes\ncancel\n")
	app.view = ViewUpload
	d.ctrl.createFn = func(ctx context.Context, draft models.UploadDraft) (*models.Document, error) {
		assert.Equal(t, path, draft.FilePath)
		assert.Equal(t, "en", draft.TargetLanguage)
		return nil, &api.RequestError{StatusCode: 500, Message: "processing backend down"}
	}

	app.uploadScreen(context.Background())

	assert.Equal(t, 1, d.ctrl.createCalls)
	assert.Contains(t, d.out.String(), "Upload failed: processing backend down")
	assert.Equal(t, ViewDashboard, app.view)
	assert.Zero(t, d.ctrl.loadCalls)
}

func TestUpload_SuccessReturnsToDashboard(t *testing.T) {
	path := writeTempDoc(t)
	app, d := newTestApp(path + "\nGerman\nyes\n")
	app.view = ViewUpload
	d.ctrl.createFn = func(ctx context.Context, draft models.UploadDraft) (*models.Document, error) {
		assert.Equal(t, "de", draft.TargetLanguage)
		return &models.Document{ID: "new", Title: draft.FileName, Status: models.StatusProcessing}, nil
	}

	app.uploadScreen(context.Background())

	assert.Equal(t, 1, d.ctrl.createCalls)
	assert.Equal(t, 1, d.ctrl.loadCalls)
	assert.Equal(t, ViewDashboard, app.view)
	assert.Contains(t, d.out.String(), "translation started")
}

func TestUpload_RejectsUnreadableFile(t *testing.T) {
	good := writeTempDoc(t)
	app, d := newTestApp("/no/such/file.pdf\n" + good + "\n1\nyes\n")
	app.view = ViewUpload
	d.ctrl.createFn = func(ctx context.Context, draft models.UploadDraft) (*models.Document, error) {
		assert.Equal(t, good, draft.FilePath)
		return &models.Document{ID: "new", Status: models.StatusProcessing}, nil
	}

	app.uploadScreen(context.Background())

	assert.Contains(t, d.out.String(), "Cannot read /no/such/file.pdf")
	assert.Equal(t, 1, d.ctrl.createCalls)
}

func TestDetail_ReleasesHandlesOnExit(t *testing.T) {
	origPath := writeTempAsset(t, "original bytes")
	transPath := writeTempAsset(t, "translated bytes")

	app, d := newTestApp("back\n")
	app.view = ViewDetail
	app.selected = &models.Document{
		ID: "1", Title: "contract.pdf", Status: models.StatusCompleted,
		OriginalAssetRef: "/assets/orig", TranslatedAssetRef: "/assets/trans",
	}
	d.retriever.handles[assets.KindOriginal] = assets.NewHandle(origPath)
	d.retriever.handles[assets.KindTranslated] = assets.NewHandle(transPath)

	app.detailScreen(context.Background())

	assert.Equal(t, ViewDashboard, app.view)
	assert.Nil(t, app.selected)
	assert.NoFileExists(t, origPath)
	assert.NoFileExists(t, transPath)
	assert.Equal(t, 2, d.retriever.calls)
}

func TestDetail_ProcessingDocumentSkipsTranslatedFetch(t *testing.T) {
	origPath := writeTempAsset(t, "original bytes")

	app, d := newTestApp("back\n")
	app.view = ViewDetail
	app.selected = &models.Document{ID: "1", Status: models.StatusProcessing, OriginalAssetRef: "/assets/orig"}
	d.retriever.handles[assets.KindOriginal] = assets.NewHandle(origPath)

	app.detailScreen(context.Background())

	assert.Equal(t, 1, d.retriever.calls)
	assert.Contains(t, d.out.String(), "still processing")
}

func TestDetail_SaveCopiesAsset(t *testing.T) {
	origPath := writeTempAsset(t, "original bytes")
	dest := filepath.Join(t.TempDir(), "saved.pdf")

	app, d := newTestApp("save original " + dest + "\nback\n")
	app.view = ViewDetail
	app.selected = &models.Document{ID: "1", Status: models.StatusProcessing, OriginalAssetRef: "/assets/orig"}
	d.retriever.handles[assets.KindOriginal] = assets.NewHandle(origPath)

	app.detailScreen(context.Background())

	content, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "original bytes", string(content))
	// The scratch copy is still released.
	assert.NoFileExists(t, origPath)
}

func TestDetail_FailedOriginalShowsPlaceholder(t *testing.T) {
	app, d := newTestApp("back\n")
	app.view = ViewDetail
	app.selected = &models.Document{ID: "1", Status: models.StatusFailed, OriginalAssetRef: "/assets/orig"}
	d.retriever.errs[assets.KindOriginal] = assert.AnError

	app.detailScreen(context.Background())

	out := d.out.String()
	assert.Contains(t, out, "could not be loaded")
	assert.Contains(t, out, "translation failed")
}

func writeTempDoc(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4 test"), 0o600))
	return path
}

func writeTempAsset(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "asset.pdf")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}
