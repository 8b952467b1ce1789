package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recapforge/recap-studio/internal/editor"
	"github.com/recapforge/recap-studio/internal/jobwatch"
	"github.com/recapforge/recap-studio/internal/recapapi"
	"github.com/recapforge/recap-studio/internal/wizard"
)

type fakeRecap struct {
	mu         sync.Mutex
	balance    int
	balanceErr error
	submitted  []recapapi.Submission
	submitErr  error
	cancelled  []string
	thumbOK    bool

	jobs map[string]recapapi.Job
}

func (f *fakeRecap) SubmitJob(ctx context.Context, sub recapapi.Submission) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return "", f.submitErr
	}
	f.submitted = append(f.submitted, sub)
	return "job-1", nil
}

func (f *fakeRecap) CancelJob(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, id)
	return nil
}

func (f *fakeRecap) CreditBalance(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balance, f.balanceErr
}

func (f *fakeRecap) ProbeThumbnail(ctx context.Context, url string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.thumbOK
}

// GetJob lets the fake double as the registry's fetcher. Unknown jobs
// report completed so watch timers die immediately in tests.
func (f *fakeRecap) GetJob(ctx context.Context, id string) (*recapapi.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if job, ok := f.jobs[id]; ok {
		return &job, nil
	}
	return &recapapi.Job{ID: id, Status: recapapi.StatusCompleted, ProgressPercent: 100}, nil
}

type testEnv struct {
	server   *Server
	recap    *fakeRecap
	model    *editor.Model
	machine  *wizard.Machine
	registry *jobwatch.Registry
}

func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()

	recap := &fakeRecap{balance: 100, jobs: map[string]recapapi.Job{}}
	model := editor.NewModel()
	controller := editor.NewController(model)
	machine := wizard.NewMachine(model)
	registry := jobwatch.NewRegistry(recap, jobwatch.DefaultTuning())
	t.Cleanup(registry.StopAll)

	return &testEnv{
		server:   NewServer(model, controller, machine, registry, recap, opts...),
		recap:    recap,
		model:    model,
		machine:  machine,
		registry: registry,
	}
}

func (e *testEnv) do(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

func completeWizard(t *testing.T, e *testEnv) {
	t.Helper()
	opts := wizard.DefaultOptions()
	opts.SourceURL = "https://youtu.be/abc123"
	opts.Voice = "nova"
	e.machine.SetOptions(opts)
	e.machine.SetCreditBalance(100)
}

func TestStatusEndpoint(t *testing.T) {
	e := newTestEnv(t, WithJanitorSchedule("@every 1h"))

	rec := e.do(t, http.MethodGet, "/api/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody[map[string]any](t, rec)
	assert.Contains(t, body, "uptime_seconds")
	assert.Contains(t, body, "janitor")
}

func TestCreditsEndpoint(t *testing.T) {
	e := newTestEnv(t)
	e.recap.balance = 42

	rec := e.do(t, http.MethodGet, "/api/credits", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody[map[string]float64](t, rec)
	assert.Equal(t, 42.0, body["balance"])
	assert.Equal(t, 10.0, body["cost"])
}

func TestCreditsEndpoint_UpstreamError(t *testing.T) {
	e := newTestEnv(t)
	e.recap.balanceErr = errors.New("boom")

	rec := e.do(t, http.MethodGet, "/api/credits", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestRegionLifecycle(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodPost, "/api/editor/regions", map[string]any{
		"x": 10.0, "y": 10.0, "width": 30.0, "height": 20.0,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeBody[editor.Region](t, rec)
	assert.NotEmpty(t, created.ID)

	rec = e.do(t, http.MethodPost, "/api/editor/regions", map[string]any{"preset": "watermark-box"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = e.do(t, http.MethodGet, "/api/editor/regions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeBody[map[string]json.RawMessage](t, rec)
	var regions []editor.Region
	require.NoError(t, json.Unmarshal(list["regions"], &regions))
	assert.Len(t, regions, 2)

	rec = e.do(t, http.MethodDelete, "/api/editor/regions/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Len(t, e.model.Regions(), 1)
}

func TestAddRegion_InvalidGeometry(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodPost, "/api/editor/regions", map[string]any{
		"x": 10.0, "y": 10.0, "width": 0.0, "height": 20.0,
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody[map[string]string](t, rec)
	assert.Equal(t, "width", body["field"])
}

func TestAddRegion_UnknownPreset(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodPost, "/api/editor/regions", map[string]any{"preset": "nope"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCropBoxEndpoints(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodPut, "/api/editor/cropbox", map[string]any{
		"x": 5.0, "y": 5.0, "width": 80.0, "height": 80.0,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	_, ok := e.model.CropBox()
	assert.True(t, ok)

	rec = e.do(t, http.MethodDelete, "/api/editor/cropbox", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	_, ok = e.model.CropBox()
	assert.False(t, ok)
}

func TestGestureEndpoints_DragMovesRegion(t *testing.T) {
	e := newTestEnv(t)
	region, err := e.model.AddRegion(editor.Geometry{X: 10, Y: 10, Width: 20, Height: 20})
	require.NoError(t, err)

	rec := e.do(t, http.MethodPost, "/api/editor/gesture/begin", map[string]any{
		"kind":      "drag",
		"target_id": region.ID,
		"pointer":   map[string]float64{"x": 100, "y": 100},
	})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = e.do(t, http.MethodPost, "/api/editor/gesture/move", map[string]any{
		"pointer":   map[string]float64{"x": 300, "y": 100},
		"container": map[string]float64{"left": 0, "top": 0, "width": 1000, "height": 1000},
	})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = e.do(t, http.MethodPost, "/api/editor/gesture/end", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	got, ok := e.model.Region(region.ID)
	require.True(t, ok)
	assert.Equal(t, 30.0, got.X)
	assert.Equal(t, 10.0, got.Y)
}

func TestWizardFlow(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodGet, "/api/wizard/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	state := decodeBody[wizardStateResponse](t, rec)
	assert.Equal(t, wizard.StepSource, state.Step)

	// advancing an invalid step stays put
	rec = e.do(t, http.MethodPost, "/api/wizard/next", nil)
	state = decodeBody[wizardStateResponse](t, rec)
	assert.Equal(t, wizard.StepSource, state.Step)

	opts := wizard.DefaultOptions()
	opts.SourceURL = "https://youtu.be/abc123"
	opts.Voice = "nova"
	rec = e.do(t, http.MethodPut, "/api/wizard/options", opts)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(t, http.MethodPost, "/api/wizard/next", nil)
	state = decodeBody[wizardStateResponse](t, rec)
	assert.Equal(t, wizard.StepEditor, state.Step)

	rec = e.do(t, http.MethodPost, "/api/wizard/back", nil)
	state = decodeBody[wizardStateResponse](t, rec)
	assert.Equal(t, wizard.StepSource, state.Step)
}

func TestWizardJump_ForwardRejected(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodPost, "/api/wizard/jump", map[string]int{"step": 3})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWizardSubmit_Incomplete(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodPost, "/api/wizard/submit", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Empty(t, e.recap.submitted)
}

func TestWizardSubmit_StartsWatch(t *testing.T) {
	e := newTestEnv(t)
	completeWizard(t, e)

	rec := e.do(t, http.MethodPost, "/api/wizard/submit", nil)
	require.Equal(t, http.StatusAccepted, rec.Code)

	body := decodeBody[map[string]string](t, rec)
	assert.Equal(t, "job-1", body["job_id"])
	require.Len(t, e.recap.submitted, 1)
	assert.Equal(t, "https://youtu.be/abc123", e.recap.submitted[0].SourceURL)

	_, ok := e.registry.Snapshot("job-1")
	assert.True(t, ok)
}

func TestWizardSubmit_UpstreamError(t *testing.T) {
	e := newTestEnv(t)
	completeWizard(t, e)
	e.recap.submitErr = errors.New("upstream down")

	rec := e.do(t, http.MethodPost, "/api/wizard/submit", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestJobEndpoints(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, http.MethodGet, "/api/jobs/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = e.do(t, http.MethodDelete, "/api/jobs/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	e.registry.Watch(context.Background(), "job-9")

	rec = e.do(t, http.MethodGet, "/api/jobs/job-9", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	snap := decodeBody[jobwatch.Snapshot](t, rec)
	assert.Equal(t, "job-9", snap.JobID)

	rec = e.do(t, http.MethodGet, "/api/jobs/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	snaps := decodeBody[[]jobwatch.Snapshot](t, rec)
	assert.Len(t, snaps, 1)

	rec = e.do(t, http.MethodDelete, "/api/jobs/job-9", nil)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Contains(t, e.recap.cancelled, "job-9")
}

func TestJobStream_SendsInitialSnapshot(t *testing.T) {
	e := newTestEnv(t)
	e.registry.Watch(context.Background(), "job-5")

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // one initial send, then the loop exits

	req := httptest.NewRequest(http.MethodGet, "/api/jobs/stream", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "data: "))
	assert.Contains(t, rec.Body.String(), "job-5")
}

func TestPreviewEndpoint(t *testing.T) {
	e := newTestEnv(t)
	_, err := e.model.AddRegion(editor.Geometry{X: 10, Y: 10, Width: 20, Height: 20})
	require.NoError(t, err)

	rec := e.do(t, http.MethodGet, "/api/preview", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	overlay := decodeBody[editor.Overlay](t, rec)
	assert.True(t, overlay.Placeholder, "no thumbnail configured")
	assert.Len(t, overlay.Regions, 1)
}

func TestStaticFallback(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>studio</html>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.js"), []byte("console.log(1)"), 0o644))

	e := newTestEnv(t, WithUI(dir))

	rec := e.do(t, http.MethodGet, "/wizard/step/2", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "studio")

	rec = e.do(t, http.MethodGet, "/app.js", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "console.log")

	rec = e.do(t, http.MethodGet, "/missing.js", nil)
	assert.Contains(t, rec.Body.String(), "studio", "missing assets fall back to index")
}

func TestNoUIConfigured(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do(t, http.MethodGet, "/anything", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
