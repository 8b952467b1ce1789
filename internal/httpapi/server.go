package httpapi

import (
	"context"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/recapforge/recap-studio/internal/editor"
	"github.com/recapforge/recap-studio/internal/jobwatch"
	"github.com/recapforge/recap-studio/internal/recapapi"
	"github.com/recapforge/recap-studio/internal/wizard"
	"github.com/recapforge/recap-studio/pkg/file"
)

// RecapService is the slice of the upstream client the shell needs.
type RecapService interface {
	SubmitJob(ctx context.Context, sub recapapi.Submission) (string, error)
	CancelJob(ctx context.Context, id string) error
	CreditBalance(ctx context.Context) (int, error)
	ProbeThumbnail(ctx context.Context, url string) bool
}

// Server exposes the wizard, editor and job-watching core to the
// browser UI.
type Server struct {
	model      *editor.Model
	controller *editor.Controller
	machine    *wizard.Machine
	registry   *jobwatch.Registry
	recap      RecapService

	janitorExpr string
	uiDir       string
	startTime   time.Time

	mux    *chi.Mux
	server *http.Server
}

type Option func(*Server)

// WithUI serves the built UI bundle from dir with SPA fallback.
func WithUI(dir string) Option {
	return func(s *Server) {
		s.uiDir = dir
	}
}

// WithJanitorSchedule lets the status endpoint report the janitor's
// trigger times.
func WithJanitorSchedule(expr string) Option {
	return func(s *Server) {
		s.janitorExpr = expr
	}
}

func NewServer(model *editor.Model, controller *editor.Controller, machine *wizard.Machine, registry *jobwatch.Registry, recap RecapService, opts ...Option) *Server {
	s := &Server{
		model:      model,
		controller: controller,
		machine:    machine,
		registry:   registry,
		recap:      recap,
		startTime:  time.Now(),
		mux:        chi.NewRouter(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) ListenAndServe(addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) routes() {
	s.mux.Use(middleware.RequestID)
	s.mux.Use(middleware.Recoverer)

	s.mux.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Get("/credits", s.handleCredits)
		r.Get("/preview", s.handlePreview)

		r.Route("/editor", func(r chi.Router) {
			r.Get("/regions", s.handleListRegions)
			r.Post("/regions", s.handleAddRegion)
			r.Delete("/regions/{id}", s.handleRemoveRegion)
			r.Put("/cropbox", s.handleSetCropBox)
			r.Delete("/cropbox", s.handleClearCropBox)
			r.Post("/gesture/begin", s.handleGestureBegin)
			r.Post("/gesture/move", s.handleGestureMove)
			r.Post("/gesture/end", s.handleGestureEnd)
		})

		r.Route("/wizard", func(r chi.Router) {
			r.Get("/", s.handleWizardState)
			r.Put("/options", s.handleWizardOptions)
			r.Post("/next", s.handleWizardNext)
			r.Post("/back", s.handleWizardBack)
			r.Post("/jump", s.handleWizardJump)
			r.Post("/reset", s.handleWizardReset)
			r.Post("/submit", s.handleWizardSubmit)
		})

		r.Route("/jobs", func(r chi.Router) {
			r.Get("/", s.handleListJobs)
			r.Get("/stream", s.handleJobStream)
			r.Get("/{id}", s.handleGetJob)
			r.Delete("/{id}", s.handleCancelJob)
		})
	})

	s.mux.NotFound(s.handleStatic)
}

// handleStatic serves the UI bundle with SPA fallback: unknown
// non-file paths return index.html so client-side routing works.
func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	if s.uiDir == "" {
		http.NotFound(w, r)
		return
	}

	if file.HasExt(r.URL.Path) {
		if full, ok := file.Resolve(s.uiDir, r.URL.Path); ok {
			http.ServeFile(w, r, full)
			return
		}
	}
	http.ServeFile(w, r, filepath.Join(s.uiDir, "index.html"))
}
