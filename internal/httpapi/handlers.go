package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/recapforge/recap-studio/internal/editor"
	"github.com/recapforge/recap-studio/internal/wizard"
	"github.com/recapforge/recap-studio/pkg/icron"
	"github.com/recapforge/recap-studio/pkg/log"
)

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"uptime_seconds": int64(time.Since(s.startTime).Seconds()),
		"watches":        len(s.registry.Snapshots()),
	}
	if s.janitorExpr != "" {
		if info, err := icron.GetTriggerInfo(s.janitorExpr, time.Now()); err == nil {
			resp["janitor"] = map[string]any{
				"expression":      info.Expression,
				"last_run":        info.Last,
				"next_run":        info.Next,
				"until_next_secs": int64(info.TimeUntilNext.Seconds()),
			}
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCredits(w http.ResponseWriter, r *http.Request) {
	balance, err := s.recap.CreditBalance(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, "credit balance unavailable")
		return
	}
	s.machine.SetCreditBalance(balance)
	writeJSON(w, http.StatusOK, map[string]any{
		"balance": balance,
		"cost":    s.machine.CreditCost(),
	})
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	opts := s.machine.Options()

	thumbOK := false
	if opts.ThumbnailURL != "" {
		thumbOK = s.recap.ProbeThumbnail(r.Context(), opts.ThumbnailURL)
	}

	var cropBox *editor.Region
	if box, ok := s.model.CropBox(); ok {
		cropBox = &box
	}

	overlay := editor.Compose(opts.ThumbnailURL, thumbOK, s.model.Regions(), cropBox, opts.Style)
	writeJSON(w, http.StatusOK, overlay)
}

// --- editor ---

type addRegionRequest struct {
	Preset          string `json:"preset,omitempty"`
	editor.Geometry
}

func (s *Server) handleListRegions(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"regions": s.model.Regions(),
	}
	if box, ok := s.model.CropBox(); ok {
		resp["crop_box"] = box
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAddRegion(w http.ResponseWriter, r *http.Request) {
	var req addRegionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	var (
		region editor.Region
		err    error
	)
	if req.Preset != "" {
		region, err = s.model.AddPreset(req.Preset)
	} else {
		region, err = s.model.AddRegion(req.Geometry)
	}
	if err != nil {
		writeValidationError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, region)
}

func (s *Server) handleRemoveRegion(w http.ResponseWriter, r *http.Request) {
	s.model.RemoveRegion(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetCropBox(w http.ResponseWriter, r *http.Request) {
	var g editor.Geometry
	if err := json.NewDecoder(r.Body).Decode(&g); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	box, err := s.model.SetCropBox(g)
	if err != nil {
		writeValidationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, box)
}

func (s *Server) handleClearCropBox(w http.ResponseWriter, r *http.Request) {
	s.model.ClearCropBox()
	w.WriteHeader(http.StatusNoContent)
}

type gestureBeginRequest struct {
	Kind     string        `json:"kind"` // drag | resize
	TargetID string        `json:"target_id"`
	Handle   editor.Handle `json:"handle,omitempty"`
	Pointer  editor.Point  `json:"pointer"`
}

type gestureMoveRequest struct {
	Pointer   editor.Point         `json:"pointer"`
	Container editor.ContainerRect `json:"container"`
}

// Gestures are best-effort: a bad target or a stale event never
// errors, the session just stays or becomes idle.
func (s *Server) handleGestureBegin(w http.ResponseWriter, r *http.Request) {
	var req gestureBeginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	switch req.Kind {
	case "resize":
		s.controller.BeginResize(req.TargetID, req.Handle, req.Pointer)
	default:
		s.controller.BeginDrag(req.TargetID, req.Pointer)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGestureMove(w http.ResponseWriter, r *http.Request) {
	var req gestureMoveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	s.controller.Move(req.Pointer, req.Container)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGestureEnd(w http.ResponseWriter, r *http.Request) {
	s.controller.End()
	w.WriteHeader(http.StatusNoContent)
}

// --- wizard ---

type wizardStateResponse struct {
	Step       int            `json:"step"`
	Validity   [3]bool        `json:"validity"`
	Options    wizard.Options `json:"options"`
	CreditCost int            `json:"credit_cost"`
}

func (s *Server) wizardState() wizardStateResponse {
	return wizardStateResponse{
		Step:       s.machine.Step(),
		Validity:   s.machine.Validity(),
		Options:    s.machine.Options(),
		CreditCost: s.machine.CreditCost(),
	}
}

func (s *Server) handleWizardState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.wizardState())
}

func (s *Server) handleWizardOptions(w http.ResponseWriter, r *http.Request) {
	var opts wizard.Options
	if err := json.NewDecoder(r.Body).Decode(&opts); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	s.machine.SetOptions(opts)
	writeJSON(w, http.StatusOK, s.wizardState())
}

func (s *Server) handleWizardNext(w http.ResponseWriter, r *http.Request) {
	s.machine.Next()
	writeJSON(w, http.StatusOK, s.wizardState())
}

func (s *Server) handleWizardBack(w http.ResponseWriter, r *http.Request) {
	s.machine.Back()
	writeJSON(w, http.StatusOK, s.wizardState())
}

func (s *Server) handleWizardJump(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Step int `json:"step"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if err := s.machine.JumpTo(req.Step); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.wizardState())
}

func (s *Server) handleWizardReset(w http.ResponseWriter, r *http.Request) {
	s.machine.Reset()
	writeJSON(w, http.StatusOK, s.wizardState())
}

func (s *Server) handleWizardSubmit(w http.ResponseWriter, r *http.Request) {
	sub, err := s.machine.BuildSubmission()
	if err != nil {
		if errors.Is(err, wizard.ErrIncompleteForm) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	jobID, err := s.recap.SubmitJob(r.Context(), sub)
	if err != nil {
		log.Error("job submission failed: %v", err)
		writeError(w, http.StatusBadGateway, "submission failed")
		return
	}

	// the watch outlives this request
	s.registry.Watch(context.Background(), jobID)
	log.Info("submitted recap job %s", jobID)

	writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id": jobID,
	})
}

// --- jobs ---

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.registry.Snapshots())
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.registry.Snapshot(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown job")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.registry.Stop(id) {
		writeError(w, http.StatusNotFound, "unknown job")
		return
	}
	if err := s.recap.CancelJob(r.Context(), id); err != nil {
		// the watch is already stopped; upstream cancel is best effort
		log.Warn("upstream cancel for job %s failed: %v", id, err)
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"cancelled": true,
	})
}

// --- helpers ---

func writeValidationError(w http.ResponseWriter, err error) {
	var verr *editor.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error": verr.Error(),
			"field": verr.Field,
		})
		return
	}
	writeError(w, http.StatusBadRequest, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}
