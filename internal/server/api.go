package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/go-playground/validator/v10"

	"github.com/desertthunder/modulearn/internal/auth"
	"github.com/desertthunder/modulearn/internal/curriculum"
	"github.com/desertthunder/modulearn/internal/models"
	"github.com/desertthunder/modulearn/internal/onboarding"
	"github.com/desertthunder/modulearn/internal/services"
	"github.com/desertthunder/modulearn/internal/shared"
	"github.com/desertthunder/modulearn/internal/tasks"
)

// PathRequest asks for a new curriculum.
type PathRequest struct {
	Topic string `json:"topic"`
}

// ModuleRequest names one module of a curriculum the client holds.
type ModuleRequest struct {
	Curriculum models.GeneratedCurriculum `json:"curriculum"`
	ModuleID   string                     `json:"moduleId" validate:"required"`
	Subtopic   string                     `json:"subtopic,omitempty"`
}

// StructureRequest applies edit ops to a curriculum the client holds.
type StructureRequest struct {
	Curriculum models.GeneratedCurriculum `json:"curriculum"`
	Ops        []curriculum.EditOp        `json:"ops" validate:"required,dive"`
}

// StructureResponse is the edited curriculum and its total estimate.
type StructureResponse struct {
	Curriculum models.GeneratedCurriculum `json:"curriculum"`
	TotalHours string                     `json:"totalHours"`
}

// RefineResponse is the curriculum with one module refined.
type RefineResponse struct {
	Curriculum models.GeneratedCurriculum `json:"curriculum"`
	Module     models.CurriculumModule    `json:"module"`
}

// ExplainResponse carries a topic explanation.
type ExplainResponse struct {
	Subtopic string `json:"subtopic"`
	Text     string `json:"text"`
}

// APIHandler serves the session-gated /api endpoints.
type APIHandler struct {
	svc       *auth.Service
	engine    *tasks.PathEngine
	videos    services.VideoSearcher
	maxVideos int
	validate  *validator.Validate
	logger    *log.Logger
}

// NewAPIHandler creates an [APIHandler]. videos may be nil.
func NewAPIHandler(svc *auth.Service, engine *tasks.PathEngine, videos services.VideoSearcher, maxVideos int, logger *log.Logger) *APIHandler {
	if maxVideos <= 0 {
		maxVideos = 2
	}
	return &APIHandler{
		svc:       svc,
		engine:    engine,
		videos:    videos,
		maxVideos: maxVideos,
		validate:  validator.New(),
		logger:    logger,
	}
}

func (h *APIHandler) decode(r *http.Request, v any) error {
	if err := decodeJSON(r, v); err != nil {
		return err
	}
	if err := h.validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %w", shared.ErrInvalidInput, err)
	}
	return nil
}

func findModule(c models.GeneratedCurriculum, id string) (models.CurriculumModule, error) {
	if len(c.Modules) == 0 {
		return models.CurriculumModule{}, shared.ErrEmptyCurriculum
	}
	for _, m := range c.Modules {
		if m.ID == id {
			return m, nil
		}
	}
	return models.CurriculumModule{}, fmt.Errorf("%w: %s", shared.ErrModuleNotFound, id)
}

// GetProfile handles GET /api/profile.
func (h *APIHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())
	p, err := h.svc.GetProfile(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Onboard handles POST /api/onboarding: the finished wizard's answers are validated and saved with onboarded set.
func (h *APIHandler) Onboard(w http.ResponseWriter, r *http.Request) {
	var answers onboarding.Answers
	if err := decodeJSON(r, &answers); err != nil {
		writeError(w, err)
		return
	}
	if err := onboarding.Validate(answers); err != nil {
		writeError(w, err)
		return
	}

	id, _ := IdentityFrom(r.Context())
	if err := h.svc.SaveProfile(r.Context(), id, answers.Update()); err != nil {
		h.logger.Error("failed to save onboarding", "user", id.ID, "err", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, auth.Outcome{Route: models.RouteDashboard})
}

// UpdateSettings handles PUT /api/profile.
func (h *APIHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req auth.SettingsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	id, _ := IdentityFrom(r.Context())
	p, err := h.svc.UpdateSettings(r.Context(), id, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// CreatePath handles POST /api/paths. A client disconnect cancels the completion call.
func (h *APIHandler) CreatePath(w http.ResponseWriter, r *http.Request) {
	var req PathRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	id, _ := IdentityFrom(r.Context())
	res, err := h.engine.Create(r.Context(), nil, tasks.CreateRequest{Caller: id, Topic: req.Topic})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res.Curriculum)
}

// Refine handles POST /api/paths/refine.
func (h *APIHandler) Refine(w http.ResponseWriter, r *http.Request) {
	var req ModuleRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	ed, err := curriculum.NewEditor(req.Curriculum)
	if err != nil {
		writeError(w, err)
		return
	}

	id, _ := IdentityFrom(r.Context())
	m, err := h.engine.RefineModule(r.Context(), nil, id, ed, req.ModuleID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, RefineResponse{Curriculum: ed.Curriculum(), Module: *m})
}

// Explain handles POST /api/paths/explain. Upstream failures carry the retry text shown in the learning view.
func (h *APIHandler) Explain(w http.ResponseWriter, r *http.Request) {
	var req ModuleRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if strings.TrimSpace(req.Subtopic) == "" {
		writeError(w, fmt.Errorf("%w: subtopic is required", shared.ErrInvalidInput))
		return
	}

	m, err := findModule(req.Curriculum, req.ModuleID)
	if err != nil {
		writeError(w, err)
		return
	}

	id, _ := IdentityFrom(r.Context())
	c := req.Curriculum
	text, err := h.engine.Generator().Explain(r.Context(), id.ID, req.Subtopic, m.Title, c.Title, c.EducationLevel)
	if err != nil {
		status, body := classify(err)
		if status == http.StatusBadGateway {
			body.Error = curriculum.ExplanationFailed
		}
		writeJSON(w, status, body)
		return
	}
	writeJSON(w, http.StatusOK, ExplainResponse{Subtopic: req.Subtopic, Text: text})
}

// Videos handles POST /api/paths/videos. It always answers 200; problems come back as a notice.
func (h *APIHandler) Videos(w http.ResponseWriter, r *http.Request) {
	var req ModuleRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	m, err := findModule(req.Curriculum, req.ModuleID)
	if err != nil {
		writeError(w, err)
		return
	}

	language := "en"
	if p, ok := ProfileFrom(r.Context()); ok {
		language = shared.PreferredLanguage(p.Languages)
	}

	res, err := curriculum.FetchVideos(r.Context(), h.videos, services.VideoQuery{
		Query:      curriculum.VideoQuery(req.Curriculum.Title, m),
		MaxResults: h.maxVideos,
		Language:   language,
	})
	if err != nil {
		h.logger.Warn("video search failed", "module", m.ID, "err", err)
	}
	writeJSON(w, http.StatusOK, res)
}

// Structure handles POST /api/paths/structure.
func (h *APIHandler) Structure(w http.ResponseWriter, r *http.Request) {
	var req StructureRequest
	if err := h.decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	ed, err := curriculum.NewEditor(req.Curriculum)
	if err != nil {
		writeError(w, err)
		return
	}
	for _, op := range req.Ops {
		if err := ed.Apply(op); err != nil {
			writeError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, StructureResponse{Curriculum: ed.Curriculum(), TotalHours: ed.TotalHours()})
}
