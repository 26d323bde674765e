package enrollment

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/madaris-app/madaris/internal/platform/httpx"
	"github.com/madaris-app/madaris/internal/rbac"
)

// Handler exposes enrollment management over JSON endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers enrollment routes. Staff can read; changes are
// admin-only.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.RoleTeacher, rbac.RoleParent, rbac.RoleAccountant))
		r.Get("/enrollments", h.list)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.RoleAdmin))
		r.Post("/enrollments", h.enroll)
		r.Post("/enrollments/withdraw", h.withdraw)
		r.Post("/enrollments/complete", h.complete)
	})
}

type enrollmentRequest struct {
	StudentID string `json:"student_id"`
	ClassID   string `json:"class_id"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	var (
		list []Enrollment
		err  error
	)
	switch {
	case r.URL.Query().Get("class_id") != "":
		list, err = h.service.ListByClass(r.Context(), r.URL.Query().Get("class_id"))
	case r.URL.Query().Get("student_id") != "":
		list, err = h.service.ListByStudent(r.Context(), r.URL.Query().Get("student_id"))
	default:
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "class_id or student_id required")
		return
	}
	if err != nil {
		h.respondError(w, "list enrollments", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"enrollments": list})
}

func (h *Handler) enroll(w http.ResponseWriter, r *http.Request) {
	var req enrollmentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	e, err := h.service.Enroll(r.Context(), req.StudentID, req.ClassID)
	if err != nil {
		h.respondError(w, "enroll student", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, e)
}

func (h *Handler) withdraw(w http.ResponseWriter, r *http.Request) {
	var req enrollmentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.service.Withdraw(r.Context(), req.StudentID, req.ClassID); err != nil {
		h.respondError(w, "withdraw student", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) complete(w http.ResponseWriter, r *http.Request) {
	var req enrollmentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.service.Complete(r.Context(), req.StudentID, req.ClassID); err != nil {
		h.respondError(w, "complete enrollment", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	h.logger.Error(op+" failed", slog.Any("error", err))
	httpx.RespondError(w, err)
}
