package grades

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/madaris-app/madaris/internal/platform/httpx"
	"github.com/madaris-app/madaris/internal/rbac"
)

// Handler exposes grading over JSON endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers grade routes. Students and parents can read;
// teachers manage grades.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.RoleTeacher, rbac.RoleStudent, rbac.RoleParent))
		r.Get("/grades", h.list)
		r.Get("/grades/{id}", h.get)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.RoleTeacher))
		r.Post("/grades", h.create)
		r.Patch("/grades/{id}", h.update)
		r.Delete("/grades/{id}", h.delete)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	var (
		list []Grade
		err  error
	)
	switch {
	case r.URL.Query().Get("student_id") != "":
		list, err = h.service.ListByStudent(r.Context(), r.URL.Query().Get("student_id"))
	case r.URL.Query().Get("class_id") != "":
		list, err = h.service.ListByClass(r.Context(), r.URL.Query().Get("class_id"))
	case r.URL.Query().Get("teacher_id") != "":
		list, err = h.service.ListByTeacher(r.Context(), r.URL.Query().Get("teacher_id"))
	default:
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "student_id, class_id or teacher_id required")
		return
	}
	if err != nil {
		h.respondError(w, "list grades", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"grades": list})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	g, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, "get grade", err)
		return
	}
	httpx.JSON(w, http.StatusOK, g)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var input CreateInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	g, err := h.service.Create(r.Context(), input)
	if err != nil {
		h.respondError(w, "create grade", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, g)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var patch Patch
	if err := httpx.DecodeJSON(r, &patch); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	g, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		h.respondError(w, "update grade", err)
		return
	}
	httpx.JSON(w, http.StatusOK, g)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.respondError(w, "delete grade", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	h.logger.Error(op+" failed", slog.Any("error", err))
	httpx.RespondError(w, err)
}
