package teachers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/madaris-app/madaris/internal/platform/httpx"
	"github.com/madaris-app/madaris/internal/rbac"
)

// Handler exposes teacher management over JSON endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers teacher routes. Any signed-in user may read the
// staff directory; management is admin-only.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireSignedIn())
		r.Get("/teachers", h.list)
		r.Get("/teachers/{id}", h.get)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.RoleAdmin))
		r.Post("/teachers", h.create)
		r.Patch("/teachers/{id}", h.update)
		r.Delete("/teachers/{id}", h.delete)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filters := Filters{
		Subject: r.URL.Query().Get("subject"),
		Status:  TeacherStatus(r.URL.Query().Get("status")),
		Search:  r.URL.Query().Get("search"),
	}
	list, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.respondError(w, "list teachers", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"teachers": list})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	tch, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, "get teacher", err)
		return
	}
	httpx.JSON(w, http.StatusOK, tch)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var input CreateInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	tch, err := h.service.Create(r.Context(), input)
	if err != nil {
		h.respondError(w, "create teacher", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, tch)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var patch Patch
	if err := httpx.DecodeJSON(r, &patch); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	tch, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		h.respondError(w, "update teacher", err)
		return
	}
	httpx.JSON(w, http.StatusOK, tch)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.respondError(w, "delete teacher", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	h.logger.Error(op+" failed", slog.Any("error", err))
	httpx.RespondError(w, err)
}
