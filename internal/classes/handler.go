package classes

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/madaris-app/madaris/internal/platform/httpx"
	"github.com/madaris-app/madaris/internal/rbac"
)

// maxCurriculumUpload bounds curriculum file size (16 MiB).
const maxCurriculumUpload = 16 << 20

// Handler exposes classes and timetables over JSON endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers class and timetable routes. Reads are open to every
// signed-in role; class management is admin-only, while teachers may also
// replace their curriculum file.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireSignedIn())
		r.Get("/classes", h.list)
		r.Get("/classes/{id}", h.get)
		r.Get("/classes/{id}/schedule", h.classSchedule)
		r.Get("/schedules", h.schedules)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.RoleTeacher))
		r.Post("/classes/{id}/curriculum", h.uploadCurriculum)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.RoleAdmin))
		r.Post("/classes", h.create)
		r.Patch("/classes/{id}", h.update)
		r.Delete("/classes/{id}", h.delete)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filters := Filters{
		Grade:     r.URL.Query().Get("grade"),
		TeacherID: r.URL.Query().Get("teacher_id"),
		Search:    r.URL.Query().Get("search"),
	}
	list, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.respondError(w, "list classes", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"classes": list})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	cls, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, "get class", err)
		return
	}
	httpx.JSON(w, http.StatusOK, cls)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var input CreateInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	cls, err := h.service.Create(r.Context(), input)
	if err != nil {
		h.respondError(w, "create class", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, cls)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var patch Patch
	if err := httpx.DecodeJSON(r, &patch); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	cls, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		h.respondError(w, "update class", err)
		return
	}
	httpx.JSON(w, http.StatusOK, cls)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.respondError(w, "delete class", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) uploadCurriculum(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxCurriculumUpload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid multipart body")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", `multipart field "file" required`)
		return
	}
	defer file.Close()

	cls, err := h.service.SetCurriculum(r.Context(), chi.URLParam(r, "id"), header.Filename, file)
	if err != nil {
		h.respondError(w, "upload curriculum", err)
		return
	}
	httpx.JSON(w, http.StatusOK, cls)
}

func (h *Handler) classSchedule(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.SchedulesByClass(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, "class schedule", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"schedules": entries})
}

// schedules answers timetable queries by student or teacher.
func (h *Handler) schedules(w http.ResponseWriter, r *http.Request) {
	var (
		entries []ScheduleEntry
		err     error
	)
	switch {
	case r.URL.Query().Get("student_id") != "":
		entries, err = h.service.SchedulesByStudent(r.Context(), r.URL.Query().Get("student_id"))
	case r.URL.Query().Get("teacher_id") != "":
		entries, err = h.service.SchedulesByTeacher(r.Context(), r.URL.Query().Get("teacher_id"))
	default:
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "student_id or teacher_id required")
		return
	}
	if err != nil {
		h.respondError(w, "query schedules", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"schedules": entries})
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	h.logger.Error(op+" failed", slog.Any("error", err))
	httpx.RespondError(w, err)
}
