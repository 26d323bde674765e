package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/madaris-app/madaris/internal/auth"
	"github.com/madaris-app/madaris/internal/classes"
	"github.com/madaris-app/madaris/internal/enrollment"
	"github.com/madaris-app/madaris/internal/grades"
	"github.com/madaris-app/madaris/internal/ledger"
	"github.com/madaris-app/madaris/internal/observability"
	"github.com/madaris-app/madaris/internal/shared"
	"github.com/madaris-app/madaris/internal/storage"
	"github.com/madaris-app/madaris/internal/students"
	"github.com/madaris-app/madaris/internal/teachers"
	"github.com/madaris-app/madaris/internal/users"
	"github.com/madaris-app/madaris/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager

	AuthHandler       *auth.Handler
	UsersHandler      *users.Handler
	StudentsHandler   *students.Handler
	TeachersHandler   *teachers.Handler
	ClassesHandler    *classes.Handler
	EnrollmentHandler *enrollment.Handler
	GradesHandler     *grades.Handler
	LedgerHandler     *ledger.Handler
	JobHandler        *jobs.Handler

	FileStore *storage.FSStore
	Metrics   *observability.Metrics
}

// NewRouter constructs the chi.Router with Madaris defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Get("/csrf", func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		token, err := params.CSRFManager.EnsureToken(sess)
		if err != nil {
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"token":"` + token + `"}`))
	})

	params.AuthHandler.MountRoutes(r)
	params.UsersHandler.MountRoutes(r)
	params.StudentsHandler.MountRoutes(r)
	params.TeachersHandler.MountRoutes(r)
	params.ClassesHandler.MountRoutes(r)
	params.EnrollmentHandler.MountRoutes(r)
	params.GradesHandler.MountRoutes(r)
	r.Route("/finance", params.LedgerHandler.MountRoutes)
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	if params.FileStore != nil {
		fileServer := http.StripPrefix("/files/", http.FileServer(http.Dir(params.FileStore.Root())))
		r.Handle("/files/*", fileCacheHandler(fileServer))
	}

	return r
}

// fileCacheHandler wraps the uploaded-file server with Cache-Control headers.
// Stored files keep their generated name forever; an hour of caching is safe.
func fileCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}
