package ledger

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/madaris-app/madaris/internal/platform/httpx"
	"github.com/madaris-app/madaris/internal/rbac"
	"github.com/madaris-app/madaris/internal/shared"
)

// Handler exposes the ledger over JSON endpoints plus SSE streams for the
// live subscriptions.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers ledger routes. Reads are open to the accountant and
// parent dashboards; mutations are accountant-only (admins pass everywhere).
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.RoleAccountant, rbac.RoleParent))
		r.Get("/accounts", h.listAccounts)
		r.Get("/accounts/stream", h.streamAccounts)
		r.Get("/accounts/{id}", h.getAccount)
		r.Get("/accounts/{id}/payments", h.listPayments)
		r.Get("/accounts/{id}/payments/stream", h.streamPayments)
		r.Get("/payments", h.listAllPayments)
		r.Get("/payments/stream", h.streamAllPayments)
		r.Get("/payments/month", h.paymentsByMonth)
		r.Get("/report/monthly", h.monthlyReport)
		r.Get("/report/summary", h.summary)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.RoleAccountant))
		r.Post("/accounts", h.createAccount)
		r.Patch("/accounts/{id}", h.updateAccount)
		r.Post("/accounts/{id}/payments", h.recordPayment)
	})
}

func (h *Handler) createAccount(w http.ResponseWriter, r *http.Request) {
	var input CreateAccountInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	acct, err := h.service.CreateAccount(r.Context(), input)
	if err != nil {
		h.respondError(w, r, "create account", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, acct)
}

func (h *Handler) getAccount(w http.ResponseWriter, r *http.Request) {
	acct, err := h.service.GetAccount(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, r, "get account", err)
		return
	}
	httpx.JSON(w, http.StatusOK, acct)
}

func (h *Handler) listAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.service.ListAccounts(r.Context())
	if err != nil {
		h.respondError(w, r, "list accounts", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"accounts": accounts})
}

func (h *Handler) updateAccount(w http.ResponseWriter, r *http.Request) {
	var patch AccountPatch
	if err := httpx.DecodeJSON(r, &patch); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	acct, err := h.service.UpdateAccount(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		h.respondError(w, r, "update account", err)
		return
	}
	httpx.JSON(w, http.StatusOK, acct)
}

func (h *Handler) recordPayment(w http.ResponseWriter, r *http.Request) {
	var input RecordPaymentInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	input.AccountID = chi.URLParam(r, "id")
	// The operator recording the payment comes from the session, never from
	// the request body.
	input.CreatedBy = shared.OperatorFromContext(r.Context())

	payment, err := h.service.RecordPayment(r.Context(), input)
	if err != nil {
		h.respondError(w, r, "record payment", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, payment)
}

func (h *Handler) listPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := h.service.ListPayments(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, r, "list payments", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"payments": payments})
}

func (h *Handler) listAllPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := h.service.ListAllPayments(r.Context())
	if err != nil {
		h.respondError(w, r, "list all payments", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"payments": payments})
}

func (h *Handler) paymentsByMonth(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "year must be an integer")
		return
	}
	month, err := strconv.Atoi(r.URL.Query().Get("month"))
	if err != nil || month < 1 || month > 12 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "month must be 1-12")
		return
	}
	payments, err := h.service.PaymentsInMonth(r.Context(), year, time.Month(month))
	if err != nil {
		h.respondError(w, r, "payments by month", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"payments": payments})
}

func (h *Handler) monthlyReport(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.MonthlyReport(r.Context())
	if err != nil {
		h.respondError(w, r, "monthly report", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"months": rows})
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Summary(r.Context())
	if err != nil {
		h.respondError(w, r, "summary", err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

// --- SSE streams ---

func (h *Handler) streamAccounts(w http.ResponseWriter, r *http.Request) {
	h.stream(w, r, func(ctx *streamCtx) Unsubscribe {
		return h.service.SubscribeAccounts(r.Context(),
			func(accounts []FinancialAccount) { ctx.send(map[string]any{"accounts": accounts}) },
			ctx.fail)
	})
}

func (h *Handler) streamPayments(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "id")
	h.stream(w, r, func(ctx *streamCtx) Unsubscribe {
		return h.service.SubscribePayments(r.Context(), accountID,
			func(payments []FinancialPayment) { ctx.send(map[string]any{"payments": payments}) },
			ctx.fail)
	})
}

func (h *Handler) streamAllPayments(w http.ResponseWriter, r *http.Request) {
	h.stream(w, r, func(ctx *streamCtx) Unsubscribe {
		return h.service.SubscribeAllPayments(r.Context(),
			func(payments []FinancialPayment) { ctx.send(map[string]any{"payments": payments}) },
			ctx.fail)
	})
}

type streamCtx struct {
	events chan any
	errs   chan error
}

func (c *streamCtx) send(v any) {
	select {
	case c.events <- v:
	default:
		// Slow consumer: drop this snapshot, the next change re-sends the
		// full set anyway.
	}
}

func (c *streamCtx) fail(err error) {
	select {
	case c.errs <- err:
	default:
	}
}

// stream runs an SSE loop: the subscription pushes full snapshots, and the
// loop ends when the client disconnects (which also unsubscribes).
func (h *Handler) stream(w http.ResponseWriter, r *http.Request, subscribe func(*streamCtx) Unsubscribe) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "streaming unsupported")
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ctx := &streamCtx{events: make(chan any, 4), errs: make(chan error, 1)}
	unsubscribe := subscribe(ctx)
	defer unsubscribe()

	for {
		select {
		case <-r.Context().Done():
			return
		case err := <-ctx.errs:
			h.logger.Error("ledger stream", slog.Any("error", err))
			fmt.Fprintf(w, "event: error\ndata: %q\n\n", "subscription failed")
			flusher.Flush()
			return
		case event := <-ctx.events:
			data, err := json.Marshal(event)
			if err != nil {
				h.logger.Error("ledger stream encode", slog.Any("error", err))
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, op string, err error) {
	if !shared.IsValidation(err) {
		h.logger.Error(op, slog.Any("error", err), slog.String("path", r.URL.Path))
	}
	httpx.RespondError(w, err)
}
