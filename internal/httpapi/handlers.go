package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"alertd/internal/alert"
	"alertd/internal/notify"
	"alertd/internal/permission"
	"alertd/internal/settings"
	"alertd/pkg/logx"
)

// envelope is the uniform wire shape for every API response.
type envelope struct {
	Success   bool      `json:"success"`
	Data      any       `json:"data,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func writeJSON(w http.ResponseWriter, status int, env envelope) {
	env.Timestamp = time.Now()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

func ok(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

func fail(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, envelope{Success: false, Error: msg})
}

// Handler exposes the notification service and permission manager over HTTP.
type Handler struct {
	svc  *notify.Service
	perm *permission.Manager
	log  logx.Logger
}

func NewHandler(svc *notify.Service, perm *permission.Manager, log logx.Logger) *Handler {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Handler{svc: svc, perm: perm, log: log}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/alerts", h.EnqueueAlert)
	r.Post("/alerts/schedule", h.ScheduleAlert)

	r.Get("/settings", h.GetSettings)
	r.Patch("/settings", h.UpdateSettings)

	r.Get("/history", h.GetHistory)
	r.Delete("/history", h.ClearHistory)

	r.Get("/permission", h.GetPermission)
	r.Post("/permission/request", h.RequestPermission)

	r.Get("/badge", h.GetBadge)
	r.Put("/badge", h.SetBadge)

	r.Delete("/notifications/{id}", h.CancelNotification)
	r.Delete("/notifications", h.CancelAll)

	return r
}

func decodeAlert(r *http.Request) (*alert.Alert, error) {
	var a alert.Alert
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&a); err != nil {
		return nil, err
	}
	if a.ID == "" {
		return nil, errors.New("alert id is required")
	}
	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now()
	}
	return &a, nil
}

// EnqueueAlert handles POST /alerts: fire-and-forget queueing. The queue
// processor decides the outcome later; callers that need it use /alerts/schedule.
func (h *Handler) EnqueueAlert(w http.ResponseWriter, r *http.Request) {
	a, err := decodeAlert(r)
	if err != nil {
		fail(w, http.StatusBadRequest, err.Error())
		return
	}
	h.svc.Enqueue(a)
	ok(w, http.StatusAccepted, map[string]any{"queued": true, "alertId": a.ID})
}

// ScheduleAlert handles POST /alerts/schedule: a synchronous decision.
// Policy filtering is an expected outcome and reported as success=false
// with HTTP 200, not as a server error.
func (h *Handler) ScheduleAlert(w http.ResponseWriter, r *http.Request) {
	a, err := decodeAlert(r)
	if err != nil {
		fail(w, http.StatusBadRequest, err.Error())
		return
	}

	id, err := h.svc.Schedule(r.Context(), a)
	switch {
	case err == nil:
		ok(w, http.StatusOK, map[string]any{"notificationId": id, "alertId": a.ID})
	case errors.Is(err, notify.ErrPolicyFiltered):
		fail(w, http.StatusOK, notify.ErrPolicyFiltered.Error())
	default:
		fail(w, http.StatusBadGateway, err.Error())
	}
}

func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	_ = r
	ok(w, http.StatusOK, h.svc.Settings())
}

func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var p settings.Patch
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		fail(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.svc.UpdateSettings(r.Context(), p); err != nil {
		fail(w, http.StatusInternalServerError, err.Error())
		return
	}
	ok(w, http.StatusOK, h.svc.Settings())
}

func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	_ = r
	items := h.svc.History()
	if items == nil {
		items = []notify.HistoryItem{}
	}
	ok(w, http.StatusOK, items)
}

func (h *Handler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	_ = r
	h.svc.ClearHistory()
	ok(w, http.StatusOK, map[string]any{"cleared": true})
}

func (h *Handler) GetPermission(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	state := h.perm.CheckStatus(ctx)
	ok(w, http.StatusOK, map[string]any{
		"status":          state,
		"canAskAgain":     h.perm.CanAskAgain(ctx),
		"criticalAllowed": h.perm.CriticalAlertsAllowed(ctx),
		"educationShown":  h.perm.EducationShown(),
	})
}

func (h *Handler) RequestPermission(w http.ResponseWriter, r *http.Request) {
	state, err := h.perm.Request(r.Context())
	switch {
	case err == nil:
		ok(w, http.StatusOK, map[string]any{"status": state})
	case permission.IsDenied(err):
		writeJSON(w, http.StatusOK, envelope{Success: false, Data: map[string]any{"status": state}, Error: err.Error()})
	default:
		fail(w, http.StatusBadGateway, err.Error())
	}
}

func (h *Handler) GetBadge(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.BadgeCount(r.Context())
	if err != nil {
		fail(w, http.StatusBadGateway, err.Error())
		return
	}
	ok(w, http.StatusOK, map[string]int{"count": n})
}

func (h *Handler) SetBadge(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		fail(w, http.StatusBadRequest, err.Error())
		return
	}
	if body.Count < 0 {
		fail(w, http.StatusBadRequest, "count must be >= 0")
		return
	}
	if err := h.svc.SetBadgeCount(r.Context(), body.Count); err != nil {
		fail(w, http.StatusBadGateway, err.Error())
		return
	}
	ok(w, http.StatusOK, map[string]int{"count": body.Count})
}

func (h *Handler) CancelNotification(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.Cancel(r.Context(), id); err != nil {
		fail(w, http.StatusBadGateway, err.Error())
		return
	}
	ok(w, http.StatusOK, map[string]any{"cancelled": id})
}

func (h *Handler) CancelAll(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.CancelAll(r.Context()); err != nil {
		fail(w, http.StatusBadGateway, err.Error())
		return
	}
	ok(w, http.StatusOK, map[string]any{"cancelled": "all"})
}
