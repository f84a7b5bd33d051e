package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/haukened/navguard/internal/guard/common/log"
	"github.com/haukened/navguard/internal/guard/domain"
	"github.com/haukened/navguard/internal/guard/services/interceptor"
)

const maxBodyBytes = 64 << 10

// HandlerOptions wires the bridge routes. Metrics is optional; when nil
// /metrics is not served.
type HandlerOptions struct {
	Coordinator Coordinator
	Notices     NoticeSource
	Metrics     http.Handler
	Logger      log.Logger
}

type handler struct {
	coord   Coordinator
	notices NoticeSource
	logger  log.Logger
}

// NewHandler builds the bridge's routes.
func NewHandler(opts HandlerOptions) http.Handler {
	if opts.Logger == nil {
		opts.Logger = log.NewNoopLogger()
	}
	h := &handler{coord: opts.Coordinator, notices: opts.Notices, logger: opts.Logger}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", h.healthz)
	if opts.Metrics != nil {
		mux.Handle("GET /metrics", opts.Metrics)
	}

	mux.HandleFunc("POST /v1/navigate", h.navigate)
	mux.HandleFunc("POST /v1/link", h.link)
	mux.HandleFunc("POST /v1/form", h.form)

	mux.HandleFunc("GET /v1/intercepts/{id}", h.intercept)
	mux.HandleFunc("POST /v1/intercepts/{id}/proceed", h.proceed)
	mux.HandleFunc("POST /v1/intercepts/{id}/trust", h.trust)

	mux.HandleFunc("GET /v1/tabs/{tab}/decision", h.decision)
	mux.HandleFunc("POST /v1/tabs/{tab}/rescan", h.rescan)
	mux.HandleFunc("GET /v1/tabs/{tab}/notices", h.tabNotices)
	mux.HandleFunc("DELETE /v1/tabs/{tab}", h.closeTab)

	mux.HandleFunc("GET /v1/settings", h.getSettings)
	mux.HandleFunc("PATCH /v1/settings", h.patchSettings)

	mux.HandleFunc("GET /v1/lists", h.getLists)
	mux.HandleFunc("POST /v1/lists/{list}", h.addToList)
	mux.HandleFunc("DELETE /v1/lists/{list}/{domain}", h.removeFromList)

	mux.HandleFunc("GET /v1/statistics", h.getStatistics)
	mux.HandleFunc("DELETE /v1/statistics", h.resetStatistics)
	mux.HandleFunc("DELETE /v1/cache", h.clearCache)

	return h.logRequests(mux)
}

func (h *handler) healthz(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) navigate(w http.ResponseWriter, r *http.Request) {
	var req interceptor.NavigationRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	h.respond(w, http.StatusOK)(h.coord.Navigate(r.Context(), req))
}

func (h *handler) link(w http.ResponseWriter, r *http.Request) {
	var req interceptor.LinkRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	h.respond(w, http.StatusOK)(h.coord.LinkClick(r.Context(), req))
}

func (h *handler) form(w http.ResponseWriter, r *http.Request) {
	var req interceptor.FormRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	h.respond(w, http.StatusOK)(h.coord.FormSubmit(r.Context(), req))
}

func (h *handler) intercept(w http.ResponseWriter, r *http.Request) {
	h.respond(w, http.StatusOK)(h.coord.Intercept(r.PathValue("id")))
}

func (h *handler) proceed(w http.ResponseWriter, r *http.Request) {
	h.respond(w, http.StatusOK)(h.coord.Proceed(r.PathValue("id")))
}

func (h *handler) trust(w http.ResponseWriter, r *http.Request) {
	h.respond(w, http.StatusOK)(h.coord.TrustAndRetry(r.Context(), r.PathValue("id")))
}

func (h *handler) decision(w http.ResponseWriter, r *http.Request) {
	tabID, err := tabParam(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.respond(w, http.StatusOK)(h.coord.CurrentDecision(tabID))
}

func (h *handler) rescan(w http.ResponseWriter, r *http.Request) {
	tabID, err := tabParam(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.respond(w, http.StatusOK)(h.coord.Rescan(r.Context(), tabID))
}

func (h *handler) tabNotices(w http.ResponseWriter, r *http.Request) {
	tabID, err := tabParam(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	notices := []domain.Notice{}
	if h.notices != nil {
		notices = h.notices.Drain(tabID)
	}
	h.writeJSON(w, http.StatusOK, notices)
}

func (h *handler) closeTab(w http.ResponseWriter, r *http.Request) {
	tabID, err := tabParam(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if err := h.coord.CloseTab(tabID); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) getSettings(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, h.coord.Settings())
}

func (h *handler) patchSettings(w http.ResponseWriter, r *http.Request) {
	var patch domain.SettingsPatch
	if err := decodeJSON(r, &patch); err != nil {
		h.writeError(w, err)
		return
	}
	h.respond(w, http.StatusOK)(h.coord.UpdateSettings(patch))
}

func (h *handler) getLists(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, h.coord.Lists())
}

type listEntryRequest struct {
	Entry string `json:"entry"`
}

type listEntryResponse struct {
	List    string `json:"list"`
	Domain  string `json:"domain"`
	Removed *bool  `json:"removed,omitempty"`
}

func (h *handler) addToList(w http.ResponseWriter, r *http.Request) {
	kind, err := listParam(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	var req listEntryRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	d, err := h.coord.AddToList(kind, req.Entry)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, listEntryResponse{List: kind.String(), Domain: d})
}

func (h *handler) removeFromList(w http.ResponseWriter, r *http.Request) {
	kind, err := listParam(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	entry := r.PathValue("domain")
	removed, err := h.coord.RemoveFromList(kind, entry)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, listEntryResponse{List: kind.String(), Domain: entry, Removed: &removed})
}

func (h *handler) getStatistics(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, h.coord.Statistics())
}

func (h *handler) resetStatistics(w http.ResponseWriter, _ *http.Request) {
	if err := h.coord.ResetStatistics(); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, h.coord.Statistics())
}

func (h *handler) clearCache(w http.ResponseWriter, _ *http.Request) {
	h.coord.ClearCache()
	w.WriteHeader(http.StatusNoContent)
}

// respond returns a sink for a (value, error) pair so handlers can pass a
// coordinator call straight through.
func (h *handler) respond(w http.ResponseWriter, status int) func(any, error) {
	return func(v any, err error) {
		if err != nil {
			h.writeError(w, err)
			return
		}
		h.writeJSON(w, status, v)
	}
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warn(map[string]any{"error": err}, "could not write response")
	}
}

func (h *handler) writeError(w http.ResponseWriter, err error) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error(map[string]any{"status": status, "error": err}, "request failed")
	}
	h.writeJSON(w, status, errorBody{Error: msg})
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", errBadRequest)
		}
		return fmt.Errorf("%w: %w", errBadRequest, err)
	}
	return nil
}

func tabParam(r *http.Request) (int, error) {
	raw := r.PathValue("tab")
	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: tab id %q", errBadRequest, raw)
	}
	return id, nil
}

func listParam(r *http.Request) (domain.ListKind, error) {
	kind, err := domain.ParseListKind(r.PathValue("list"))
	if err != nil {
		return 0, fmt.Errorf("%w: %w", errBadRequest, err)
	}
	return kind, nil
}

// statusRecorder captures the status code for request logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (h *handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		h.logger.Debug(map[string]any{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(start).String(),
		}, "bridge request")
	})
}
