package web

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/driftshell/driftshell/internal/events"
	"github.com/driftshell/driftshell/internal/plugin"
	"github.com/driftshell/driftshell/internal/shell"
	"github.com/driftshell/driftshell/pkg/window"
)

// keepAlive is how often an idle event stream receives a comment line
const keepAlive = 15 * time.Second

// maxArgsBytes bounds the JSON body of invoke requests
const maxArgsBytes = 1 << 20

//go:embed static/index.html
var indexHTML []byte

type Handler struct {
	shell  *shell.Shell
	logger *slog.Logger

	mu      sync.Mutex
	streams map[string]chan struct{}
}

func NewHandler(sh *shell.Shell, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		shell:   sh,
		logger:  logger,
		streams: make(map[string]chan struct{}),
	}
}

func (h *Handler) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/events", h.handleEvents)
	mux.HandleFunc("POST /api/invoke/{command}", h.handleInvoke)
	mux.HandleFunc("POST /api/plugins/{plugin}/{op}", h.handlePlugin)
	mux.HandleFunc("GET /api/status", h.handleStatus)
	mux.HandleFunc("OPTIONS /api/", h.handlePreflight)

	mux.HandleFunc("GET /health", h.handleHealth)

	mux.HandleFunc("GET /{$}", h.handleIndex)
}

// handleEvents opens a session and streams its events as Server-Sent Events.
// The first event names the session; closing the stream closes the session.
func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	session, err := h.shell.OpenSession()
	if err != nil {
		respondError(w, err)
		return
	}
	defer h.shell.CloseSession(session.ID)

	stop := make(chan struct{})
	h.mu.Lock()
	h.streams[session.ID] = stop
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		delete(h.streams, session.ID)
		h.mu.Unlock()
	}()

	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	header := w.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)

	if err := writeEvent(w, events.EventSession, map[string]string{"id": session.ID}); err != nil {
		return
	}
	flusher.Flush()
	h.logger.Debug("event stream opened", "session", session.ID, "remote", r.RemoteAddr)

	ticker := time.NewTicker(keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			h.logger.Debug("event stream closed by client", "session", session.ID)
			return
		case <-stop:
			return
		case <-ticker.C:
			if _, err := io.WriteString(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case msg, ok := <-session.Messages():
			if !ok {
				return
			}
			if err := writeEvent(w, msg.Name, msg.Payload); err != nil {
				h.logger.Debug("event stream write failed", "session", session.ID, "error", err)
				return
			}
			flusher.Flush()
		}
	}
}

func (h *Handler) closeStreams() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, stop := range h.streams {
		close(stop)
		delete(h.streams, id)
	}
}

func writeEvent(w io.Writer, name string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrapf(err, "failed to encode %s event", name)
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data)
	return err
}

func (h *Handler) handleInvoke(w http.ResponseWriter, r *http.Request) {
	args, err := readArgs(r)
	if err != nil {
		respondError(w, err)
		return
	}

	command := r.PathValue("command")
	result, err := h.shell.Invoke(r.Context(), r.URL.Query().Get("session"), command, args)
	if err != nil {
		h.logger.Debug("command failed", "command", command, "error", err)
		respondError(w, err)
		return
	}
	respondJSON(w, map[string]any{"result": result})
}

func (h *Handler) handlePlugin(w http.ResponseWriter, r *http.Request) {
	args, err := readArgs(r)
	if err != nil {
		respondError(w, err)
		return
	}

	name, op := r.PathValue("plugin"), r.PathValue("op")
	result, err := h.shell.InvokePlugin(r.Context(), r.URL.Query().Get("session"), name, op, args)
	if err != nil {
		h.logger.Debug("plugin call failed", "plugin", name, "op", op, "error", err)
		respondError(w, err)
		return
	}
	respondJSON(w, map[string]any{"result": result})
}

func readArgs(r *http.Request) (json.RawMessage, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxArgsBytes+1))
	if err != nil {
		return nil, errors.Wrap(plugin.ErrInvalidArgs, err.Error())
	}
	if len(body) > maxArgsBytes {
		return nil, errors.Wrap(plugin.ErrInvalidArgs, "request body too large")
	}
	if len(body) > 0 && !json.Valid(body) {
		return nil, errors.Wrap(plugin.ErrInvalidArgs, "request body is not valid JSON")
	}
	return body, nil
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, h.shell.Status())
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

func (h *Handler) handlePreflight(w http.ResponseWriter, r *http.Request) {
	setCORS(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(indexHTML)
}

func setCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

func respondJSON(w http.ResponseWriter, data any) {
	respondJSONStatus(w, http.StatusOK, data)
}

func respondJSONStatus(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	setCORS(w)
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

// statusFor maps shell and plugin errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, shell.ErrUnknownCommand),
		errors.Is(err, shell.ErrUnknownSession),
		errors.Is(err, plugin.ErrUnknownPlugin),
		errors.Is(err, plugin.ErrUnknownOp):
		return http.StatusNotFound
	case errors.Is(err, plugin.ErrInvalidArgs),
		errors.Is(err, plugin.ErrNoSession),
		errors.Is(err, shell.ErrNoSession):
		return http.StatusBadRequest
	case errors.Is(err, shell.ErrClosed),
		errors.Is(err, window.ErrNoActiveWindow):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func respondError(w http.ResponseWriter, err error) {
	respondJSONStatus(w, statusFor(err), map[string]string{"error": err.Error()})
}
