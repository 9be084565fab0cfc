package commandiface

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/junioryono/unify"
	"go.uber.org/zap"
)

// CommandRequest is the optional body of POST /commands/{command}.
type CommandRequest struct {
	Params []string `json:"params"`
}

type handlers struct {
	container *unify.Container
	logger    *zap.Logger
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	status, code := "ok", http.StatusOK
	if !h.container.IsStarted() {
		status, code = "unavailable", http.StatusServiceUnavailable
	}

	body := map[string]any{
		"status": status,
		"id":     h.container.ID(),
		"nodeId": h.container.NodeID(),
	}
	if rc, ok := unify.RequestContextFrom(r.Context()); ok {
		body["session"] = rc.SessionID
		body["locale"] = rc.Locale.String()
	}
	h.respondJSON(w, code, body)
}

func (h *handlers) info(w http.ResponseWriter, _ *http.Request) {
	h.respondJSON(w, http.StatusOK, h.container.Info())
}

func (h *handlers) graph(w http.ResponseWriter, _ *http.Request) {
	var buf bytes.Buffer
	if err := h.container.WriteGraph(&buf); err != nil {
		h.respondError(w, statusFor(err), err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/vnd.graphviz; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

// command queues a container command. Params come from the JSON body or,
// without a body, from repeated "param" query values.
func (h *handlers) command(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "command")

	var req CommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if len(req.Params) == 0 {
		req.Params = r.URL.Query()["param"]
	}

	if err := h.container.Command(name, req.Params...); err != nil {
		h.respondError(w, statusFor(err), err.Error())
		return
	}

	h.logger.Info("Container command queued", zap.String("command", name), zap.Strings("params", req.Params))
	h.respondJSON(w, http.StatusAccepted, map[string]any{
		"command": name,
		"params":  req.Params,
		"queued":  true,
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, unify.ErrContainerNotStarted), errors.Is(err, unify.ErrContainerShutdown):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *handlers) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (h *handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]any{
		"error":   true,
		"message": message,
		"code":    status,
	})
}
