package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/starford/folio/internal/apperr"
)

// maxBodyBytes bounds request bodies, Markdown imports included.
const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error  string            `json:"error" validate:"required"`
	Fields map[string]string `json:"fields,omitempty"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err)
	}
	return data, nil
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	data, err := readBody(w, r)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err)
	}
	return nil
}

// writeError maps a dashboard error onto a status code. Remote failures carry
// the content API's message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *apperr.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusUnprocessableEntity, errResponse{Error: "validation failed", Fields: verr.Fields})
		return
	}

	var rerr *apperr.RemoteError
	switch {
	case errors.Is(err, context.Canceled):
		slog.Debug("request cancelled", slog.String("path", r.URL.Path))
		return
	case errors.As(err, &rerr):
		status := http.StatusBadGateway
		if rerr.Status == http.StatusNotFound {
			status = http.StatusNotFound
		}
		writeJSON(w, status, errorBody(apperr.UserMessage(err)))
	case errors.Is(err, apperr.ErrInvalidInput):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrNotConfirmed):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrBusy), errors.Is(err, apperr.ErrPanelInactive), errors.Is(err, apperr.ErrFilteredOrder):
		writeJSON(w, http.StatusConflict, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrUnknownPanel), errors.Is(err, apperr.ErrUnknownFlag), errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrCreateDisabled), errors.Is(err, apperr.ErrNotOrderable):
		writeJSON(w, http.StatusMethodNotAllowed, errorBody(err.Error()))
	default:
		slog.Error("request failed", slog.String("path", r.URL.Path), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}
