package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/starford/coursemark/internal/apperr"
)

// Error codes returned next to the message.
const (
	codeNotFound      = "not_found"
	codeAlreadyExists = "already_exists"
	codeConflict      = "checksum_mismatch"
	codeBadRequest    = "bad_request"
	codeInvalidBundle = "invalid_bundle"
	codeUnauthorized  = "unauthorized"
	codeMediaDownload = "media_download_failed"
	codeInternal      = "internal"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error string `json:"error" validate:"required"`
	Code  string `json:"code" example:"invalid_bundle" validate:"required"`
}

func errorBody(code, msg string) errResponse {
	return errResponse{Error: msg, Code: code}
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorBody(codeBadRequest, msg))
}

// writeError maps domain errors to HTTP responses. Unknown errors are logged
// and hidden from the client.
func writeError(w http.ResponseWriter, op, path string, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody(codeNotFound, "not found"))
	case errors.Is(err, apperr.ErrAlreadyExists):
		writeJSON(w, http.StatusConflict, errorBody(codeAlreadyExists, "bundle already exists"))
	case errors.Is(err, apperr.ErrConflict):
		writeJSON(w, http.StatusConflict, errorBody(codeConflict, "checksum mismatch"))
	case errors.Is(err, apperr.ErrInvalidPath), errors.Is(err, apperr.ErrUnsupportedExt):
		badRequest(w, err.Error())
	case errors.Is(err, apperr.ErrInvalidBundle):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody(codeInvalidBundle, err.Error()))
	default:
		slog.Error(op+" failed", slog.String("path", path), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody(codeInternal, "internal error"))
	}
}
