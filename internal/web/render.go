package web

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"

	"github.com/hpungsan/coursedesk/internal/errors"
)

// maxBodyBytes limits request bodies.
const maxBodyBytes = 1 << 20

// renderJSON writes a JSON response.
func renderJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// renderError writes a coded error as JSON. Errors that are not DeskErrors
// are reported as INTERNAL without their message.
func (h *Handlers) renderError(w http.ResponseWriter, r *http.Request, err error) {
	var dErr *errors.DeskError
	if !stderrors.As(err, &dErr) {
		dErr = errors.NewInternal(err)
	}

	if dErr.Code == errors.ErrInternal {
		h.log.Error("web: internal error", "method", r.Method, "path", r.URL.Path, "error", err)
	}

	errorObj := map[string]any{
		"code":    string(dErr.Code),
		"message": dErr.Message,
		"status":  dErr.Status,
	}
	if dErr.Code != errors.ErrInternal && dErr.Details != nil {
		errorObj["details"] = dErr.Details
	}
	renderJSON(w, dErr.Status, map[string]any{"error": errorObj})
}

// decodeBody decodes a JSON request body into dst. An empty body leaves dst untouched.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	if err := dec.Decode(dst); err != nil {
		if stderrors.Is(err, io.EOF) {
			return nil
		}
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			return errors.NewInvalidRequest(fmt.Sprintf("request body exceeds %d bytes", maxBodyBytes))
		}
		return errors.NewInvalidRequest(fmt.Sprintf("invalid JSON body: %v", err))
	}
	if dec.More() {
		return errors.NewInvalidRequest("request body must contain a single JSON value")
	}
	return nil
}
