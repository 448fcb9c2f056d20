package apiutil

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/codr1/leaguehub/internal/api/authz"
)

const maxBodyBytes = 1 << 20

type FieldError struct {
	Field  string
	Reason string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

type HandlerError struct {
	Status  int
	Message string
	Err     error
}

func (e HandlerError) Error() string {
	return e.Message
}

func (e HandlerError) Unwrap() error {
	return e.Err
}

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error string `json:"error"`
}

func DecodeJSON(r *http.Request, dst any) error {
	if r.Body == nil || r.Body == http.NoBody {
		return fmt.Errorf("missing request body")
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("missing request body")
		}
		return err
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func WriteJSON(w http.ResponseWriter, status int, payload any) error {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	if err := encoder.Encode(payload); err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err := w.Write(buf.Bytes())
	return err
}

// WriteError writes {"error": message} with status.
func WriteError(w http.ResponseWriter, status int, message string) {
	if err := WriteJSON(w, status, ErrorResponse{Error: message}); err != nil {
		log.Error().Err(err).Int("status", status).Msg("Failed to write error response")
	}
}

// WriteHandlerError renders err. HandlerError and FieldError keep their
// status and message; auth sentinels map to 401 and 403; anything else is
// logged and reported as a generic 500.
func WriteHandlerError(w http.ResponseWriter, r *http.Request, err error) {
	logger := log.Ctx(r.Context())

	var handlerErr HandlerError
	if errors.As(err, &handlerErr) {
		if handlerErr.Status >= http.StatusInternalServerError {
			logger.Error().Err(err).Int("status", handlerErr.Status).Msg(handlerErr.Message)
		}
		WriteError(w, handlerErr.Status, handlerErr.Message)
		return
	}

	var fieldErr FieldError
	if errors.As(err, &fieldErr) {
		WriteError(w, http.StatusBadRequest, fieldErr.Error())
		return
	}

	switch {
	case errors.Is(err, authz.ErrUnauthenticated):
		WriteError(w, http.StatusUnauthorized, "Unauthorized")
	case errors.Is(err, authz.ErrForbidden):
		WriteError(w, http.StatusForbidden, "Forbidden")
	default:
		logger.Error().Err(err).Msg("Unhandled request error")
		WriteError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// MethodNotAllowed writes a 405 JSON error and the Allow header.
func MethodNotAllowed(w http.ResponseWriter, allowed ...string) {
	for _, method := range allowed {
		w.Header().Add("Allow", method)
	}
	WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
}
