package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"foodgram/internal/errs"
	applog "foodgram/internal/log"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		applog.Error(context.Background(), "failed to encode json response", "error", err)
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"errors": message})
}

// writeError renders a domain error. Field-scoped validation failures are
// keyed by their field, everything else under "errors".
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	if field, ok := errs.Field(err); ok {
		applog.Debug(r.Context(), "request rejected", "field", field, "error", err)
		writeJSON(w, http.StatusBadRequest, map[string][]string{field: {errs.Message(err)}})
		return
	}

	switch {
	case errors.Is(err, errs.ErrValidation), errors.Is(err, errs.ErrConflict):
		applog.Debug(r.Context(), "request rejected", "error", err)
		writeJSONError(w, http.StatusBadRequest, errs.Message(err))
	case errors.Is(err, errs.ErrNotFound):
		applog.Debug(r.Context(), "resource not found", "error", err)
		writeJSONError(w, http.StatusNotFound, errs.Message(err))
	case errors.Is(err, errs.ErrForbidden):
		applog.Debug(r.Context(), "request forbidden", "error", err)
		writeJSONError(w, http.StatusForbidden, errs.Message(err))
	default:
		applog.Error(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeJSONError(w, http.StatusInternalServerError, "internal server error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dest any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			field, _, _ := strings.Cut(typeErr.Field, ".")
			writeError(w, r, errs.Validation(field, "expected %s, got %s", describeKind(typeErr.Type.Kind()), typeErr.Value))
			return false
		}
		applog.Debug(r.Context(), "invalid request payload", "path", r.URL.Path, "error", err)
		writeJSONError(w, http.StatusBadRequest, "invalid request payload")
		return false
	}
	return true
}

func describeKind(kind reflect.Kind) string {
	switch kind {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return "an integer"
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "a positive integer"
	case reflect.Float32, reflect.Float64:
		return "a number"
	case reflect.Bool:
		return "a boolean"
	case reflect.String:
		return "a string"
	case reflect.Slice, reflect.Array:
		return "a list"
	default:
		return "an object"
	}
}

// resourcePath splits the request path below prefix into its segments.
func resourcePath(r *http.Request, prefix string) []string {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, prefix), "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

func parseID(value string) (uint, bool) {
	id, err := strconv.ParseUint(value, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func queryFlag(r *http.Request, key string) bool {
	switch strings.ToLower(strings.TrimSpace(r.URL.Query().Get(key))) {
	case "1", "true":
		return true
	default:
		return false
	}
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	applog.Debug(r.Context(), "method not allowed", "method", r.Method, "path", r.URL.Path)
	w.WriteHeader(http.StatusMethodNotAllowed)
}

func serviceUnavailable(w http.ResponseWriter, r *http.Request) bool {
	if database != nil {
		return false
	}
	applog.Debug(r.Context(), "request without database", "path", r.URL.Path)
	writeJSONError(w, http.StatusServiceUnavailable, "service unavailable")
	return true
}
