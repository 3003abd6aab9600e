package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/monoculum/formam"
	"github.com/rs/zerolog/log"

	"github.com/user/vidnest/internal/library"
	"github.com/user/vidnest/internal/metrics"
	"github.com/user/vidnest/internal/preview"
)

const maxBodyBytes = 1 << 20

// apiError is the body of every error response
type apiError struct {
	Code            string            `json:"code"`
	Message         string            `json:"message"`
	Fields          map[string]string `json:"fields,omitempty"`
	ExistingVideoID *uint             `json:"existingVideoId,omitempty"`
}

type errorEnvelope struct {
	Error apiError `json:"error"`
}

// badRequestError marks a body or parameter that could not be decoded
type badRequestError struct {
	msg string
}

func (e *badRequestError) Error() string {
	return e.msg
}

func writeErrorBody(w http.ResponseWriter, status int, body apiError) {
	writeJSON(w, status, errorEnvelope{Error: body})
}

// writeError maps a service error to its status code and envelope
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validation *library.ValidationError
		duplicate  *library.DuplicateError
		badRequest *badRequestError
	)

	switch {
	case errors.As(err, &validation):
		writeErrorBody(w, http.StatusBadRequest, apiError{Code: "VALIDATION_ERROR", Message: "invalid input", Fields: validation.Fields})
	case errors.As(err, &badRequest):
		writeErrorBody(w, http.StatusBadRequest, apiError{Code: "BAD_REQUEST", Message: badRequest.msg})
	case errors.As(err, &duplicate):
		id := duplicate.ExistingID
		writeErrorBody(w, http.StatusConflict, apiError{Code: "ALREADY_SAVED", Message: "video already saved", ExistingVideoID: &id})
	case errors.Is(err, library.ErrEmailTaken):
		writeErrorBody(w, http.StatusConflict, apiError{Code: "DUPLICATE", Message: "email is already registered"})
	case errors.Is(err, library.ErrCategoryExists):
		writeErrorBody(w, http.StatusConflict, apiError{Code: "DUPLICATE", Message: "category already exists"})
	case errors.Is(err, library.ErrChatLinked):
		writeErrorBody(w, http.StatusConflict, apiError{Code: "DUPLICATE", Message: "chat is linked to another account"})
	case errors.Is(err, library.ErrInvalidCredentials):
		writeErrorBody(w, http.StatusUnauthorized, apiError{Code: "INVALID_CREDENTIALS", Message: err.Error()})
	case errors.Is(err, library.ErrInvalidToken):
		writeErrorBody(w, http.StatusBadRequest, apiError{Code: "INVALID_TOKEN", Message: err.Error()})
	case errors.Is(err, library.ErrForbidden):
		writeErrorBody(w, http.StatusForbidden, apiError{Code: "FORBIDDEN", Message: "not allowed"})
	case errors.Is(err, library.ErrNotFound):
		writeErrorBody(w, http.StatusNotFound, apiError{Code: "NOT_FOUND", Message: "not found"})
	case errors.Is(err, preview.ErrInvalidURL):
		writeErrorBody(w, http.StatusBadRequest, apiError{Code: "VALIDATION_ERROR", Message: "invalid input", Fields: map[string]string{"url": "url must be an absolute http(s) url"}})
	case errors.Is(err, preview.ErrFetchFailed):
		writeErrorBody(w, http.StatusBadGateway, apiError{Code: "PREVIEW_FAILED", Message: "could not load a preview for this url"})
	default:
		metrics.RecordError("http")
		log.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("Request failed")
		writeErrorBody(w, http.StatusInternalServerError, apiError{Code: "INTERNAL_ERROR", Message: "internal server error"})
	}
}

// decodeJSON reads a bounded JSON body into v
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return &badRequestError{msg: "request body must be valid JSON"}
	}
	return nil
}

var formDecoder = formam.NewDecoder(&formam.DecoderOptions{TagName: "formam", IgnoreUnknownKeys: true})

// decodeBody accepts JSON or a url-encoded/multipart form, as posted by
// share targets
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/x-www-form-urlencoded", "multipart/form-data":
	default:
		return decodeJSON(w, r, v)
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(maxBodyBytes); err != nil {
			return &badRequestError{msg: "invalid form body"}
		}
	} else if err := r.ParseForm(); err != nil {
		return &badRequestError{msg: "invalid form body"}
	}

	if err := formDecoder.Decode(r.PostForm, v); err != nil {
		return &badRequestError{msg: fmt.Sprintf("invalid form body: %v", err)}
	}
	return nil
}

// pathID parses the {id} route variable
func pathID(r *http.Request) (uint, error) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil || id == 0 {
		return 0, library.ErrNotFound
	}
	return uint(id), nil
}

// queryInt parses an optional integer query parameter
func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, &library.ValidationError{Fields: map[string]string{name: name + " must be a non-negative integer"}}
	}
	return n, nil
}
