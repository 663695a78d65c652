package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"outfitsquare/internal/httputil"
	"outfitsquare/internal/model"
	"outfitsquare/internal/transport/http/middleware"
)

// requireUser writes 401 and returns false when the request is anonymous.
func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return "", false
	}
	return userID, true
}

// pageParams reads ?cursor= and ?limit=. Cursors are validated by the
// service; the limit must be between 1 and MaxPageSize.
func pageParams(w http.ResponseWriter, r *http.Request) (*string, int, bool) {
	var cursor *string
	if c := r.URL.Query().Get("cursor"); c != "" {
		cursor = &c
	}

	limit := model.DefaultPageSize
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed < 1 || parsed > model.MaxPageSize {
			httputil.WriteBadRequest(w, "Limit must be between 1 and "+strconv.Itoa(model.MaxPageSize))
			return nil, 0, false
		}
		limit = parsed
	}
	return cursor, limit, true
}

// decodeBody decodes a JSON body, writing 400 on failure. An empty body is
// allowed when optional is true.
func decodeBody(w http.ResponseWriter, r *http.Request, v any, optional bool) bool {
	err := httputil.DecodeJSON(r, v)
	if optional && errors.Is(err, io.EOF) {
		return true
	}
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return false
	}
	return true
}
