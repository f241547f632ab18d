package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/lychee-technology/classifieds"
	"go.uber.org/zap"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// APIResponse is the error body of every failed request.
type APIResponse struct {
	Error   string         `json:"error,omitempty"`
	Code    string         `json:"code,omitempty"`
	Field   string         `json:"field,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// writeJSON writes JSON response to http.ResponseWriter
func writeJSON(w http.ResponseWriter, statusCode int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return jsonEncode(w, data)
}

func jsonEncode(w io.Writer, v any) error {
	return json.NewEncoder(w).Encode(v)
}

func writeSuccess(w http.ResponseWriter, statusCode int, data any) error {
	return writeJSON(w, statusCode, data)
}

func statusFor(errorType classifieds.ErrorType) int {
	switch errorType {
	case classifieds.ErrorTypeValidation:
		return http.StatusBadRequest
	case classifieds.ErrorTypeUnauthorized:
		return http.StatusUnauthorized
	case classifieds.ErrorTypeForbidden:
		return http.StatusForbidden
	case classifieds.ErrorTypeNotFound:
		return http.StatusNotFound
	case classifieds.ErrorTypeConflict:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// writeError maps err onto a status code. Storage failures are logged and
// reported without their cause.
func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	var ce *classifieds.ClassifiedsError
	if !errors.As(err, &ce) || ce.Type == classifieds.ErrorTypeStorage {
		zap.S().Errorw("request failed", "error", err, "requestID", requestIDFrom(ctx))
		_ = writeJSON(w, http.StatusInternalServerError, APIResponse{
			Error: "internal error",
			Code:  classifieds.ErrCodeStorageFailure,
		})
		return
	}
	_ = writeJSON(w, statusFor(ce.Type), APIResponse{
		Error:   ce.Message,
		Code:    ce.Code,
		Field:   ce.Field,
		Details: ce.Details,
	})
}

func badRequest(field, format string, args ...any) error {
	return classifieds.NewValidationError(field, fmt.Sprintf(format, args...))
}

// readJSONBody decodes the body into v and runs its validate tags.
func readJSONBody(r *http.Request, v any) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return badRequest("body", "invalid json body: %v", err)
	}
	if err := validate.StructCtx(r.Context(), v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return badRequest(verrs[0].Field(), "failed %q validation", verrs[0].Tag())
		}
		return badRequest("body", "%v", err)
	}
	return nil
}

func uuidParam(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, badRequest(name, "invalid %s", name)
	}
	return id, nil
}

func optionalUUID(params url.Values, name string) (*uuid.UUID, error) {
	raw := params.Get(name)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, badRequest(name, "invalid %s", name)
	}
	return &id, nil
}

// parsePagination extracts page and items_per_page from query parameters.
// Zero values leave the choice to the listing manager.
func parsePagination(queryParams url.Values) (int, int) {
	page, itemsPerPage := 0, 0
	if p := queryParams.Get("page"); p != "" {
		if parsed, err := strconv.Atoi(p); err == nil && parsed > 0 {
			page = parsed
		}
	}
	if ipp := queryParams.Get("items_per_page"); ipp != "" {
		if parsed, err := strconv.Atoi(ipp); err == nil && parsed > 0 {
			itemsPerPage = parsed
		}
	}
	return page, itemsPerPage
}

// parseListingQuery builds a listing query from category_id, author_id,
// pagination and attr.<key> parameters.
func parseListingQuery(params url.Values) (*classifieds.ListingQuery, error) {
	categoryID, err := optionalUUID(params, "category_id")
	if err != nil {
		return nil, err
	}
	authorID, err := optionalUUID(params, "author_id")
	if err != nil {
		return nil, err
	}
	page, perPage := parsePagination(params)
	return &classifieds.ListingQuery{
		CategoryID:   categoryID,
		AuthorID:     authorID,
		Filters:      classifieds.ParseAttributeFilters(params),
		Page:         page,
		ItemsPerPage: perPage,
	}, nil
}
