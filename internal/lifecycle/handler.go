package lifecycle

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	v1 "github.com/mmt-lab/draftflow/internal/api/v1"
	"github.com/mmt-lab/draftflow/internal/auth"
	httperr "github.com/mmt-lab/draftflow/internal/core/errors"
	"github.com/mmt-lab/draftflow/internal/core/storage"
)

const (
	msgReadBodyFailed  = "Failed to read request body"
	msgInvalidJSON     = "Invalid JSON body"
	msgInvalidID       = "Draft id must be a positive integer"
	msgDraftNotFound   = "Draft not found"
	msgDuplicateDraft  = "A draft with this native id already exists"
	msgPersistFailed   = "Failed to save draft"
	msgPublishFailed   = "Publishing failed"
	msgUnauthenticated = "No authenticated caller"
)

// draftError carries the HTTP error shape from a helper back to the handler.
type draftError struct {
	statusCode int
	errorType  string
	message    string
	details    interface{}
	publish    *PublishFailure
}

func (e *draftError) Error() string {
	return e.message
}

// Handler exposes the Manager over HTTP.
type Handler struct {
	manager          *Manager
	maxBodySizeBytes int64
}

// NewHandler creates the HTTP front of m.
func NewHandler(m *Manager, maxBodySizeMB int) *Handler {
	if m == nil {
		panic("lifecycle: manager must not be nil")
	}
	if maxBodySizeMB <= 0 {
		maxBodySizeMB = 1
	}
	return &Handler{
		manager:          m,
		maxBodySizeBytes: int64(maxBodySizeMB) * 1024 * 1024,
	}
}

// RegisterRoutes registers the draft routes. Callers must be resolved by the
// auth middleware upstream.
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.GET("/drafts", h.ListHandler)
	r.POST("/drafts", h.CreateHandler)
	r.GET("/drafts/:id", h.GetHandler)
	r.PUT("/drafts/:id", h.UpdateHandler)
	r.DELETE("/drafts/:id", h.DestroyHandler)
	r.POST("/drafts/:id/publish", h.PublishHandler)
}

// ListHandler handles GET /drafts?draft_type=&limit=&offset=.
func (h *Handler) ListHandler(c *gin.Context) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}

	req := ListRequest{DraftType: c.Query("draft_type")}
	var err error
	if req.Limit, err = queryInt(c, "limit"); err != nil {
		writeError(c, err)
		return
	}
	if req.Offset, err = queryInt(c, "offset"); err != nil {
		writeError(c, err)
		return
	}

	drafts, err := h.manager.List(c.Request.Context(), caller, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"drafts": drafts,
		"count":  len(drafts),
	})
}

// CreateHandler handles POST /drafts.
func (h *Handler) CreateHandler(c *gin.Context) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}

	var req CreateRequest
	if err := h.readJSON(c, &req); err != nil {
		writeError(c, err)
		return
	}

	d, err := h.manager.Create(c.Request.Context(), caller, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, d)
}

// GetHandler handles GET /drafts/:id.
func (h *Handler) GetHandler(c *gin.Context) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}
	id, err := draftID(c)
	if err != nil {
		writeError(c, err)
		return
	}

	d, err := h.manager.Get(c.Request.Context(), caller, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// UpdateHandler handles PUT /drafts/:id.
func (h *Handler) UpdateHandler(c *gin.Context) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}
	id, err := draftID(c)
	if err != nil {
		writeError(c, err)
		return
	}

	var req UpdateRequest
	if err := h.readJSON(c, &req); err != nil {
		writeError(c, err)
		return
	}

	d, err := h.manager.Update(c.Request.Context(), caller, id, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// DestroyHandler handles DELETE /drafts/:id and echoes the deleted draft.
func (h *Handler) DestroyHandler(c *gin.Context) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}
	id, err := draftID(c)
	if err != nil {
		writeError(c, err)
		return
	}

	d, err := h.manager.Destroy(c.Request.Context(), caller, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// PublishHandler handles POST /drafts/:id/publish.
func (h *Handler) PublishHandler(c *gin.Context) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}
	id, err := draftID(c)
	if err != nil {
		writeError(c, err)
		return
	}

	record, err := h.manager.Publish(c.Request.Context(), caller, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

// readJSON reads at most maxBodySizeBytes and decodes them into dst.
func (h *Handler) readJSON(c *gin.Context, dst interface{}) error {
	limited := io.LimitReader(c.Request.Body, h.maxBodySizeBytes+1)
	body, err := io.ReadAll(limited)
	if err != nil {
		slog.Error("Failed to read request body", "error", err)
		return &draftError{
			statusCode: http.StatusInternalServerError,
			errorType:  httperr.HttpInternalError,
			message:    msgReadBodyFailed,
		}
	}

	if int64(len(body)) > h.maxBodySizeBytes {
		slog.Warn("Request body exceeds maximum size", "size", len(body), "max", h.maxBodySizeBytes)
		return &draftError{
			statusCode: http.StatusRequestEntityTooLarge,
			errorType:  httperr.HttpInvalidJsonError,
			message:    "Request body exceeds maximum allowed size",
			details: map[string]interface{}{
				"max_size_mb": h.maxBodySizeBytes / (1024 * 1024),
			},
		}
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		slog.Warn("Invalid JSON body received", "error", err, "payload_size", len(body))
		return &draftError{
			statusCode: http.StatusBadRequest,
			errorType:  httperr.HttpInvalidJsonError,
			message:    msgInvalidJSON,
			details:    err.Error(),
		}
	}
	return nil
}

func callerOf(c *gin.Context) (v1.Caller, bool) {
	caller, ok := auth.CallerFrom(c)
	if !ok {
		writeError(c, &draftError{
			statusCode: http.StatusUnauthorized,
			errorType:  httperr.HttpUnauthorizedError,
			message:    msgUnauthenticated,
		})
	}
	return caller, ok
}

func draftID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, &draftError{
			statusCode: http.StatusBadRequest,
			errorType:  httperr.HttpInvalidRequestError,
			message:    msgInvalidID,
		}
	}
	return id, nil
}

func queryInt(c *gin.Context, key string) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, &draftError{
			statusCode: http.StatusBadRequest,
			errorType:  httperr.HttpInvalidRequestError,
			message:    key + " must be a non-negative integer",
		}
	}
	return n, nil
}

// toDraftError maps manager errors onto HTTP responses.
func toDraftError(err error) *draftError {
	var (
		de          *draftError
		notFound    *NotFoundError
		invalid     *InvalidDraftError
		persistence *PersistenceError
		failure     *PublishFailure
	)

	switch {
	case errors.As(err, &de):
		return de
	case errors.As(err, &notFound):
		return &draftError{
			statusCode: http.StatusNotFound,
			errorType:  httperr.HttpDraftNotFoundError,
			message:    msgDraftNotFound,
			details:    map[string]interface{}{"id": notFound.ID},
		}
	case errors.As(err, &invalid):
		return &draftError{
			statusCode: http.StatusBadRequest,
			errorType:  httperr.HttpInvalidRequestError,
			message:    invalid.Err.Error(),
		}
	case errors.As(err, &persistence):
		if errors.Is(err, storage.ErrDuplicate) {
			return &draftError{
				statusCode: http.StatusConflict,
				errorType:  httperr.HttpDuplicateDraftError,
				message:    msgDuplicateDraft,
			}
		}
		return &draftError{
			statusCode: http.StatusInternalServerError,
			errorType:  httperr.HttpPersistenceError,
			message:    msgPersistFailed,
		}
	case errors.As(err, &failure):
		return &draftError{
			statusCode: http.StatusInternalServerError,
			errorType:  httperr.HttpPublishError,
			message:    msgPublishFailed,
			publish:    failure,
		}
	default:
		slog.Error("Unhandled lifecycle error", "error", err)
		return &draftError{
			statusCode: http.StatusInternalServerError,
			errorType:  httperr.HttpInternalError,
			message:    "Internal server error",
		}
	}
}

// writeError serializes err as the JSON HTTP response.
func writeError(c *gin.Context, err error) {
	de := toDraftError(err)

	if de.publish != nil {
		routed := make([]httperr.RoutedError, 0, len(de.publish.Errors))
		for _, e := range de.publish.Errors {
			routed = append(routed, httperr.RoutedError{
				Page:      e.Page,
				TopField:  e.TopField,
				Field:     e.Field,
				Error:     e.Message,
				RequestID: e.RequestID,
			})
		}
		c.JSON(de.statusCode, httperr.PublishErrorResponse{
			ErrorType: de.errorType,
			Error:     de.message,
			Errors:    routed,
		})
		return
	}

	c.JSON(de.statusCode, httperr.ErrorResponse{
		ErrorType: de.errorType,
		Error:     de.message,
		Details:   de.details,
	})
}
