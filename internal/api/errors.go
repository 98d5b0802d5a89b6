package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/a3tai/mcp-cerfa/internal/cerfa"
	"github.com/a3tai/mcp-cerfa/internal/generation"
	"github.com/a3tai/mcp-cerfa/internal/records"
	"github.com/a3tai/mcp-cerfa/internal/storage"
)

// statusFor maps a service error to an HTTP status and a stable error code.
func statusFor(err error) (int, string) {
	var (
		loadErr    *cerfa.TemplateLoadError
		renderErr  *cerfa.RenderError
		schemaErr  *cerfa.SchemaError
		storeErr   *storage.StoreWriteError
		persistErr *records.PersistenceError
	)

	switch {
	case errors.Is(err, records.ErrContractNotFound):
		return http.StatusNotFound, "CONTRACT_NOT_FOUND"
	case errors.Is(err, records.ErrRecordNotFound):
		return http.StatusNotFound, "RECORD_NOT_FOUND"
	case errors.Is(err, generation.ErrAccessDenied):
		return http.StatusForbidden, "ACCESS_DENIED"
	case errors.As(err, &schemaErr):
		return http.StatusBadRequest, "INVALID_FORM_DATA"
	case errors.As(err, &loadErr):
		return http.StatusInternalServerError, loadErr.Kind.String()
	case errors.As(err, &renderErr):
		return http.StatusInternalServerError, renderErr.Kind.String()
	case errors.As(err, &storeErr):
		return http.StatusBadGateway, "STORE_WRITE"
	case errors.As(err, &persistErr):
		return http.StatusInternalServerError, "PERSISTENCE"
	default:
		return http.StatusInternalServerError, "INTERNAL"
	}
}

func abortWithError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": message, "code": code})
}

// respondError writes err as JSON. Server-side failures get a generic
// message; the cause is logged by the request logger and the services.
func respondError(c *gin.Context, err error) {
	status, code := statusFor(err)
	message := err.Error()
	if status >= http.StatusInternalServerError {
		message = "Failed to process CERFA request"
		_ = c.Error(err)
	}
	abortWithError(c, status, code, message)
}
