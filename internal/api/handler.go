// Package api exposes CERFA generation over HTTP.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/a3tai/mcp-cerfa/internal/cerfa"
	"github.com/a3tai/mcp-cerfa/internal/generation"
	"github.com/a3tai/mcp-cerfa/internal/records"
)

const maxBodySize = 1 << 20

// Generations is the orchestrator the handlers drive.
type Generations interface {
	Generate(ctx context.Context, req generation.Request) (*records.GenerationRecord, error)
	List(ctx context.Context, tenantIDs []string, contractID string) ([]records.GenerationRecord, error)
	DownloadURL(ctx context.Context, tenantIDs []string, contractID string, recordID uuid.UUID) (string, error)
}

type CerfaHandler struct {
	generations Generations
	fields      *cerfa.FieldMap
	logger      *zap.Logger
}

func NewCerfaHandler(g Generations, fields *cerfa.FieldMap, logger *zap.Logger) *CerfaHandler {
	return &CerfaHandler{generations: g, fields: fields, logger: logger}
}

type generateBody struct {
	Data json.RawMessage `json:"data"`
}

// Generate handles POST /api/contracts/:id/cerfa/generate
func (h *CerfaHandler) Generate(c *gin.Context) {
	data, err := h.bodyData(c)
	if err != nil {
		respondError(c, err)
		return
	}

	rec, err := h.generations.Generate(c.Request.Context(), generation.Request{
		TenantIDs:  GetTenants(c),
		ContractID: c.Param("id"),
		UserID:     GetUserID(c),
		Data:       data,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, rec)
}

// bodyData returns the optional form data override. An empty body, or one
// without data, means the contract's own data is used.
func (h *CerfaHandler) bodyData(c *gin.Context) (*cerfa.ContractFormData, error) {
	raw, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBodySize))
	if err != nil {
		return nil, &cerfa.SchemaError{Violations: []string{"request body: " + err.Error()}}
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, nil
	}

	var body generateBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, &cerfa.SchemaError{Violations: []string{"request body: " + err.Error()}}
	}
	if len(body.Data) == 0 || bytes.Equal(body.Data, []byte("null")) {
		return nil, nil
	}

	if err := cerfa.ValidateFormData(body.Data); err != nil {
		var schemaErr *cerfa.SchemaError
		if errors.As(err, &schemaErr) {
			return nil, err
		}
		return nil, &cerfa.SchemaError{Violations: []string{err.Error()}}
	}

	data, warnings, err := cerfa.DecodeFormData(body.Data)
	if err != nil {
		return nil, &cerfa.SchemaError{Violations: []string{err.Error()}}
	}
	for _, w := range warnings {
		h.logger.Warn("ignored form data key",
			zap.String("request_id", GetRequestID(c)),
			zap.String("field_id", w.FieldID))
	}
	return data, nil
}

// List handles GET /api/contracts/:id/cerfa
func (h *CerfaHandler) List(c *gin.Context) {
	list, err := h.generations.List(c.Request.Context(), GetTenants(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// Download handles GET /api/contracts/:id/cerfa/:recordId/download
func (h *CerfaHandler) Download(c *gin.Context) {
	recordID, err := uuid.Parse(c.Param("recordId"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "INVALID_RECORD_ID", "Invalid record id")
		return
	}

	url, err := h.generations.DownloadURL(c.Request.Context(), GetTenants(c), c.Param("id"), recordID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Redirect(http.StatusFound, url)
}

// FieldMap handles GET /api/cerfa/field-map
func (h *CerfaHandler) FieldMap(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"formVersion":         cerfa.FormVersion,
		"fieldMappingVersion": h.fields.Version(),
		"fields":              h.fields.Entries(),
	})
}

func health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}
