// Package generation orchestrates one CERFA generation: contract lookup,
// tenant check, form filling, storage and the generation record.
package generation

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/a3tai/mcp-cerfa/internal/cerfa"
	"github.com/a3tai/mcp-cerfa/internal/metrics"
	"github.com/a3tai/mcp-cerfa/internal/records"
	"github.com/a3tai/mcp-cerfa/internal/storage"
)

// ErrAccessDenied is returned when none of the caller's tenants owns the
// contract.
var ErrAccessDenied = errors.New("access denied")

type ContractSource interface {
	GetContract(ctx context.Context, id string) (*records.Contract, error)
}

type RecordStore interface {
	Create(ctx context.Context, rec records.NewGenerationRecord) (*records.GenerationRecord, error)
	ListByContract(ctx context.Context, contractID string) ([]records.GenerationRecord, error)
	Get(ctx context.Context, id uuid.UUID) (*records.GenerationRecord, error)
}

type DocumentStore interface {
	Store(ctx context.Context, name string, data []byte, metadata map[string]string) (*storage.StoredDocument, error)
	PresignedURL(ctx context.Context, reference string) (string, error)
}

type Filler interface {
	Fill(ctx context.Context, data *cerfa.ContractFormData) (*cerfa.Result, error)
	FieldMappingVersion() string
}

// Request asks for one generation. Data, when set, replaces the data derived
// from the contract.
type Request struct {
	TenantIDs  []string
	ContractID string
	UserID     string
	Data       *cerfa.ContractFormData
}

type Service struct {
	contracts   ContractSource
	records     RecordStore
	documents   DocumentStore
	filler      Filler
	formVersion string
	logger      *zap.Logger
	now         func() time.Time
}

type Option func(*Service)

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func WithFormVersion(v string) Option {
	return func(s *Service) { s.formVersion = v }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(contracts ContractSource, recs RecordStore, docs DocumentStore, filler Filler, opts ...Option) *Service {
	s := &Service{
		contracts:   contracts,
		records:     recs,
		documents:   docs,
		filler:      filler,
		formVersion: cerfa.FormVersion,
		logger:      zap.NewNop(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Generate fills, stores and records one CERFA for a contract.
func (s *Service) Generate(ctx context.Context, req Request) (*records.GenerationRecord, error) {
	rec, err := s.generate(ctx, req)
	if err != nil {
		metrics.CerfaGenerations.WithLabelValues(metrics.OutcomeFailure).Inc()
		return nil, err
	}
	metrics.CerfaGenerations.WithLabelValues(metrics.OutcomeSuccess).Inc()
	return rec, nil
}

func (s *Service) generate(ctx context.Context, req Request) (*records.GenerationRecord, error) {
	contract, err := s.authorize(ctx, req.TenantIDs, req.ContractID)
	if err != nil {
		return nil, err
	}

	data := req.Data
	if data == nil {
		var warnings []cerfa.FieldResolutionWarning
		data, warnings, err = contract.FormData()
		if err != nil {
			return nil, err
		}
		for _, w := range warnings {
			s.logger.Warn("ignored cached contract data",
				zap.String("contract_id", contract.ID),
				zap.String("field_id", w.FieldID),
				zap.String("reason", string(w.Reason)))
		}
	}

	res, err := s.filler.Fill(ctx, data)
	if err != nil {
		return nil, err
	}

	generatedAt := s.now().UTC()
	name := DocumentName(contract, generatedAt)
	doc, err := s.documents.Store(ctx, name, res.PDF, map[string]string{
		"contractId":          contract.ID,
		"tenantId":            contract.TenantID,
		"userId":              req.UserID,
		"generatedAt":         generatedAt.Format(time.RFC3339),
		"fieldMappingVersion": res.FieldMappingVersion,
	})
	if err != nil {
		return nil, err
	}
	metrics.CerfaStoredBytes.Observe(float64(len(res.PDF)))

	rec, err := s.records.Create(ctx, records.NewGenerationRecord{
		TenantID:            contract.TenantID,
		ContractID:          contract.ID,
		UserID:              req.UserID,
		FormVersion:         s.formVersion,
		ObjectPath:          doc.Reference,
		StorageURL:          doc.URL,
		FieldMappingVersion: res.FieldMappingVersion,
	})
	if err != nil {
		s.logger.Error("CERFA stored without a generation record",
			zap.String("contract_id", contract.ID),
			zap.String("object_path", doc.Reference),
			zap.Error(err))
		return nil, err
	}

	s.logger.Info("generate_cerfa",
		zap.String("record_id", rec.ID.String()),
		zap.String("contract_id", contract.ID),
		zap.String("tenant_id", contract.TenantID),
		zap.String("user_id", req.UserID),
		zap.String("object_path", doc.Reference),
		zap.Int("fields_written", res.FieldsWritten),
		zap.Int("warnings", len(res.Warnings)))
	return rec, nil
}

// List returns a contract's generation records, newest first.
func (s *Service) List(ctx context.Context, tenantIDs []string, contractID string) ([]records.GenerationRecord, error) {
	if _, err := s.authorize(ctx, tenantIDs, contractID); err != nil {
		return nil, err
	}
	return s.records.ListByContract(ctx, contractID)
}

// DownloadURL issues a fresh presigned URL for a stored CERFA.
func (s *Service) DownloadURL(ctx context.Context, tenantIDs []string, contractID string, recordID uuid.UUID) (string, error) {
	if _, err := s.authorize(ctx, tenantIDs, contractID); err != nil {
		return "", err
	}

	rec, err := s.records.Get(ctx, recordID)
	if err != nil {
		return "", err
	}
	if rec.ContractID != contractID {
		return "", fmt.Errorf("%w: %s", records.ErrRecordNotFound, recordID)
	}

	url, err := s.documents.PresignedURL(ctx, rec.ObjectPath)
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", rec.ObjectPath, err)
	}
	return url, nil
}

func (s *Service) authorize(ctx context.Context, tenantIDs []string, contractID string) (*records.Contract, error) {
	contract, err := s.contracts.GetContract(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if !slices.Contains(tenantIDs, contract.TenantID) {
		return nil, fmt.Errorf("%w: contract %s", ErrAccessDenied, contractID)
	}
	return contract, nil
}

// DocumentName is cerfa-<contractNumber|id>-<unixMillis>.pdf.
func DocumentName(c *records.Contract, at time.Time) string {
	label := c.ContractNumber
	if label == "" {
		label = c.ID
	}
	return "cerfa-" + safeName(label) + "-" + strconv.FormatInt(at.UnixMilli(), 10) + ".pdf"
}

func safeName(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		default:
			return '_'
		}
	}, s)
}
