package records

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/a3tai/mcp-cerfa/internal/cerfa"
)

const dateLayout = "02/01/2006"

// Contract is the subset of a contract row a generation needs.
type Contract struct {
	ID             string
	TenantID       string
	ContractNumber string
	Status         string
	StartDate      sql.NullTime
	EndDate        sql.NullTime
	EmployerName   string
	CFAName        string
	CachedData     []byte
}

// GetContract loads a contract by id.
func (r *Repository) GetContract(ctx context.Context, id string) (*Contract, error) {
	var (
		c                     Contract
		number, status        sql.NullString
		employerName, cfaName sql.NullString
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, contract_number, status, start_date, end_date,
		       employer_name, cfa_name, cached_data
		FROM contracts
		WHERE id = $1`, id).Scan(
		&c.ID,
		&c.TenantID,
		&number,
		&status,
		&c.StartDate,
		&c.EndDate,
		&employerName,
		&cfaName,
		&c.CachedData,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrContractNotFound, id)
		}
		return nil, &PersistenceError{Op: "get contract", Err: err}
	}

	c.ContractNumber = number.String
	c.Status = status.String
	c.EmployerName = employerName.String
	c.CFAName = cfaName.String
	return &c, nil
}

// FormData returns the contract's cached form data, or a minimal form derived
// from its columns when nothing is cached.
func (c *Contract) FormData() (*cerfa.ContractFormData, []cerfa.FieldResolutionWarning, error) {
	cached := bytes.TrimSpace(c.CachedData)
	if len(cached) > 0 && !bytes.Equal(cached, []byte("null")) {
		data, warnings, err := cerfa.DecodeFormData(cached)
		if err != nil {
			return nil, nil, fmt.Errorf("contract %s: %w", c.ID, err)
		}
		c.fillMetadata(data)
		return data, warnings, nil
	}

	data := &cerfa.ContractFormData{}
	c.fillMetadata(data)
	if c.EmployerName != "" {
		data.Employer = &cerfa.Employer{Name: cerfa.Text(c.EmployerName)}
	}
	if c.CFAName != "" {
		data.CFA = &cerfa.CFA{Name: cerfa.Text(c.CFAName)}
	}
	start, end := formatDate(c.StartDate), formatDate(c.EndDate)
	if start != "" || end != "" {
		data.Contract = &cerfa.Contract{
			ExecutionStartDate: cerfa.Text(start),
			EndDate:            cerfa.Text(end),
		}
	}
	return data, nil, nil
}

func (c *Contract) fillMetadata(data *cerfa.ContractFormData) {
	if data.ID == "" {
		data.ID = c.ID
	}
	if data.ContractNumber == "" {
		data.ContractNumber = c.ContractNumber
	}
	if data.Status == "" {
		data.Status = c.Status
	}
	if data.StartDate == "" && c.StartDate.Valid {
		data.StartDate = c.StartDate.Time.Format(time.DateOnly)
	}
	if data.EndDate == "" && c.EndDate.Valid {
		data.EndDate = c.EndDate.Time.Format(time.DateOnly)
	}
}

func formatDate(t sql.NullTime) string {
	if !t.Valid {
		return ""
	}
	return t.Time.Format(dateLayout)
}
