package catalog

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/felipepmaragno/chat-gateway/internal/domain"
)

type PostgresCatalog struct {
	db *sql.DB
}

func NewPostgresCatalog(db *sql.DB) *PostgresCatalog {
	return &PostgresCatalog{db: db}
}

func (c *PostgresCatalog) ListModels(ctx context.Context) ([]domain.Model, error) {
	query := `
		SELECT id, name, integration, priority, rpm, tpm, rpd, credential_ref, created_at, updated_at
		FROM models
		ORDER BY priority ASC, id ASC
	`

	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query models: %w", err)
	}
	defer rows.Close()

	var models []domain.Model
	for rows.Next() {
		m, err := scanModel(rows)
		if err != nil {
			return nil, err
		}
		models = append(models, m)
	}

	return models, rows.Err()
}

func (c *PostgresCatalog) ListModelsWithUsage(ctx context.Context, underQuotaOnly bool) ([]ModelWithUsage, error) {
	// Models with no counter row yet count as zero usage.
	query := `
		SELECT m.id, m.name, m.integration, m.priority, m.rpm, m.tpm, m.rpd, m.credential_ref,
		       m.created_at, m.updated_at, COALESCE(u.count, 0)
		FROM models m
		LEFT JOIN model_usage u ON u.model_id = m.id
	`
	if underQuotaOnly {
		query += ` WHERE COALESCE(u.count, 0) < m.rpd`
	}
	query += ` ORDER BY m.priority ASC, m.id ASC`

	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query models with usage: %w", err)
	}
	defer rows.Close()

	var result []ModelWithUsage
	for rows.Next() {
		var m domain.Model
		var credentialRef sql.NullString
		var count int

		err := rows.Scan(
			&m.ID,
			&m.Name,
			&m.Integration,
			&m.Priority,
			&m.RPM,
			&m.TPM,
			&m.RPD,
			&credentialRef,
			&m.CreatedAt,
			&m.UpdatedAt,
			&count,
		)
		if err != nil {
			return nil, fmt.Errorf("scan model with usage: %w", err)
		}

		if credentialRef.Valid {
			m.CredentialRef = credentialRef.String
		}

		result = append(result, ModelWithUsage{
			Model: m,
			Usage: domain.UsageCounter{ModelID: m.ID, Count: count},
		})
	}

	return result, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanModel(row rowScanner) (domain.Model, error) {
	var m domain.Model
	var credentialRef sql.NullString

	err := row.Scan(
		&m.ID,
		&m.Name,
		&m.Integration,
		&m.Priority,
		&m.RPM,
		&m.TPM,
		&m.RPD,
		&credentialRef,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		return domain.Model{}, fmt.Errorf("scan model: %w", err)
	}

	if credentialRef.Valid {
		m.CredentialRef = credentialRef.String
	}

	return m, nil
}
