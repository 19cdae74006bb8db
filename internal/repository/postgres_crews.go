package repository

import (
	"context"
	"database/sql"
	"fmt"

	"sitelink-data/internal/domain"
)

// PostgresCrewsRepository 班组Repository实现
type PostgresCrewsRepository struct {
	db *sql.DB
}

// NewPostgresCrewsRepository 创建班组Repository
func NewPostgresCrewsRepository(db *sql.DB) *PostgresCrewsRepository {
	return &PostgresCrewsRepository{db: db}
}

var _ CrewsRepository = (*PostgresCrewsRepository)(nil)

func scanCrew(row interface{ Scan(...any) error }) (*domain.Crew, error) {
	var crew domain.Crew
	var specialty, insuranceNumber sql.NullString
	var insuranceExpiry sql.NullTime

	err := row.Scan(
		&crew.CrewID,
		&crew.TenantID,
		&crew.CrewName,
		&crew.LeadName,
		&specialty,
		&insuranceNumber,
		&insuranceExpiry,
		&crew.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if specialty.Valid {
		crew.Specialty = specialty.String
	}
	if insuranceNumber.Valid {
		crew.InsuranceNumber = &insuranceNumber.String
	}
	if insuranceExpiry.Valid {
		crew.InsuranceExpiry = &insuranceExpiry.Time
	}

	return &crew, nil
}

// GetCrew 获取班组
func (r *PostgresCrewsRepository) GetCrew(ctx context.Context, tenantID, crewID string) (*domain.Crew, error) {
	if tenantID == "" || crewID == "" {
		return nil, domain.ErrCrewNotFound
	}

	query := `
		SELECT
			crew_id::text,
			tenant_id::text,
			crew_name,
			lead_name,
			specialty,
			insurance_number,
			insurance_expiry,
			created_at
		FROM crews
		WHERE tenant_id = $1 AND crew_id = $2
	`

	crew, err := scanCrew(r.db.QueryRowContext(ctx, query, tenantID, crewID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrCrewNotFound
		}
		return nil, fmt.Errorf("failed to get crew: %w", err)
	}

	return crew, nil
}

// ListCrews 批量查询班组
func (r *PostgresCrewsRepository) ListCrews(ctx context.Context, tenantID string, page, size int) ([]*domain.Crew, int, error) {
	if tenantID == "" {
		return []*domain.Crew{}, 0, nil
	}

	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM crews WHERE tenant_id = $1`, tenantID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count crews: %w", err)
	}

	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	offset := (page - 1) * size

	query := `
		SELECT
			crew_id::text,
			tenant_id::text,
			crew_name,
			lead_name,
			specialty,
			insurance_number,
			insurance_expiry,
			created_at
		FROM crews
		WHERE tenant_id = $1
		ORDER BY crew_name
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.QueryContext(ctx, query, tenantID, size, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list crews: %w", err)
	}
	defer rows.Close()

	var crews []*domain.Crew
	for rows.Next() {
		crew, err := scanCrew(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan crew: %w", err)
		}
		crews = append(crews, crew)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate crews: %w", err)
	}

	return crews, total, nil
}

// CreateCrew 创建班组
func (r *PostgresCrewsRepository) CreateCrew(ctx context.Context, tenantID string, crew *domain.Crew) (string, error) {
	if tenantID == "" {
		return "", fmt.Errorf("tenant_id is required")
	}
	if crew.CrewName == "" || crew.LeadName == "" {
		return "", fmt.Errorf("crew_name and lead_name are required")
	}

	query := `
		INSERT INTO crews (
			tenant_id,
			crew_name,
			lead_name,
			specialty,
			insurance_number,
			insurance_expiry,
			created_at
		) VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING crew_id::text
	`

	var specialty, insuranceNumber, insuranceExpiry any
	if crew.Specialty != "" {
		specialty = crew.Specialty
	}
	if crew.InsuranceNumber != nil {
		insuranceNumber = *crew.InsuranceNumber
	}
	if crew.InsuranceExpiry != nil {
		insuranceExpiry = *crew.InsuranceExpiry
	}

	var crewID string
	err := r.db.QueryRowContext(ctx, query, tenantID, crew.CrewName, crew.LeadName,
		specialty, insuranceNumber, insuranceExpiry).Scan(&crewID)
	if err != nil {
		return "", fmt.Errorf("failed to create crew: %w", err)
	}

	return crewID, nil
}
