package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"sitelink-data/internal/domain"
)

// PostgresLotsRepository 地块Repository实现
type PostgresLotsRepository struct {
	db *sql.DB
}

// NewPostgresLotsRepository 创建地块Repository
func NewPostgresLotsRepository(db *sql.DB) *PostgresLotsRepository {
	return &PostgresLotsRepository{db: db}
}

// 确保实现了接口
var _ LotsRepository = (*PostgresLotsRepository)(nil)

const lotColumns = `
	lot_id::text,
	tenant_id::text,
	jobsite_id::text,
	lot_number,
	current_phase,
	status,
	sellable,
	closing_date,
	created_at,
	updated_at
`

func scanLot(row interface{ Scan(...any) error }) (*domain.Lot, error) {
	var lot domain.Lot
	var currentPhase sql.NullString
	var closingDate sql.NullTime

	err := row.Scan(
		&lot.LotID,
		&lot.TenantID,
		&lot.JobsiteID,
		&lot.LotNumber,
		&currentPhase,
		&lot.Status,
		&lot.Sellable,
		&closingDate,
		&lot.CreatedAt,
		&lot.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if currentPhase.Valid {
		p := domain.PhaseID(currentPhase.String)
		lot.CurrentPhase = &p
	}
	if closingDate.Valid {
		lot.ClosingDate = &closingDate.Time
	}

	return &lot, nil
}

// GetLot 获取地块
func (r *PostgresLotsRepository) GetLot(ctx context.Context, tenantID, lotID string) (*domain.Lot, error) {
	if tenantID == "" || lotID == "" {
		return nil, domain.ErrLotNotFound
	}

	query := `
		SELECT ` + lotColumns + `
		FROM lots
		WHERE tenant_id = $1 AND lot_id = $2
	`

	lot, err := scanLot(r.db.QueryRowContext(ctx, query, tenantID, lotID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrLotNotFound
		}
		return nil, fmt.Errorf("failed to get lot: %w", err)
	}

	return lot, nil
}

// ListLots 批量查询地块（支持过滤和分页）
func (r *PostgresLotsRepository) ListLots(ctx context.Context, tenantID string, filters *LotFilters, page, size int) ([]*domain.Lot, int, error) {
	if tenantID == "" {
		return []*domain.Lot{}, 0, nil
	}

	where := []string{"tenant_id = $1"}
	args := []any{tenantID}
	argN := 2

	if filters != nil {
		if filters.JobsiteID != "" {
			where = append(where, fmt.Sprintf("jobsite_id = $%d", argN))
			args = append(args, filters.JobsiteID)
			argN++
		}
		if filters.Status != "" {
			where = append(where, fmt.Sprintf("status = $%d", argN))
			args = append(args, string(filters.Status))
			argN++
		}
		if filters.CurrentPhase != "" {
			where = append(where, fmt.Sprintf("current_phase = $%d", argN))
			args = append(args, string(filters.CurrentPhase))
			argN++
		}
		if filters.Sellable != nil {
			where = append(where, fmt.Sprintf("sellable = $%d", argN))
			args = append(args, *filters.Sellable)
			argN++
		}
	}

	// 查询总数
	queryCount := `
		SELECT COUNT(*)
		FROM lots
		WHERE ` + strings.Join(where, " AND ")
	var total int
	if err := r.db.QueryRowContext(ctx, queryCount, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count lots: %w", err)
	}

	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	offset := (page - 1) * size

	argsList := append(args, size, offset)
	query := `
		SELECT ` + lotColumns + `
		FROM lots
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY jobsite_id, lot_number
		LIMIT $` + fmt.Sprintf("%d", argN) + ` OFFSET $` + fmt.Sprintf("%d", argN+1)

	rows, err := r.db.QueryContext(ctx, query, argsList...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list lots: %w", err)
	}
	defer rows.Close()

	var lots []*domain.Lot
	for rows.Next() {
		lot, err := scanLot(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan lot: %w", err)
		}
		lots = append(lots, lot)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate lots: %w", err)
	}

	return lots, total, nil
}

// CreateLot 创建地块
func (r *PostgresLotsRepository) CreateLot(ctx context.Context, tenantID string, lot *domain.Lot) (string, error) {
	if tenantID == "" {
		return "", fmt.Errorf("tenant_id is required")
	}
	if lot.JobsiteID == "" || lot.LotNumber == "" {
		return "", fmt.Errorf("jobsite_id and lot_number are required")
	}
	if lot.Status == "" {
		lot.Status = domain.LotPending
	}

	query := `
		INSERT INTO lots (
			tenant_id,
			jobsite_id,
			lot_number,
			current_phase,
			status,
			sellable,
			closing_date,
			created_at,
			updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		RETURNING lot_id::text
	`

	var currentPhase, closingDate any
	if lot.CurrentPhase != nil {
		currentPhase = string(*lot.CurrentPhase)
	}
	if lot.ClosingDate != nil {
		closingDate = *lot.ClosingDate
	}

	var lotID string
	err := r.db.QueryRowContext(ctx, query, tenantID, lot.JobsiteID, lot.LotNumber,
		currentPhase, string(lot.Status), lot.Sellable, closingDate).Scan(&lotID)
	if err != nil {
		return "", fmt.Errorf("failed to create lot: %w", err)
	}

	return lotID, nil
}

// SetLotPhase 推进/改派地块阶段（同时更新状态）
func (r *PostgresLotsRepository) SetLotPhase(ctx context.Context, tenantID, lotID string, phase domain.PhaseID, status domain.LotStatus) error {
	if tenantID == "" || lotID == "" {
		return domain.ErrLotNotFound
	}

	query := `
		UPDATE lots
		SET current_phase = $3, status = $4, updated_at = $5
		WHERE tenant_id = $1 AND lot_id = $2
	`

	result, err := r.db.ExecContext(ctx, query, tenantID, lotID, string(phase), string(status), time.Now())
	if err != nil {
		return fmt.Errorf("failed to set lot phase: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return domain.ErrLotNotFound
	}

	return nil
}

// SetLotStatus 仅更新地块状态
func (r *PostgresLotsRepository) SetLotStatus(ctx context.Context, tenantID, lotID string, status domain.LotStatus) error {
	if tenantID == "" || lotID == "" {
		return domain.ErrLotNotFound
	}
	if !status.Valid() {
		return fmt.Errorf("invalid status: %s", status)
	}

	query := `
		UPDATE lots
		SET status = $3, updated_at = $4
		WHERE tenant_id = $1 AND lot_id = $2
	`

	result, err := r.db.ExecContext(ctx, query, tenantID, lotID, string(status), time.Now())
	if err != nil {
		return fmt.Errorf("failed to set lot status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return domain.ErrLotNotFound
	}

	return nil
}
