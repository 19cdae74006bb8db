package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"sitelink-data/internal/domain"
)

// PostgresAssignmentsRepository 派工Repository实现
type PostgresAssignmentsRepository struct {
	db *sql.DB
}

// NewPostgresAssignmentsRepository 创建派工Repository
func NewPostgresAssignmentsRepository(db *sql.DB) *PostgresAssignmentsRepository {
	return &PostgresAssignmentsRepository{db: db}
}

var _ AssignmentsRepository = (*PostgresAssignmentsRepository)(nil)

const assignmentColumns = `
	assignment_id::text,
	tenant_id::text,
	lot_id::text,
	phase_id,
	crew_id::text,
	status,
	assigned_by::text,
	started_at,
	completed_at,
	created_at
`

func scanAssignment(row interface{ Scan(...any) error }) (*domain.PhaseAssignment, error) {
	var a domain.PhaseAssignment
	var startedAt, completedAt sql.NullTime

	err := row.Scan(
		&a.AssignmentID,
		&a.TenantID,
		&a.LotID,
		&a.PhaseID,
		&a.CrewID,
		&a.Status,
		&a.AssignedBy,
		&startedAt,
		&completedAt,
		&a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if startedAt.Valid {
		a.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		a.CompletedAt = &completedAt.Time
	}

	return &a, nil
}

// GetAssignment 获取派工记录
func (r *PostgresAssignmentsRepository) GetAssignment(ctx context.Context, tenantID, assignmentID string) (*domain.PhaseAssignment, error) {
	if tenantID == "" || assignmentID == "" {
		return nil, domain.ErrAssignmentNotFound
	}

	query := `
		SELECT ` + assignmentColumns + `
		FROM phase_assignments
		WHERE tenant_id = $1 AND assignment_id = $2
	`

	a, err := scanAssignment(r.db.QueryRowContext(ctx, query, tenantID, assignmentID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrAssignmentNotFound
		}
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}

	return a, nil
}

// ListAssignments 批量查询派工记录
func (r *PostgresAssignmentsRepository) ListAssignments(ctx context.Context, tenantID string, filters *AssignmentFilters, page, size int) ([]*domain.PhaseAssignment, int, error) {
	if tenantID == "" {
		return []*domain.PhaseAssignment{}, 0, nil
	}

	where := []string{"tenant_id = $1"}
	args := []any{tenantID}
	argN := 2

	if filters != nil {
		if filters.LotID != "" {
			where = append(where, fmt.Sprintf("lot_id = $%d", argN))
			args = append(args, filters.LotID)
			argN++
		}
		if filters.CrewID != "" {
			where = append(where, fmt.Sprintf("crew_id = $%d", argN))
			args = append(args, filters.CrewID)
			argN++
		}
		if filters.PhaseID != "" {
			where = append(where, fmt.Sprintf("phase_id = $%d", argN))
			args = append(args, string(filters.PhaseID))
			argN++
		}
		if filters.Status != "" {
			where = append(where, fmt.Sprintf("status = $%d", argN))
			args = append(args, string(filters.Status))
			argN++
		}
	}

	queryCount := `
		SELECT COUNT(*)
		FROM phase_assignments
		WHERE ` + strings.Join(where, " AND ")
	var total int
	if err := r.db.QueryRowContext(ctx, queryCount, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count assignments: %w", err)
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
		SELECT ` + assignmentColumns + `
		FROM phase_assignments
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_at DESC
		LIMIT $` + fmt.Sprintf("%d", argN) + ` OFFSET $` + fmt.Sprintf("%d", argN+1)

	rows, err := r.db.QueryContext(ctx, query, argsList...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list assignments: %w", err)
	}
	defer rows.Close()

	var assignments []*domain.PhaseAssignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan assignment: %w", err)
		}
		assignments = append(assignments, a)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate assignments: %w", err)
	}

	return assignments, total, nil
}

// CreateAssignment 创建派工
// 依赖部分唯一索引 ux_phase_assignments_active 保证同一 (lot, phase)
// 同时最多一条活动记录；冲突映射为 ErrAssignmentActive
func (r *PostgresAssignmentsRepository) CreateAssignment(ctx context.Context, tenantID string, a *domain.PhaseAssignment) (string, error) {
	if tenantID == "" {
		return "", fmt.Errorf("tenant_id is required")
	}
	if a.LotID == "" || a.CrewID == "" || a.AssignedBy == "" {
		return "", fmt.Errorf("lot_id, crew_id and assigned_by are required")
	}
	if !a.PhaseID.Valid() {
		return "", domain.ErrPhaseNotFound
	}
	if a.Status == "" {
		a.Status = domain.AssignmentAssigned
	}

	query := `
		INSERT INTO phase_assignments (
			tenant_id,
			lot_id,
			phase_id,
			crew_id,
			status,
			assigned_by,
			created_at
		) VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING assignment_id::text
	`

	var assignmentID string
	err := r.db.QueryRowContext(ctx, query, tenantID, a.LotID, string(a.PhaseID),
		a.CrewID, string(a.Status), a.AssignedBy).Scan(&assignmentID)
	if err != nil {
		if isUniqueViolation(err) {
			return "", domain.ErrAssignmentActive
		}
		return "", fmt.Errorf("failed to create assignment: %w", err)
	}

	return assignmentID, nil
}

// SetAssignmentStatus 更新派工状态
func (r *PostgresAssignmentsRepository) SetAssignmentStatus(ctx context.Context, tenantID, assignmentID string, status domain.AssignmentStatus, at time.Time) error {
	if tenantID == "" || assignmentID == "" {
		return domain.ErrAssignmentNotFound
	}
	if !status.Valid() {
		return domain.ErrInvalidAssignmentStatus
	}

	set := []string{"status = $3"}
	args := []any{tenantID, assignmentID, string(status)}
	switch status {
	case domain.AssignmentStarted:
		set = append(set, "started_at = $4")
		args = append(args, at)
	case domain.AssignmentCompleted:
		set = append(set, "completed_at = $4")
		args = append(args, at)
	}

	query := `
		UPDATE phase_assignments
		SET ` + strings.Join(set, ", ") + `
		WHERE tenant_id = $1 AND assignment_id = $2
	`

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to set assignment status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return domain.ErrAssignmentNotFound
	}

	return nil
}

// FindCrewForLotPhase 解析 (lot, phase) 当前责任班组
// 多条活动记录并存时按创建时间最新者优先（历史数据容错，非写入时约束）
func (r *PostgresAssignmentsRepository) FindCrewForLotPhase(ctx context.Context, tenantID, lotID string, phase domain.PhaseID) (string, error) {
	if tenantID == "" || lotID == "" {
		return "", nil
	}

	query := `
		SELECT crew_id::text
		FROM phase_assignments
		WHERE tenant_id = $1 AND lot_id = $2 AND phase_id = $3 AND status <> 'cancelled'
		ORDER BY created_at DESC
		LIMIT 1
	`

	var crewID string
	err := r.db.QueryRowContext(ctx, query, tenantID, lotID, string(phase)).Scan(&crewID)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", fmt.Errorf("failed to find crew for lot phase: %w", err)
	}

	return crewID, nil
}

// FindLotsForCrew 班组名下有活动派工的地块（去重）
func (r *PostgresAssignmentsRepository) FindLotsForCrew(ctx context.Context, tenantID, crewID string) ([]string, error) {
	if tenantID == "" || crewID == "" {
		return []string{}, nil
	}

	query := `
		SELECT DISTINCT lot_id::text
		FROM phase_assignments
		WHERE tenant_id = $1 AND crew_id = $2 AND status <> 'cancelled'
		ORDER BY lot_id
	`

	rows, err := r.db.QueryContext(ctx, query, tenantID, crewID)
	if err != nil {
		return nil, fmt.Errorf("failed to find lots for crew: %w", err)
	}
	defer rows.Close()

	var lots []string
	for rows.Next() {
		var lotID string
		if err := rows.Scan(&lotID); err != nil {
			return nil, fmt.Errorf("failed to scan lot id: %w", err)
		}
		lots = append(lots, lotID)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate lots: %w", err)
	}

	return lots, nil
}

// FindPhasesForCrewOnLot 班组在某地块上的活动阶段
func (r *PostgresAssignmentsRepository) FindPhasesForCrewOnLot(ctx context.Context, tenantID, crewID, lotID string) ([]domain.PhaseID, error) {
	if tenantID == "" || crewID == "" || lotID == "" {
		return []domain.PhaseID{}, nil
	}

	query := `
		SELECT DISTINCT phase_id
		FROM phase_assignments
		WHERE tenant_id = $1 AND crew_id = $2 AND lot_id = $3 AND status <> 'cancelled'
		ORDER BY phase_id
	`

	rows, err := r.db.QueryContext(ctx, query, tenantID, crewID, lotID)
	if err != nil {
		return nil, fmt.Errorf("failed to find phases for crew on lot: %w", err)
	}
	defer rows.Close()

	var phases []domain.PhaseID
	for rows.Next() {
		var phase domain.PhaseID
		if err := rows.Scan(&phase); err != nil {
			return nil, fmt.Errorf("failed to scan phase id: %w", err)
		}
		phases = append(phases, phase)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate phases: %w", err)
	}

	return phases, nil
}
