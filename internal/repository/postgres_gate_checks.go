package repository

import (
	"context"
	"database/sql"
	"fmt"

	"sitelink-data/internal/domain"
)

// PostgresGateChecksRepository 闸口检查Repository实现
type PostgresGateChecksRepository struct {
	db *sql.DB
}

// NewPostgresGateChecksRepository 创建闸口检查Repository
func NewPostgresGateChecksRepository(db *sql.DB) *PostgresGateChecksRepository {
	return &PostgresGateChecksRepository{db: db}
}

var _ GateChecksRepository = (*PostgresGateChecksRepository)(nil)

const gateCheckColumns = `
	gate_check_id::text,
	tenant_id::text,
	lot_id::text,
	transition,
	checked_by::text,
	status,
	started_at,
	completed_at,
	released_at
`

const gateCheckItemColumns = `
	gate_check_item_id::text,
	tenant_id::text,
	gate_check_id::text,
	item_code,
	item_label,
	sort_order,
	result,
	photo_url,
	notes,
	deficiency_id::text
`

func scanGateCheck(row interface{ Scan(...any) error }) (*domain.GateCheck, error) {
	var check domain.GateCheck
	var completedAt, releasedAt sql.NullTime

	err := row.Scan(
		&check.GateCheckID,
		&check.TenantID,
		&check.LotID,
		&check.Transition,
		&check.CheckedBy,
		&check.Status,
		&check.StartedAt,
		&completedAt,
		&releasedAt,
	)
	if err != nil {
		return nil, err
	}

	if completedAt.Valid {
		check.CompletedAt = &completedAt.Time
	}
	if releasedAt.Valid {
		check.ReleasedAt = &releasedAt.Time
	}

	return &check, nil
}

func scanGateCheckItem(row interface{ Scan(...any) error }) (*domain.GateCheckItem, error) {
	var item domain.GateCheckItem
	var photoURL, notes, deficiencyID sql.NullString

	err := row.Scan(
		&item.GateCheckItemID,
		&item.TenantID,
		&item.GateCheckID,
		&item.ItemCode,
		&item.ItemLabel,
		&item.SortOrder,
		&item.Result,
		&photoURL,
		&notes,
		&deficiencyID,
	)
	if err != nil {
		return nil, err
	}

	if photoURL.Valid {
		item.PhotoURL = &photoURL.String
	}
	if notes.Valid {
		item.Notes = &notes.String
	}
	if deficiencyID.Valid {
		item.DeficiencyID = &deficiencyID.String
	}

	return &item, nil
}

// CreateGateCheck 创建检查并快照全部检查项（单事务）
// 依赖部分唯一索引 ux_gate_checks_in_progress 保证同一 (lot, transition)
// 同时最多一条 in_progress 检查；并发第二次 start 报冲突而非静默建重复清单
func (r *PostgresGateChecksRepository) CreateGateCheck(ctx context.Context, tenantID string, check *domain.GateCheck, items []*domain.GateCheckItem) (string, error) {
	if tenantID == "" {
		return "", fmt.Errorf("tenant_id is required")
	}
	if check.LotID == "" || check.CheckedBy == "" {
		return "", fmt.Errorf("lot_id and checked_by are required")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	var gateCheckID string
	err = tx.QueryRowContext(ctx, `
		INSERT INTO gate_checks (
			tenant_id,
			lot_id,
			transition,
			checked_by,
			status,
			started_at
		) VALUES ($1, $2, $3, $4, 'in_progress', $5)
		RETURNING gate_check_id::text
	`, tenantID, check.LotID, string(check.Transition), check.CheckedBy, check.StartedAt).Scan(&gateCheckID)
	if err != nil {
		if isUniqueViolation(err) {
			return "", domain.ErrGateCheckInFlight
		}
		return "", fmt.Errorf("failed to create gate check: %w", err)
	}

	for _, item := range items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO gate_check_items (
				tenant_id,
				gate_check_id,
				item_code,
				item_label,
				sort_order,
				result
			) VALUES ($1, $2, $3, $4, $5, 'pending')
		`, tenantID, gateCheckID, item.ItemCode, item.ItemLabel, item.SortOrder)
		if err != nil {
			return "", fmt.Errorf("failed to create gate check item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit gate check: %w", err)
	}

	return gateCheckID, nil
}

func (r *PostgresGateChecksRepository) listItems(ctx context.Context, tenantID, gateCheckID string) ([]*domain.GateCheckItem, error) {
	query := `
		SELECT ` + gateCheckItemColumns + `
		FROM gate_check_items
		WHERE tenant_id = $1 AND gate_check_id = $2
		ORDER BY sort_order
	`

	rows, err := r.db.QueryContext(ctx, query, tenantID, gateCheckID)
	if err != nil {
		return nil, fmt.Errorf("failed to list gate check items: %w", err)
	}
	defer rows.Close()

	var items []*domain.GateCheckItem
	for rows.Next() {
		item, err := scanGateCheckItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan gate check item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate gate check items: %w", err)
	}

	return items, nil
}

// GetGateCheck 获取检查及其全部检查项
func (r *PostgresGateChecksRepository) GetGateCheck(ctx context.Context, tenantID, gateCheckID string) (*domain.GateCheck, []*domain.GateCheckItem, error) {
	if tenantID == "" || gateCheckID == "" {
		return nil, nil, domain.ErrGateCheckNotFound
	}

	query := `
		SELECT ` + gateCheckColumns + `
		FROM gate_checks
		WHERE tenant_id = $1 AND gate_check_id = $2
	`

	check, err := scanGateCheck(r.db.QueryRowContext(ctx, query, tenantID, gateCheckID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, domain.ErrGateCheckNotFound
		}
		return nil, nil, fmt.Errorf("failed to get gate check: %w", err)
	}

	items, err := r.listItems(ctx, tenantID, gateCheckID)
	if err != nil {
		return nil, nil, err
	}

	return check, items, nil
}

// GetLatestGateCheck 获取 (lot, transition) 最近一次检查（按开始时间）
func (r *PostgresGateChecksRepository) GetLatestGateCheck(ctx context.Context, tenantID, lotID string, transition domain.Transition) (*domain.GateCheck, []*domain.GateCheckItem, error) {
	if tenantID == "" || lotID == "" {
		return nil, nil, nil
	}

	query := `
		SELECT ` + gateCheckColumns + `
		FROM gate_checks
		WHERE tenant_id = $1 AND lot_id = $2 AND transition = $3
		ORDER BY started_at DESC
		LIMIT 1
	`

	check, err := scanGateCheck(r.db.QueryRowContext(ctx, query, tenantID, lotID, string(transition)))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("failed to get latest gate check: %w", err)
	}

	items, err := r.listItems(ctx, tenantID, check.GateCheckID)
	if err != nil {
		return nil, nil, err
	}

	return check, items, nil
}

// GetGateCheckItem 获取单个检查项
func (r *PostgresGateChecksRepository) GetGateCheckItem(ctx context.Context, tenantID, itemID string) (*domain.GateCheckItem, error) {
	if tenantID == "" || itemID == "" {
		return nil, domain.ErrGateCheckItemNotFound
	}

	query := `
		SELECT ` + gateCheckItemColumns + `
		FROM gate_check_items
		WHERE tenant_id = $1 AND gate_check_item_id = $2
	`

	item, err := scanGateCheckItem(r.db.QueryRowContext(ctx, query, tenantID, itemID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrGateCheckItemNotFound
		}
		return nil, fmt.Errorf("failed to get gate check item: %w", err)
	}

	return item, nil
}

// UpdateItemResult 更新单个检查项结果（last-writer-wins，无合并）
func (r *PostgresGateChecksRepository) UpdateItemResult(ctx context.Context, tenantID, itemID string, upd *ItemResultUpdate) (*domain.GateCheckItem, error) {
	if tenantID == "" || itemID == "" {
		return nil, domain.ErrGateCheckItemNotFound
	}

	query := `
		UPDATE gate_check_items
		SET result = $3, photo_url = $4, notes = $5
		WHERE tenant_id = $1 AND gate_check_item_id = $2
	`

	var photoURL, notes any
	if upd.PhotoURL != nil {
		photoURL = *upd.PhotoURL
	}
	if upd.Notes != nil {
		notes = *upd.Notes
	}

	result, err := r.db.ExecContext(ctx, query, tenantID, itemID, string(upd.Result), photoURL, notes)
	if err != nil {
		return nil, fmt.Errorf("failed to update item result: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, domain.ErrGateCheckItemNotFound
	}

	return r.GetGateCheckItem(ctx, tenantID, itemID)
}

// LinkDeficiency 关联检查项与因其上报的房屋问题
func (r *PostgresGateChecksRepository) LinkDeficiency(ctx context.Context, tenantID, itemID, houseItemID string) error {
	if tenantID == "" || itemID == "" {
		return domain.ErrGateCheckItemNotFound
	}

	query := `
		UPDATE gate_check_items
		SET deficiency_id = $3
		WHERE tenant_id = $1 AND gate_check_item_id = $2
	`

	result, err := r.db.ExecContext(ctx, query, tenantID, itemID, houseItemID)
	if err != nil {
		return fmt.Errorf("failed to link deficiency: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return domain.ErrGateCheckItemNotFound
	}

	return nil
}

// CompleteGateCheck 条件写入终态
// "无 pending 项"与状态写入在同一条语句里判定，避免检查与写入之间
// 有检查项翻回 pending 的 TOCTOU 窗口
func (r *PostgresGateChecksRepository) CompleteGateCheck(ctx context.Context, tenantID, gateCheckID string, c *Completion) error {
	if tenantID == "" || gateCheckID == "" {
		return domain.ErrGateCheckNotFound
	}

	query := `
		UPDATE gate_checks
		SET status = $3, completed_at = $4, released_at = $5
		WHERE tenant_id = $1 AND gate_check_id = $2
		  AND status = 'in_progress'
		  AND NOT EXISTS (
			SELECT 1 FROM gate_check_items
			WHERE gate_check_id = $2 AND result = 'pending'
		  )
	`

	var releasedAt any
	if c.ReleasedAt != nil {
		releasedAt = *c.ReleasedAt
	}

	result, err := r.db.ExecContext(ctx, query, tenantID, gateCheckID, string(c.Status), c.CompletedAt, releasedAt)
	if err != nil {
		return fmt.Errorf("failed to complete gate check: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		// 区分：不存在 / 已是终态 / 仍有 pending 项
		var status string
		err := r.db.QueryRowContext(ctx,
			`SELECT status FROM gate_checks WHERE tenant_id = $1 AND gate_check_id = $2`,
			tenantID, gateCheckID).Scan(&status)
		if err != nil {
			if err == sql.ErrNoRows {
				return domain.ErrGateCheckNotFound
			}
			return fmt.Errorf("failed to check gate check status: %w", err)
		}
		if domain.GateCheckStatus(status).Terminal() {
			return domain.ErrGateCheckDone
		}
		return domain.ErrItemsPending
	}

	return nil
}

// PostgresTemplatesRepository 闸口检查模板Repository实现
type PostgresTemplatesRepository struct {
	db *sql.DB
}

// NewPostgresTemplatesRepository 创建模板Repository
func NewPostgresTemplatesRepository(db *sql.DB) *PostgresTemplatesRepository {
	return &PostgresTemplatesRepository{db: db}
}

var _ TemplatesRepository = (*PostgresTemplatesRepository)(nil)

// GetTemplateItems 获取某过渡点的模板行（按 sort_order）
func (r *PostgresTemplatesRepository) GetTemplateItems(ctx context.Context, transition domain.Transition) ([]*domain.GateCheckTemplate, error) {
	query := `
		SELECT
			template_id::text,
			tenant_id::text,
			transition,
			item_code,
			item_label,
			sort_order,
			is_blocking
		FROM gate_check_templates
		WHERE transition = $1
		ORDER BY sort_order
	`

	rows, err := r.db.QueryContext(ctx, query, string(transition))
	if err != nil {
		return nil, fmt.Errorf("failed to get template items: %w", err)
	}
	defer rows.Close()

	var templates []*domain.GateCheckTemplate
	for rows.Next() {
		var t domain.GateCheckTemplate
		var tenantID sql.NullString
		if err := rows.Scan(&t.TemplateID, &tenantID, &t.Transition, &t.ItemCode,
			&t.ItemLabel, &t.SortOrder, &t.IsBlocking); err != nil {
			return nil, fmt.Errorf("failed to scan template item: %w", err)
		}
		if tenantID.Valid {
			t.TenantID = &tenantID.String
		}
		templates = append(templates, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate template items: %w", err)
	}

	return templates, nil
}
