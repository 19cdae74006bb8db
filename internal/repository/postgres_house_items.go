package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"sitelink-data/internal/domain"
)

// PostgresHouseItemsRepository 房屋问题Repository实现
type PostgresHouseItemsRepository struct {
	db *sql.DB
}

// NewPostgresHouseItemsRepository 创建房屋问题Repository
func NewPostgresHouseItemsRepository(db *sql.DB) *PostgresHouseItemsRepository {
	return &PostgresHouseItemsRepository{db: db}
}

var _ HouseItemsRepository = (*PostgresHouseItemsRepository)(nil)

const houseItemColumns = `
	item_id::text,
	tenant_id::text,
	lot_id::text,
	phase_id,
	crew_id::text,
	item_type,
	severity,
	title,
	description,
	photo_url,
	status,
	blocking,
	reported_by::text,
	reported_at,
	resolved_by::text,
	resolved_at,
	resolved_photo,
	resolution_note,
	gate_check_item_id::text
`

func scanHouseItem(row interface{ Scan(...any) error }) (*domain.HouseItem, error) {
	var item domain.HouseItem
	var phaseID, crewID, description sql.NullString
	var resolvedBy, resolvedPhoto, resolutionNote, gateCheckItemID sql.NullString
	var resolvedAt sql.NullTime

	err := row.Scan(
		&item.ItemID,
		&item.TenantID,
		&item.LotID,
		&phaseID,
		&crewID,
		&item.Type,
		&item.Severity,
		&item.Title,
		&description,
		&item.PhotoURL,
		&item.Status,
		&item.Blocking,
		&item.ReportedBy,
		&item.ReportedAt,
		&resolvedBy,
		&resolvedAt,
		&resolvedPhoto,
		&resolutionNote,
		&gateCheckItemID,
	)
	if err != nil {
		return nil, err
	}

	if phaseID.Valid {
		p := domain.PhaseID(phaseID.String)
		item.PhaseID = &p
	}
	if crewID.Valid {
		item.CrewID = &crewID.String
	}
	if description.Valid {
		item.Description = &description.String
	}
	if resolvedBy.Valid {
		item.ResolvedBy = &resolvedBy.String
	}
	if resolvedAt.Valid {
		item.ResolvedAt = &resolvedAt.Time
	}
	if resolvedPhoto.Valid {
		item.ResolvedPhoto = &resolvedPhoto.String
	}
	if resolutionNote.Valid {
		item.ResolutionNote = &resolutionNote.String
	}
	if gateCheckItemID.Valid {
		item.GateCheckItemID = &gateCheckItemID.String
	}

	return &item, nil
}

// GetHouseItem 获取问题记录
func (r *PostgresHouseItemsRepository) GetHouseItem(ctx context.Context, tenantID, itemID string) (*domain.HouseItem, error) {
	if tenantID == "" || itemID == "" {
		return nil, domain.ErrHouseItemNotFound
	}

	query := `
		SELECT ` + houseItemColumns + `
		FROM house_items
		WHERE tenant_id = $1 AND item_id = $2
	`

	item, err := scanHouseItem(r.db.QueryRowContext(ctx, query, tenantID, itemID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrHouseItemNotFound
		}
		return nil, fmt.Errorf("failed to get house item: %w", err)
	}

	return item, nil
}

// ListHouseItems 查询某地块的问题记录，按上报时间倒序
func (r *PostgresHouseItemsRepository) ListHouseItems(ctx context.Context, tenantID, lotID string, filters *HouseItemFilters, page, size int) ([]*domain.HouseItem, int, error) {
	if tenantID == "" || lotID == "" {
		return []*domain.HouseItem{}, 0, nil
	}

	where := []string{"tenant_id = $1", "lot_id = $2"}
	args := []any{tenantID, lotID}
	argN := 3

	if filters != nil {
		if filters.PhaseID != "" {
			where = append(where, fmt.Sprintf("phase_id = $%d", argN))
			args = append(args, string(filters.PhaseID))
			argN++
		}
		if filters.CrewID != "" {
			where = append(where, fmt.Sprintf("crew_id = $%d", argN))
			args = append(args, filters.CrewID)
			argN++
		}
		if filters.Status != "" {
			where = append(where, fmt.Sprintf("status = $%d", argN))
			args = append(args, string(filters.Status))
			argN++
		}
		if filters.Type != "" {
			where = append(where, fmt.Sprintf("item_type = $%d", argN))
			args = append(args, string(filters.Type))
			argN++
		}
		if filters.Blocking != nil {
			where = append(where, fmt.Sprintf("blocking = $%d", argN))
			args = append(args, *filters.Blocking)
			argN++
		}
	}

	queryCount := `
		SELECT COUNT(*)
		FROM house_items
		WHERE ` + strings.Join(where, " AND ")
	var total int
	if err := r.db.QueryRowContext(ctx, queryCount, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count house items: %w", err)
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
		SELECT ` + houseItemColumns + `
		FROM house_items
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY reported_at DESC
		LIMIT $` + fmt.Sprintf("%d", argN) + ` OFFSET $` + fmt.Sprintf("%d", argN+1)

	rows, err := r.db.QueryContext(ctx, query, argsList...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list house items: %w", err)
	}
	defer rows.Close()

	var items []*domain.HouseItem
	for rows.Next() {
		item, err := scanHouseItem(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan house item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate house items: %w", err)
	}

	return items, total, nil
}

// CreateHouseItem 创建问题记录
func (r *PostgresHouseItemsRepository) CreateHouseItem(ctx context.Context, tenantID string, item *domain.HouseItem) (string, error) {
	if tenantID == "" {
		return "", fmt.Errorf("tenant_id is required")
	}
	if item.LotID == "" || item.ReportedBy == "" {
		return "", fmt.Errorf("lot_id and reported_by are required")
	}
	if item.PhotoURL == "" {
		return "", domain.ErrPhotoRequired
	}
	if item.Status == "" {
		item.Status = domain.ItemOpen
	}

	query := `
		INSERT INTO house_items (
			tenant_id,
			lot_id,
			phase_id,
			crew_id,
			item_type,
			severity,
			title,
			description,
			photo_url,
			status,
			blocking,
			reported_by,
			reported_at,
			gate_check_item_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING item_id::text
	`

	var phaseID, crewID, description, gateCheckItemID any
	if item.PhaseID != nil {
		phaseID = string(*item.PhaseID)
	}
	if item.CrewID != nil {
		crewID = *item.CrewID
	}
	if item.Description != nil {
		description = *item.Description
	}
	if item.GateCheckItemID != nil {
		gateCheckItemID = *item.GateCheckItemID
	}

	var itemID string
	err := r.db.QueryRowContext(ctx, query, tenantID, item.LotID, phaseID, crewID,
		string(item.Type), string(item.Severity), item.Title, description, item.PhotoURL,
		string(item.Status), item.Blocking, item.ReportedBy, item.ReportedAt, gateCheckItemID).Scan(&itemID)
	if err != nil {
		return "", fmt.Errorf("failed to create house item: %w", err)
	}

	return itemID, nil
}

// ResolveHouseItem 条件更新：仅从非 resolved 状态写入解决字段
// 并发解决同一问题时恰有一方 rowsAffected=1，另一方拿到 ErrAlreadyResolved
func (r *PostgresHouseItemsRepository) ResolveHouseItem(ctx context.Context, tenantID, itemID string, res *Resolution) error {
	if tenantID == "" || itemID == "" {
		return domain.ErrHouseItemNotFound
	}
	if res == nil || res.ResolvedPhoto == "" {
		return domain.ErrResolvedPhotoRequired
	}

	query := `
		UPDATE house_items
		SET
			status = 'resolved',
			resolved_by = $3,
			resolved_at = $4,
			resolved_photo = $5,
			resolution_note = $6
		WHERE tenant_id = $1 AND item_id = $2 AND status <> 'resolved'
	`

	var note any
	if res.ResolutionNote != nil {
		note = *res.ResolutionNote
	}

	result, err := r.db.ExecContext(ctx, query, tenantID, itemID, res.ResolvedBy,
		res.ResolvedAt, res.ResolvedPhoto, note)
	if err != nil {
		return fmt.Errorf("failed to resolve house item: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		// 区分"不存在"与"已解决"
		var status string
		err := r.db.QueryRowContext(ctx,
			`SELECT status FROM house_items WHERE tenant_id = $1 AND item_id = $2`,
			tenantID, itemID).Scan(&status)
		if err != nil {
			if err == sql.ErrNoRows {
				return domain.ErrHouseItemNotFound
			}
			return fmt.Errorf("failed to check house item status: %w", err)
		}
		return domain.ErrAlreadyResolved
	}

	return nil
}

// CountBlocking 统计未解决的阻塞问题数
func (r *PostgresHouseItemsRepository) CountBlocking(ctx context.Context, tenantID, lotID string, phase *domain.PhaseID) (int, error) {
	if tenantID == "" || lotID == "" {
		return 0, nil
	}

	where := []string{"tenant_id = $1", "lot_id = $2", "blocking = TRUE", "status <> 'resolved'"}
	args := []any{tenantID, lotID}
	if phase != nil {
		where = append(where, "phase_id = $3")
		args = append(args, string(*phase))
	}

	query := `
		SELECT COUNT(*)
		FROM house_items
		WHERE ` + strings.Join(where, " AND ")

	var count int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count blocking items: %w", err)
	}

	return count, nil
}

// CountBlockingByPhase 按阶段分组统计未解决阻塞问题数
func (r *PostgresHouseItemsRepository) CountBlockingByPhase(ctx context.Context, tenantID, lotID string) (map[domain.PhaseID]int, error) {
	counts := map[domain.PhaseID]int{}
	if tenantID == "" || lotID == "" {
		return counts, nil
	}

	query := `
		SELECT phase_id, COUNT(*)
		FROM house_items
		WHERE tenant_id = $1 AND lot_id = $2 AND blocking = TRUE AND status <> 'resolved' AND phase_id IS NOT NULL
		GROUP BY phase_id
	`

	rows, err := r.db.QueryContext(ctx, query, tenantID, lotID)
	if err != nil {
		return nil, fmt.Errorf("failed to count blocking items by phase: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var phase domain.PhaseID
		var count int
		if err := rows.Scan(&phase, &count); err != nil {
			return nil, fmt.Errorf("failed to scan blocking count: %w", err)
		}
		counts[phase] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate blocking counts: %w", err)
	}

	return counts, nil
}
