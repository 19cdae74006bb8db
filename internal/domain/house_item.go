package domain

import "time"

// HouseItem 房屋问题领域模型（对应 house_items 表）
// 现场上报的缺陷/安全/损坏等问题，可阻塞阶段推进
// 不变量：解决字段全有或全无 —— 要么完全未解决（全部为空），
// 要么完全已解决（resolved_by/resolved_at/resolved_photo 全部非空）
type HouseItem struct {
	// 主键
	ItemID string `db:"item_id"` // UUID, PRIMARY KEY

	// 租户
	TenantID string `db:"tenant_id"` // UUID, NOT NULL

	// 关联地块和阶段
	LotID   string   `db:"lot_id"`   // UUID, NOT NULL, FK to lots
	PhaseID *PhaseID `db:"phase_id"` // VARCHAR(30), nullable

	// 责任班组（经路由自动填写，不由上报方指定）
	CrewID *string `db:"crew_id"` // UUID, nullable, FK to crews

	// 问题类型和级别
	Type     ItemType `db:"item_type"` // VARCHAR(20), NOT NULL
	Severity Severity `db:"severity"`  // VARCHAR(20), NOT NULL

	// 内容
	Title       string  `db:"title"`       // VARCHAR(200), NOT NULL
	Description *string `db:"description"` // TEXT, nullable

	// 照片证据（必填：无照片不允许上报）
	PhotoURL string `db:"photo_url"` // TEXT, NOT NULL

	// 处理状态
	Status ItemStatus `db:"status"` // VARCHAR(20), NOT NULL, DEFAULT 'open'

	// 是否阻塞阶段推进（type=safety 时强制为 TRUE）
	Blocking bool `db:"blocking"` // BOOLEAN, NOT NULL, DEFAULT FALSE

	// 上报信息
	ReportedBy string    `db:"reported_by"` // UUID, NOT NULL
	ReportedAt time.Time `db:"reported_at"` // TIMESTAMPTZ, NOT NULL

	// 解决信息（仅在解决时一次性写入，resolved_photo 必填）
	ResolvedBy     *string    `db:"resolved_by"`     // UUID, nullable
	ResolvedAt     *time.Time `db:"resolved_at"`     // TIMESTAMPTZ, nullable
	ResolvedPhoto  *string    `db:"resolved_photo"`  // TEXT, nullable
	ResolutionNote *string    `db:"resolution_note"` // TEXT, nullable

	// 关联的闸口检查项（针对某检查项上报的问题）
	GateCheckItemID *string `db:"gate_check_item_id"` // UUID, nullable, FK to gate_check_items
}
