package domain

import "time"

// Lot 地块领域模型（对应 lots 表）
// 一个地块即一栋在建房屋，按阶段目录顺序推进
type Lot struct {
	// 主键
	LotID string `db:"lot_id"` // UUID, PRIMARY KEY

	// 租户（透传，不在本层做隔离校验）
	TenantID string `db:"tenant_id"` // UUID, NOT NULL

	// 所属工地
	JobsiteID string `db:"jobsite_id"` // UUID, NOT NULL

	// 地块编号（工地内展示用）
	LotNumber string `db:"lot_number"` // VARCHAR(50), NOT NULL

	// 当前阶段（可空：未开工地块尚无阶段）
	CurrentPhase *PhaseID `db:"current_phase"` // VARCHAR(30), nullable, CHECK IN phase catalog

	// 生命周期状态
	Status LotStatus `db:"status"` // VARCHAR(30), NOT NULL, DEFAULT 'pending'

	// 销售/交房元数据
	Sellable    bool       `db:"sellable"`     // BOOLEAN, DEFAULT FALSE
	ClosingDate *time.Time `db:"closing_date"` // DATE, nullable

	// 时间戳
	CreatedAt time.Time `db:"created_at"` // TIMESTAMPTZ, NOT NULL
	UpdatedAt time.Time `db:"updated_at"` // TIMESTAMPTZ, NOT NULL
}
