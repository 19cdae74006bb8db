package domain

import "time"

// GateCheckTemplate 闸口检查模板行（对应 gate_check_templates 表）
// 静态数据：每个过渡点一组检查项定义，种入后不在运行期变更
// is_blocking 决定该行 fail 时整次检查是否必然 failed
type GateCheckTemplate struct {
	// 主键
	TemplateID string `db:"template_id"` // UUID, PRIMARY KEY

	// 租户（透传，可空=平台级模板）
	TenantID *string `db:"tenant_id"` // UUID, nullable

	// 过渡点
	Transition Transition `db:"transition"` // VARCHAR(30), NOT NULL

	// 检查项定义
	ItemCode   string `db:"item_code"`   // VARCHAR(50), NOT NULL
	ItemLabel  string `db:"item_label"`  // VARCHAR(200), NOT NULL
	SortOrder  int    `db:"sort_order"`  // INT, NOT NULL
	IsBlocking bool   `db:"is_blocking"` // BOOLEAN, NOT NULL
}

// GateCheck 闸口检查实例（对应 gate_checks 表）
// 状态机：in_progress → passed | failed，终态后不可再变更
// 创建时从模板快照出全部检查项，之后模板编辑不影响已创建的检查
type GateCheck struct {
	// 主键
	GateCheckID string `db:"gate_check_id"` // UUID, PRIMARY KEY

	// 租户
	TenantID string `db:"tenant_id"` // UUID, NOT NULL

	// 检查对象
	LotID      string     `db:"lot_id"`     // UUID, NOT NULL, FK to lots
	Transition Transition `db:"transition"` // VARCHAR(30), NOT NULL

	// 检查人
	CheckedBy string `db:"checked_by"` // UUID, NOT NULL

	// 状态
	Status GateCheckStatus `db:"status"` // VARCHAR(20), NOT NULL, DEFAULT 'in_progress'

	// 时间信息
	StartedAt   time.Time  `db:"started_at"`   // TIMESTAMPTZ, NOT NULL
	CompletedAt *time.Time `db:"completed_at"` // TIMESTAMPTZ, nullable
	ReleasedAt  *time.Time `db:"released_at"`  // TIMESTAMPTZ, nullable（仅 passed 时写入）
}

// GateCheckItem 检查项实例（对应 gate_check_items 表）
// item_code/item_label 在创建时从模板拷贝；is_blocking 不拷贝，
// 完成决策时从模板重新取（策略归模板，作者信息归实例）
type GateCheckItem struct {
	// 主键
	GateCheckItemID string `db:"gate_check_item_id"` // UUID, PRIMARY KEY

	// 租户
	TenantID string `db:"tenant_id"` // UUID, NOT NULL

	// 所属检查
	GateCheckID string `db:"gate_check_id"` // UUID, NOT NULL, FK to gate_checks

	// 快照字段
	ItemCode  string `db:"item_code"`  // VARCHAR(50), NOT NULL
	ItemLabel string `db:"item_label"` // VARCHAR(200), NOT NULL
	SortOrder int    `db:"sort_order"` // INT, NOT NULL

	// 结果
	Result ItemResult `db:"result"` // VARCHAR(10), NOT NULL, DEFAULT 'pending'

	// 附加信息
	PhotoURL *string `db:"photo_url"` // TEXT, nullable
	Notes    *string `db:"notes"`     // TEXT, nullable

	// 因本行 fail 上报的房屋问题
	DeficiencyID *string `db:"deficiency_id"` // UUID, nullable, FK to house_items
}
