package domain

import "time"

// Crew 施工班组领域模型（对应 crews 表）
type Crew struct {
	// 主键
	CrewID string `db:"crew_id"` // UUID, PRIMARY KEY

	// 租户
	TenantID string `db:"tenant_id"` // UUID, NOT NULL

	// 班组名称和负责人
	CrewName string `db:"crew_name"` // VARCHAR(100), NOT NULL
	LeadName string `db:"lead_name"` // VARCHAR(100), NOT NULL

	// 工种（如 framing/roofing/electrical）
	Specialty string `db:"specialty"` // VARCHAR(50), nullable

	// 合规元数据
	InsuranceNumber *string    `db:"insurance_number"` // VARCHAR(100), nullable
	InsuranceExpiry *time.Time `db:"insurance_expiry"` // DATE, nullable

	// 时间戳
	CreatedAt time.Time `db:"created_at"` // TIMESTAMPTZ, NOT NULL
}

// PhaseAssignment 派工记录（对应 phase_assignments 表）
// 绑定 一个地块+一个阶段 到 一个班组
// 约束：同一 (lot, phase) 同时最多一条活动（非 cancelled）记录，
// 由存储层部分唯一索引保证；路由查询仍按创建时间倒序取最新以兼容历史数据
type PhaseAssignment struct {
	// 主键
	AssignmentID string `db:"assignment_id"` // UUID, PRIMARY KEY

	// 租户
	TenantID string `db:"tenant_id"` // UUID, NOT NULL

	// 绑定关系
	LotID   string  `db:"lot_id"`   // UUID, NOT NULL, FK to lots
	PhaseID PhaseID `db:"phase_id"` // VARCHAR(30), NOT NULL
	CrewID  string  `db:"crew_id"`  // UUID, NOT NULL, FK to crews

	// 状态：assigned → started → completed，任意状态可 cancelled（逻辑取消，不删除）
	Status AssignmentStatus `db:"status"` // VARCHAR(20), NOT NULL, DEFAULT 'assigned'

	// 派工人
	AssignedBy string `db:"assigned_by"` // UUID, NOT NULL

	// 作业时间
	StartedAt   *time.Time `db:"started_at"`   // TIMESTAMPTZ, nullable
	CompletedAt *time.Time `db:"completed_at"` // TIMESTAMPTZ, nullable

	// 时间戳
	CreatedAt time.Time `db:"created_at"` // TIMESTAMPTZ, NOT NULL
}
