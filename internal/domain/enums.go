package domain

// 本文件集中定义所有封闭枚举类型
// 原则：所有状态/类别字段使用强类型常量，不允许开放字符串

// PhaseID 施工阶段标识（9个固定阶段，见 phase.go 的目录定义）
type PhaseID string

const (
	PhaseFoundation        PhaseID = "foundation"
	PhaseWalls1            PhaseID = "walls_1"
	PhaseWalls2            PhaseID = "walls_2"
	PhaseRoof              PhaseID = "roof"
	PhaseTradesRough       PhaseID = "trades_rough"
	PhaseBackframeBasement PhaseID = "backframe_basement"
	PhaseBackframeMain     PhaseID = "backframe_main"
	PhaseBackframeBacking  PhaseID = "backframe_backing"
	PhaseFinalInspection   PhaseID = "final_inspection"
)

// Valid 检查阶段标识是否合法
func (p PhaseID) Valid() bool {
	switch p {
	case PhaseFoundation, PhaseWalls1, PhaseWalls2, PhaseRoof, PhaseTradesRough,
		PhaseBackframeBasement, PhaseBackframeMain, PhaseBackframeBacking, PhaseFinalInspection:
		return true
	}
	return false
}

// Transition 阶段闸口检查对应的4个固定过渡点
type Transition string

const (
	TransitionFramingToRoofing  Transition = "framing_to_roofing"
	TransitionRoofingToTrades   Transition = "roofing_to_trades"
	TransitionTradesToBackframe Transition = "trades_to_backframe"
	TransitionBackframeToFinal  Transition = "backframe_to_final"
)

// Valid 检查过渡点是否合法
func (t Transition) Valid() bool {
	switch t {
	case TransitionFramingToRoofing, TransitionRoofingToTrades,
		TransitionTradesToBackframe, TransitionBackframeToFinal:
		return true
	}
	return false
}

// Transitions 返回全部4个过渡点（固定顺序）
func Transitions() []Transition {
	return []Transition{
		TransitionFramingToRoofing,
		TransitionRoofingToTrades,
		TransitionTradesToBackframe,
		TransitionBackframeToFinal,
	}
}

// LotStatus 地块生命周期状态
type LotStatus string

const (
	LotPending         LotStatus = "pending"
	LotReleased        LotStatus = "released"
	LotInProgress      LotStatus = "in_progress"
	LotPausedForTrades LotStatus = "paused_for_trades"
	LotBackframe       LotStatus = "backframe"
	LotInspection      LotStatus = "inspection"
	LotCompleted       LotStatus = "completed"
)

func (s LotStatus) Valid() bool {
	switch s {
	case LotPending, LotReleased, LotInProgress, LotPausedForTrades,
		LotBackframe, LotInspection, LotCompleted:
		return true
	}
	return false
}

// AssignmentStatus 班组派工状态
type AssignmentStatus string

const (
	AssignmentAssigned  AssignmentStatus = "assigned"
	AssignmentStarted   AssignmentStatus = "started"
	AssignmentCompleted AssignmentStatus = "completed"
	AssignmentCancelled AssignmentStatus = "cancelled"
)

func (s AssignmentStatus) Valid() bool {
	switch s {
	case AssignmentAssigned, AssignmentStarted, AssignmentCompleted, AssignmentCancelled:
		return true
	}
	return false
}

// ItemType 房屋问题类型
type ItemType string

const (
	ItemDeficiency ItemType = "deficiency"
	ItemSafety     ItemType = "safety"
	ItemDamage     ItemType = "damage"
	ItemMissing    ItemType = "missing"
	ItemRework     ItemType = "rework"
	ItemNote       ItemType = "note"
)

func (t ItemType) Valid() bool {
	switch t {
	case ItemDeficiency, ItemSafety, ItemDamage, ItemMissing, ItemRework, ItemNote:
		return true
	}
	return false
}

// Severity 问题严重级别
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// ItemStatus 房屋问题处理状态
type ItemStatus string

const (
	ItemOpen       ItemStatus = "open"
	ItemInProgress ItemStatus = "in_progress"
	ItemResolved   ItemStatus = "resolved"
)

func (s ItemStatus) Valid() bool {
	switch s {
	case ItemOpen, ItemInProgress, ItemResolved:
		return true
	}
	return false
}

// GateCheckStatus 闸口检查状态（in_progress 为唯一非终态）
type GateCheckStatus string

const (
	GateCheckInProgress GateCheckStatus = "in_progress"
	GateCheckPassed     GateCheckStatus = "passed"
	GateCheckFailed     GateCheckStatus = "failed"
)

func (s GateCheckStatus) Valid() bool {
	switch s {
	case GateCheckInProgress, GateCheckPassed, GateCheckFailed:
		return true
	}
	return false
}

// Terminal 是否为终态（passed/failed 之后不可再变更）
func (s GateCheckStatus) Terminal() bool {
	return s == GateCheckPassed || s == GateCheckFailed
}

// ItemResult 检查项结果
type ItemResult string

const (
	ResultPending ItemResult = "pending"
	ResultPass    ItemResult = "pass"
	ResultFail    ItemResult = "fail"
	ResultNA      ItemResult = "na"
)

func (r ItemResult) Valid() bool {
	switch r {
	case ResultPending, ResultPass, ResultFail, ResultNA:
		return true
	}
	return false
}
