package domain

// Phase 施工阶段目录条目（静态数据，启动时种入，运行期只读）
type Phase struct {
	ID          PhaseID `db:"phase_id"`
	Name        string  `db:"phase_name"`
	SortOrder   int     `db:"sort_order"`   // 全局总排序（地块推进顺序）
	IsBackframe bool    `db:"is_backframe"` // 属于 backframe 子序列
	IsOptional  bool    `db:"is_optional"`  // 可跳过（如无地下室地块跳过 backframe_basement）
}

// phaseCatalog 9个固定阶段，按 SortOrder 排序
// 注意：顺序即推进顺序，不要调整
var phaseCatalog = []Phase{
	{ID: PhaseFoundation, Name: "Foundation", SortOrder: 1},
	{ID: PhaseWalls1, Name: "Walls - First Lift", SortOrder: 2},
	{ID: PhaseWalls2, Name: "Walls - Second Lift", SortOrder: 3},
	{ID: PhaseRoof, Name: "Roof", SortOrder: 4},
	{ID: PhaseTradesRough, Name: "Trades Rough-In", SortOrder: 5},
	{ID: PhaseBackframeBasement, Name: "Backframe - Basement", SortOrder: 6, IsBackframe: true, IsOptional: true},
	{ID: PhaseBackframeMain, Name: "Backframe - Main Floor", SortOrder: 7, IsBackframe: true},
	{ID: PhaseBackframeBacking, Name: "Backframe - Backing", SortOrder: 8, IsBackframe: true},
	{ID: PhaseFinalInspection, Name: "Final Inspection", SortOrder: 9},
}

// Phases 返回全部阶段（拷贝，调用方可自由修改）
func Phases() []Phase {
	out := make([]Phase, len(phaseCatalog))
	copy(out, phaseCatalog)
	return out
}

// GetPhase 按标识查找阶段
func GetPhase(id PhaseID) (Phase, error) {
	for _, p := range phaseCatalog {
		if p.ID == id {
			return p, nil
		}
	}
	return Phase{}, ErrPhaseNotFound
}

// NextPhase 返回下一个阶段；终点阶段返回 nil
func NextPhase(id PhaseID) (*Phase, error) {
	for i, p := range phaseCatalog {
		if p.ID == id {
			if i+1 >= len(phaseCatalog) {
				return nil, nil
			}
			next := phaseCatalog[i+1]
			return &next, nil
		}
	}
	return nil, ErrPhaseNotFound
}

// RequiredTransition 阶段 → 闸口检查映射（固定表）
// 注意：backframe_basement 对应的检查在"进入" backframe 时评估，
// 即 backframe 作业开始前必须 trades_to_backframe 已通过
func RequiredTransition(id PhaseID) (Transition, bool) {
	switch id {
	case PhaseWalls2:
		return TransitionFramingToRoofing, true
	case PhaseRoof:
		return TransitionRoofingToTrades, true
	case PhaseBackframeBasement:
		return TransitionTradesToBackframe, true
	case PhaseBackframeBacking:
		return TransitionBackframeToFinal, true
	}
	return "", false
}

// LotStatusForPhase 进入某阶段后地块应处的状态
func LotStatusForPhase(id PhaseID) LotStatus {
	switch id {
	case PhaseTradesRough:
		return LotPausedForTrades
	case PhaseBackframeBasement, PhaseBackframeMain, PhaseBackframeBacking:
		return LotBackframe
	case PhaseFinalInspection:
		return LotInspection
	}
	return LotInProgress
}
