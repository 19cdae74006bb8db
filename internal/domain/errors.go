package domain

import "errors"

// 错误分类：validation / conflict / not-found
// 存储层错误不在此定义，按 %w 原样向上传递

var (
	// 未找到类错误
	ErrLotNotFound           = errors.New("lot not found")
	ErrPhaseNotFound         = errors.New("phase not found")
	ErrCrewNotFound          = errors.New("crew not found")
	ErrAssignmentNotFound    = errors.New("phase assignment not found")
	ErrHouseItemNotFound     = errors.New("house item not found")
	ErrGateCheckNotFound     = errors.New("gate check not found")
	ErrGateCheckItemNotFound = errors.New("gate check item not found")

	// 校验类错误（同步拒绝，不自动重试）
	ErrPhotoRequired           = errors.New("photo_url is required")
	ErrResolvedPhotoRequired   = errors.New("resolved_photo is required")
	ErrInvalidItemType         = errors.New("invalid house item type")
	ErrInvalidSeverity         = errors.New("invalid severity")
	ErrInvalidItemResult       = errors.New("invalid item result")
	ErrInvalidTransition       = errors.New("invalid transition")
	ErrInvalidAssignmentStatus = errors.New("invalid assignment status transition")
	ErrEmptyTemplate           = errors.New("no template configured for transition")
	ErrItemsPending            = errors.New("gate check has pending items")
	ErrAdvancementBlocked      = errors.New("lot cannot advance past current phase")

	// 冲突类错误（调用方应重新查询后再决定是否重试）
	ErrAlreadyResolved   = errors.New("house item already resolved")
	ErrGateCheckDone     = errors.New("gate check already completed")
	ErrGateCheckInFlight = errors.New("gate check already in progress for this lot and transition")
	ErrAssignmentActive  = errors.New("active assignment already exists for this lot and phase")
)

// IsNotFound 未找到类错误判定（调用方通常映射为 404）
func IsNotFound(err error) bool {
	for _, target := range []error{
		ErrLotNotFound, ErrPhaseNotFound, ErrCrewNotFound, ErrAssignmentNotFound,
		ErrHouseItemNotFound, ErrGateCheckNotFound, ErrGateCheckItemNotFound,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsConflict 冲突类错误判定（调用方通常映射为 409）
func IsConflict(err error) bool {
	for _, target := range []error{
		ErrAlreadyResolved, ErrGateCheckDone, ErrGateCheckInFlight, ErrAssignmentActive,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsValidation 校验类错误判定（调用方通常映射为 400/422）
func IsValidation(err error) bool {
	for _, target := range []error{
		ErrPhotoRequired, ErrResolvedPhotoRequired, ErrInvalidItemType, ErrInvalidSeverity,
		ErrInvalidItemResult, ErrInvalidTransition, ErrInvalidAssignmentStatus,
		ErrEmptyTemplate, ErrItemsPending, ErrAdvancementBlocked,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
