package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"sitelink-data/internal/domain"
	"sitelink-data/internal/repository"
)

// CrewService 班组与派工管理服务接口
type CrewService interface {
	// GetCrew 获取班组
	GetCrew(ctx context.Context, tenantID, crewID string) (*domain.Crew, error)

	// ListCrews 批量查询班组
	ListCrews(ctx context.Context, tenantID string, page, size int) ([]*domain.Crew, int, error)

	// CreateCrew 创建班组
	CreateCrew(ctx context.Context, req CreateCrewRequest) (*domain.Crew, error)

	// AssignCrew 派工：绑定班组到 (lot, phase)
	AssignCrew(ctx context.Context, req AssignCrewRequest) (*domain.PhaseAssignment, error)

	// SetAssignmentStatus 推进派工状态（校验 assigned → started → completed；任意状态可 cancelled）
	SetAssignmentStatus(ctx context.Context, tenantID, assignmentID string, status domain.AssignmentStatus) (*domain.PhaseAssignment, error)

	// ListAssignments 批量查询派工记录
	ListAssignments(ctx context.Context, tenantID string, filters *repository.AssignmentFilters, page, size int) ([]*domain.PhaseAssignment, int, error)
}

type crewService struct {
	crewsRepo       repository.CrewsRepository
	assignmentsRepo repository.AssignmentsRepository
	lotsRepo        repository.LotsRepository
	logger          *zap.Logger
}

// NewCrewService 创建 CrewService 实例
func NewCrewService(
	crewsRepo repository.CrewsRepository,
	assignmentsRepo repository.AssignmentsRepository,
	lotsRepo repository.LotsRepository,
	logger *zap.Logger,
) CrewService {
	return &crewService{
		crewsRepo:       crewsRepo,
		assignmentsRepo: assignmentsRepo,
		lotsRepo:        lotsRepo,
		logger:          logger,
	}
}

// CreateCrewRequest 创建班组请求
type CreateCrewRequest struct {
	TenantID        string
	CrewName        string
	LeadName        string
	Specialty       string
	InsuranceNumber *string
	InsuranceExpiry *time.Time
}

// AssignCrewRequest 派工请求
type AssignCrewRequest struct {
	TenantID   string
	LotID      string
	Phase      domain.PhaseID
	CrewID     string
	AssignedBy string
}

func (s *crewService) GetCrew(ctx context.Context, tenantID, crewID string) (*domain.Crew, error) {
	return s.crewsRepo.GetCrew(ctx, tenantID, crewID)
}

func (s *crewService) ListCrews(ctx context.Context, tenantID string, page, size int) ([]*domain.Crew, int, error) {
	return s.crewsRepo.ListCrews(ctx, tenantID, page, size)
}

func (s *crewService) CreateCrew(ctx context.Context, req CreateCrewRequest) (*domain.Crew, error) {
	crew := &domain.Crew{
		CrewName:        req.CrewName,
		LeadName:        req.LeadName,
		Specialty:       req.Specialty,
		InsuranceNumber: req.InsuranceNumber,
		InsuranceExpiry: req.InsuranceExpiry,
	}

	crewID, err := s.crewsRepo.CreateCrew(ctx, req.TenantID, crew)
	if err != nil {
		return nil, err
	}

	return s.crewsRepo.GetCrew(ctx, req.TenantID, crewID)
}

func (s *crewService) AssignCrew(ctx context.Context, req AssignCrewRequest) (*domain.PhaseAssignment, error) {
	if !req.Phase.Valid() {
		return nil, domain.ErrPhaseNotFound
	}
	if _, err := s.lotsRepo.GetLot(ctx, req.TenantID, req.LotID); err != nil {
		return nil, err
	}
	if _, err := s.crewsRepo.GetCrew(ctx, req.TenantID, req.CrewID); err != nil {
		return nil, err
	}

	assignment := &domain.PhaseAssignment{
		LotID:      req.LotID,
		PhaseID:    req.Phase,
		CrewID:     req.CrewID,
		Status:     domain.AssignmentAssigned,
		AssignedBy: req.AssignedBy,
	}

	assignmentID, err := s.assignmentsRepo.CreateAssignment(ctx, req.TenantID, assignment)
	if err != nil {
		return nil, err
	}

	s.logger.Info("crew assigned",
		zap.String("assignment_id", assignmentID),
		zap.String("lot_id", req.LotID),
		zap.String("phase", string(req.Phase)),
		zap.String("crew_id", req.CrewID))

	return s.assignmentsRepo.GetAssignment(ctx, req.TenantID, assignmentID)
}

// assignmentTransitionAllowed 派工状态机
func assignmentTransitionAllowed(from, to domain.AssignmentStatus) bool {
	if to == domain.AssignmentCancelled {
		return from != domain.AssignmentCancelled
	}
	switch from {
	case domain.AssignmentAssigned:
		return to == domain.AssignmentStarted
	case domain.AssignmentStarted:
		return to == domain.AssignmentCompleted
	}
	return false
}

func (s *crewService) SetAssignmentStatus(ctx context.Context, tenantID, assignmentID string, status domain.AssignmentStatus) (*domain.PhaseAssignment, error) {
	if !status.Valid() {
		return nil, domain.ErrInvalidAssignmentStatus
	}

	current, err := s.assignmentsRepo.GetAssignment(ctx, tenantID, assignmentID)
	if err != nil {
		return nil, err
	}
	if !assignmentTransitionAllowed(current.Status, status) {
		return nil, domain.ErrInvalidAssignmentStatus
	}

	if err := s.assignmentsRepo.SetAssignmentStatus(ctx, tenantID, assignmentID, status, time.Now()); err != nil {
		return nil, err
	}

	return s.assignmentsRepo.GetAssignment(ctx, tenantID, assignmentID)
}

func (s *crewService) ListAssignments(ctx context.Context, tenantID string, filters *repository.AssignmentFilters, page, size int) ([]*domain.PhaseAssignment, int, error) {
	return s.assignmentsRepo.ListAssignments(ctx, tenantID, filters, page, size)
}
