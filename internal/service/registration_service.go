package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/Kishore-Procode/work-flow-lms-api-sub000/internal/dto"
	"github.com/Kishore-Procode/work-flow-lms-api-sub000/internal/models"
	appErrors "github.com/Kishore-Procode/work-flow-lms-api-sub000/pkg/errors"
)

type registrationStore interface {
	GetRequest(ctx context.Context, id string) (*models.RegistrationRequest, error)
	GetWorkflowByRequestID(ctx context.Context, requestID string) (*models.ApprovalWorkflow, error)
	ListPendingForApprover(ctx context.Context, approverID string) ([]dto.PendingApprovalItem, error)
	PendingEmailExists(ctx context.Context, email string) (bool, error)
}

type registrationUserDirectory interface {
	EmailExists(ctx context.Context, email string) (bool, error)
}

type workflowEngine interface {
	Create(ctx context.Context, request *models.RegistrationRequest) (*models.ApprovalWorkflow, error)
	Advance(ctx context.Context, workflowID, actorID string, decision models.ApprovalDecision, reason string) (*models.ApprovalWorkflow, error)
}

// RegistrationService accepts account requests and relays approver
// decisions into the workflow engine.
type RegistrationService struct {
	store     registrationStore
	users     registrationUserDirectory
	workflows workflowEngine
	validator *validator.Validate
	logger    *zap.Logger
}

// NewRegistrationService constructs the service.
func NewRegistrationService(store registrationStore, users registrationUserDirectory, workflows workflowEngine, validate *validator.Validate, logger *zap.Logger) *RegistrationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RegistrationService{
		store:     store,
		users:     users,
		workflows: workflows,
		validator: validate,
		logger:    logger,
	}
}

// Register validates a new account request and hands it to the workflow
// engine, which persists the request and its workflow atomically.
func (s *RegistrationService) Register(ctx context.Context, req dto.RegisterRequest) (*dto.RegistrationView, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}
	role := models.UserRole(strings.ToUpper(strings.TrimSpace(req.RequestedRole)))
	switch role {
	case models.RoleStudent, models.RoleStaff, models.RoleHOD, models.RolePrincipal:
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "requested_role must be one of student, staff, hod, principal")
	}
	if role != models.RolePrincipal && (req.DepartmentID == nil || *req.DepartmentID == "") {
		return nil, appErrors.Clone(appErrors.ErrValidation, "department_id is required for this role")
	}
	if role == models.RoleStudent && (req.AcademicYear == nil || *req.AcademicYear == "") {
		return nil, appErrors.Clone(appErrors.ErrValidation, "academic_year is required for students")
	}
	if req.AcademicYear != nil && *req.AcademicYear != "" {
		if _, err := models.ParseEnrollment(*req.AcademicYear); err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "academic_year must look like 2025-2029")
		}
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	taken, err := s.users.EmailExists(ctx, email)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing users")
	}
	if !taken {
		taken, err = s.store.PendingEmailExists(ctx, email)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check pending requests")
		}
	}
	if taken {
		return nil, appErrors.Clone(appErrors.ErrConflict, "an account or pending request already exists for this email")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	request := &models.RegistrationRequest{
		ID:            uuid.NewString(),
		Email:         email,
		FullName:      strings.TrimSpace(req.FullName),
		RequestedRole: role,
		CollegeID:     req.CollegeID,
		DepartmentID:  req.DepartmentID,
		Section:       req.Section,
		AcademicYear:  req.AcademicYear,
		PasswordHash:  string(hash),
		Status:        models.RegistrationStatusPending,
	}
	workflow, err := s.workflows.Create(ctx, request)
	if err != nil {
		return nil, err
	}
	return requestView(request, workflow), nil
}

// PendingForApprover lists requests currently waiting on the actor.
func (s *RegistrationService) PendingForApprover(ctx context.Context, claims *models.JWTClaims) ([]dto.PendingApprovalItem, error) {
	if claims == nil {
		return nil, appErrors.ErrUnauthorized
	}
	switch claims.Role {
	case models.RoleAdmin, models.RolePrincipal, models.RoleHOD, models.RoleStaff:
	default:
		return nil, appErrors.ErrForbidden
	}
	items, err := s.store.ListPendingForApprover(ctx, claims.UserID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list pending approvals")
	}
	return items, nil
}

// Decide applies the actor's decision to a workflow.
func (s *RegistrationService) Decide(ctx context.Context, workflowID string, req dto.DecisionRequest, claims *models.JWTClaims) (*dto.WorkflowView, error) {
	if claims == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid decision payload")
	}
	decision := models.ApprovalDecision(strings.ToUpper(req.Decision))
	if decision == models.DecisionReject && strings.TrimSpace(req.Reason) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "a reason is required when rejecting")
	}

	workflow, err := s.workflows.Advance(ctx, workflowID, claims.UserID, decision, strings.TrimSpace(req.Reason))
	if err != nil {
		return nil, err
	}
	return workflowView(workflow), nil
}

// Status returns the request plus its workflow for the requester to poll.
func (s *RegistrationService) Status(ctx context.Context, requestID string) (*dto.RegistrationView, error) {
	request, err := s.store.GetRequest(ctx, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "registration request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load registration request")
	}
	workflow, err := s.store.GetWorkflowByRequestID(ctx, requestID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load workflow")
	}
	return requestView(request, workflow), nil
}

func requestView(request *models.RegistrationRequest, workflow *models.ApprovalWorkflow) *dto.RegistrationView {
	view := &dto.RegistrationView{
		ID:            request.ID,
		Email:         request.Email,
		FullName:      request.FullName,
		RequestedRole: request.RequestedRole,
		CollegeID:     request.CollegeID,
		DepartmentID:  request.DepartmentID,
		Status:        request.Status,
		CreatedAt:     request.CreatedAt,
	}
	if workflow != nil {
		view.Workflow = workflowView(workflow)
	}
	return view
}

func workflowView(workflow *models.ApprovalWorkflow) *dto.WorkflowView {
	return &dto.WorkflowView{
		ID:                  workflow.ID,
		RequestID:           workflow.RequestID,
		CurrentApproverRole: workflow.CurrentApproverRole,
		CurrentApproverID:   workflow.CurrentApproverID,
		Status:              workflow.Status,
		DecidedBy:           workflow.DecidedBy,
		DecidedAt:           workflow.DecidedAt,
		Reason:              workflow.Reason,
	}
}
