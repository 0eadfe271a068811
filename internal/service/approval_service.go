package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Kishore-Procode/work-flow-lms-api-sub000/internal/models"
	appErrors "github.com/Kishore-Procode/work-flow-lms-api-sub000/pkg/errors"
)

// firstApprover maps a requested role to the role that opens its chain.
// Any role not listed routes straight to admin.
var firstApprover = map[models.UserRole]models.UserRole{
	models.RoleStudent:   models.RoleStaff,
	models.RoleStaff:     models.RoleHOD,
	models.RoleHOD:       models.RolePrincipal,
	models.RolePrincipal: models.RoleAdmin,
}

// nextApprover advances the chain toward admin, which is always terminal.
var nextApprover = map[models.UserRole]models.UserRole{
	models.RoleStaff:     models.RoleHOD,
	models.RoleHOD:       models.RolePrincipal,
	models.RolePrincipal: models.RoleAdmin,
}

// FirstApproverRole returns the role opening the chain for a requested role.
func FirstApproverRole(requested models.UserRole) models.UserRole {
	if role, ok := firstApprover[requested]; ok {
		return role
	}
	return models.RoleAdmin
}

// nextRole returns the role after current, or false when current closes the
// chain.
func nextRole(current models.UserRole) (models.UserRole, bool) {
	role, ok := nextApprover[current]
	return role, ok
}

// ApproverScope narrows approver resolution to the requester's institution.
type ApproverScope struct {
	CollegeID    string
	DepartmentID *string
	Section      *string
}

// ApproverResolver finds a concrete user holding a role within a scope. An
// empty ID with a nil error means nobody currently holds the role; that is
// not a failure.
type ApproverResolver interface {
	Resolve(ctx context.Context, scope ApproverScope) (string, error)
}

// ApproverResolverFunc allows plain functions as resolvers.
type ApproverResolverFunc func(ctx context.Context, scope ApproverScope) (string, error)

// Resolve implements ApproverResolver.
func (f ApproverResolverFunc) Resolve(ctx context.Context, scope ApproverScope) (string, error) {
	return f(ctx, scope)
}

type approvalStore interface {
	OpenWorkflow(ctx context.Context, request *models.RegistrationRequest, workflow *models.ApprovalWorkflow) error
	GetWorkflow(ctx context.Context, id string) (*models.ApprovalWorkflow, error)
	GetRequest(ctx context.Context, id string) (*models.RegistrationRequest, error)
	AdvanceWorkflowStep(ctx context.Context, workflowID string, role models.UserRole, approverID *string) error
	FinalizeDecision(ctx context.Context, params FinalizeDecisionParams) error
	PendingPrincipalExists(ctx context.Context, collegeID, excludeRequestID string) (bool, error)
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// FinalizeDecisionParams carries the single terminal mutation applied to a
// workflow and its owning request together.
type FinalizeDecisionParams struct {
	WorkflowID     string
	RequestID      string
	WorkflowStatus models.WorkflowStatus
	RequestStatus  models.RegistrationStatus
	DecidedBy      string
	DecidedAt      time.Time
	Reason         *string
}

type principalDirectory interface {
	ActivePrincipalExists(ctx context.Context, collegeID string) (bool, error)
}

// AccountMaterializer creates a live user from an approved request. Invoked
// exactly once, on final approval, with the stored password hash untouched.
type AccountMaterializer interface {
	Materialize(ctx context.Context, request *models.RegistrationRequest) error
}

// WorkflowNotifier delivers approval notifications. Failures are logged
// and never affect the state transition.
type WorkflowNotifier interface {
	NotifyApprover(ctx context.Context, approverID string, request *models.RegistrationRequest) error
	NotifyOutcome(ctx context.Context, request *models.RegistrationRequest, approved bool, reason string) error
}

type resolverCache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, userID string)
	Delete(ctx context.Context, key string)
}

type cacheKeyFunc func(role models.UserRole, collegeID string, departmentID *string) string

// ApprovalService drives a registration request through its role chain with
// single-mutation state transitions.
type ApprovalService struct {
	store     approvalStore
	principal principalDirectory
	resolvers map[models.UserRole]ApproverResolver
	cache     resolverCache
	cacheKey  cacheKeyFunc
	accounts  AccountMaterializer
	notifier  WorkflowNotifier
	logger    *zap.Logger
	now       func() time.Time
}

// ApprovalServiceOption configures the service.
type ApprovalServiceOption func(*ApprovalService)

// WithResolverCache plugs in the TTL cache for approver resolution.
func WithResolverCache(cache resolverCache, keyFn cacheKeyFunc) ApprovalServiceOption {
	return func(s *ApprovalService) {
		s.cache = cache
		if keyFn != nil {
			s.cacheKey = keyFn
		}
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) ApprovalServiceOption {
	return func(s *ApprovalService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewApprovalService constructs the workflow engine.
func NewApprovalService(
	store approvalStore,
	principal principalDirectory,
	resolvers map[models.UserRole]ApproverResolver,
	accounts AccountMaterializer,
	notifier WorkflowNotifier,
	logger *zap.Logger,
	opts ...ApprovalServiceOption,
) *ApprovalService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &ApprovalService{
		store:     store,
		principal: principal,
		resolvers: resolvers,
		accounts:  accounts,
		notifier:  notifier,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
		cacheKey: func(role models.UserRole, collegeID string, departmentID *string) string {
			return ""
		},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// ResolveApprover finds the concrete user for a role within a scope, going
// through the TTL cache when one is configured.
func (s *ApprovalService) ResolveApprover(ctx context.Context, role models.UserRole, scope ApproverScope) (string, error) {
	key := s.cacheKey(role, scope.CollegeID, scope.DepartmentID)
	if s.cache != nil && key != "" {
		if id, ok := s.cache.Get(ctx, key); ok {
			return id, nil
		}
	}
	resolver, ok := s.resolvers[role]
	if !ok {
		return "", nil
	}
	id, err := resolver.Resolve(ctx, scope)
	if err != nil {
		return "", err
	}
	if s.cache != nil && key != "" && id != "" {
		s.cache.Set(ctx, key, id)
	}
	return id, nil
}

// Create persists a pending registration request together with its approval
// workflow in one transaction, so a failure here strands neither row. A
// missing approver leaves the workflow actionable once one exists; it is not
// an error.
func (s *ApprovalService) Create(ctx context.Context, request *models.RegistrationRequest) (*models.ApprovalWorkflow, error) {
	if request == nil || request.ID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "registration request is required")
	}
	if request.RequestedRole == models.RolePrincipal {
		if err := s.ensureNoPrincipalConflict(ctx, request); err != nil {
			return nil, err
		}
	}

	role := FirstApproverRole(request.RequestedRole)
	approverID, err := s.ResolveApprover(ctx, role, scopeOf(request))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve first approver")
	}

	workflow := &models.ApprovalWorkflow{
		ID:                  uuid.NewString(),
		RequestID:           request.ID,
		RequestType:         "registration",
		CurrentApproverRole: role,
		Status:              models.WorkflowStatusActive,
	}
	if approverID != "" {
		workflow.CurrentApproverID = &approverID
	} else {
		s.logger.Info("no approver resolved at workflow creation",
			zap.String("request_id", request.ID),
			zap.String("role", string(role)))
	}

	if err := s.store.OpenWorkflow(ctx, request, workflow); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open registration workflow")
	}

	s.emitAudit(ctx, &models.AuditLog{
		Action:     models.AuditActionRegistrationCreate,
		Resource:   "registration_request",
		ResourceID: &request.ID,
	})
	if approverID != "" {
		s.notifyApprover(ctx, approverID, request)
	}
	return workflow, nil
}

// Advance applies one approver decision to an active workflow. A reject is
// terminal. An approve either hands the chain to the next role or, at the
// final role, approves the request and materializes the account.
func (s *ApprovalService) Advance(ctx context.Context, workflowID, actorID string, decision models.ApprovalDecision, reason string) (*models.ApprovalWorkflow, error) {
	workflow, err := s.store.GetWorkflow(ctx, workflowID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "workflow not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load workflow")
	}
	if workflow.Status != models.WorkflowStatusActive {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "workflow has already been decided")
	}

	request, err := s.store.GetRequest(ctx, workflow.RequestID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load registration request")
	}

	// A step created without a resolvable approver stays locked until one
	// exists; it never falls open to arbitrary actors.
	if workflow.CurrentApproverID == nil {
		resolved, err := s.ResolveApprover(ctx, workflow.CurrentApproverRole, scopeOf(request))
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve step approver")
		}
		if resolved == "" {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "no approver is currently assigned to this step")
		}
		if err := s.store.AdvanceWorkflowStep(ctx, workflow.ID, workflow.CurrentApproverRole, &resolved); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "workflow has already been decided")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign step approver")
		}
		workflow.CurrentApproverID = &resolved
	}
	if *workflow.CurrentApproverID != actorID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "you are not the assigned approver for this step")
	}

	switch decision {
	case models.DecisionReject:
		return s.reject(ctx, workflow, request, actorID, reason)
	case models.DecisionApprove:
		return s.approve(ctx, workflow, request, actorID)
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "decision must be APPROVE or REJECT")
	}
}

func (s *ApprovalService) reject(ctx context.Context, workflow *models.ApprovalWorkflow, request *models.RegistrationRequest, actorID, reason string) (*models.ApprovalWorkflow, error) {
	now := s.now()
	params := FinalizeDecisionParams{
		WorkflowID:     workflow.ID,
		RequestID:      request.ID,
		WorkflowStatus: models.WorkflowStatusRejected,
		RequestStatus:  models.RegistrationStatusRejected,
		DecidedBy:      actorID,
		DecidedAt:      now,
	}
	if reason != "" {
		params.Reason = &reason
	}
	if err := s.store.FinalizeDecision(ctx, params); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "workflow has already been decided")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record rejection")
	}

	s.evictScope(ctx, workflow.CurrentApproverRole, request)
	workflow.Status = models.WorkflowStatusRejected
	workflow.DecidedBy = &actorID
	workflow.DecidedAt = &now
	workflow.Reason = params.Reason
	request.Status = models.RegistrationStatusRejected

	s.emitDecisionAudit(ctx, actorID, workflow, workflow.CurrentApproverRole, string(models.DecisionReject), reason)
	s.notifyOutcome(ctx, request, false, reason)
	return workflow, nil
}

func (s *ApprovalService) approve(ctx context.Context, workflow *models.ApprovalWorkflow, request *models.RegistrationRequest, actorID string) (*models.ApprovalWorkflow, error) {
	next, hasNext := nextRole(workflow.CurrentApproverRole)
	if !hasNext {
		return s.finalApprove(ctx, workflow, request, actorID)
	}

	decidedRole := workflow.CurrentApproverRole
	approverID, err := s.ResolveApprover(ctx, next, scopeOf(request))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve next approver")
	}
	var approverPtr *string
	if approverID != "" {
		approverPtr = &approverID
	}
	if err := s.store.AdvanceWorkflowStep(ctx, workflow.ID, next, approverPtr); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "workflow has already been decided")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to advance workflow")
	}

	s.evictScope(ctx, workflow.CurrentApproverRole, request)
	workflow.CurrentApproverRole = next
	workflow.CurrentApproverID = approverPtr

	s.emitDecisionAudit(ctx, actorID, workflow, decidedRole, string(models.DecisionApprove), "")
	if approverID != "" {
		s.notifyApprover(ctx, approverID, request)
	} else {
		s.logger.Info("no approver resolved for next step",
			zap.String("workflow_id", workflow.ID),
			zap.String("role", string(next)))
	}
	return workflow, nil
}

func (s *ApprovalService) finalApprove(ctx context.Context, workflow *models.ApprovalWorkflow, request *models.RegistrationRequest, actorID string) (*models.ApprovalWorkflow, error) {
	// Time passes between request creation and final approval, so the
	// principal uniqueness invariant is re-checked here as well.
	if request.RequestedRole == models.RolePrincipal {
		if err := s.ensureNoPrincipalConflict(ctx, request); err != nil {
			return nil, err
		}
	}

	now := s.now()
	params := FinalizeDecisionParams{
		WorkflowID:     workflow.ID,
		RequestID:      request.ID,
		WorkflowStatus: models.WorkflowStatusCompleted,
		RequestStatus:  models.RegistrationStatusApproved,
		DecidedBy:      actorID,
		DecidedAt:      now,
	}
	if err := s.store.FinalizeDecision(ctx, params); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "workflow has already been decided")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record approval")
	}

	s.evictScope(ctx, workflow.CurrentApproverRole, request)
	workflow.Status = models.WorkflowStatusCompleted
	workflow.DecidedBy = &actorID
	workflow.DecidedAt = &now
	request.Status = models.RegistrationStatusApproved

	s.emitDecisionAudit(ctx, actorID, workflow, workflow.CurrentApproverRole, string(models.DecisionApprove), "")

	if err := s.accounts.Materialize(ctx, request); err != nil {
		// The decision stands; the account must be retried out of band.
		s.logger.Error("account materialization failed after final approval",
			zap.String("request_id", request.ID), zap.Error(err))
		return workflow, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "request approved but account creation failed")
	}
	s.emitAudit(ctx, &models.AuditLog{
		UserID:     &actorID,
		Action:     models.AuditActionAccountMaterialized,
		Resource:   "registration_request",
		ResourceID: &request.ID,
	})
	s.notifyOutcome(ctx, request, true, "")
	return workflow, nil
}

func (s *ApprovalService) ensureNoPrincipalConflict(ctx context.Context, request *models.RegistrationRequest) error {
	active, err := s.principal.ActivePrincipalExists(ctx, request.CollegeID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check active principal")
	}
	if active {
		return appErrors.Clone(appErrors.ErrPrincipalConflict, "college already has an active principal")
	}
	pending, err := s.store.PendingPrincipalExists(ctx, request.CollegeID, request.ID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check pending principal requests")
	}
	if pending {
		return appErrors.Clone(appErrors.ErrPrincipalConflict, "another principal request for this college is pending")
	}
	return nil
}

func scopeOf(request *models.RegistrationRequest) ApproverScope {
	return ApproverScope{
		CollegeID:    request.CollegeID,
		DepartmentID: request.DepartmentID,
		Section:      request.Section,
	}
}

func (s *ApprovalService) evictScope(ctx context.Context, role models.UserRole, request *models.RegistrationRequest) {
	if s.cache == nil {
		return
	}
	if key := s.cacheKey(role, request.CollegeID, request.DepartmentID); key != "" {
		s.cache.Delete(ctx, key)
	}
}

func (s *ApprovalService) notifyApprover(ctx context.Context, approverID string, request *models.RegistrationRequest) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyApprover(ctx, approverID, request); err != nil {
		s.logger.Warn("approver notification failed",
			zap.String("approver_id", approverID),
			zap.String("request_id", request.ID),
			zap.Error(err))
	}
}

func (s *ApprovalService) notifyOutcome(ctx context.Context, request *models.RegistrationRequest, approved bool, reason string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyOutcome(ctx, request, approved, reason); err != nil {
		s.logger.Warn("outcome notification failed",
			zap.String("request_id", request.ID),
			zap.Error(err))
	}
}

func (s *ApprovalService) emitDecisionAudit(ctx context.Context, actorID string, workflow *models.ApprovalWorkflow, role models.UserRole, decision, reason string) {
	payload, _ := json.Marshal(map[string]string{
		"decision": decision,
		"role":     string(role),
		"reason":   reason,
	})
	s.emitAudit(ctx, &models.AuditLog{
		UserID:     &actorID,
		Action:     models.AuditActionWorkflowDecision,
		Resource:   "approval_workflow",
		ResourceID: &workflow.ID,
		NewValues:  payload,
	})
}

func (s *ApprovalService) emitAudit(ctx context.Context, log *models.AuditLog) {
	log.IPAddress = "system"
	log.UserAgent = "approval-service"
	if err := s.store.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.Error(err))
	}
}
