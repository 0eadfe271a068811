package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Kishore-Procode/work-flow-lms-api-sub000/internal/dto"
	"github.com/Kishore-Procode/work-flow-lms-api-sub000/internal/models"
	appErrors "github.com/Kishore-Procode/work-flow-lms-api-sub000/pkg/errors"
)

type registrationStoreStub struct {
	requests     map[string]*models.RegistrationRequest
	workflows    map[string]*models.ApprovalWorkflow
	pending      []dto.PendingApprovalItem
	pendingEmail bool
}

func newRegistrationStoreStub() *registrationStoreStub {
	return &registrationStoreStub{
		requests:  make(map[string]*models.RegistrationRequest),
		workflows: make(map[string]*models.ApprovalWorkflow),
	}
}

func (s *registrationStoreStub) GetRequest(ctx context.Context, id string) (*models.RegistrationRequest, error) {
	if req, ok := s.requests[id]; ok {
		return req, nil
	}
	return nil, sql.ErrNoRows
}

func (s *registrationStoreStub) GetWorkflowByRequestID(ctx context.Context, requestID string) (*models.ApprovalWorkflow, error) {
	if wf, ok := s.workflows[requestID]; ok {
		return wf, nil
	}
	return nil, sql.ErrNoRows
}

func (s *registrationStoreStub) ListPendingForApprover(ctx context.Context, approverID string) ([]dto.PendingApprovalItem, error) {
	return s.pending, nil
}

func (s *registrationStoreStub) PendingEmailExists(ctx context.Context, email string) (bool, error) {
	return s.pendingEmail, nil
}

type userDirectoryStub struct {
	exists bool
}

func (d *userDirectoryStub) EmailExists(ctx context.Context, email string) (bool, error) {
	return d.exists, nil
}

type workflowEngineStub struct {
	created  []*models.RegistrationRequest
	advanced []string
	workflow *models.ApprovalWorkflow
	err      error
}

func (e *workflowEngineStub) Create(ctx context.Context, request *models.RegistrationRequest) (*models.ApprovalWorkflow, error) {
	if e.err != nil {
		return nil, e.err
	}
	e.created = append(e.created, request)
	if e.workflow != nil {
		return e.workflow, nil
	}
	return &models.ApprovalWorkflow{ID: "wf-1", RequestID: request.ID, Status: models.WorkflowStatusActive}, nil
}

func (e *workflowEngineStub) Advance(ctx context.Context, workflowID, actorID string, decision models.ApprovalDecision, reason string) (*models.ApprovalWorkflow, error) {
	if e.err != nil {
		return nil, e.err
	}
	e.advanced = append(e.advanced, workflowID)
	return &models.ApprovalWorkflow{ID: workflowID, Status: models.WorkflowStatusCompleted}, nil
}

func strPtr(s string) *string { return &s }

func validRegisterRequest() dto.RegisterRequest {
	return dto.RegisterRequest{
		Email:         "New.Student@Example.edu",
		FullName:      "New Student",
		Password:      "s3cret-pass",
		RequestedRole: "student",
		CollegeID:     "college-1",
		DepartmentID:  strPtr("dept-cs"),
		Section:       strPtr("CS-A"),
		AcademicYear:  strPtr("2025-2029"),
	}
}

func TestRegisterStoresRequestAndOpensWorkflow(t *testing.T) {
	store := newRegistrationStoreStub()
	engine := &workflowEngineStub{}
	svc := NewRegistrationService(store, &userDirectoryStub{}, engine, nil, nil)

	view, err := svc.Register(context.Background(), validRegisterRequest())
	require.NoError(t, err)
	require.Len(t, engine.created, 1)

	stored := engine.created[0]
	require.Equal(t, "new.student@example.edu", stored.Email)
	require.Equal(t, models.RoleStudent, stored.RequestedRole)
	require.Equal(t, models.RegistrationStatusPending, stored.Status)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("s3cret-pass")))

	require.Equal(t, stored.ID, view.ID)
	require.NotNil(t, view.Workflow)
	require.Equal(t, models.WorkflowStatusActive, view.Workflow.Status)
}

func TestRegisterValidation(t *testing.T) {
	svc := NewRegistrationService(newRegistrationStoreStub(), &userDirectoryStub{}, &workflowEngineStub{}, nil, nil)

	cases := []struct {
		name   string
		mutate func(*dto.RegisterRequest)
	}{
		{"bad email", func(r *dto.RegisterRequest) { r.Email = "not-an-email" }},
		{"short password", func(r *dto.RegisterRequest) { r.Password = "short" }},
		{"admin role not requestable", func(r *dto.RegisterRequest) { r.RequestedRole = "admin" }},
		{"unknown role", func(r *dto.RegisterRequest) { r.RequestedRole = "janitor" }},
		{"student without department", func(r *dto.RegisterRequest) { r.DepartmentID = nil }},
		{"student without academic year", func(r *dto.RegisterRequest) { r.AcademicYear = nil }},
		{"malformed academic year", func(r *dto.RegisterRequest) { r.AcademicYear = strPtr("2025/2029") }},
		{"reversed academic year", func(r *dto.RegisterRequest) { r.AcademicYear = strPtr("2029-2025") }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := validRegisterRequest()
			tc.mutate(&req)
			_, err := svc.Register(context.Background(), req)
			require.Error(t, err)
			require.True(t, appErrors.Is(err, appErrors.ErrValidation))
		})
	}
}

func TestRegisterPrincipalNeedsNoDepartment(t *testing.T) {
	engine := &workflowEngineStub{}
	svc := NewRegistrationService(newRegistrationStoreStub(), &userDirectoryStub{}, engine, nil, nil)

	req := validRegisterRequest()
	req.RequestedRole = "principal"
	req.DepartmentID = nil
	req.AcademicYear = nil
	req.Section = nil

	_, err := svc.Register(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, models.RolePrincipal, engine.created[0].RequestedRole)
}

func TestRegisterFailedWorkflowLeavesNoRequestBehind(t *testing.T) {
	store := newRegistrationStoreStub()
	engine := &workflowEngineStub{err: appErrors.ErrPrincipalConflict}
	svc := NewRegistrationService(store, &userDirectoryStub{}, engine, nil, nil)

	_, err := svc.Register(context.Background(), validRegisterRequest())
	require.Error(t, err)
	require.True(t, appErrors.Is(err, appErrors.ErrPrincipalConflict))
	require.Empty(t, engine.created, "nothing may be persisted when the workflow cannot open")

	// the email is not poisoned by the failed attempt
	engine.err = nil
	_, err = svc.Register(context.Background(), validRegisterRequest())
	require.NoError(t, err)
	require.Len(t, engine.created, 1)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	t.Run("existing account", func(t *testing.T) {
		svc := NewRegistrationService(newRegistrationStoreStub(), &userDirectoryStub{exists: true}, &workflowEngineStub{}, nil, nil)
		_, err := svc.Register(context.Background(), validRegisterRequest())
		require.Error(t, err)
		require.True(t, appErrors.Is(err, appErrors.ErrConflict))
	})
	t.Run("pending request", func(t *testing.T) {
		store := newRegistrationStoreStub()
		store.pendingEmail = true
		svc := NewRegistrationService(store, &userDirectoryStub{}, &workflowEngineStub{}, nil, nil)
		_, err := svc.Register(context.Background(), validRegisterRequest())
		require.Error(t, err)
		require.True(t, appErrors.Is(err, appErrors.ErrConflict))
	})
}

func TestPendingForApproverRoleGate(t *testing.T) {
	store := newRegistrationStoreStub()
	store.pending = []dto.PendingApprovalItem{{WorkflowID: "wf-1", RequestID: "req-1"}}
	svc := NewRegistrationService(store, &userDirectoryStub{}, &workflowEngineStub{}, nil, nil)

	items, err := svc.PendingForApprover(context.Background(), &models.JWTClaims{UserID: "staff-1", Role: models.RoleStaff})
	require.NoError(t, err)
	require.Len(t, items, 1)

	_, err = svc.PendingForApprover(context.Background(), &models.JWTClaims{UserID: "stud-1", Role: models.RoleStudent})
	require.Error(t, err)
	require.True(t, appErrors.Is(err, appErrors.ErrForbidden))

	_, err = svc.PendingForApprover(context.Background(), nil)
	require.Error(t, err)
	require.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))
}

func TestDecideRejectRequiresReason(t *testing.T) {
	engine := &workflowEngineStub{}
	svc := NewRegistrationService(newRegistrationStoreStub(), &userDirectoryStub{}, engine, nil, nil)
	claims := &models.JWTClaims{UserID: "staff-1", Role: models.RoleStaff}

	_, err := svc.Decide(context.Background(), "wf-1", dto.DecisionRequest{Decision: "REJECT"}, claims)
	require.Error(t, err)
	require.True(t, appErrors.Is(err, appErrors.ErrValidation))
	require.Empty(t, engine.advanced)

	view, err := svc.Decide(context.Background(), "wf-1", dto.DecisionRequest{Decision: "REJECT", Reason: "incomplete"}, claims)
	require.NoError(t, err)
	require.Equal(t, "wf-1", view.ID)
	require.Equal(t, []string{"wf-1"}, engine.advanced)
}

func TestStatusNotFound(t *testing.T) {
	svc := NewRegistrationService(newRegistrationStoreStub(), &userDirectoryStub{}, &workflowEngineStub{}, nil, nil)
	_, err := svc.Status(context.Background(), "missing")
	require.Error(t, err)
	require.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestStatusIncludesWorkflow(t *testing.T) {
	store := newRegistrationStoreStub()
	store.requests["req-1"] = &models.RegistrationRequest{ID: "req-1", Email: "a@b.edu", Status: models.RegistrationStatusPending}
	store.workflows["req-1"] = &models.ApprovalWorkflow{ID: "wf-1", RequestID: "req-1", Status: models.WorkflowStatusActive, CurrentApproverRole: models.RoleStaff}
	svc := NewRegistrationService(store, &userDirectoryStub{}, &workflowEngineStub{}, nil, nil)

	view, err := svc.Status(context.Background(), "req-1")
	require.NoError(t, err)
	require.NotNil(t, view.Workflow)
	require.Equal(t, models.RoleStaff, view.Workflow.CurrentApproverRole)
}
