package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/Kishore-Procode/work-flow-lms-api-sub000/internal/dto"
	"github.com/Kishore-Procode/work-flow-lms-api-sub000/internal/models"
	"github.com/Kishore-Procode/work-flow-lms-api-sub000/internal/service"
)

const requestColumns = `id, email, full_name, requested_role, college_id, department_id, section, academic_year, password_hash, status, reject_reason, created_at, updated_at`

const workflowColumns = `id, request_id, request_type, current_approver_role, current_approver_id, status, decided_by, decided_at, reason, created_at, updated_at`

// RegistrationRepository persists registration requests, their approval
// workflows, and related audit entries.
type RegistrationRepository struct {
	db *sqlx.DB
}

// NewRegistrationRepository constructs the repository.
func NewRegistrationRepository(db *sqlx.DB) *RegistrationRepository {
	return &RegistrationRepository{db: db}
}

// OpenWorkflow inserts a registration request and its approval workflow in
// one transaction. Neither row exists without the other, so a failed intake
// cannot strand a pending request that blocks its email or college.
func (r *RegistrationRepository) OpenWorkflow(ctx context.Context, request *models.RegistrationRequest, workflow *models.ApprovalWorkflow) error {
	if request.ID == "" {
		request.ID = uuid.NewString()
	}
	if request.Status == "" {
		request.Status = models.RegistrationStatusPending
	}
	if workflow.ID == "" {
		workflow.ID = uuid.NewString()
	}
	if workflow.Status == "" {
		workflow.Status = models.WorkflowStatusActive
	}
	workflow.RequestID = request.ID
	now := time.Now().UTC()
	if request.CreatedAt.IsZero() {
		request.CreatedAt = now
	}
	request.UpdatedAt = now
	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}
	workflow.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin open workflow: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const requestQuery = `INSERT INTO registration_requests
		(id, email, full_name, requested_role, college_id, department_id, section, academic_year, password_hash, status, created_at, updated_at)
		VALUES (:id, :email, :full_name, :requested_role, :college_id, :department_id, :section, :academic_year, :password_hash, :status, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, requestQuery, request); err != nil {
		return fmt.Errorf("insert registration request: %w", err)
	}

	const workflowQuery = `INSERT INTO approval_workflows
		(id, request_id, request_type, current_approver_role, current_approver_id, status, created_at, updated_at)
		VALUES (:id, :request_id, :request_type, :current_approver_role, :current_approver_id, :status, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, workflowQuery, workflow); err != nil {
		return fmt.Errorf("insert approval workflow: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit open workflow: %w", err)
	}
	return nil
}

// GetRequest fetches a registration request by identifier.
func (r *RegistrationRepository) GetRequest(ctx context.Context, id string) (*models.RegistrationRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM registration_requests WHERE id = $1 LIMIT 1`
	var request models.RegistrationRequest
	if err := r.db.GetContext(ctx, &request, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get registration request: %w", err)
	}
	return &request, nil
}

// PendingEmailExists reports whether a pending request already uses the
// email.
func (r *RegistrationRepository) PendingEmailExists(ctx context.Context, email string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM registration_requests WHERE email = $1 AND status = $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, email, models.RegistrationStatusPending); err != nil {
		return false, fmt.Errorf("check pending email: %w", err)
	}
	return exists, nil
}

// PendingPrincipalExists reports whether another principal request for the
// college is still pending.
func (r *RegistrationRepository) PendingPrincipalExists(ctx context.Context, collegeID, excludeRequestID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM registration_requests
		WHERE college_id = $1 AND requested_role = $2 AND status = $3 AND id <> $4)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, collegeID, models.RolePrincipal, models.RegistrationStatusPending, excludeRequestID); err != nil {
		return false, fmt.Errorf("check pending principal: %w", err)
	}
	return exists, nil
}

// GetWorkflow fetches a workflow by identifier.
func (r *RegistrationRepository) GetWorkflow(ctx context.Context, id string) (*models.ApprovalWorkflow, error) {
	query := `SELECT ` + workflowColumns + ` FROM approval_workflows WHERE id = $1 LIMIT 1`
	var workflow models.ApprovalWorkflow
	if err := r.db.GetContext(ctx, &workflow, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get approval workflow: %w", err)
	}
	return &workflow, nil
}

// GetWorkflowByRequestID fetches the workflow owned by a request.
func (r *RegistrationRepository) GetWorkflowByRequestID(ctx context.Context, requestID string) (*models.ApprovalWorkflow, error) {
	query := `SELECT ` + workflowColumns + ` FROM approval_workflows WHERE request_id = $1 LIMIT 1`
	var workflow models.ApprovalWorkflow
	if err := r.db.GetContext(ctx, &workflow, query, requestID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get workflow by request: %w", err)
	}
	return &workflow, nil
}

// AdvanceWorkflowStep hands an active workflow to the next role. The status
// guard makes a concurrent decision lose with sql.ErrNoRows.
func (r *RegistrationRepository) AdvanceWorkflowStep(ctx context.Context, workflowID string, role models.UserRole, approverID *string) error {
	const query = `UPDATE approval_workflows
		SET current_approver_role = $2, current_approver_id = $3, updated_at = $4
		WHERE id = $1 AND status = $5`
	result, err := r.db.ExecContext(ctx, query, workflowID, role, approverID, time.Now().UTC(), models.WorkflowStatusActive)
	if err != nil {
		return fmt.Errorf("advance workflow step: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check workflow advance rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// FinalizeDecision applies the terminal decision to the workflow and its
// owning request in one transaction. The status guards make a second
// decision lose with sql.ErrNoRows.
func (r *RegistrationRepository) FinalizeDecision(ctx context.Context, params service.FinalizeDecisionParams) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin finalize decision: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const workflowQuery = `UPDATE approval_workflows
		SET status = $2, decided_by = $3, decided_at = $4, reason = $5, updated_at = $4
		WHERE id = $1 AND status = $6`
	result, err := tx.ExecContext(ctx, workflowQuery,
		params.WorkflowID, params.WorkflowStatus, params.DecidedBy, params.DecidedAt, params.Reason,
		models.WorkflowStatusActive)
	if err != nil {
		return fmt.Errorf("finalize workflow: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check workflow finalize rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}

	const requestQuery = `UPDATE registration_requests
		SET status = $2, reject_reason = $3, updated_at = $4
		WHERE id = $1 AND status = $5`
	result, err = tx.ExecContext(ctx, requestQuery,
		params.RequestID, params.RequestStatus, params.Reason, params.DecidedAt,
		models.RegistrationStatusPending)
	if err != nil {
		return fmt.Errorf("finalize request: %w", err)
	}
	rows, err = result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check request finalize rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit finalize decision: %w", err)
	}
	return nil
}

// ListPendingForApprover returns requests whose workflow currently waits on
// the given user.
func (r *RegistrationRepository) ListPendingForApprover(ctx context.Context, approverID string) ([]dto.PendingApprovalItem, error) {
	const query = `SELECT w.id AS workflow_id, r.id AS request_id, r.email, r.full_name,
		r.requested_role, r.college_id, r.department_id, r.created_at AS requested_at
		FROM approval_workflows w
		JOIN registration_requests r ON r.id = w.request_id
		WHERE w.status = $1 AND w.current_approver_id = $2
		ORDER BY r.created_at`
	rows := make([]pendingApprovalRow, 0)
	if err := r.db.SelectContext(ctx, &rows, query, models.WorkflowStatusActive, approverID); err != nil {
		return nil, fmt.Errorf("list pending approvals: %w", err)
	}
	items := make([]dto.PendingApprovalItem, len(rows))
	for i, row := range rows {
		items[i] = dto.PendingApprovalItem{
			WorkflowID:    row.WorkflowID,
			RequestID:     row.RequestID,
			Email:         row.Email,
			FullName:      row.FullName,
			RequestedRole: row.RequestedRole,
			CollegeID:     row.CollegeID,
			DepartmentID:  row.DepartmentID,
			RequestedAt:   row.RequestedAt,
		}
	}
	return items, nil
}

type pendingApprovalRow struct {
	WorkflowID    string          `db:"workflow_id"`
	RequestID     string          `db:"request_id"`
	Email         string          `db:"email"`
	FullName      string          `db:"full_name"`
	RequestedRole models.UserRole `db:"requested_role"`
	CollegeID     string          `db:"college_id"`
	DepartmentID  *string         `db:"department_id"`
	RequestedAt   time.Time       `db:"requested_at"`
}

// CreateAuditLog stores an audit log entry.
func (r *RegistrationRepository) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO audit_logs
		(id, user_id, action, resource, resource_id, old_values, new_values, ip_address, user_agent, created_at)
		VALUES (:id, :user_id, :action, :resource, :resource_id, :old_values, :new_values, :ip_address, :user_agent, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, log); err != nil {
		return fmt.Errorf("create audit log: %w", err)
	}
	return nil
}
