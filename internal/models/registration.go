package models

import "time"

// RegistrationStatus tracks the lifecycle of an account request.
type RegistrationStatus string

const (
	RegistrationStatusPending  RegistrationStatus = "PENDING"
	RegistrationStatusApproved RegistrationStatus = "APPROVED"
	RegistrationStatusRejected RegistrationStatus = "REJECTED"
)

// WorkflowStatus tracks the lifecycle of an approval workflow.
type WorkflowStatus string

const (
	WorkflowStatusActive    WorkflowStatus = "ACTIVE"
	WorkflowStatusCompleted WorkflowStatus = "COMPLETED"
	WorkflowStatusRejected  WorkflowStatus = "REJECTED"
)

// ApprovalDecision is an approver action on a workflow step.
type ApprovalDecision string

const (
	DecisionApprove ApprovalDecision = "APPROVE"
	DecisionReject  ApprovalDecision = "REJECT"
)

// RegistrationRequest is a pending account request. It is created once by
// the requester and mutated exactly once by the terminal approval decision.
type RegistrationRequest struct {
	ID            string             `db:"id" json:"id"`
	Email         string             `db:"email" json:"email"`
	FullName      string             `db:"full_name" json:"full_name"`
	RequestedRole UserRole           `db:"requested_role" json:"requested_role"`
	CollegeID     string             `db:"college_id" json:"college_id"`
	DepartmentID  *string            `db:"department_id" json:"department_id,omitempty"`
	Section       *string            `db:"section" json:"section,omitempty"`
	AcademicYear  *string            `db:"academic_year" json:"academic_year,omitempty"`
	PasswordHash  string             `db:"password_hash" json:"-"`
	Status        RegistrationStatus `db:"status" json:"status"`
	RejectReason  *string            `db:"reject_reason" json:"reject_reason,omitempty"`
	CreatedAt     time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time          `db:"updated_at" json:"updated_at"`
}

// ApprovalWorkflow is the 1:1 approval chain instance owned by a
// registration request. CurrentApproverID may be nil when no user holding
// the current role could be resolved yet.
type ApprovalWorkflow struct {
	ID                  string         `db:"id" json:"id"`
	RequestID           string         `db:"request_id" json:"request_id"`
	RequestType         string         `db:"request_type" json:"request_type"`
	CurrentApproverRole UserRole       `db:"current_approver_role" json:"current_approver_role"`
	CurrentApproverID   *string        `db:"current_approver_id" json:"current_approver_id,omitempty"`
	Status              WorkflowStatus `db:"status" json:"status"`
	DecidedBy           *string        `db:"decided_by" json:"decided_by,omitempty"`
	DecidedAt           *time.Time     `db:"decided_at" json:"decided_at,omitempty"`
	Reason              *string        `db:"reason" json:"reason,omitempty"`
	CreatedAt           time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time      `db:"updated_at" json:"updated_at"`
}
