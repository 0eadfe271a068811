package dto

import (
	"time"

	"github.com/Kishore-Procode/work-flow-lms-api-sub000/internal/models"
)

// RegisterRequest is the public account request payload.
type RegisterRequest struct {
	Email         string  `json:"email" validate:"required,email"`
	FullName      string  `json:"full_name" validate:"required"`
	Password      string  `json:"password" validate:"required,min=8"`
	RequestedRole string  `json:"requested_role" validate:"required"`
	CollegeID     string  `json:"college_id" validate:"required"`
	DepartmentID  *string `json:"department_id,omitempty"`
	Section       *string `json:"section,omitempty"`
	AcademicYear  *string `json:"academic_year,omitempty"`
}

// RegistrationView is the request state returned to callers.
type RegistrationView struct {
	ID            string                    `json:"id"`
	Email         string                    `json:"email"`
	FullName      string                    `json:"full_name"`
	RequestedRole models.UserRole           `json:"requested_role"`
	CollegeID     string                    `json:"college_id"`
	DepartmentID  *string                   `json:"department_id,omitempty"`
	Status        models.RegistrationStatus `json:"status"`
	CreatedAt     time.Time                 `json:"created_at"`
	Workflow      *WorkflowView             `json:"workflow,omitempty"`
}

// WorkflowView is the approval chain state returned to callers.
type WorkflowView struct {
	ID                  string                `json:"id"`
	RequestID           string                `json:"request_id"`
	CurrentApproverRole models.UserRole       `json:"current_approver_role"`
	CurrentApproverID   *string               `json:"current_approver_id,omitempty"`
	Status              models.WorkflowStatus `json:"status"`
	DecidedBy           *string               `json:"decided_by,omitempty"`
	DecidedAt           *time.Time            `json:"decided_at,omitempty"`
	Reason              *string               `json:"reason,omitempty"`
}

// DecisionRequest is an approver action payload.
type DecisionRequest struct {
	Decision string `json:"decision" validate:"required,oneof=APPROVE REJECT"`
	Reason   string `json:"reason,omitempty"`
}

// PendingApprovalItem is one actionable request in an approver's queue.
type PendingApprovalItem struct {
	WorkflowID    string          `json:"workflow_id"`
	RequestID     string          `json:"request_id"`
	Email         string          `json:"email"`
	FullName      string          `json:"full_name"`
	RequestedRole models.UserRole `json:"requested_role"`
	CollegeID     string          `json:"college_id"`
	DepartmentID  *string         `json:"department_id,omitempty"`
	RequestedAt   time.Time       `json:"requested_at"`
}
