package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/Kishore-Procode/work-flow-lms-api-sub000/internal/models"
	"github.com/Kishore-Procode/work-flow-lms-api-sub000/internal/service"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestRegistrationRepositoryOpenWorkflowAndGet(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewRegistrationRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO registration_requests")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO approval_workflows")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	dept := "dept-cs"
	request := &models.RegistrationRequest{
		Email:         "student@example.edu",
		FullName:      "A Student",
		RequestedRole: models.RoleStudent,
		CollegeID:     "college-1",
		DepartmentID:  &dept,
		PasswordHash:  "$2a$10$hash",
	}
	workflow := &models.ApprovalWorkflow{
		RequestType:         "registration",
		CurrentApproverRole: models.RoleStaff,
	}
	require.NoError(t, repo.OpenWorkflow(context.Background(), request, workflow))
	require.NotEmpty(t, request.ID)
	require.Equal(t, models.RegistrationStatusPending, request.Status)
	require.Equal(t, request.ID, workflow.RequestID)
	require.Equal(t, models.WorkflowStatusActive, workflow.Status)

	rows := sqlmock.NewRows([]string{"id", "email", "full_name", "requested_role", "college_id", "department_id", "section", "academic_year", "password_hash", "status", "reject_reason", "created_at", "updated_at"}).
		AddRow(request.ID, request.Email, request.FullName, "STUDENT", "college-1", dept, nil, nil, request.PasswordHash, "PENDING", nil, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, email, full_name, requested_role")).
		WithArgs(request.ID).
		WillReturnRows(rows)

	found, err := repo.GetRequest(context.Background(), request.ID)
	require.NoError(t, err)
	require.Equal(t, request.Email, found.Email)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationRepositoryOpenWorkflowRollsBack(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewRegistrationRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO registration_requests")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO approval_workflows")).
		WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	request := &models.RegistrationRequest{
		Email:         "student@example.edu",
		RequestedRole: models.RoleStudent,
		CollegeID:     "college-1",
	}
	workflow := &models.ApprovalWorkflow{RequestType: "registration", CurrentApproverRole: models.RoleStaff}
	err := repo.OpenWorkflow(context.Background(), request, workflow)
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationRepositoryAdvanceWorkflowStep(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewRegistrationRepository(db)
	approver := "hod-1"
	mock.ExpectExec(regexp.QuoteMeta("UPDATE approval_workflows")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.AdvanceWorkflowStep(context.Background(), "wf-1", models.RoleHOD, &approver))

	// a workflow already decided matches zero rows
	mock.ExpectExec(regexp.QuoteMeta("UPDATE approval_workflows")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.AdvanceWorkflowStep(context.Background(), "wf-1", models.RoleHOD, &approver)
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationRepositoryFinalizeDecision(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewRegistrationRepository(db)
	params := service.FinalizeDecisionParams{
		WorkflowID:     "wf-1",
		RequestID:      "req-1",
		WorkflowStatus: models.WorkflowStatusCompleted,
		RequestStatus:  models.RegistrationStatusApproved,
		DecidedBy:      "admin-1",
		DecidedAt:      time.Now().UTC(),
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE approval_workflows")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE registration_requests")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	require.NoError(t, repo.FinalizeDecision(context.Background(), params))

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE approval_workflows")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()
	err := repo.FinalizeDecision(context.Background(), params)
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationRepositoryPendingChecks(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewRegistrationRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
		WithArgs("student@example.edu", "PENDING").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	exists, err := repo.PendingEmailExists(context.Background(), "student@example.edu")
	require.NoError(t, err)
	require.True(t, exists)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
		WithArgs("college-1", "PRINCIPAL", "PENDING", "req-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	exists, err = repo.PendingPrincipalExists(context.Background(), "college-1", "req-1")
	require.NoError(t, err)
	require.False(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationRepositoryListPendingForApprover(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewRegistrationRepository(db)
	rows := sqlmock.NewRows([]string{"workflow_id", "request_id", "email", "full_name", "requested_role", "college_id", "department_id", "requested_at"}).
		AddRow("wf-1", "req-1", "student@example.edu", "A Student", "STUDENT", "college-1", "dept-cs", time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT w.id AS workflow_id")).
		WithArgs("ACTIVE", "staff-1").
		WillReturnRows(rows)

	items, err := repo.ListPendingForApprover(context.Background(), "staff-1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "wf-1", items[0].WorkflowID)
	require.Equal(t, models.RoleStudent, items[0].RequestedRole)
	require.NoError(t, mock.ExpectationsWereMet())
}
