package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/Kishore-Procode/work-flow-lms-api-sub000/internal/models"
)

func TestUserRepositoryFindByEmail(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewUserRepository(db)
	rows := sqlmock.NewRows([]string{"id", "email", "password_hash", "full_name", "role", "college_id", "department_id", "class_in_charge", "academic_year", "active", "last_login", "created_at", "updated_at"}).
		AddRow("user-1", "hod@example.edu", "$2a$10$hash", "Head Of Dept", "HOD", "college-1", "dept-cs", nil, nil, true, nil, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, email, password_hash")).
		WithArgs("hod@example.edu").
		WillReturnRows(rows)

	user, err := repo.FindByEmail(context.Background(), "hod@example.edu")
	require.NoError(t, err)
	require.Equal(t, models.RoleHOD, user.Role)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryDirectoryLookups(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewUserRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM users")).
		WithArgs("STAFF", "dept-cs", "CS-A").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("staff-1"))
	id, err := repo.FindStaffByClassInCharge(context.Background(), "dept-cs", "CS-A")
	require.NoError(t, err)
	require.Equal(t, "staff-1", id)

	// nobody holding the role resolves to an empty ID, not an error
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM users")).
		WithArgs("HOD", "dept-ee").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	id, err = repo.FindActiveHOD(context.Background(), "dept-ee")
	require.NoError(t, err)
	require.Empty(t, id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryActivePrincipalExists(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewUserRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
		WithArgs("PRINCIPAL", "college-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.ActivePrincipalExists(context.Background(), "college-1")
	require.NoError(t, err)
	require.True(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryMaterialize(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewUserRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	dept := "dept-cs"
	year := "2025-2029"
	request := &models.RegistrationRequest{
		ID:            "req-1",
		Email:         "student@example.edu",
		FullName:      "A Student",
		RequestedRole: models.RoleStudent,
		CollegeID:     "college-1",
		DepartmentID:  &dept,
		AcademicYear:  &year,
		PasswordHash:  "$2a$10$hash",
	}
	require.NoError(t, repo.Materialize(context.Background(), request))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryAcademicYear(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewUserRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT academic_year FROM users")).
		WithArgs("student-1").
		WillReturnRows(sqlmock.NewRows([]string{"academic_year"}).AddRow("2025-2029"))

	year, err := repo.AcademicYear(context.Background(), "student-1")
	require.NoError(t, err)
	require.Equal(t, "2025-2029", year)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT academic_year FROM users")).
		WithArgs("staff-1").
		WillReturnRows(sqlmock.NewRows([]string{"academic_year"}).AddRow(nil))
	_, err = repo.AcademicYear(context.Background(), "staff-1")
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
