package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/Kishore-Procode/work-flow-lms-api-sub000/internal/models"
)

const userColumns = `id, email, password_hash, full_name, role, college_id, department_id, class_in_charge, academic_year, active, last_login, created_at, updated_at`

// UserRepository provides database access for user accounts and the
// approver directory lookups.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByEmail returns a user by email address.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1 LIMIT 1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, email); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return &user, nil
}

// FindByID returns a user by identifier.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 LIMIT 1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return &user, nil
}

// UpdateLastLogin updates the last_login timestamp for a user.
func (r *UserRepository) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	const query = `UPDATE users SET last_login = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, ts, ts); err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	return nil
}

// EmailExists reports whether an account already uses the email.
func (r *UserRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, email); err != nil {
		return false, fmt.Errorf("check user email: %w", err)
	}
	return exists, nil
}

// AcademicYear returns the enrollment span stored for a student account.
func (r *UserRepository) AcademicYear(ctx context.Context, userID string) (string, error) {
	const query = `SELECT academic_year FROM users WHERE id = $1 LIMIT 1`
	var year sql.NullString
	if err := r.db.GetContext(ctx, &year, query, userID); err != nil {
		if err == sql.ErrNoRows {
			return "", err
		}
		return "", fmt.Errorf("load academic year: %w", err)
	}
	if !year.Valid {
		return "", fmt.Errorf("user %s has no academic year", userID)
	}
	return year.String, nil
}

// FindStaffByClassInCharge returns the active staff member assigned to a
// section within a department, or an empty ID when none is.
func (r *UserRepository) FindStaffByClassInCharge(ctx context.Context, departmentID, section string) (string, error) {
	const query = `SELECT id FROM users
		WHERE role = $1 AND department_id = $2 AND class_in_charge = $3 AND active = TRUE
		ORDER BY created_at LIMIT 1`
	return r.firstID(ctx, query, models.RoleStaff, departmentID, section)
}

// FindActiveStaff returns any active staff member in the department.
func (r *UserRepository) FindActiveStaff(ctx context.Context, departmentID string) (string, error) {
	const query = `SELECT id FROM users
		WHERE role = $1 AND department_id = $2 AND active = TRUE
		ORDER BY created_at LIMIT 1`
	return r.firstID(ctx, query, models.RoleStaff, departmentID)
}

// FindActiveHOD returns the active head of the department.
func (r *UserRepository) FindActiveHOD(ctx context.Context, departmentID string) (string, error) {
	const query = `SELECT id FROM users
		WHERE role = $1 AND department_id = $2 AND active = TRUE
		ORDER BY created_at LIMIT 1`
	return r.firstID(ctx, query, models.RoleHOD, departmentID)
}

// FindActivePrincipal returns the active principal of the college.
func (r *UserRepository) FindActivePrincipal(ctx context.Context, collegeID string) (string, error) {
	const query = `SELECT id FROM users
		WHERE role = $1 AND college_id = $2 AND active = TRUE
		ORDER BY created_at LIMIT 1`
	return r.firstID(ctx, query, models.RolePrincipal, collegeID)
}

// FindActiveAdmin returns any active admin user.
func (r *UserRepository) FindActiveAdmin(ctx context.Context) (string, error) {
	const query = `SELECT id FROM users
		WHERE role = $1 AND active = TRUE
		ORDER BY created_at LIMIT 1`
	return r.firstID(ctx, query, models.RoleAdmin)
}

// ActivePrincipalExists reports whether the college already has a live
// principal account.
func (r *UserRepository) ActivePrincipalExists(ctx context.Context, collegeID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM users WHERE role = $1 AND college_id = $2 AND active = TRUE)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, models.RolePrincipal, collegeID); err != nil {
		return false, fmt.Errorf("check active principal: %w", err)
	}
	return exists, nil
}

// Materialize creates a live user from an approved registration request,
// carrying the stored password hash over unchanged.
func (r *UserRepository) Materialize(ctx context.Context, request *models.RegistrationRequest) error {
	now := time.Now().UTC()
	user := &models.User{
		ID:           uuid.NewString(),
		Email:        request.Email,
		PasswordHash: request.PasswordHash,
		FullName:     request.FullName,
		Role:         request.RequestedRole,
		CollegeID:    request.CollegeID,
		DepartmentID: request.DepartmentID,
		AcademicYear: request.AcademicYear,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	const query = `INSERT INTO users
		(id, email, password_hash, full_name, role, college_id, department_id, academic_year, active, created_at, updated_at)
		VALUES (:id, :email, :password_hash, :full_name, :role, :college_id, :department_id, :academic_year, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, user); err != nil {
		return fmt.Errorf("materialize user: %w", err)
	}
	return nil
}

func (r *UserRepository) firstID(ctx context.Context, query string, args ...interface{}) (string, error) {
	var id string
	if err := r.db.GetContext(ctx, &id, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", fmt.Errorf("find user id: %w", err)
	}
	return id, nil
}
