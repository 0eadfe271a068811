package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/Kishore-Procode/work-flow-lms-api-sub000/internal/models"
)

// approverDirectory is the user-directory surface the default resolvers
// need. Every lookup returns an empty ID when nobody matches.
type approverDirectory interface {
	FindStaffByClassInCharge(ctx context.Context, departmentID, section string) (string, error)
	FindActiveStaff(ctx context.Context, departmentID string) (string, error)
	FindActiveHOD(ctx context.Context, departmentID string) (string, error)
	FindActivePrincipal(ctx context.Context, collegeID string) (string, error)
	FindActiveAdmin(ctx context.Context) (string, error)
}

// DefaultResolvers builds the per-role resolution strategies used in
// production. New roles plug in here without touching the state machine.
func DefaultResolvers(directory approverDirectory, logger *zap.Logger) map[models.UserRole]ApproverResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return map[models.UserRole]ApproverResolver{
		models.RoleStaff:     &staffResolver{directory: directory, logger: logger},
		models.RoleHOD:       &hodResolver{directory: directory},
		models.RolePrincipal: &principalResolver{directory: directory},
		models.RoleAdmin:     &adminResolver{directory: directory},
	}
}

// staffResolver prefers the staff member in charge of the requester's
// class; any active staff in the department serves as fallback.
type staffResolver struct {
	directory approverDirectory
	logger    *zap.Logger
}

func (r *staffResolver) Resolve(ctx context.Context, scope ApproverScope) (string, error) {
	dept := ""
	if scope.DepartmentID != nil {
		dept = *scope.DepartmentID
	}
	if scope.Section != nil && *scope.Section != "" {
		id, err := r.directory.FindStaffByClassInCharge(ctx, dept, *scope.Section)
		if err != nil {
			return "", err
		}
		if id != "" {
			return id, nil
		}
		r.logger.Info("no class-in-charge staff found, falling back to department staff",
			zap.String("department_id", dept),
			zap.String("section", *scope.Section))
	}
	return r.directory.FindActiveStaff(ctx, dept)
}

type hodResolver struct {
	directory approverDirectory
}

func (r *hodResolver) Resolve(ctx context.Context, scope ApproverScope) (string, error) {
	dept := ""
	if scope.DepartmentID != nil {
		dept = *scope.DepartmentID
	}
	return r.directory.FindActiveHOD(ctx, dept)
}

type principalResolver struct {
	directory approverDirectory
}

func (r *principalResolver) Resolve(ctx context.Context, scope ApproverScope) (string, error) {
	return r.directory.FindActivePrincipal(ctx, scope.CollegeID)
}

type adminResolver struct {
	directory approverDirectory
}

func (r *adminResolver) Resolve(ctx context.Context, scope ApproverScope) (string, error) {
	return r.directory.FindActiveAdmin(ctx)
}
