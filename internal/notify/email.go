package notify

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Kishore-Procode/work-flow-lms-api-sub000/internal/models"
	"github.com/Kishore-Procode/work-flow-lms-api-sub000/pkg/mailer"
)

type userFinder interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// EmailNotifier delivers workflow notifications over SMTP. It satisfies the
// approval service's notifier contract; delivery failures surface as errors
// for the caller to log, never to act on.
type EmailNotifier struct {
	mail   *mailer.Mailer
	users  userFinder
	logger *zap.Logger
}

// NewEmailNotifier constructs the notifier.
func NewEmailNotifier(mail *mailer.Mailer, users userFinder, logger *zap.Logger) *EmailNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmailNotifier{mail: mail, users: users, logger: logger}
}

// NotifyApprover tells the resolved approver a request waits on them.
func (n *EmailNotifier) NotifyApprover(ctx context.Context, approverID string, request *models.RegistrationRequest) error {
	approver, err := n.users.FindByID(ctx, approverID)
	if err != nil {
		return fmt.Errorf("find approver %s: %w", approverID, err)
	}
	subject := "A registration request awaits your approval"
	body := fmt.Sprintf("Hello %s,\n\n%s (%s) has requested a %s account and the request now waits on you.\n",
		approver.FullName, request.FullName, request.Email, request.RequestedRole)
	return n.mail.Send(approver.Email, subject, body)
}

// NotifyOutcome tells the requester how their request ended.
func (n *EmailNotifier) NotifyOutcome(ctx context.Context, request *models.RegistrationRequest, approved bool, reason string) error {
	subject := "Your registration request was rejected"
	body := fmt.Sprintf("Hello %s,\n\nYour %s account request was rejected.", request.FullName, request.RequestedRole)
	if approved {
		subject = "Your registration request was approved"
		body = fmt.Sprintf("Hello %s,\n\nYour %s account request was approved. You can now sign in with the credentials you registered.",
			request.FullName, request.RequestedRole)
	} else if reason != "" {
		body += fmt.Sprintf(" Reason: %s", reason)
	}
	return n.mail.Send(request.Email, subject, body+"\n")
}
