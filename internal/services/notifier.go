package services

import "context"

type MessageKind string

const (
	MessageSelf       MessageKind = "self"
	MessageAssessor   MessageKind = "assessor"
	MessageInvitation MessageKind = "invitation"
	MessageReminder   MessageKind = "reminder"
)

// InvitationMessage carries everything a notifier needs to compose one email.
type InvitationMessage struct {
	Kind                  MessageKind
	Email                 string
	Token                 string
	AssessmentTitle       string
	AssessmentDescription string
	CompanyName           string
	AssesseeName          string
	Relationship          string
}

// Notifier delivers invitation emails. Implementations must honour ctx
// cancellation.
type Notifier interface {
	Notify(ctx context.Context, msg InvitationMessage) error
}
