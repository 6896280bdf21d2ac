package services

import (
	"time"

	"github.com/soaringjerry/modern360/internal/models"
)

type (
	Company          = models.Company
	User             = models.User
	Assessment       = models.Assessment
	Question         = models.Question
	TemplateQuestion = models.TemplateQuestion
	Participant      = models.Participant
	Invitation       = models.Invitation
	Response         = models.Response
	AuditEntry       = models.AuditEntry
	ResponseType     = models.ResponseType
	AnswerSet        = models.AnswerSet
)

const (
	ResponseSelf     = models.ResponseSelf
	ResponseAssessor = models.ResponseAssessor
)

// AssessorSpec selects one assessor and the relationship they have with the assessee.
type AssessorSpec struct {
	UserID       int64  `json:"id"`
	Relationship string `json:"relationship,omitempty"`
}

// DeliveryFailure describes a recipient whose notification could not be sent.
type DeliveryFailure struct {
	InvitationID int64  `json:"invitation_id"`
	Email        string `json:"email"`
	Reason       string `json:"reason"`
}

// IssueSummary aggregates per-recipient outcomes of an invitation run.
// Persisted counts stored invitations; Sent counts successful notifications.
type IssueSummary struct {
	Persisted int               `json:"persisted"`
	Sent      int               `json:"sent"`
	Skipped   int               `json:"skipped,omitempty"`
	Failed    []DeliveryFailure `json:"failed"`
}

func systemNow() time.Time { return time.Now().UTC() }

func ptr[T any](v T) *T { return &v }
