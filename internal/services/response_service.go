package services

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/soaringjerry/modern360/internal/metrics"
)

// ResponseStore abstracts persistence operations required by ResponseService.
type ResponseStore interface {
	Transactor
	GetInvitationByToken(ctx context.Context, token string) (*Invitation, error)
	GetAssessment(ctx context.Context, id int64) (*Assessment, error)
	GetCompany(ctx context.Context, id int64) (*Company, error)
	GetUser(ctx context.Context, id int64) (*User, error)
	GetParticipant(ctx context.Context, id int64) (*Participant, error)
	ListParticipants(ctx context.Context, assessmentID int64) ([]*Participant, error)
	ListQuestions(ctx context.Context, assessmentID int64) ([]*Question, error)
	// MarkInvitationCompleted flips a pending invitation to completed and
	// returns ErrInvitationClosed when no pending row matched.
	MarkInvitationCompleted(ctx context.Context, id int64, at time.Time) error
	InsertResponse(ctx context.Context, r *Response) (int64, error)
	MarkParticipantCompleted(ctx context.Context, participantID int64, typ ResponseType, at time.Time) error
}

// SubmitResponseInput transports the sanitized handler input into the service layer.
type SubmitResponseInput struct {
	Token         string
	Answers       map[string]any
	ParticipantID *int64
}

// RespondContext is what a respondent needs to render the questionnaire.
type RespondContext struct {
	Assessment    *Assessment `json:"assessment"`
	CompanyName   string      `json:"company_name"`
	Email         string      `json:"email"`
	Questions     []*Question `json:"questions"`
	ParticipantID *int64      `json:"participant_id,omitempty"`
	AssesseeName  string      `json:"assessee_name,omitempty"`
	Relationship  string      `json:"relationship,omitempty"`
}

const selfRelationshipLabel = "Self Assessment"

// ResponseService hosts the token redemption workflow.
type ResponseService struct {
	store ResponseStore
	now   func() time.Time
}

func NewResponseService(store ResponseStore) *ResponseService {
	return &ResponseService{store: store, now: systemNow}
}

// SubmitResponse redeems an invitation token exactly once. The invitation
// update, the response insert and the participant flag are one transaction;
// a failure leaves the invitation pending so the token can be retried.
func (s *ResponseService) SubmitResponse(ctx context.Context, in SubmitResponseInput) (*Response, error) {
	inv, err := s.resolveInvitation(ctx, in.Token)
	if err != nil {
		return nil, err
	}
	answers, err := NormalizeAnswers(in.Answers)
	if err != nil {
		return nil, err
	}

	typ := ResponseAssessor
	var participant *Participant
	if in.ParticipantID != nil {
		participant, err = s.store.GetParticipant(ctx, *in.ParticipantID)
		if err != nil {
			return nil, NewPersistenceError(err)
		}
		if participant == nil || participant.AssessmentID != inv.AssessmentID {
			return nil, NewNotFoundError("participant not found")
		}
		typ = participant.ResponseTypeFor()
	}

	now := s.now()
	resp := &Response{
		AssessmentID: inv.AssessmentID,
		InvitationID: ptr(inv.ID),
		Answers:      answers,
		Type:         typ,
		SubmittedAt:  now,
	}
	if participant != nil {
		resp.ParticipantID = ptr(participant.ID)
	}

	err = s.store.InTx(ctx, func(ctx context.Context) error {
		if err := s.store.MarkInvitationCompleted(ctx, inv.ID, now); err != nil {
			return err
		}
		id, err := s.store.InsertResponse(ctx, resp)
		if err != nil {
			return err
		}
		resp.ID = id
		if participant != nil {
			return s.store.MarkParticipantCompleted(ctx, participant.ID, typ, now)
		}
		return nil
	})
	if errors.Is(err, ErrInvitationClosed) {
		metrics.SubmissionConflicts.Inc()
		return nil, NewAlreadyCompletedError("assessment already completed")
	}
	if err != nil {
		slog.Error("response submission rolled back", "invitation_id", inv.ID, "err", err)
		return nil, NewPersistenceError(err)
	}
	metrics.ResponsesSubmitted.WithLabelValues(string(typ)).Inc()
	slog.Info("response submitted", "assessment_id", inv.AssessmentID, "invitation_id", inv.ID, "type", typ, "answers", len(answers))
	return resp, nil
}

// RespondContext loads the questionnaire behind a pending token and works out
// which participant row the recipient answers for.
func (s *ResponseService) RespondContext(ctx context.Context, token string) (*RespondContext, error) {
	inv, err := s.resolveInvitation(ctx, token)
	if err != nil {
		return nil, err
	}
	a, err := s.store.GetAssessment(ctx, inv.AssessmentID)
	if err != nil {
		return nil, NewPersistenceError(err)
	}
	if a == nil {
		return nil, NewNotFoundError("assessment not found")
	}
	out := &RespondContext{Assessment: a, Email: inv.Email}
	company, err := s.store.GetCompany(ctx, a.CompanyID)
	if err != nil {
		return nil, NewPersistenceError(err)
	}
	if company != nil {
		out.CompanyName = company.Name
	}

	qs, err := s.store.ListQuestions(ctx, a.ID)
	if err != nil {
		return nil, NewPersistenceError(err)
	}
	sort.SliceStable(qs, func(i, j int) bool {
		if qs[i].Group != qs[j].Group {
			return qs[i].Group < qs[j].Group
		}
		if qs[i].Order != qs[j].Order {
			return qs[i].Order < qs[j].Order
		}
		return qs[i].ID < qs[j].ID
	})
	out.Questions = qs

	v, err := s.matchParticipant(ctx, a.ID, inv.Email)
	if err != nil {
		return nil, err
	}
	if v != nil {
		out.ParticipantID = ptr(v.ID)
		out.AssesseeName = v.AssesseeName
		switch {
		case v.IsSelf():
			out.Relationship = selfRelationshipLabel
		case v.Relationship != nil:
			out.Relationship = *v.Relationship
		}
	}
	return out, nil
}

// matchParticipant prefers an assessor row addressed to email and falls back
// to a self row of the assessee with that email.
func (s *ResponseService) matchParticipant(ctx context.Context, assessmentID int64, email string) (*ParticipantView, error) {
	rows, err := s.store.ListParticipants(ctx, assessmentID)
	if err != nil {
		return nil, NewPersistenceError(err)
	}
	cache := map[int64]*User{}
	var self *ParticipantView
	for _, p := range rows {
		v, err := participantView(ctx, s.store, p, cache)
		if err != nil {
			return nil, err
		}
		if !p.IsSelf() && strings.EqualFold(v.AssessorEmail, email) {
			return v, nil
		}
		if p.IsSelf() && self == nil && strings.EqualFold(v.AssesseeEmail, email) {
			self = v
		}
	}
	return self, nil
}

func (s *ResponseService) resolveInvitation(ctx context.Context, token string) (*Invitation, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, NewNotFoundError("invalid or expired invitation link")
	}
	inv, err := s.store.GetInvitationByToken(ctx, token)
	if err != nil {
		return nil, NewPersistenceError(err)
	}
	if inv == nil {
		return nil, NewNotFoundError("invalid or expired invitation link")
	}
	if inv.Completed {
		return nil, NewAlreadyCompletedError("assessment already completed")
	}
	return inv, nil
}
