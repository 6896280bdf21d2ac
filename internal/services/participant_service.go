package services

import (
	"context"
	"fmt"
	"time"
)

type ParticipantStore interface {
	Transactor
	AuditLogger
	GetAssessment(ctx context.Context, id int64) (*Assessment, error)
	GetUser(ctx context.Context, id int64) (*User, error)
	ListUsersByCompany(ctx context.Context, companyID int64, activeOnly bool) ([]*User, error)
	InsertParticipant(ctx context.Context, p *Participant) (int64, error)
	GetParticipant(ctx context.Context, id int64) (*Participant, error)
	ListParticipants(ctx context.Context, assessmentID int64) ([]*Participant, error)
	CountResponsesByParticipant(ctx context.Context, participantID int64) (int, error)
	DeletePendingInvitationsByEmail(ctx context.Context, assessmentID int64, email string) (int64, error)
	DeleteParticipant(ctx context.Context, id int64) error
}

// ParticipantView is a participant row with its people resolved.
type ParticipantView struct {
	*Participant
	AssesseeName  string `json:"assessee_name"`
	AssesseeEmail string `json:"assessee_email"`
	AssessorName  string `json:"assessor_name,omitempty"`
	AssessorEmail string `json:"assessor_email,omitempty"`
}

// RecipientEmail is the address that receives invitations for this row.
func (v *ParticipantView) RecipientEmail() string {
	if v.IsSelf() {
		return v.AssesseeEmail
	}
	return v.AssessorEmail
}

type ParticipantService struct {
	store ParticipantStore
	now   func() time.Time
}

func NewParticipantService(store ParticipantStore) *ParticipantService {
	return &ParticipantService{store: store, now: systemNow}
}

// AddParticipant appends a self-assessment row for the assessee plus one row
// per assessor. Existing rows for the same assessee are not checked, so
// repeated calls add repeated rows.
func (s *ParticipantService) AddParticipant(ctx context.Context, assessmentID, assesseeID int64, assessors []AssessorSpec) ([]*Participant, error) {
	if assesseeID == 0 {
		return nil, NewInvalidError("assessee is required")
	}
	if _, err := s.loadAssessment(ctx, assessmentID); err != nil {
		return nil, err
	}
	if err := s.requireUser(ctx, assesseeID, "assessee"); err != nil {
		return nil, err
	}
	now := s.now()
	rows := []*Participant{{AssessmentID: assessmentID, AssesseeID: assesseeID, CreatedAt: now}}
	for _, a := range assessors {
		if a.UserID == 0 || a.UserID == assesseeID {
			continue
		}
		if err := s.requireUser(ctx, a.UserID, "assessor"); err != nil {
			return nil, err
		}
		rows = append(rows, &Participant{
			AssessmentID: assessmentID,
			AssesseeID:   assesseeID,
			AssessorID:   ptr(a.UserID),
			Relationship: relationshipPtr(a.Relationship),
			CreatedAt:    now,
		})
	}
	err := s.store.InTx(ctx, func(ctx context.Context) error {
		for _, p := range rows {
			id, err := s.store.InsertParticipant(ctx, p)
			if err != nil {
				return err
			}
			p.ID = id
		}
		return nil
	})
	if err != nil {
		return nil, NewPersistenceError(err)
	}
	return rows, nil
}

// RemoveParticipant deletes a row that has no responses, along with any
// pending invitations of this assessment addressed to the row's recipient.
func (s *ParticipantService) RemoveParticipant(ctx context.Context, assessmentID, participantID int64) error {
	p, err := s.store.GetParticipant(ctx, participantID)
	if err != nil {
		return NewPersistenceError(err)
	}
	if p == nil || p.AssessmentID != assessmentID {
		return NewNotFoundError("participant not found")
	}
	view, err := participantView(ctx, s.store, p, map[int64]*User{})
	if err != nil {
		return err
	}
	err = s.store.InTx(ctx, func(ctx context.Context) error {
		n, err := s.store.CountResponsesByParticipant(ctx, participantID)
		if err != nil {
			return err
		}
		if n > 0 {
			return NewHasResponsesError("participant has already submitted responses")
		}
		if email := view.RecipientEmail(); email != "" {
			if _, err := s.store.DeletePendingInvitationsByEmail(ctx, assessmentID, email); err != nil {
				return err
			}
		}
		if err := s.store.DeleteParticipant(ctx, participantID); err != nil {
			return err
		}
		return s.store.AddAudit(ctx, AuditEntry{Time: s.now(), Actor: "admin", Action: "remove_participant", Target: fmt.Sprint(participantID), Note: view.RecipientEmail()})
	})
	if err != nil {
		return NewPersistenceError(err)
	}
	return nil
}

func (s *ParticipantService) ListParticipants(ctx context.Context, assessmentID int64) ([]*ParticipantView, error) {
	if _, err := s.loadAssessment(ctx, assessmentID); err != nil {
		return nil, err
	}
	rows, err := s.store.ListParticipants(ctx, assessmentID)
	if err != nil {
		return nil, NewPersistenceError(err)
	}
	cache := map[int64]*User{}
	out := make([]*ParticipantView, 0, len(rows))
	for _, p := range rows {
		v, err := participantView(ctx, s.store, p, cache)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// AvailableAssessors lists active users of the assessment's company who are
// not yet assessing assesseeID in this assessment, excluding the assessee.
func (s *ParticipantService) AvailableAssessors(ctx context.Context, assessmentID, assesseeID int64) ([]*User, error) {
	a, err := s.loadAssessment(ctx, assessmentID)
	if err != nil {
		return nil, err
	}
	users, err := s.store.ListUsersByCompany(ctx, a.CompanyID, true)
	if err != nil {
		return nil, NewPersistenceError(err)
	}
	rows, err := s.store.ListParticipants(ctx, assessmentID)
	if err != nil {
		return nil, NewPersistenceError(err)
	}
	taken := map[int64]bool{assesseeID: true}
	for _, p := range rows {
		if p.AssesseeID == assesseeID && p.AssessorID != nil {
			taken[*p.AssessorID] = true
		}
	}
	out := make([]*User, 0, len(users))
	for _, u := range users {
		if !taken[u.ID] {
			out = append(out, u)
		}
	}
	return out, nil
}

type userGetter interface {
	GetUser(ctx context.Context, id int64) (*User, error)
}

// participantView resolves the people of p, memoising lookups in cache.
func participantView(ctx context.Context, users userGetter, p *Participant, cache map[int64]*User) (*ParticipantView, error) {
	lookup := func(id int64) (*User, error) {
		if u, ok := cache[id]; ok {
			return u, nil
		}
		u, err := users.GetUser(ctx, id)
		if err != nil {
			return nil, NewPersistenceError(err)
		}
		cache[id] = u
		return u, nil
	}
	v := &ParticipantView{Participant: p}
	assessee, err := lookup(p.AssesseeID)
	if err != nil {
		return nil, err
	}
	if assessee != nil {
		v.AssesseeName, v.AssesseeEmail = assessee.Name, assessee.Email
	}
	if p.AssessorID != nil {
		assessor, err := lookup(*p.AssessorID)
		if err != nil {
			return nil, err
		}
		if assessor != nil {
			v.AssessorName, v.AssessorEmail = assessor.Name, assessor.Email
		}
	}
	return v, nil
}

func (s *ParticipantService) requireUser(ctx context.Context, id int64, role string) error {
	u, err := s.store.GetUser(ctx, id)
	if err != nil {
		return NewPersistenceError(err)
	}
	if u == nil {
		return NewNotFoundError(role + " not found")
	}
	return nil
}

func (s *ParticipantService) loadAssessment(ctx context.Context, id int64) (*Assessment, error) {
	a, err := s.store.GetAssessment(ctx, id)
	if err != nil {
		return nil, NewPersistenceError(err)
	}
	if a == nil {
		return nil, NewNotFoundError("assessment not found")
	}
	return a, nil
}
