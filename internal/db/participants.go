package db

import (
	"context"
	"strings"
	"time"

	"github.com/huandu/go-sqlbuilder"
	"github.com/pkg/errors"

	"github.com/soaringjerry/modern360/internal/services"
)

var (
	participantColumns = []string{
		"id", "assessment_id", "assessee_id", "assessor_id", "assessor_relationship", "created_at",
		"self_assessment_completed", "self_assessment_date", "assessor_assessment_completed", "assessor_assessment_date",
	}
	invitationColumns = []string{"id", "assessment_id", "sender_id", "email", "token", "sent_at", "responded_at", "is_completed"}
)

func (s *Store) InsertParticipant(ctx context.Context, p *services.Participant) (int64, error) {
	ib := s.flavor.NewInsertBuilder()
	ib.InsertInto("assessment_participants").
		Cols("assessment_id", "assessee_id", "assessor_id", "assessor_relationship", "created_at").
		Values(p.AssessmentID, p.AssesseeID, p.AssessorID, p.Relationship, p.CreatedAt.UTC())
	id, err := s.insert(ctx, ib)
	return id, errors.Wrap(err, "insert participant")
}

func (s *Store) GetParticipant(ctx context.Context, id int64) (*services.Participant, error) {
	sb := s.flavor.NewSelectBuilder()
	sb.Select(participantColumns...).From("assessment_participants").Where(sb.Equal("id", id))
	var p services.Participant
	ok, err := s.get(ctx, &p, sb)
	if err != nil || !ok {
		return nil, errors.Wrap(err, "get participant")
	}
	return &p, nil
}

func (s *Store) ListParticipants(ctx context.Context, assessmentID int64) ([]*services.Participant, error) {
	sb := s.flavor.NewSelectBuilder()
	sb.Select(participantColumns...).From("assessment_participants").
		Where(sb.Equal("assessment_id", assessmentID)).
		OrderBy("id")
	out := []*services.Participant{}
	if err := s.selectAll(ctx, &out, sb); err != nil {
		return nil, errors.Wrap(err, "list participants")
	}
	return out, nil
}

func (s *Store) CountResponsesByParticipant(ctx context.Context, participantID int64) (int, error) {
	sb := s.flavor.NewSelectBuilder()
	sb.Select("COUNT(*)").From("responses").Where(sb.Equal("participant_id", participantID))
	var n int
	_, err := s.get(ctx, &n, sb)
	return n, errors.Wrap(err, "count participant responses")
}

func (s *Store) DeleteParticipant(ctx context.Context, id int64) error {
	db := s.flavor.NewDeleteBuilder()
	db.DeleteFrom("assessment_participants").Where(db.Equal("id", id))
	_, err := s.exec(ctx, db)
	return errors.Wrap(err, "delete participant")
}

func (s *Store) MarkParticipantCompleted(ctx context.Context, participantID int64, typ services.ResponseType, at time.Time) error {
	flag, date := "assessor_assessment_completed", "assessor_assessment_date"
	if typ == services.ResponseSelf {
		flag, date = "self_assessment_completed", "self_assessment_date"
	}
	ub := s.flavor.NewUpdateBuilder()
	ub.Update("assessment_participants").
		Set(ub.Assign(flag, true), ub.Assign(date, at.UTC())).
		Where(ub.Equal("id", participantID))
	_, err := s.exec(ctx, ub)
	return errors.Wrap(err, "mark participant completed")
}

func (s *Store) InsertInvitation(ctx context.Context, inv *services.Invitation) (int64, error) {
	ib := s.flavor.NewInsertBuilder()
	ib.InsertInto("invitations").
		Cols("assessment_id", "sender_id", "email", "token", "sent_at", "is_completed").
		Values(inv.AssessmentID, inv.SenderID, strings.ToLower(inv.Email), inv.Token, inv.SentAt.UTC(), inv.Completed)
	id, err := s.insert(ctx, ib)
	return id, errors.Wrap(err, "insert invitation")
}

func (s *Store) getInvitation(ctx context.Context, column string, value any) (*services.Invitation, error) {
	sb := s.flavor.NewSelectBuilder()
	sb.Select(invitationColumns...).From("invitations").Where(sb.Equal(column, value))
	var inv services.Invitation
	ok, err := s.get(ctx, &inv, sb)
	if err != nil || !ok {
		return nil, errors.Wrap(err, "get invitation")
	}
	return &inv, nil
}

func (s *Store) GetInvitation(ctx context.Context, id int64) (*services.Invitation, error) {
	return s.getInvitation(ctx, "id", id)
}

func (s *Store) GetInvitationByToken(ctx context.Context, token string) (*services.Invitation, error) {
	return s.getInvitation(ctx, "token", token)
}

func (s *Store) listInvitations(ctx context.Context, filter func(sb *sqlbuilder.SelectBuilder)) ([]*services.Invitation, error) {
	sb := s.flavor.NewSelectBuilder()
	sb.Select(invitationColumns...).From("invitations").OrderBy("id")
	if filter != nil {
		filter(sb)
	}
	out := []*services.Invitation{}
	if err := s.selectAll(ctx, &out, sb); err != nil {
		return nil, errors.Wrap(err, "list invitations")
	}
	return out, nil
}

func (s *Store) ListInvitations(ctx context.Context) ([]*services.Invitation, error) {
	return s.listInvitations(ctx, nil)
}

func (s *Store) ListInvitationsByAssessment(ctx context.Context, assessmentID int64) ([]*services.Invitation, error) {
	return s.listInvitations(ctx, func(sb *sqlbuilder.SelectBuilder) {
		sb.Where(sb.Equal("assessment_id", assessmentID))
	})
}

func (s *Store) ListPendingInvitations(ctx context.Context) ([]*services.Invitation, error) {
	return s.listInvitations(ctx, func(sb *sqlbuilder.SelectBuilder) {
		sb.Where(sb.Equal("is_completed", false))
	})
}

func (s *Store) CountInvitationsByAssessment(ctx context.Context, assessmentID int64) (int, error) {
	sb := s.flavor.NewSelectBuilder()
	sb.Select("COUNT(*)").From("invitations").Where(sb.Equal("assessment_id", assessmentID))
	var n int
	_, err := s.get(ctx, &n, sb)
	return n, errors.Wrap(err, "count invitations")
}

func (s *Store) DeleteInvitation(ctx context.Context, id int64) error {
	db := s.flavor.NewDeleteBuilder()
	db.DeleteFrom("invitations").Where(db.Equal("id", id))
	_, err := s.exec(ctx, db)
	return errors.Wrap(err, "delete invitation")
}

// DeletePendingInvitations deletes the non-completed invitations among ids.
func (s *Store) DeletePendingInvitations(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	db := s.flavor.NewDeleteBuilder()
	db.DeleteFrom("invitations").Where(db.In("id", int64Args(ids)...), db.Equal("is_completed", false))
	n, err := s.exec(ctx, db)
	return n, errors.Wrap(err, "delete pending invitations")
}

func (s *Store) DeletePendingInvitationsByEmail(ctx context.Context, assessmentID int64, email string) (int64, error) {
	db := s.flavor.NewDeleteBuilder()
	db.DeleteFrom("invitations").Where(
		db.Equal("assessment_id", assessmentID),
		db.Equal("email", strings.ToLower(email)),
		db.Equal("is_completed", false),
	)
	n, err := s.exec(ctx, db)
	return n, errors.Wrap(err, "delete pending invitations by email")
}

// MarkInvitationCompleted flips a pending invitation to completed. It returns
// services.ErrInvitationClosed when the invitation is missing or was already
// completed, so two racing submissions cannot both succeed.
func (s *Store) MarkInvitationCompleted(ctx context.Context, id int64, at time.Time) error {
	ub := s.flavor.NewUpdateBuilder()
	ub.Update("invitations").
		Set(ub.Assign("is_completed", true), ub.Assign("responded_at", at.UTC())).
		Where(ub.Equal("id", id), ub.Equal("is_completed", false))
	n, err := s.exec(ctx, ub)
	if err != nil {
		return errors.Wrap(err, "mark invitation completed")
	}
	if n == 0 {
		return services.ErrInvitationClosed
	}
	return nil
}
