package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/soaringjerry/modern360/internal/metrics"
)

type InvitationStore interface {
	Transactor
	AuditLogger
	GetAssessment(ctx context.Context, id int64) (*Assessment, error)
	GetCompany(ctx context.Context, id int64) (*Company, error)
	GetUser(ctx context.Context, id int64) (*User, error)
	ListParticipants(ctx context.Context, assessmentID int64) ([]*Participant, error)
	InsertInvitation(ctx context.Context, inv *Invitation) (int64, error)
	GetInvitation(ctx context.Context, id int64) (*Invitation, error)
	ListInvitations(ctx context.Context) ([]*Invitation, error)
	ListInvitationsByAssessment(ctx context.Context, assessmentID int64) ([]*Invitation, error)
	ListPendingInvitations(ctx context.Context) ([]*Invitation, error)
	ListOverdueAssessments(ctx context.Context, now time.Time) ([]*Assessment, error)
	DeleteInvitation(ctx context.Context, id int64) error
	DeletePendingInvitations(ctx context.Context, ids []int64) (int64, error)
}

// BulkInviteInput drives the standalone send path, which skips addresses
// already invited to the assessment.
type BulkInviteInput struct {
	AssessmentID int64
	Emails       string
	SenderID     int64
}

type NotificationsView struct {
	PendingInvitations []*Invitation `json:"pending_invitations"`
	OverdueAssessments []*Assessment `json:"overdue_assessments"`
}

type InvitationService struct {
	store       InvitationStore
	notifier    Notifier
	now         func() time.Time
	tokenSource func() (string, error)
}

func NewInvitationService(store InvitationStore, notifier Notifier) *InvitationService {
	return &InvitationService{
		store:       store,
		notifier:    notifier,
		now:         systemNow,
		tokenSource: func() (string, error) { return generateToken(32) },
	}
}

// generateToken returns n random bytes encoded as unpadded URL-safe base64.
func generateToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

type pendingDelivery struct {
	inv *Invitation
	msg InvitationMessage
}

// IssueInvitations creates one invitation per participant row and then
// notifies each recipient. Invitations are committed before any email is
// attempted; a failed email is recorded in the summary and does not affect
// the stored invitation or the remaining recipients.
func (s *InvitationService) IssueInvitations(ctx context.Context, assessmentID, senderID int64) (*IssueSummary, error) {
	a, company, err := s.loadAssessment(ctx, assessmentID)
	if err != nil {
		return nil, err
	}
	rows, err := s.store.ListParticipants(ctx, assessmentID)
	if err != nil {
		return nil, NewPersistenceError(err)
	}
	sender := senderID
	if sender == 0 {
		sender = a.CreatorID
	}
	cache := map[int64]*User{}
	batch := make([]pendingDelivery, 0, len(rows))
	for _, p := range rows {
		v, err := participantView(ctx, s.store, p, cache)
		if err != nil {
			return nil, err
		}
		email := v.RecipientEmail()
		if email == "" {
			slog.Warn("participant has no recipient email", "participant_id", p.ID)
			continue
		}
		msg := s.baseMessage(a, company, email)
		msg.AssesseeName = v.AssesseeName
		if p.IsSelf() {
			msg.Kind = MessageSelf
		} else {
			msg.Kind = MessageAssessor
			if p.Relationship != nil {
				msg.Relationship = *p.Relationship
			}
		}
		batch = append(batch, pendingDelivery{inv: &Invitation{AssessmentID: assessmentID, SenderID: ptr(sender), Email: email}, msg: msg})
	}
	if err := s.persist(ctx, batch); err != nil {
		return nil, err
	}
	return s.deliver(ctx, batch), nil
}

// SendInvitations invites a free-form list of addresses. Addresses are split
// on commas and newlines, lowercased, and skipped when the assessment already
// has an invitation for them.
func (s *InvitationService) SendInvitations(ctx context.Context, in BulkInviteInput) (*IssueSummary, error) {
	emails := ParseEmailList(in.Emails)
	if in.AssessmentID == 0 || len(emails) == 0 {
		return nil, NewInvalidError("assessment and email addresses are required")
	}
	a, company, err := s.loadAssessment(ctx, in.AssessmentID)
	if err != nil {
		return nil, err
	}
	existing, err := s.store.ListInvitationsByAssessment(ctx, in.AssessmentID)
	if err != nil {
		return nil, NewPersistenceError(err)
	}
	invited := map[string]bool{}
	for _, inv := range existing {
		invited[strings.ToLower(inv.Email)] = true
	}
	sender := in.SenderID
	if sender == 0 {
		sender = a.CreatorID
	}
	skipped := 0
	batch := make([]pendingDelivery, 0, len(emails))
	for _, email := range emails {
		if invited[email] {
			skipped++
			continue
		}
		invited[email] = true
		msg := s.baseMessage(a, company, email)
		msg.Kind = MessageInvitation
		batch = append(batch, pendingDelivery{inv: &Invitation{AssessmentID: a.ID, SenderID: ptr(sender), Email: email}, msg: msg})
	}
	if err := s.persist(ctx, batch); err != nil {
		return nil, err
	}
	summary := s.deliver(ctx, batch)
	summary.Skipped = skipped
	return summary, nil
}

// ParseEmailList splits a comma or newline separated list into distinct,
// lowercased addresses, preserving first-seen order.
func ParseEmailList(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == '\n' || r == '\r' || r == ';' })
	seen := map[string]bool{}
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		e := strings.ToLower(strings.TrimSpace(f))
		if e == "" || seen[e] {
			continue
		}
		seen[e] = true
		out = append(out, e)
	}
	return out
}

func (s *InvitationService) persist(ctx context.Context, batch []pendingDelivery) error {
	if len(batch) == 0 {
		return nil
	}
	now := s.now()
	err := s.store.InTx(ctx, func(ctx context.Context) error {
		for _, d := range batch {
			tok, err := s.tokenSource()
			if err != nil {
				return err
			}
			d.inv.Token = tok
			d.inv.SentAt = now
			id, err := s.store.InsertInvitation(ctx, d.inv)
			if err != nil {
				return err
			}
			d.inv.ID = id
		}
		return nil
	})
	if err != nil {
		return NewPersistenceError(err)
	}
	metrics.InvitationsIssued.Add(float64(len(batch)))
	return nil
}

func (s *InvitationService) deliver(ctx context.Context, batch []pendingDelivery) *IssueSummary {
	summary := &IssueSummary{Persisted: len(batch), Failed: []DeliveryFailure{}}
	for _, d := range batch {
		d.msg.Token = d.inv.Token
		if err := s.notify(ctx, d.msg); err != nil {
			slog.Warn("could not deliver invitation", "invitation_id", d.inv.ID, "email", d.inv.Email, "err", err)
			summary.Failed = append(summary.Failed, DeliveryFailure{InvitationID: d.inv.ID, Email: d.inv.Email, Reason: err.Error()})
			continue
		}
		summary.Sent++
	}
	return summary
}

func (s *InvitationService) notify(ctx context.Context, msg InvitationMessage) error {
	if s.notifier == nil {
		metrics.Notifications.WithLabelValues(string(msg.Kind), metrics.StatusFailed).Inc()
		return fmt.Errorf("no notifier configured")
	}
	if err := s.notifier.Notify(ctx, msg); err != nil {
		metrics.Notifications.WithLabelValues(string(msg.Kind), metrics.StatusFailed).Inc()
		return err
	}
	metrics.Notifications.WithLabelValues(string(msg.Kind), metrics.StatusSent).Inc()
	return nil
}

// SendReminder re-sends the link of a pending invitation.
func (s *InvitationService) SendReminder(ctx context.Context, invitationID int64) error {
	inv, err := s.store.GetInvitation(ctx, invitationID)
	if err != nil {
		return NewPersistenceError(err)
	}
	if inv == nil {
		return NewNotFoundError("invitation not found")
	}
	if inv.Completed {
		return NewAlreadyCompletedError("assessment already completed")
	}
	a, company, err := s.loadAssessment(ctx, inv.AssessmentID)
	if err != nil {
		return err
	}
	msg := s.baseMessage(a, company, inv.Email)
	msg.Kind = MessageReminder
	msg.Token = inv.Token
	if err := s.notify(ctx, msg); err != nil {
		slog.Error("could not send reminder", "invitation_id", inv.ID, "err", err)
		return NewBadGatewayError("failed to send reminder")
	}
	return nil
}

func (s *InvitationService) DeleteInvitation(ctx context.Context, id int64) error {
	inv, err := s.store.GetInvitation(ctx, id)
	if err != nil {
		return NewPersistenceError(err)
	}
	if inv == nil {
		return NewNotFoundError("invitation not found")
	}
	if inv.Completed {
		return NewConflictError("cannot delete an invitation that has already been completed")
	}
	err = s.store.InTx(ctx, func(ctx context.Context) error {
		if err := s.store.DeleteInvitation(ctx, id); err != nil {
			return err
		}
		return s.store.AddAudit(ctx, AuditEntry{Time: s.now(), Actor: "admin", Action: "delete_invitation", Target: fmt.Sprint(id), Note: inv.Email})
	})
	return NewPersistenceError(err)
}

// BulkDeleteInvitations deletes the pending invitations among ids and ignores
// completed or unknown ones.
func (s *InvitationService) BulkDeleteInvitations(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, NewInvalidError("no invitations selected")
	}
	var n int64
	err := s.store.InTx(ctx, func(ctx context.Context) error {
		var err error
		if n, err = s.store.DeletePendingInvitations(ctx, ids); err != nil {
			return err
		}
		return s.store.AddAudit(ctx, AuditEntry{Time: s.now(), Actor: "admin", Action: "bulk_delete_invitations", Target: fmt.Sprint(ids), Note: fmt.Sprintf("deleted %d", n)})
	})
	if err != nil {
		return 0, NewPersistenceError(err)
	}
	return n, nil
}

func (s *InvitationService) ListInvitations(ctx context.Context) ([]*Invitation, error) {
	list, err := s.store.ListInvitations(ctx)
	if err != nil {
		return nil, NewPersistenceError(err)
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].SentAt.After(list[j].SentAt) })
	return list, nil
}

func (s *InvitationService) Notifications(ctx context.Context) (*NotificationsView, error) {
	pending, err := s.store.ListPendingInvitations(ctx)
	if err != nil {
		return nil, NewPersistenceError(err)
	}
	overdue, err := s.store.ListOverdueAssessments(ctx, s.now())
	if err != nil {
		return nil, NewPersistenceError(err)
	}
	return &NotificationsView{PendingInvitations: pending, OverdueAssessments: overdue}, nil
}

func (s *InvitationService) baseMessage(a *Assessment, company *Company, email string) InvitationMessage {
	msg := InvitationMessage{
		Email:                 email,
		AssessmentTitle:       a.Title,
		AssessmentDescription: a.Description,
	}
	if company != nil {
		msg.CompanyName = company.Name
	}
	return msg
}

func (s *InvitationService) loadAssessment(ctx context.Context, id int64) (*Assessment, *Company, error) {
	a, err := s.store.GetAssessment(ctx, id)
	if err != nil {
		return nil, nil, NewPersistenceError(err)
	}
	if a == nil {
		return nil, nil, NewNotFoundError("assessment not found")
	}
	company, err := s.store.GetCompany(ctx, a.CompanyID)
	if err != nil {
		return nil, nil, NewPersistenceError(err)
	}
	return a, company, nil
}
