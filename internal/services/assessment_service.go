package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/soaringjerry/modern360/internal/metrics"
	"github.com/soaringjerry/modern360/internal/models"
)

// CascadeStore removes an assessment together with everything hanging off it.
type CascadeStore interface {
	DeleteResponsesByAssessment(ctx context.Context, assessmentID int64) (int64, error)
	DeleteParticipantsByAssessment(ctx context.Context, assessmentID int64) (int64, error)
	DeleteQuestionsByAssessment(ctx context.Context, assessmentID int64) (int64, error)
	DeleteInvitationsByAssessment(ctx context.Context, assessmentID int64) (int64, error)
	DeleteAssessment(ctx context.Context, id int64) error
}

type AssessmentStore interface {
	Transactor
	AuditLogger
	CascadeStore
	GetCompany(ctx context.Context, id int64) (*Company, error)
	GetUser(ctx context.Context, id int64) (*User, error)
	ListTemplateQuestions(ctx context.Context, language string) ([]*TemplateQuestion, error)
	InsertAssessment(ctx context.Context, a *Assessment) (int64, error)
	InsertQuestion(ctx context.Context, q *Question) (int64, error)
	InsertParticipant(ctx context.Context, p *Participant) (int64, error)
	GetAssessment(ctx context.Context, id int64) (*Assessment, error)
	ListAssessments(ctx context.Context, companyID int64) ([]*Assessment, error)
	UpdateAssessment(ctx context.Context, a *Assessment) error
	ListQuestions(ctx context.Context, assessmentID int64) ([]*Question, error)
	UpdateQuestionOrder(ctx context.Context, questionID int64, order int) error
}

// QuestionSource selects where a new assessment gets its questions from.
type QuestionSource interface {
	questionSource()
}

// FromTemplate clones the template pool for one language.
type FromTemplate struct {
	Language string
}

// CustomQuestions supplies ad-hoc questions in display order.
type CustomQuestions struct {
	Language  string
	Questions []CustomQuestion
}

type CustomQuestion struct {
	Text    string              `json:"text"`
	Type    models.QuestionType `json:"type"`
	Group   string              `json:"group"`
	Options string              `json:"options,omitempty"`
}

func (FromTemplate) questionSource()    {}
func (CustomQuestions) questionSource() {}

type CreateAssessmentInput struct {
	Title       string
	Description string
	CompanyID   int64
	CreatorID   int64
	Deadline    string
	Source      QuestionSource
	AssesseeIDs []int64
	Assessors   []AssessorSpec
}

type AssessmentCreated struct {
	Assessment   *Assessment    `json:"assessment"`
	Questions    []*Question    `json:"questions"`
	Participants []*Participant `json:"participants"`
}

type UpdateAssessmentInput struct {
	Title       string
	Description string
	CompanyID   int64
	Deadline    string
	IsActive    bool
}

type AssessmentDetail struct {
	Assessment *Assessment `json:"assessment"`
	Company    *Company    `json:"company,omitempty"`
	Questions  []*Question `json:"questions"`
}

type AssessmentService struct {
	store           AssessmentStore
	now             func() time.Time
	defaultLanguage string
}

func NewAssessmentService(store AssessmentStore, defaultLanguage string) *AssessmentService {
	if defaultLanguage == "" {
		defaultLanguage = "bs"
	}
	return &AssessmentService{
		store:           store,
		now:             systemNow,
		defaultLanguage: defaultLanguage,
	}
}

var deadlineLayouts = []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02"}

// ParseDeadline accepts RFC 3339, the HTML datetime-local form, or a bare date.
// An empty string means no deadline.
func ParseDeadline(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range deadlineLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, NewInvalidError("invalid deadline format")
}

func (s *AssessmentService) CreateAssessment(ctx context.Context, in CreateAssessmentInput) (*AssessmentCreated, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" || in.CompanyID == 0 {
		return nil, NewInvalidError("assessment title and company are required")
	}
	if len(in.AssesseeIDs) == 0 {
		return nil, NewInvalidError("one assessee must be selected")
	}
	if len(in.AssesseeIDs) > 1 {
		return nil, NewInvalidError("only one assessee can be selected per assessment")
	}
	if len(in.Assessors) == 0 {
		return nil, NewInvalidError("at least one assessor must be selected")
	}
	deadline, err := ParseDeadline(in.Deadline)
	if err != nil {
		return nil, err
	}
	if in.Source == nil {
		return nil, NewInvalidError("question source required")
	}
	assesseeID := in.AssesseeIDs[0]

	company, err := s.store.GetCompany(ctx, in.CompanyID)
	if err != nil {
		return nil, NewPersistenceError(err)
	}
	if company == nil {
		return nil, NewNotFoundError("company not found")
	}
	if err := s.requireUsers(ctx, in.CreatorID, "creator"); err != nil {
		return nil, err
	}
	if err := s.requireUsers(ctx, assesseeID, "assessee"); err != nil {
		return nil, err
	}
	assessors := distinctAssessors(in.Assessors, assesseeID)
	for _, a := range assessors {
		if err := s.requireUsers(ctx, a.UserID, "assessor"); err != nil {
			return nil, err
		}
	}

	questions, err := s.buildQuestions(ctx, in.Source)
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, NewInvalidError("at least one question is required")
	}

	now := s.now()
	assessment := &Assessment{
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		CompanyID:   in.CompanyID,
		CreatorID:   in.CreatorID,
		Deadline:    deadline,
		IsActive:    true,
		CreatedAt:   now,
	}
	participants := make([]*Participant, 0, 1+len(assessors))
	participants = append(participants, &Participant{AssesseeID: assesseeID, CreatedAt: now})
	for _, a := range assessors {
		participants = append(participants, &Participant{
			AssesseeID:   assesseeID,
			AssessorID:   ptr(a.UserID),
			Relationship: relationshipPtr(a.Relationship),
			CreatedAt:    now,
		})
	}

	err = s.store.InTx(ctx, func(ctx context.Context) error {
		id, err := s.store.InsertAssessment(ctx, assessment)
		if err != nil {
			return err
		}
		assessment.ID = id
		for _, q := range questions {
			q.AssessmentID = id
			qid, err := s.store.InsertQuestion(ctx, q)
			if err != nil {
				return err
			}
			q.ID = qid
		}
		for _, p := range participants {
			p.AssessmentID = id
			pid, err := s.store.InsertParticipant(ctx, p)
			if err != nil {
				return err
			}
			p.ID = pid
		}
		return s.store.AddAudit(ctx, AuditEntry{Time: now, Actor: "admin", Action: "create_assessment", Target: fmt.Sprint(id), Note: title})
	})
	if err != nil {
		return nil, NewPersistenceError(err)
	}
	metrics.AssessmentsCreated.Inc()
	slog.Info("assessment created", "assessment_id", assessment.ID, "questions", len(questions), "participants", len(participants))
	return &AssessmentCreated{Assessment: assessment, Questions: questions, Participants: participants}, nil
}

func (s *AssessmentService) requireUsers(ctx context.Context, id int64, role string) error {
	if id == 0 {
		return NewInvalidError(role + " required")
	}
	u, err := s.store.GetUser(ctx, id)
	if err != nil {
		return NewPersistenceError(err)
	}
	if u == nil {
		return NewNotFoundError(role + " not found")
	}
	return nil
}

// distinctAssessors drops self-pairings and repeated ids; the first
// relationship given for an id wins.
func distinctAssessors(in []AssessorSpec, assesseeID int64) []AssessorSpec {
	seen := map[int64]bool{}
	out := make([]AssessorSpec, 0, len(in))
	for _, a := range in {
		if a.UserID == 0 || a.UserID == assesseeID || seen[a.UserID] {
			continue
		}
		seen[a.UserID] = true
		out = append(out, AssessorSpec{UserID: a.UserID, Relationship: strings.TrimSpace(a.Relationship)})
	}
	return out
}

func relationshipPtr(rel string) *string {
	rel = strings.TrimSpace(rel)
	if rel == "" {
		return nil
	}
	return &rel
}

func (s *AssessmentService) buildQuestions(ctx context.Context, src QuestionSource) ([]*Question, error) {
	switch v := src.(type) {
	case FromTemplate:
		lang := v.Language
		if lang == "" {
			lang = s.defaultLanguage
		}
		tpl, err := s.store.ListTemplateQuestions(ctx, lang)
		if err != nil {
			return nil, NewPersistenceError(err)
		}
		sort.SliceStable(tpl, func(i, j int) bool {
			if tpl[i].Position != tpl[j].Position {
				return tpl[i].Position < tpl[j].Position
			}
			return tpl[i].ID < tpl[j].ID
		})
		out := make([]*Question, 0, len(tpl))
		for i, t := range tpl {
			out = append(out, &Question{
				Text:     t.Text,
				Group:    t.Group,
				Type:     t.Type,
				Language: t.Language,
				Options:  t.Options,
				Order:    i,
			})
		}
		return out, nil
	case CustomQuestions:
		lang := v.Language
		if lang == "" {
			lang = s.defaultLanguage
		}
		out := make([]*Question, 0, len(v.Questions))
		for _, cq := range v.Questions {
			text := strings.TrimSpace(cq.Text)
			if text == "" {
				continue
			}
			qt := cq.Type
			if qt == "" {
				qt = models.QuestionRating
			}
			if !qt.Valid() {
				return nil, NewInvalidError(fmt.Sprintf("unsupported question type %q", cq.Type))
			}
			out = append(out, &Question{
				Text:     text,
				Group:    strings.TrimSpace(cq.Group),
				Type:     qt,
				Language: lang,
				Options:  cq.Options,
				Order:    len(out),
			})
		}
		return out, nil
	default:
		return nil, NewInvalidError("unsupported question source")
	}
}

func (s *AssessmentService) GetAssessment(ctx context.Context, id int64) (*AssessmentDetail, error) {
	a, err := s.loadAssessment(ctx, id)
	if err != nil {
		return nil, err
	}
	company, err := s.store.GetCompany(ctx, a.CompanyID)
	if err != nil {
		return nil, NewPersistenceError(err)
	}
	qs, err := s.store.ListQuestions(ctx, id)
	if err != nil {
		return nil, NewPersistenceError(err)
	}
	sortByOrder(qs)
	return &AssessmentDetail{Assessment: a, Company: company, Questions: qs}, nil
}

func (s *AssessmentService) ListAssessments(ctx context.Context, companyID int64) ([]*Assessment, error) {
	list, err := s.store.ListAssessments(ctx, companyID)
	if err != nil {
		return nil, NewPersistenceError(err)
	}
	return list, nil
}

func (s *AssessmentService) UpdateAssessment(ctx context.Context, id int64, in UpdateAssessmentInput) (*Assessment, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" || in.CompanyID == 0 {
		return nil, NewInvalidError("assessment title and company are required")
	}
	deadline, err := ParseDeadline(in.Deadline)
	if err != nil {
		return nil, err
	}
	a, err := s.loadAssessment(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.CompanyID != in.CompanyID {
		company, err := s.store.GetCompany(ctx, in.CompanyID)
		if err != nil {
			return nil, NewPersistenceError(err)
		}
		if company == nil {
			return nil, NewNotFoundError("company not found")
		}
	}
	a.Title = title
	a.Description = strings.TrimSpace(in.Description)
	a.CompanyID = in.CompanyID
	a.Deadline = deadline
	a.IsActive = in.IsActive
	err = s.store.InTx(ctx, func(ctx context.Context) error {
		if err := s.store.UpdateAssessment(ctx, a); err != nil {
			return err
		}
		return s.store.AddAudit(ctx, AuditEntry{Time: s.now(), Actor: "admin", Action: "update_assessment", Target: fmt.Sprint(id)})
	})
	if err != nil {
		return nil, NewPersistenceError(err)
	}
	return a, nil
}

// DeleteAssessment removes the assessment and all of its children in one
// transaction: responses, participants, questions and invitations, then the
// assessment row itself.
func (s *AssessmentService) DeleteAssessment(ctx context.Context, id int64) error {
	a, err := s.loadAssessment(ctx, id)
	if err != nil {
		return err
	}
	err = s.store.InTx(ctx, func(ctx context.Context) error {
		if err := deleteAssessmentTree(ctx, s.store, id); err != nil {
			return err
		}
		return s.store.AddAudit(ctx, AuditEntry{Time: s.now(), Actor: "admin", Action: "delete_assessment", Target: fmt.Sprint(id), Note: a.Title})
	})
	if err != nil {
		slog.Error("could not delete assessment", "assessment_id", id, "err", err)
		return NewPersistenceError(err)
	}
	metrics.AssessmentsDeleted.Inc()
	return nil
}

func deleteAssessmentTree(ctx context.Context, store CascadeStore, id int64) error {
	if _, err := store.DeleteResponsesByAssessment(ctx, id); err != nil {
		return err
	}
	if _, err := store.DeleteParticipantsByAssessment(ctx, id); err != nil {
		return err
	}
	if _, err := store.DeleteQuestionsByAssessment(ctx, id); err != nil {
		return err
	}
	if _, err := store.DeleteInvitationsByAssessment(ctx, id); err != nil {
		return err
	}
	return store.DeleteAssessment(ctx, id)
}

// RepairQuestionOrder rewrites the order of an assessment's questions to a
// dense 0-based sequence, keeping their current relative order. It returns
// the number of questions that moved.
func (s *AssessmentService) RepairQuestionOrder(ctx context.Context, assessmentID int64) (int, error) {
	if _, err := s.loadAssessment(ctx, assessmentID); err != nil {
		return 0, err
	}
	qs, err := s.store.ListQuestions(ctx, assessmentID)
	if err != nil {
		return 0, NewPersistenceError(err)
	}
	sortByOrder(qs)
	moved := 0
	err = s.store.InTx(ctx, func(ctx context.Context) error {
		for i, q := range qs {
			if q.Order == i {
				continue
			}
			if err := s.store.UpdateQuestionOrder(ctx, q.ID, i); err != nil {
				return err
			}
			q.Order = i
			moved++
		}
		return nil
	})
	if err != nil {
		return 0, NewPersistenceError(err)
	}
	return moved, nil
}

func (s *AssessmentService) loadAssessment(ctx context.Context, id int64) (*Assessment, error) {
	if id <= 0 {
		return nil, NewInvalidError("assessment id required")
	}
	a, err := s.store.GetAssessment(ctx, id)
	if err != nil {
		return nil, NewPersistenceError(err)
	}
	if a == nil {
		return nil, NewNotFoundError("assessment not found")
	}
	return a, nil
}

func sortByOrder(qs []*Question) {
	sort.SliceStable(qs, func(i, j int) bool {
		if qs[i].Order != qs[j].Order {
			return qs[i].Order < qs[j].Order
		}
		return qs[i].ID < qs[j].ID
	})
}
