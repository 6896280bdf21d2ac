package db

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/soaringjerry/modern360/internal/services"
)

var (
	assessmentColumns = []string{"id", "title", "description", "company_id", "creator_id", "deadline", "is_active", "created_at"}
	questionColumns   = []string{"id", "assessment_id", "question_text", "question_group", "question_type", "language", "options", "position"}
	templateColumns   = []string{"id", "question_text", "question_group", "question_type", "language", "options", "position"}
)

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func (s *Store) InsertAssessment(ctx context.Context, a *services.Assessment) (int64, error) {
	ib := s.flavor.NewInsertBuilder()
	ib.InsertInto("assessments").
		Cols("title", "description", "company_id", "creator_id", "deadline", "is_active", "created_at").
		Values(a.Title, a.Description, a.CompanyID, a.CreatorID, utcPtr(a.Deadline), a.IsActive, a.CreatedAt.UTC())
	id, err := s.insert(ctx, ib)
	return id, errors.Wrap(err, "insert assessment")
}

func (s *Store) GetAssessment(ctx context.Context, id int64) (*services.Assessment, error) {
	sb := s.flavor.NewSelectBuilder()
	sb.Select(assessmentColumns...).From("assessments").Where(sb.Equal("id", id))
	var a services.Assessment
	ok, err := s.get(ctx, &a, sb)
	if err != nil || !ok {
		return nil, errors.Wrap(err, "get assessment")
	}
	return &a, nil
}

// ListAssessments returns all assessments, or one company's when companyID is
// non-zero.
func (s *Store) ListAssessments(ctx context.Context, companyID int64) ([]*services.Assessment, error) {
	sb := s.flavor.NewSelectBuilder()
	sb.Select(assessmentColumns...).From("assessments").OrderBy("id")
	if companyID != 0 {
		sb.Where(sb.Equal("company_id", companyID))
	}
	out := []*services.Assessment{}
	if err := s.selectAll(ctx, &out, sb); err != nil {
		return nil, errors.Wrap(err, "list assessments")
	}
	return out, nil
}

func (s *Store) ListOverdueAssessments(ctx context.Context, now time.Time) ([]*services.Assessment, error) {
	sb := s.flavor.NewSelectBuilder()
	sb.Select(assessmentColumns...).From("assessments").
		Where(
			sb.Equal("is_active", true),
			sb.IsNotNull("deadline"),
			sb.LessThan("deadline", now.UTC()),
		).
		OrderBy("deadline")
	out := []*services.Assessment{}
	if err := s.selectAll(ctx, &out, sb); err != nil {
		return nil, errors.Wrap(err, "list overdue assessments")
	}
	return out, nil
}

func (s *Store) UpdateAssessment(ctx context.Context, a *services.Assessment) error {
	ub := s.flavor.NewUpdateBuilder()
	ub.Update("assessments").
		Set(
			ub.Assign("title", a.Title),
			ub.Assign("description", a.Description),
			ub.Assign("company_id", a.CompanyID),
			ub.Assign("deadline", utcPtr(a.Deadline)),
			ub.Assign("is_active", a.IsActive),
		).
		Where(ub.Equal("id", a.ID))
	_, err := s.exec(ctx, ub)
	return errors.Wrap(err, "update assessment")
}

func (s *Store) InsertQuestion(ctx context.Context, q *services.Question) (int64, error) {
	ib := s.flavor.NewInsertBuilder()
	ib.InsertInto("questions").
		Cols("assessment_id", "question_text", "question_group", "question_type", "language", "options", "position").
		Values(q.AssessmentID, q.Text, q.Group, string(q.Type), q.Language, q.Options, q.Order)
	id, err := s.insert(ctx, ib)
	return id, errors.Wrap(err, "insert question")
}

func (s *Store) ListQuestions(ctx context.Context, assessmentID int64) ([]*services.Question, error) {
	sb := s.flavor.NewSelectBuilder()
	sb.Select(questionColumns...).From("questions").
		Where(sb.Equal("assessment_id", assessmentID)).
		OrderBy("position", "id")
	out := []*services.Question{}
	if err := s.selectAll(ctx, &out, sb); err != nil {
		return nil, errors.Wrap(err, "list questions")
	}
	return out, nil
}

func (s *Store) UpdateQuestionOrder(ctx context.Context, questionID int64, order int) error {
	ub := s.flavor.NewUpdateBuilder()
	ub.Update("questions").Set(ub.Assign("position", order)).Where(ub.Equal("id", questionID))
	_, err := s.exec(ctx, ub)
	return errors.Wrap(err, "update question order")
}

func (s *Store) InsertTemplateQuestion(ctx context.Context, q *services.TemplateQuestion) (int64, error) {
	ib := s.flavor.NewInsertBuilder()
	ib.InsertInto("template_questions").
		Cols("question_text", "question_group", "question_type", "language", "options", "position").
		Values(q.Text, q.Group, string(q.Type), q.Language, q.Options, q.Position)
	id, err := s.insert(ctx, ib)
	return id, errors.Wrap(err, "insert template question")
}

func (s *Store) ListTemplateQuestions(ctx context.Context, language string) ([]*services.TemplateQuestion, error) {
	sb := s.flavor.NewSelectBuilder()
	sb.Select(templateColumns...).From("template_questions").
		Where(sb.Equal("language", language)).
		OrderBy("position", "id")
	out := []*services.TemplateQuestion{}
	if err := s.selectAll(ctx, &out, sb); err != nil {
		return nil, errors.Wrap(err, "list template questions")
	}
	return out, nil
}

func (s *Store) UpdateTemplateOrder(ctx context.Context, id int64, position int) error {
	ub := s.flavor.NewUpdateBuilder()
	ub.Update("template_questions").Set(ub.Assign("position", position)).Where(ub.Equal("id", id))
	_, err := s.exec(ctx, ub)
	return errors.Wrap(err, "update template order")
}

func (s *Store) deleteByAssessment(ctx context.Context, table string, assessmentID int64) (int64, error) {
	db := s.flavor.NewDeleteBuilder()
	db.DeleteFrom(table).Where(db.Equal("assessment_id", assessmentID))
	n, err := s.exec(ctx, db)
	return n, errors.Wrapf(err, "delete %s", table)
}

func (s *Store) DeleteResponsesByAssessment(ctx context.Context, assessmentID int64) (int64, error) {
	return s.deleteByAssessment(ctx, "responses", assessmentID)
}

func (s *Store) DeleteParticipantsByAssessment(ctx context.Context, assessmentID int64) (int64, error) {
	return s.deleteByAssessment(ctx, "assessment_participants", assessmentID)
}

func (s *Store) DeleteQuestionsByAssessment(ctx context.Context, assessmentID int64) (int64, error) {
	return s.deleteByAssessment(ctx, "questions", assessmentID)
}

func (s *Store) DeleteInvitationsByAssessment(ctx context.Context, assessmentID int64) (int64, error) {
	return s.deleteByAssessment(ctx, "invitations", assessmentID)
}

func (s *Store) DeleteAssessment(ctx context.Context, id int64) error {
	db := s.flavor.NewDeleteBuilder()
	db.DeleteFrom("assessments").Where(db.Equal("id", id))
	_, err := s.exec(ctx, db)
	return errors.Wrap(err, "delete assessment")
}
