package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/soaringjerry/modern360/internal/models"
)

var fixedNow = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

type q1Fixture struct {
	store    *stubStore
	company  *Company
	creator  *User
	assessee *User
	assessor *User
}

// newQ1Fixture seeds a company with three users and five template questions
// stored with sparse positions.
func newQ1Fixture() *q1Fixture {
	st := newStubStore()
	c := st.addCompany("Acme")
	f := &q1Fixture{store: st, company: c}
	f.creator = st.addUser("Admin User", "admin@acme.test", c.ID)
	f.assessee = st.addUser("Ana Alic", "ana@acme.test", c.ID)
	f.assessor = st.addUser("Bo Babic", "bo@acme.test", c.ID)
	for i := 0; i < 5; i++ {
		group := "Leadership"
		if i >= 3 {
			group = "Communication"
		}
		q := &TemplateQuestion{ID: st.id(), Text: fmt.Sprintf("Q%d", i+1), Group: group, Type: models.QuestionRating, Language: "bs", Position: i * 2}
		st.templates[q.ID] = q
	}
	return f
}

func (f *q1Fixture) assessmentService() *AssessmentService {
	svc := NewAssessmentService(f.store, "bs")
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func (f *q1Fixture) create(t *testing.T) *AssessmentCreated {
	t.Helper()
	out, err := f.assessmentService().CreateAssessment(context.Background(), CreateAssessmentInput{
		Title:       "Q1 Review",
		CompanyID:   f.company.ID,
		CreatorID:   f.creator.ID,
		Source:      FromTemplate{Language: "bs"},
		AssesseeIDs: []int64{f.assessee.ID},
		Assessors:   []AssessorSpec{{UserID: f.assessor.ID, Relationship: "Manager"}},
	})
	if err != nil {
		t.Fatalf("CreateAssessment returned error: %v", err)
	}
	return out
}

func TestCreateAssessmentFromTemplate(t *testing.T) {
	f := newQ1Fixture()
	out := f.create(t)

	if len(out.Questions) != 5 {
		t.Fatalf("expected 5 questions, got %d", len(out.Questions))
	}
	for i, q := range out.Questions {
		if q.Order != i {
			t.Fatalf("question %d has order %d, want dense order", i, q.Order)
		}
		if q.AssessmentID != out.Assessment.ID {
			t.Fatalf("question not attached to assessment: %+v", q)
		}
	}
	if len(out.Participants) != 2 {
		t.Fatalf("expected 2 participants, got %d", len(out.Participants))
	}
	self, other := out.Participants[0], out.Participants[1]
	if !self.IsSelf() || self.AssesseeID != f.assessee.ID {
		t.Fatalf("first participant should be the self row: %+v", self)
	}
	if other.AssessorID == nil || *other.AssessorID != f.assessor.ID || *other.Relationship != "Manager" {
		t.Fatalf("unexpected assessor row: %+v", other)
	}
	if len(f.store.participants) != 2 || len(f.store.questions) != 5 {
		t.Fatalf("store not populated: %d participants, %d questions", len(f.store.participants), len(f.store.questions))
	}
	if !out.Assessment.IsActive || !out.Assessment.CreatedAt.Equal(fixedNow) {
		t.Fatalf("unexpected assessment: %+v", out.Assessment)
	}
	if len(f.store.audits) != 1 || f.store.audits[0].Action != "create_assessment" {
		t.Fatalf("expected create audit, got %+v", f.store.audits)
	}
}

func TestCreateAssessmentDedupesAssessors(t *testing.T) {
	f := newQ1Fixture()
	out, err := f.assessmentService().CreateAssessment(context.Background(), CreateAssessmentInput{
		Title:       "Dupes",
		CompanyID:   f.company.ID,
		CreatorID:   f.creator.ID,
		Source:      FromTemplate{},
		AssesseeIDs: []int64{f.assessee.ID},
		Assessors: []AssessorSpec{
			{UserID: f.assessor.ID, Relationship: "Peer"},
			{UserID: f.assessor.ID, Relationship: "Manager"},
			{UserID: f.assessee.ID},
		},
	})
	if err != nil {
		t.Fatalf("CreateAssessment returned error: %v", err)
	}
	if len(out.Participants) != 2 {
		t.Fatalf("expected 1 + distinct assessors = 2 rows, got %d", len(out.Participants))
	}
	if rel := *out.Participants[1].Relationship; rel != "Peer" {
		t.Fatalf("first relationship should win, got %q", rel)
	}
}

func TestCreateAssessmentValidation(t *testing.T) {
	f := newQ1Fixture()
	base := func() CreateAssessmentInput {
		return CreateAssessmentInput{
			Title:       "Q1 Review",
			CompanyID:   f.company.ID,
			CreatorID:   f.creator.ID,
			Source:      FromTemplate{},
			AssesseeIDs: []int64{f.assessee.ID},
			Assessors:   []AssessorSpec{{UserID: f.assessor.ID}},
		}
	}
	cases := []struct {
		name   string
		mutate func(*CreateAssessmentInput)
		code   ErrorCode
	}{
		{"missing title", func(in *CreateAssessmentInput) { in.Title = " " }, ErrorInvalid},
		{"no assessee", func(in *CreateAssessmentInput) { in.AssesseeIDs = nil }, ErrorInvalid},
		{"two assessees", func(in *CreateAssessmentInput) { in.AssesseeIDs = []int64{f.assessee.ID, f.assessor.ID} }, ErrorInvalid},
		{"no assessors", func(in *CreateAssessmentInput) { in.Assessors = nil }, ErrorInvalid},
		{"bad deadline", func(in *CreateAssessmentInput) { in.Deadline = "next week" }, ErrorInvalid},
		{"unknown company", func(in *CreateAssessmentInput) { in.CompanyID = 999 }, ErrorNotFound},
		{"unknown assessor", func(in *CreateAssessmentInput) { in.Assessors = []AssessorSpec{{UserID: 999}} }, ErrorNotFound},
		{"empty template pool", func(in *CreateAssessmentInput) { in.Source = FromTemplate{Language: "en"} }, ErrorInvalid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := base()
			tc.mutate(&in)
			_, err := f.assessmentService().CreateAssessment(context.Background(), in)
			if !IsCode(err, tc.code) {
				t.Fatalf("expected %s, got %v", tc.code, err)
			}
			if len(f.store.assessments) != 0 {
				t.Fatalf("no assessment should be stored")
			}
		})
	}
}

func TestCreateAssessmentCustomQuestions(t *testing.T) {
	f := newQ1Fixture()
	out, err := f.assessmentService().CreateAssessment(context.Background(), CreateAssessmentInput{
		Title:       "Custom",
		CompanyID:   f.company.ID,
		CreatorID:   f.creator.ID,
		Deadline:    "2025-04-01T17:30",
		AssesseeIDs: []int64{f.assessee.ID},
		Assessors:   []AssessorSpec{{UserID: f.assessor.ID}},
		Source: CustomQuestions{Questions: []CustomQuestion{
			{Text: "Listens well"},
			{Text: "  "},
			{Text: "Strengths?", Type: models.QuestionText, Group: "Open"},
		}},
	})
	if err != nil {
		t.Fatalf("CreateAssessment returned error: %v", err)
	}
	if len(out.Questions) != 2 || out.Questions[1].Order != 1 || out.Questions[1].Type != models.QuestionText {
		t.Fatalf("unexpected questions: %+v", out.Questions)
	}
	if out.Questions[0].Language != "bs" || out.Questions[0].Type != models.QuestionRating {
		t.Fatalf("defaults not applied: %+v", out.Questions[0])
	}
	want := time.Date(2025, 4, 1, 17, 30, 0, 0, time.UTC)
	if out.Assessment.Deadline == nil || !out.Assessment.Deadline.Equal(want) {
		t.Fatalf("unexpected deadline %v", out.Assessment.Deadline)
	}
}

func TestCreateAssessmentRollsBackOnFailure(t *testing.T) {
	f := newQ1Fixture()
	f.store.failOn["InsertParticipant"] = errors.New("disk full")

	_, err := f.assessmentService().CreateAssessment(context.Background(), CreateAssessmentInput{
		Title:       "Q1 Review",
		CompanyID:   f.company.ID,
		CreatorID:   f.creator.ID,
		Source:      FromTemplate{},
		AssesseeIDs: []int64{f.assessee.ID},
		Assessors:   []AssessorSpec{{UserID: f.assessor.ID}},
	})
	if !IsCode(err, ErrorPersistence) {
		t.Fatalf("expected persistence error, got %v", err)
	}
	if len(f.store.assessments) != 0 || len(f.store.questions) != 0 || len(f.store.participants) != 0 {
		t.Fatalf("partial creation left behind: %d/%d/%d", len(f.store.assessments), len(f.store.questions), len(f.store.participants))
	}
}

func seedResponse(st *stubStore, assessmentID int64, participantID int64) {
	r := &Response{ID: st.id(), AssessmentID: assessmentID, ParticipantID: ptr(participantID), Type: ResponseSelf, Answers: models.AnswerSet{}}
	st.responses[r.ID] = r
}

func seedInvitation(st *stubStore, assessmentID int64, email, token string) *Invitation {
	inv := &Invitation{ID: st.id(), AssessmentID: assessmentID, Email: email, Token: token, SentAt: fixedNow}
	st.invitations[inv.ID] = inv
	return inv
}

func TestDeleteAssessmentCascades(t *testing.T) {
	f := newQ1Fixture()
	out := f.create(t)
	id := out.Assessment.ID
	seedInvitation(f.store, id, "ana@acme.test", "T1")
	seedResponse(f.store, id, out.Participants[0].ID)

	other := f.create(t)

	if err := f.assessmentService().DeleteAssessment(context.Background(), id); err != nil {
		t.Fatalf("DeleteAssessment returned error: %v", err)
	}
	if _, ok := f.store.assessments[id]; ok {
		t.Fatalf("assessment still present")
	}
	for _, p := range f.store.participants {
		if p.AssessmentID == id {
			t.Fatalf("participant left behind")
		}
	}
	if len(f.store.responses) != 0 || len(f.store.invitations) != 0 {
		t.Fatalf("children left behind")
	}
	if qs, _ := f.store.ListQuestions(context.Background(), id); len(qs) != 0 {
		t.Fatalf("questions left behind")
	}
	if qs, _ := f.store.ListQuestions(context.Background(), other.Assessment.ID); len(qs) != 5 {
		t.Fatalf("unrelated assessment touched")
	}

	if err := f.assessmentService().DeleteAssessment(context.Background(), id); !IsCode(err, ErrorNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestDeleteAssessmentRollsBack(t *testing.T) {
	f := newQ1Fixture()
	out := f.create(t)
	id := out.Assessment.ID
	seedInvitation(f.store, id, "ana@acme.test", "T1")
	seedResponse(f.store, id, out.Participants[0].ID)
	f.store.failOn["DeleteQuestionsByAssessment"] = errors.New("locked")

	err := f.assessmentService().DeleteAssessment(context.Background(), id)
	if !IsCode(err, ErrorPersistence) {
		t.Fatalf("expected persistence error, got %v", err)
	}
	if _, ok := f.store.assessments[id]; !ok {
		t.Fatalf("assessment should survive a failed delete")
	}
	if len(f.store.responses) != 1 || len(f.store.participants) != 2 || len(f.store.questions) != 5 || len(f.store.invitations) != 1 {
		t.Fatalf("children changed on rollback: r=%d p=%d q=%d i=%d",
			len(f.store.responses), len(f.store.participants), len(f.store.questions), len(f.store.invitations))
	}
}

func TestUpdateAssessment(t *testing.T) {
	f := newQ1Fixture()
	out := f.create(t)
	svc := f.assessmentService()

	got, err := svc.UpdateAssessment(context.Background(), out.Assessment.ID, UpdateAssessmentInput{
		Title:     "Q1 Review (final)",
		CompanyID: f.company.ID,
		Deadline:  "2025-03-31",
		IsActive:  false,
	})
	if err != nil {
		t.Fatalf("UpdateAssessment returned error: %v", err)
	}
	if got.Title != "Q1 Review (final)" || got.IsActive || got.Deadline == nil {
		t.Fatalf("unexpected update result: %+v", got)
	}
	if _, err := svc.UpdateAssessment(context.Background(), out.Assessment.ID, UpdateAssessmentInput{Title: "x", CompanyID: 404}); !IsCode(err, ErrorNotFound) {
		t.Fatalf("expected company not found, got %v", err)
	}
}

func TestUpdateAssessmentFailsWhenAuditFails(t *testing.T) {
	f := newQ1Fixture()
	out := f.create(t)
	f.store.failOn["AddAudit"] = errors.New("audit table locked")

	_, err := f.assessmentService().UpdateAssessment(context.Background(), out.Assessment.ID, UpdateAssessmentInput{
		Title:     "Renamed",
		CompanyID: f.company.ID,
		IsActive:  true,
	})
	if !IsCode(err, ErrorPersistence) {
		t.Fatalf("expected persistence error, got %v", err)
	}
	if f.store.assessments[out.Assessment.ID].Title == "Renamed" {
		t.Fatalf("update should be rolled back")
	}
}

func TestRepairQuestionOrder(t *testing.T) {
	f := newQ1Fixture()
	out := f.create(t)
	for i, q := range out.Questions {
		f.store.questions[q.ID].Order = int(q.ID) + i
	}
	moved, err := f.assessmentService().RepairQuestionOrder(context.Background(), out.Assessment.ID)
	if err != nil {
		t.Fatalf("RepairQuestionOrder returned error: %v", err)
	}
	if moved != 5 {
		t.Fatalf("expected 5 moved questions, got %d", moved)
	}
	detail, err := f.assessmentService().GetAssessment(context.Background(), out.Assessment.ID)
	if err != nil {
		t.Fatalf("GetAssessment returned error: %v", err)
	}
	for i, q := range detail.Questions {
		if q.Order != i || q.Text != fmt.Sprintf("Q%d", i+1) {
			t.Fatalf("question %d out of place: %+v", i, q)
		}
	}
}
