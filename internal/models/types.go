package models

import "time"

// Company owns users and assessments.
type Company struct {
	ID          int64     `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description,omitempty"`
	Industry    string    `db:"industry" json:"industry,omitempty"`
	IsActive    bool      `db:"is_active" json:"is_active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// User is anyone who can be assessed, assess, or create assessments.
// Role is a free-form label and never used for access control.
type User struct {
	ID        int64     `db:"id" json:"id"`
	Email     string    `db:"email" json:"email"`
	Name      string    `db:"name" json:"name"`
	CompanyID *int64    `db:"company_id" json:"company_id,omitempty"`
	Role      string    `db:"role" json:"role"`
	IsActive  bool      `db:"is_active" json:"is_active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type Assessment struct {
	ID          int64      `db:"id" json:"id"`
	Title       string     `db:"title" json:"title"`
	Description string     `db:"description" json:"description,omitempty"`
	CompanyID   int64      `db:"company_id" json:"company_id"`
	CreatorID   int64      `db:"creator_id" json:"creator_id"`
	Deadline    *time.Time `db:"deadline" json:"deadline,omitempty"`
	IsActive    bool       `db:"is_active" json:"is_active"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}

// Overdue reports whether an active assessment has passed its deadline.
func (a *Assessment) Overdue(now time.Time) bool {
	return a.IsActive && a.Deadline != nil && a.Deadline.Before(now)
}

type QuestionType string

const (
	QuestionRating         QuestionType = "rating"
	QuestionText           QuestionType = "text"
	QuestionMultipleChoice QuestionType = "multiple_choice"
)

// Valid reports whether t is one of the supported question types.
func (t QuestionType) Valid() bool {
	switch t {
	case QuestionRating, QuestionText, QuestionMultipleChoice:
		return true
	}
	return false
}

// DefaultGroup labels questions that carry no group.
const DefaultGroup = "General"

// TemplateQuestion lives in the template pool. It is never answered directly;
// new assessments copy it into their own Question rows.
type TemplateQuestion struct {
	ID       int64        `db:"id" json:"id"`
	Text     string       `db:"question_text" json:"text"`
	Group    string       `db:"question_group" json:"group,omitempty"`
	Type     QuestionType `db:"question_type" json:"type"`
	Language string       `db:"language" json:"language"`
	Options  string       `db:"options" json:"options,omitempty"`
	Position int          `db:"position" json:"position"`
}

type Question struct {
	ID           int64        `db:"id" json:"id"`
	AssessmentID int64        `db:"assessment_id" json:"assessment_id"`
	Text         string       `db:"question_text" json:"text"`
	Group        string       `db:"question_group" json:"group,omitempty"`
	Type         QuestionType `db:"question_type" json:"type"`
	Language     string       `db:"language" json:"language"`
	Options      string       `db:"options" json:"options,omitempty"`
	Order        int          `db:"position" json:"order"`
}

// GroupLabel returns the question group or DefaultGroup.
func (q *Question) GroupLabel() string {
	if q.Group == "" {
		return DefaultGroup
	}
	return q.Group
}

// Participant links an assessee to an assessor. A nil AssessorID marks the
// assessee's own self-assessment row.
type Participant struct {
	ID                  int64      `db:"id" json:"id"`
	AssessmentID        int64      `db:"assessment_id" json:"assessment_id"`
	AssesseeID          int64      `db:"assessee_id" json:"assessee_id"`
	AssessorID          *int64     `db:"assessor_id" json:"assessor_id,omitempty"`
	Relationship        *string    `db:"assessor_relationship" json:"relationship,omitempty"`
	CreatedAt           time.Time  `db:"created_at" json:"created_at"`
	SelfCompleted       bool       `db:"self_assessment_completed" json:"self_assessment_completed"`
	SelfCompletedAt     *time.Time `db:"self_assessment_date" json:"self_assessment_date,omitempty"`
	AssessorCompleted   bool       `db:"assessor_assessment_completed" json:"assessor_assessment_completed"`
	AssessorCompletedAt *time.Time `db:"assessor_assessment_date" json:"assessor_assessment_date,omitempty"`
}

func (p *Participant) IsSelf() bool { return p.AssessorID == nil }

// ResponseTypeFor returns the response type recorded for submissions against p.
func (p *Participant) ResponseTypeFor() ResponseType {
	if p.IsSelf() {
		return ResponseSelf
	}
	return ResponseAssessor
}

// Invitation is a single-use access grant addressed to one email.
type Invitation struct {
	ID           int64      `db:"id" json:"id"`
	AssessmentID int64      `db:"assessment_id" json:"assessment_id"`
	SenderID     *int64     `db:"sender_id" json:"sender_id,omitempty"`
	Email        string     `db:"email" json:"email"`
	Token        string     `db:"token" json:"-"`
	SentAt       time.Time  `db:"sent_at" json:"sent_at"`
	RespondedAt  *time.Time `db:"responded_at" json:"responded_at,omitempty"`
	Completed    bool       `db:"is_completed" json:"is_completed"`
}

type ResponseType string

const (
	ResponseSelf     ResponseType = "self"
	ResponseAssessor ResponseType = "assessor"
)

type Response struct {
	ID            int64        `db:"id" json:"id"`
	AssessmentID  int64        `db:"assessment_id" json:"assessment_id"`
	UserID        *int64       `db:"user_id" json:"user_id,omitempty"`
	InvitationID  *int64       `db:"invitation_id" json:"invitation_id,omitempty"`
	ParticipantID *int64       `db:"participant_id" json:"participant_id,omitempty"`
	Answers       AnswerSet    `db:"responses" json:"responses"`
	Type          ResponseType `db:"response_type" json:"response_type"`
	SubmittedAt   time.Time    `db:"submitted_at" json:"submitted_at"`
}

type AuditEntry struct {
	ID     int64     `db:"id" json:"id"`
	Time   time.Time `db:"created_at" json:"time"`
	Actor  string    `db:"actor" json:"actor"`
	Action string    `db:"action" json:"action"`
	Target string    `db:"target" json:"target"`
	Note   string    `db:"note" json:"note,omitempty"`
}
