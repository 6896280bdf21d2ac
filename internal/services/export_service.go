package services

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
)

type ExportStore interface {
	GetAssessment(ctx context.Context, id int64) (*Assessment, error)
	GetCompany(ctx context.Context, id int64) (*Company, error)
	GetUser(ctx context.Context, id int64) (*User, error)
	ListQuestions(ctx context.Context, assessmentID int64) ([]*Question, error)
	ListParticipants(ctx context.Context, assessmentID int64) ([]*Participant, error)
	ListResponsesByAssessment(ctx context.Context, assessmentID int64) ([]*Response, error)
	CountInvitationsByAssessment(ctx context.Context, assessmentID int64) (int, error)
}

type ExportFormat string

const (
	ExportFormatCSV      ExportFormat = "csv"
	ExportFormatDetailed ExportFormat = "detailed"
)

type ExportResult struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Completion is the completed-responses over invitations ratio of an assessment.
type Completion struct {
	Total     int     `json:"total_participants"`
	Completed int     `json:"completed_responses"`
	Rate      float64 `json:"completion_rate"`
}

func newCompletion(total, completed int) Completion {
	c := Completion{Total: total, Completed: completed}
	if total > 0 {
		c.Rate = math.Round(float64(completed)/float64(total)*1000) / 10
	}
	return c
}

type ReportAnswer struct {
	Respondent string       `json:"respondent"`
	Type       ResponseType `json:"response_type"`
	Answer     string       `json:"answer"`
}

type ReportQuestion struct {
	*Question
	Answers []ReportAnswer `json:"answers"`
}

type ReportGroup struct {
	Name      string            `json:"name"`
	Questions []*ReportQuestion `json:"questions"`
}

type AssessmentReport struct {
	Assessment *Assessment    `json:"assessment"`
	Completion Completion     `json:"completion"`
	Groups     []*ReportGroup `json:"groups"`
}

type ExportService struct {
	store ExportStore
}

func NewExportService(store ExportStore) *ExportService {
	return &ExportService{store: store}
}

// respondent is who answered a response, resolved through its participant
// row or, for legacy rows, its user.
type respondent struct {
	id           string
	name         string
	email        string
	role         string
	assesseeName string
	label        string
	selfRow      bool
}

// exportData is everything an export reads for one assessment.
type exportData struct {
	assessment   *Assessment
	company      *Company
	questions    []*Question
	responses    []*Response
	participants map[int64]*Participant
	users        map[int64]*User
	invitations  int
}

func (s *ExportService) load(ctx context.Context, id int64) (*exportData, error) {
	a, err := s.store.GetAssessment(ctx, id)
	if err != nil {
		return nil, NewPersistenceError(err)
	}
	if a == nil {
		return nil, NewNotFoundError("assessment not found")
	}
	d := &exportData{assessment: a, participants: map[int64]*Participant{}, users: map[int64]*User{}}
	if d.company, err = s.store.GetCompany(ctx, a.CompanyID); err != nil {
		return nil, NewPersistenceError(err)
	}
	if d.questions, err = s.store.ListQuestions(ctx, id); err != nil {
		return nil, NewPersistenceError(err)
	}
	sortByOrder(d.questions)
	if d.responses, err = s.store.ListResponsesByAssessment(ctx, id); err != nil {
		return nil, NewPersistenceError(err)
	}
	rows, err := s.store.ListParticipants(ctx, id)
	if err != nil {
		return nil, NewPersistenceError(err)
	}
	for _, p := range rows {
		d.participants[p.ID] = p
	}
	if d.invitations, err = s.store.CountInvitationsByAssessment(ctx, id); err != nil {
		return nil, NewPersistenceError(err)
	}
	return d, nil
}

func (s *ExportService) user(ctx context.Context, d *exportData, id int64) (*User, error) {
	if u, ok := d.users[id]; ok {
		return u, nil
	}
	u, err := s.store.GetUser(ctx, id)
	if err != nil {
		return nil, NewPersistenceError(err)
	}
	d.users[id] = u
	return u, nil
}

func (s *ExportService) respondent(ctx context.Context, d *exportData, r *Response) (respondent, error) {
	var p *Participant
	if r.ParticipantID != nil {
		p = d.participants[*r.ParticipantID]
	}
	if p == nil {
		out := respondent{name: "Anonymous", email: "N/A", role: "User"}
		if r.UserID != nil {
			u, err := s.user(ctx, d, *r.UserID)
			if err != nil {
				return out, err
			}
			if u != nil {
				out.id = strconv.FormatInt(u.ID, 10)
				out.name, out.email = u.Name, u.Email
				if role := strings.TrimSpace(u.Role); role != "" {
					out.role = role
				}
			}
		}
		out.label = out.name
		return out, nil
	}
	assessee, err := s.user(ctx, d, p.AssesseeID)
	if err != nil {
		return respondent{}, err
	}
	out := respondent{}
	if assessee != nil {
		out.assesseeName = assessee.Name
	}
	if p.IsSelf() {
		out.selfRow = true
		out.id = strconv.FormatInt(p.AssesseeID, 10)
		if assessee != nil {
			out.name, out.email = assessee.Name, assessee.Email
		}
		out.role = "Self-Assessment"
		out.label = fmt.Sprintf("%s (Self-Assessment)", out.name)
		return out, nil
	}
	assessor, err := s.user(ctx, d, *p.AssessorID)
	if err != nil {
		return respondent{}, err
	}
	out.id = strconv.FormatInt(*p.AssessorID, 10)
	if assessor != nil {
		out.name, out.email = assessor.Name, assessor.Email
	}
	out.role = "Assessor"
	if p.Relationship != nil && strings.TrimSpace(*p.Relationship) != "" {
		out.role = strings.TrimSpace(*p.Relationship)
	}
	out.label = fmt.Sprintf("%s (Assessor for %s)", out.name, out.assesseeName)
	return out, nil
}

// assesseeNames lists the distinct self-row responders in response order.
func assesseeNames(rs []respondent) []string {
	seen := map[string]bool{}
	var out []string
	for _, r := range rs {
		if !r.selfRow {
			continue
		}
		n := strings.ReplaceAll(r.name, " ", "_")
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}

func (s *ExportService) Export(ctx context.Context, assessmentID int64, format ExportFormat) (*ExportResult, error) {
	switch format {
	case "", ExportFormatCSV:
		return s.ExportCSV(ctx, assessmentID)
	case ExportFormatDetailed:
		return s.DetailedReport(ctx, assessmentID)
	default:
		return nil, NewInvalidError("unsupported format")
	}
}

// ExportCSV renders one row per response. Answer columns follow the questions
// sorted by order then id, so legacy rows sharing an order keep a column each.
func (s *ExportService) ExportCSV(ctx context.Context, assessmentID int64) (*ExportResult, error) {
	d, err := s.load(ctx, assessmentID)
	if err != nil {
		return nil, err
	}
	columns := len(d.questions)
	if columns < MinQuestionColumns {
		columns = MinQuestionColumns
	}
	rows := make([]ExportRow, 0, len(d.responses))
	who := make([]respondent, 0, len(d.responses))
	for _, r := range d.responses {
		rp, err := s.respondent(ctx, d, r)
		if err != nil {
			return nil, err
		}
		who = append(who, rp)
		row := ExportRow{
			AssessmentID:    d.assessment.ID,
			ParticipantID:   rp.id,
			AssesseeName:    rp.assesseeName,
			ParticipantName: rp.name,
			Email:           rp.email,
			Role:            rp.role,
			Answers:         make([]string, columns),
		}
		if d.company != nil {
			row.CompanyID = strconv.FormatInt(d.company.ID, 10)
			row.CompanyName, row.Industry = d.company.Name, d.company.Industry
		}
		for i, q := range d.questions {
			row.Answers[i], _ = r.Answers.Get(q.ID)
		}
		rows = append(rows, row)
	}
	b, err := ExportResponsesCSV(rows, columns)
	if err != nil {
		return nil, err
	}
	return &ExportResult{
		Filename:    ExportFilename(d.assessment.ID, d.assessment.Title, assesseeNames(who), "export.csv"),
		ContentType: "text/csv; charset=utf-8",
		Data:        b,
	}, nil
}

// DetailedReport renders the plain-text report of every answer grouped by
// question group.
func (s *ExportService) DetailedReport(ctx context.Context, assessmentID int64) (*ExportResult, error) {
	d, err := s.load(ctx, assessmentID)
	if err != nil {
		return nil, err
	}
	groups, who, err := s.groups(ctx, d)
	if err != nil {
		return nil, err
	}
	h := ReportHeader{
		AssessmentID: d.assessment.ID,
		Title:        d.assessment.Title,
		Description:  d.assessment.Description,
		CreatedAt:    d.assessment.CreatedAt.Format("2006-01-02 15:04:05"),
		Active:       d.assessment.IsActive,
		Completion:   newCompletion(d.invitations, len(d.responses)),
	}
	creator, err := s.user(ctx, d, d.assessment.CreatorID)
	if err != nil {
		return nil, err
	}
	if creator != nil {
		h.Creator = creator.Name
	}
	return &ExportResult{
		Filename:    ExportFilename(d.assessment.ID, d.assessment.Title, assesseeNames(who), "detailed_report.txt"),
		ContentType: "text/plain; charset=utf-8",
		Data:        RenderDetailedReport(h, groups),
	}, nil
}

// groups buckets questions by group in order of first appearance and pairs
// every question with one answer per response.
func (s *ExportService) groups(ctx context.Context, d *exportData) ([]ReportGroup, []respondent, error) {
	who := make([]respondent, 0, len(d.responses))
	for _, r := range d.responses {
		rp, err := s.respondent(ctx, d, r)
		if err != nil {
			return nil, nil, err
		}
		who = append(who, rp)
	}
	var out []ReportGroup
	index := map[string]int{}
	for _, q := range d.questions {
		name := q.GroupLabel()
		i, ok := index[name]
		if !ok {
			i = len(out)
			index[name] = i
			out = append(out, ReportGroup{Name: name})
		}
		rq := &ReportQuestion{Question: q, Answers: make([]ReportAnswer, 0, len(d.responses))}
		for k, r := range d.responses {
			ans, _ := r.Answers.Get(q.ID)
			rq.Answers = append(rq.Answers, ReportAnswer{Respondent: who[k].label, Type: r.Type, Answer: ans})
		}
		out[i].Questions = append(out[i].Questions, rq)
	}
	return out, who, nil
}

func (s *ExportService) Completion(ctx context.Context, assessmentID int64) (*Completion, error) {
	a, err := s.store.GetAssessment(ctx, assessmentID)
	if err != nil {
		return nil, NewPersistenceError(err)
	}
	if a == nil {
		return nil, NewNotFoundError("assessment not found")
	}
	total, err := s.store.CountInvitationsByAssessment(ctx, assessmentID)
	if err != nil {
		return nil, NewPersistenceError(err)
	}
	rs, err := s.store.ListResponsesByAssessment(ctx, assessmentID)
	if err != nil {
		return nil, NewPersistenceError(err)
	}
	c := newCompletion(total, len(rs))
	return &c, nil
}

// AssessmentReport is the structured form of the detailed report.
func (s *ExportService) AssessmentReport(ctx context.Context, assessmentID int64) (*AssessmentReport, error) {
	d, err := s.load(ctx, assessmentID)
	if err != nil {
		return nil, err
	}
	groups, _, err := s.groups(ctx, d)
	if err != nil {
		return nil, err
	}
	out := &AssessmentReport{
		Assessment: d.assessment,
		Completion: newCompletion(d.invitations, len(d.responses)),
		Groups:     make([]*ReportGroup, 0, len(groups)),
	}
	for i := range groups {
		out.Groups = append(out.Groups, &groups[i])
	}
	return out, nil
}
