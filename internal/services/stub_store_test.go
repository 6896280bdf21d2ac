package services

import (
	"context"
	"sort"
	"strings"
	"time"
)

// stubStore is an in-memory store shared by the service tests. InTx snapshots
// every table and restores it when fn fails, so rollback can be asserted.
// failOn makes the named method return the mapped error. onTx, when set, runs
// once as the next transaction opens.
type stubStore struct {
	nextID       int64
	companies    map[int64]*Company
	users        map[int64]*User
	assessments  map[int64]*Assessment
	questions    map[int64]*Question
	templates    map[int64]*TemplateQuestion
	participants map[int64]*Participant
	invitations  map[int64]*Invitation
	responses    map[int64]*Response
	audits       []AuditEntry

	failOn map[string]error
	onTx   func()
	txs    int
}

func newStubStore() *stubStore {
	return &stubStore{
		companies:    map[int64]*Company{},
		users:        map[int64]*User{},
		assessments:  map[int64]*Assessment{},
		questions:    map[int64]*Question{},
		templates:    map[int64]*TemplateQuestion{},
		participants: map[int64]*Participant{},
		invitations:  map[int64]*Invitation{},
		responses:    map[int64]*Response{},
		failOn:       map[string]error{},
	}
}

func cloneMap[T any](m map[int64]*T) map[int64]*T {
	out := make(map[int64]*T, len(m))
	for k, v := range m {
		cp := *v
		out[k] = &cp
	}
	return out
}

func (s *stubStore) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *stubStore) fail(method string) error {
	return s.failOn[method]
}

func (s *stubStore) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	s.txs++
	if hook := s.onTx; hook != nil {
		s.onTx = nil
		hook()
	}
	snap := *s
	snap.companies = cloneMap(s.companies)
	snap.users = cloneMap(s.users)
	snap.assessments = cloneMap(s.assessments)
	snap.questions = cloneMap(s.questions)
	snap.templates = cloneMap(s.templates)
	snap.participants = cloneMap(s.participants)
	snap.invitations = cloneMap(s.invitations)
	snap.responses = cloneMap(s.responses)
	snap.audits = append([]AuditEntry(nil), s.audits...)
	if err := fn(ctx); err != nil {
		failOn, txs := s.failOn, s.txs
		*s = snap
		s.failOn, s.txs, s.onTx = failOn, txs, nil
		return err
	}
	return nil
}

func (s *stubStore) AddAudit(_ context.Context, e AuditEntry) error {
	if err := s.fail("AddAudit"); err != nil {
		return err
	}
	e.ID = s.id()
	s.audits = append(s.audits, e)
	return nil
}

func (s *stubStore) ListAudit(_ context.Context, limit int) ([]AuditEntry, error) {
	if err := s.fail("ListAudit"); err != nil {
		return nil, err
	}
	out := append([]AuditEntry(nil), s.audits...)
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

// companies and users

func (s *stubStore) addCompany(name string) *Company {
	c := &Company{ID: s.id(), Name: name, IsActive: true}
	s.companies[c.ID] = c
	return c
}

func (s *stubStore) addUser(name, email string, companyID int64) *User {
	u := &User{ID: s.id(), Name: name, Email: email, CompanyID: ptr(companyID), Role: "employee", IsActive: true}
	s.users[u.ID] = u
	return u
}

func (s *stubStore) InsertCompany(_ context.Context, c *Company) (int64, error) {
	cp := *c
	cp.ID = s.id()
	s.companies[cp.ID] = &cp
	return cp.ID, nil
}

func (s *stubStore) GetCompany(_ context.Context, id int64) (*Company, error) {
	if c, ok := s.companies[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, nil
}

func (s *stubStore) GetCompanyByName(_ context.Context, name string) (*Company, error) {
	for _, c := range s.companies {
		if strings.EqualFold(c.Name, name) {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *stubStore) ListCompanies(context.Context) ([]*Company, error) {
	out := []*Company{}
	for _, c := range s.companies {
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *stubStore) CountCompanyDependents(_ context.Context, id int64) (int, int, error) {
	users, assessments := 0, 0
	for _, u := range s.users {
		if u.CompanyID != nil && *u.CompanyID == id {
			users++
		}
	}
	for _, a := range s.assessments {
		if a.CompanyID == id {
			assessments++
		}
	}
	return users, assessments, nil
}

func (s *stubStore) DeleteCompany(_ context.Context, id int64) error {
	delete(s.companies, id)
	return nil
}

func (s *stubStore) InsertUser(_ context.Context, u *User) (int64, error) {
	cp := *u
	cp.ID = s.id()
	s.users[cp.ID] = &cp
	return cp.ID, nil
}

func (s *stubStore) GetUser(_ context.Context, id int64) (*User, error) {
	if u, ok := s.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (s *stubStore) GetUserByEmail(_ context.Context, email string) (*User, error) {
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *stubStore) ListUsersByCompany(_ context.Context, companyID int64, activeOnly bool) ([]*User, error) {
	out := []*User{}
	for _, u := range s.users {
		if u.CompanyID == nil || *u.CompanyID != companyID || (activeOnly && !u.IsActive) {
			continue
		}
		cp := *u
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *stubStore) ActiveInvolvement(_ context.Context, userID int64, email string) (Involvement, error) {
	var inv Involvement
	for _, a := range s.assessments {
		if a.IsActive && a.CreatorID == userID {
			inv.Created++
		}
	}
	for _, p := range s.participants {
		a := s.assessments[p.AssessmentID]
		if a == nil || !a.IsActive {
			continue
		}
		if p.AssesseeID == userID {
			inv.Assessee++
		}
		if p.AssessorID != nil && *p.AssessorID == userID {
			inv.Assessor++
		}
	}
	for _, i := range s.invitations {
		a := s.assessments[i.AssessmentID]
		if a != nil && a.IsActive && !i.Completed && strings.EqualFold(i.Email, email) {
			inv.PendingInvitations++
		}
	}
	return inv, nil
}

func (s *stubStore) ListInactiveAssessmentIDsByCreator(_ context.Context, userID int64) ([]int64, error) {
	var out []int64
	for _, a := range s.assessments {
		if !a.IsActive && a.CreatorID == userID {
			out = append(out, a.ID)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (s *stubStore) inactive(assessmentID int64) bool {
	a := s.assessments[assessmentID]
	return a != nil && !a.IsActive
}

func (s *stubStore) DeleteInactiveFootprint(_ context.Context, userID int64) (int64, error) {
	var n int64
	for id, p := range s.participants {
		mine := p.AssesseeID == userID || (p.AssessorID != nil && *p.AssessorID == userID)
		if mine && s.inactive(p.AssessmentID) {
			delete(s.participants, id)
			n++
		}
	}
	for id, r := range s.responses {
		if r.UserID != nil && *r.UserID == userID && s.inactive(r.AssessmentID) {
			delete(s.responses, id)
			n++
		}
	}
	for id, i := range s.invitations {
		if i.SenderID != nil && *i.SenderID == userID && s.inactive(i.AssessmentID) {
			delete(s.invitations, id)
			n++
		}
	}
	return n, nil
}

func (s *stubStore) DeleteUser(_ context.Context, id int64) error {
	if err := s.fail("DeleteUser"); err != nil {
		return err
	}
	delete(s.users, id)
	for _, i := range s.invitations {
		if i.SenderID != nil && *i.SenderID == id {
			i.SenderID = nil
		}
	}
	for _, r := range s.responses {
		if r.UserID != nil && *r.UserID == id {
			r.UserID = nil
		}
	}
	return nil
}

// assessments and questions

func (s *stubStore) InsertAssessment(_ context.Context, a *Assessment) (int64, error) {
	cp := *a
	cp.ID = s.id()
	s.assessments[cp.ID] = &cp
	return cp.ID, nil
}

func (s *stubStore) GetAssessment(_ context.Context, id int64) (*Assessment, error) {
	if a, ok := s.assessments[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, nil
}

func (s *stubStore) ListAssessments(_ context.Context, companyID int64) ([]*Assessment, error) {
	out := []*Assessment{}
	for _, a := range s.assessments {
		if companyID != 0 && a.CompanyID != companyID {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *stubStore) UpdateAssessment(_ context.Context, a *Assessment) error {
	cp := *a
	s.assessments[a.ID] = &cp
	return nil
}

func (s *stubStore) ListOverdueAssessments(_ context.Context, now time.Time) ([]*Assessment, error) {
	out := []*Assessment{}
	for _, a := range s.assessments {
		if a.Overdue(now) {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *stubStore) InsertQuestion(_ context.Context, q *Question) (int64, error) {
	if err := s.fail("InsertQuestion"); err != nil {
		return 0, err
	}
	cp := *q
	cp.ID = s.id()
	s.questions[cp.ID] = &cp
	return cp.ID, nil
}

func (s *stubStore) ListQuestions(_ context.Context, assessmentID int64) ([]*Question, error) {
	out := []*Question{}
	for _, q := range s.questions {
		if q.AssessmentID == assessmentID {
			cp := *q
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *stubStore) UpdateQuestionOrder(_ context.Context, id int64, order int) error {
	if q, ok := s.questions[id]; ok {
		q.Order = order
	}
	return nil
}

func (s *stubStore) InsertTemplateQuestion(_ context.Context, q *TemplateQuestion) (int64, error) {
	cp := *q
	cp.ID = s.id()
	s.templates[cp.ID] = &cp
	return cp.ID, nil
}

func (s *stubStore) ListTemplateQuestions(_ context.Context, language string) ([]*TemplateQuestion, error) {
	out := []*TemplateQuestion{}
	for _, q := range s.templates {
		if q.Language == language {
			cp := *q
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *stubStore) UpdateTemplateOrder(_ context.Context, id int64, position int) error {
	if q, ok := s.templates[id]; ok {
		q.Position = position
	}
	return nil
}

// participants

func (s *stubStore) InsertParticipant(_ context.Context, p *Participant) (int64, error) {
	if err := s.fail("InsertParticipant"); err != nil {
		return 0, err
	}
	cp := *p
	cp.ID = s.id()
	s.participants[cp.ID] = &cp
	return cp.ID, nil
}

func (s *stubStore) GetParticipant(_ context.Context, id int64) (*Participant, error) {
	if p, ok := s.participants[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

func (s *stubStore) ListParticipants(_ context.Context, assessmentID int64) ([]*Participant, error) {
	out := []*Participant{}
	for _, p := range s.participants {
		if p.AssessmentID == assessmentID {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *stubStore) CountResponsesByParticipant(_ context.Context, participantID int64) (int, error) {
	n := 0
	for _, r := range s.responses {
		if r.ParticipantID != nil && *r.ParticipantID == participantID {
			n++
		}
	}
	return n, nil
}

func (s *stubStore) DeleteParticipant(_ context.Context, id int64) error {
	delete(s.participants, id)
	return nil
}

func (s *stubStore) MarkParticipantCompleted(_ context.Context, id int64, typ ResponseType, at time.Time) error {
	if err := s.fail("MarkParticipantCompleted"); err != nil {
		return err
	}
	p, ok := s.participants[id]
	if !ok {
		return nil
	}
	if typ == ResponseSelf {
		p.SelfCompleted, p.SelfCompletedAt = true, ptr(at)
	} else {
		p.AssessorCompleted, p.AssessorCompletedAt = true, ptr(at)
	}
	return nil
}

// invitations

func (s *stubStore) InsertInvitation(_ context.Context, inv *Invitation) (int64, error) {
	if err := s.fail("InsertInvitation"); err != nil {
		return 0, err
	}
	cp := *inv
	cp.ID = s.id()
	s.invitations[cp.ID] = &cp
	return cp.ID, nil
}

func (s *stubStore) GetInvitation(_ context.Context, id int64) (*Invitation, error) {
	if i, ok := s.invitations[id]; ok {
		cp := *i
		return &cp, nil
	}
	return nil, nil
}

func (s *stubStore) GetInvitationByToken(_ context.Context, token string) (*Invitation, error) {
	for _, i := range s.invitations {
		if i.Token == token {
			cp := *i
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *stubStore) listInvitations(keep func(*Invitation) bool) []*Invitation {
	out := []*Invitation{}
	for _, i := range s.invitations {
		if keep(i) {
			cp := *i
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ID < out[b].ID })
	return out
}

func (s *stubStore) ListInvitations(context.Context) ([]*Invitation, error) {
	return s.listInvitations(func(*Invitation) bool { return true }), nil
}

func (s *stubStore) ListInvitationsByAssessment(_ context.Context, assessmentID int64) ([]*Invitation, error) {
	return s.listInvitations(func(i *Invitation) bool { return i.AssessmentID == assessmentID }), nil
}

func (s *stubStore) ListPendingInvitations(context.Context) ([]*Invitation, error) {
	return s.listInvitations(func(i *Invitation) bool { return !i.Completed }), nil
}

func (s *stubStore) CountInvitationsByAssessment(_ context.Context, assessmentID int64) (int, error) {
	return len(s.listInvitations(func(i *Invitation) bool { return i.AssessmentID == assessmentID })), nil
}

func (s *stubStore) DeleteInvitation(_ context.Context, id int64) error {
	delete(s.invitations, id)
	return nil
}

func (s *stubStore) DeletePendingInvitations(_ context.Context, ids []int64) (int64, error) {
	var n int64
	for _, id := range ids {
		if i, ok := s.invitations[id]; ok && !i.Completed {
			delete(s.invitations, id)
			n++
		}
	}
	return n, nil
}

func (s *stubStore) DeletePendingInvitationsByEmail(_ context.Context, assessmentID int64, email string) (int64, error) {
	var n int64
	for id, i := range s.invitations {
		if i.AssessmentID == assessmentID && !i.Completed && strings.EqualFold(i.Email, email) {
			delete(s.invitations, id)
			n++
		}
	}
	return n, nil
}

func (s *stubStore) MarkInvitationCompleted(_ context.Context, id int64, at time.Time) error {
	i, ok := s.invitations[id]
	if !ok || i.Completed {
		return ErrInvitationClosed
	}
	i.Completed, i.RespondedAt = true, ptr(at)
	return nil
}

// responses

func (s *stubStore) InsertResponse(_ context.Context, r *Response) (int64, error) {
	if err := s.fail("InsertResponse"); err != nil {
		return 0, err
	}
	cp := *r
	cp.ID = s.id()
	s.responses[cp.ID] = &cp
	return cp.ID, nil
}

func (s *stubStore) ListResponsesByAssessment(_ context.Context, assessmentID int64) ([]*Response, error) {
	out := []*Response{}
	for _, r := range s.responses {
		if r.AssessmentID == assessmentID {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *stubStore) AssessmentCounts(context.Context) ([]AssessmentCounts, error) {
	byID := map[int64]*AssessmentCounts{}
	for id := range s.assessments {
		byID[id] = &AssessmentCounts{AssessmentID: id}
	}
	for _, i := range s.invitations {
		if c, ok := byID[i.AssessmentID]; ok {
			c.Invitations++
		}
	}
	for _, r := range s.responses {
		if c, ok := byID[r.AssessmentID]; ok {
			c.Responses++
		}
	}
	out := []AssessmentCounts{}
	for _, c := range byID {
		out = append(out, *c)
	}
	return out, nil
}

func (s *stubStore) ListUserActivity(context.Context) ([]UserActivity, error) {
	out := []UserActivity{}
	for _, u := range s.users {
		ua := UserActivity{UserID: u.ID, Name: u.Name, Email: u.Email}
		for _, a := range s.assessments {
			if a.CreatorID == u.ID {
				ua.AssessmentsCreated++
			}
		}
		for _, i := range s.invitations {
			if i.SenderID != nil && *i.SenderID == u.ID {
				ua.InvitationsSent++
			}
		}
		out = append(out, ua)
	}
	return out, nil
}

// cascade

func (s *stubStore) DeleteResponsesByAssessment(_ context.Context, id int64) (int64, error) {
	var n int64
	for k, r := range s.responses {
		if r.AssessmentID == id {
			delete(s.responses, k)
			n++
		}
	}
	return n, nil
}

func (s *stubStore) DeleteParticipantsByAssessment(_ context.Context, id int64) (int64, error) {
	var n int64
	for k, p := range s.participants {
		if p.AssessmentID == id {
			delete(s.participants, k)
			n++
		}
	}
	return n, nil
}

func (s *stubStore) DeleteQuestionsByAssessment(_ context.Context, id int64) (int64, error) {
	if err := s.fail("DeleteQuestionsByAssessment"); err != nil {
		return 0, err
	}
	var n int64
	for k, q := range s.questions {
		if q.AssessmentID == id {
			delete(s.questions, k)
			n++
		}
	}
	return n, nil
}

func (s *stubStore) DeleteInvitationsByAssessment(_ context.Context, id int64) (int64, error) {
	var n int64
	for k, i := range s.invitations {
		if i.AssessmentID == id {
			delete(s.invitations, k)
			n++
		}
	}
	return n, nil
}

func (s *stubStore) DeleteAssessment(_ context.Context, id int64) error {
	delete(s.assessments, id)
	return nil
}

var (
	_ AssessmentStore  = (*stubStore)(nil)
	_ ParticipantStore = (*stubStore)(nil)
	_ InvitationStore  = (*stubStore)(nil)
	_ ResponseStore    = (*stubStore)(nil)
	_ IdentityStore    = (*stubStore)(nil)
	_ TemplateStore    = (*stubStore)(nil)
	_ ExportStore      = (*stubStore)(nil)
	_ AnalyticsStore   = (*stubStore)(nil)
	_ AuditStore       = (*stubStore)(nil)
)

// recordingNotifier captures messages and fails for addresses in failFor.
type recordingNotifier struct {
	sent    []InvitationMessage
	failFor map[string]error
}

func (n *recordingNotifier) Notify(_ context.Context, msg InvitationMessage) error {
	if err := n.failFor[msg.Email]; err != nil {
		return err
	}
	n.sent = append(n.sent, msg)
	return nil
}
