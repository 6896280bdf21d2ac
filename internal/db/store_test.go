package db

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soaringjerry/modern360/internal/models"
	"github.com/soaringjerry/modern360/internal/services"
)

var testNow = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	conn, err := Open(DriverSQLite, fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, RunMigrations(conn))
	return NewStore(conn)
}

type seed struct {
	company        *services.Company
	admin, ana, bo *services.User
}

func seedPeople(t *testing.T, s *Store) seed {
	t.Helper()
	ctx := context.Background()
	c := &services.Company{Name: "Acme", IsActive: true, CreatedAt: testNow}
	id, err := s.InsertCompany(ctx, c)
	require.NoError(t, err)
	c.ID = id

	user := func(name, email string) *services.User {
		u := &services.User{Name: name, Email: email, CompanyID: &c.ID, Role: "employee", IsActive: true, CreatedAt: testNow}
		id, err := s.InsertUser(ctx, u)
		require.NoError(t, err)
		u.ID = id
		return u
	}
	return seed{
		company: c,
		admin:   user("Admin User", "admin@acme.test"),
		ana:     user("Ana Alic", "Ana@Acme.test"),
		bo:      user("Bo Babic", "bo@acme.test"),
	}
}

func seedTemplates(t *testing.T, s *Store) {
	t.Helper()
	for i, group := range []string{"Leadership", "Leadership", "Leadership", "Communication", "Communication"} {
		_, err := s.InsertTemplateQuestion(context.Background(), &services.TemplateQuestion{
			Text: fmt.Sprintf("Q%d", i+1), Group: group, Type: models.QuestionRating, Language: "bs", Position: i * 2,
		})
		require.NoError(t, err)
	}
}

func TestDriverFor(t *testing.T) {
	assert.Equal(t, DriverPostgres, DriverFor("postgres://u:p@localhost/db"))
	assert.Equal(t, DriverPostgres, DriverFor("postgresql://localhost/db"))
	assert.Equal(t, DriverSQLite, DriverFor("modern360.db"))
	assert.Equal(t, "file:data.db?"+sqliteParams, sqliteDSN("data.db"))
	assert.Equal(t, "file:x?mode=memory&"+sqliteParams, sqliteDSN("file:x?mode=memory"))
}

func TestMigrationsAreIdempotent(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, RunMigrations(s.DB()))

	version, dirty, err := MigrationVersion(s.DB())
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)
}

func TestCompanyAndUserLookups(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	p := seedPeople(t, s)

	c, err := s.GetCompanyByName(ctx, "ACME")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, p.company.ID, c.ID)
	assert.True(t, c.IsActive)
	assert.True(t, c.CreatedAt.Equal(testNow))

	u, err := s.GetUserByEmail(ctx, " ANA@acme.test ")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "ana@acme.test", u.Email)
	require.NotNil(t, u.CompanyID)
	assert.Equal(t, p.company.ID, *u.CompanyID)

	missing, err := s.GetUser(ctx, 9999)
	require.NoError(t, err)
	assert.Nil(t, missing)

	users, assessments, err := s.CountCompanyDependents(ctx, p.company.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, users)
	assert.Equal(t, 0, assessments)

	_, err = s.InsertUser(ctx, &services.User{Name: "Dup", Email: "bo@acme.test", Role: "employee", CreatedAt: testNow})
	assert.Error(t, err, "email must be unique")
}

func TestInTxRollsBack(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	p := seedPeople(t, s)

	boom := errors.New("boom")
	err := s.InTx(ctx, func(ctx context.Context) error {
		_, err := s.InsertAssessment(ctx, &services.Assessment{
			Title: "Doomed", CompanyID: p.company.ID, CreatorID: p.admin.ID, IsActive: true, CreatedAt: testNow,
		})
		require.NoError(t, err)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	list, err := s.ListAssessments(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestMarkInvitationCompletedOnlyOnce(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	p := seedPeople(t, s)
	aid, err := s.InsertAssessment(ctx, &services.Assessment{Title: "A", CompanyID: p.company.ID, CreatorID: p.admin.ID, IsActive: true, CreatedAt: testNow})
	require.NoError(t, err)
	iid, err := s.InsertInvitation(ctx, &services.Invitation{AssessmentID: aid, SenderID: &p.admin.ID, Email: "X@Y.com", Token: "tok", SentAt: testNow})
	require.NoError(t, err)

	require.NoError(t, s.MarkInvitationCompleted(ctx, iid, testNow))
	assert.ErrorIs(t, s.MarkInvitationCompleted(ctx, iid, testNow), services.ErrInvitationClosed)
	assert.ErrorIs(t, s.MarkInvitationCompleted(ctx, 9999, testNow), services.ErrInvitationClosed)

	inv, err := s.GetInvitationByToken(ctx, "tok")
	require.NoError(t, err)
	require.NotNil(t, inv)
	assert.True(t, inv.Completed)
	assert.Equal(t, "x@y.com", inv.Email)
	require.NotNil(t, inv.RespondedAt)

	pending, err := s.ListPendingInvitations(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestDeletePendingInvitationsKeepsCompleted(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	p := seedPeople(t, s)
	aid, err := s.InsertAssessment(ctx, &services.Assessment{Title: "A", CompanyID: p.company.ID, CreatorID: p.admin.ID, IsActive: true, CreatedAt: testNow})
	require.NoError(t, err)
	var ids []int64
	for i := 0; i < 3; i++ {
		id, err := s.InsertInvitation(ctx, &services.Invitation{AssessmentID: aid, Email: fmt.Sprintf("u%d@x.com", i), Token: fmt.Sprint("t", i), SentAt: testNow})
		require.NoError(t, err)
		ids = append(ids, id)
	}
	require.NoError(t, s.MarkInvitationCompleted(ctx, ids[0], testNow))

	n, err := s.DeletePendingInvitations(ctx, ids)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	count, err := s.CountInvitationsByAssessment(ctx, aid)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestAuditKeepsLatestEntries(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	for i := 0; i < 5; i++ {
		require.NoError(t, s.AddAudit(ctx, services.AuditEntry{Time: testNow.Add(time.Duration(i) * time.Minute), Actor: "admin", Action: fmt.Sprint("a", i)}))
	}
	list, err := s.ListAudit(ctx, 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a3", list[0].Action)
	assert.Equal(t, "a4", list[1].Action)
}
