package db

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/soaringjerry/modern360/internal/services"
)

var (
	companyColumns = []string{"id", "name", "description", "industry", "is_active", "created_at"}
	userColumns    = []string{"id", "email", "name", "company_id", "role", "is_active", "created_at"}
)

func (s *Store) InsertCompany(ctx context.Context, c *services.Company) (int64, error) {
	ib := s.flavor.NewInsertBuilder()
	ib.InsertInto("companies").
		Cols("name", "description", "industry", "is_active", "created_at").
		Values(c.Name, c.Description, c.Industry, c.IsActive, c.CreatedAt.UTC())
	id, err := s.insert(ctx, ib)
	return id, errors.Wrap(err, "insert company")
}

func (s *Store) GetCompany(ctx context.Context, id int64) (*services.Company, error) {
	sb := s.flavor.NewSelectBuilder()
	sb.Select(companyColumns...).From("companies").Where(sb.Equal("id", id))
	var c services.Company
	ok, err := s.get(ctx, &c, sb)
	if err != nil || !ok {
		return nil, errors.Wrap(err, "get company")
	}
	return &c, nil
}

func (s *Store) GetCompanyByName(ctx context.Context, name string) (*services.Company, error) {
	sb := s.flavor.NewSelectBuilder()
	sb.Select(companyColumns...).From("companies").
		Where("lower(name) = " + sb.Var(strings.ToLower(name)))
	var c services.Company
	ok, err := s.get(ctx, &c, sb)
	if err != nil || !ok {
		return nil, errors.Wrap(err, "get company by name")
	}
	return &c, nil
}

func (s *Store) ListCompanies(ctx context.Context) ([]*services.Company, error) {
	sb := s.flavor.NewSelectBuilder()
	sb.Select(companyColumns...).From("companies").OrderBy("id")
	out := []*services.Company{}
	if err := s.selectAll(ctx, &out, sb); err != nil {
		return nil, errors.Wrap(err, "list companies")
	}
	return out, nil
}

func (s *Store) CountCompanyDependents(ctx context.Context, id int64) (int, int, error) {
	var counts struct {
		Users       int `db:"users"`
		Assessments int `db:"assessments"`
	}
	err := s.rawGet(ctx, &counts, `SELECT
		(SELECT COUNT(*) FROM users WHERE company_id = ?) AS users,
		(SELECT COUNT(*) FROM assessments WHERE company_id = ?) AS assessments`, id, id)
	if err != nil {
		return 0, 0, errors.Wrap(err, "count company dependents")
	}
	return counts.Users, counts.Assessments, nil
}

func (s *Store) DeleteCompany(ctx context.Context, id int64) error {
	db := s.flavor.NewDeleteBuilder()
	db.DeleteFrom("companies").Where(db.Equal("id", id))
	_, err := s.exec(ctx, db)
	return errors.Wrap(err, "delete company")
}

func (s *Store) InsertUser(ctx context.Context, u *services.User) (int64, error) {
	ib := s.flavor.NewInsertBuilder()
	ib.InsertInto("users").
		Cols("email", "name", "company_id", "role", "is_active", "created_at").
		Values(strings.ToLower(u.Email), u.Name, u.CompanyID, u.Role, u.IsActive, u.CreatedAt.UTC())
	id, err := s.insert(ctx, ib)
	return id, errors.Wrap(err, "insert user")
}

func (s *Store) GetUser(ctx context.Context, id int64) (*services.User, error) {
	sb := s.flavor.NewSelectBuilder()
	sb.Select(userColumns...).From("users").Where(sb.Equal("id", id))
	var u services.User
	ok, err := s.get(ctx, &u, sb)
	if err != nil || !ok {
		return nil, errors.Wrap(err, "get user")
	}
	return &u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*services.User, error) {
	sb := s.flavor.NewSelectBuilder()
	sb.Select(userColumns...).From("users").
		Where(sb.Equal("email", strings.ToLower(strings.TrimSpace(email))))
	var u services.User
	ok, err := s.get(ctx, &u, sb)
	if err != nil || !ok {
		return nil, errors.Wrap(err, "get user by email")
	}
	return &u, nil
}

func (s *Store) ListUsersByCompany(ctx context.Context, companyID int64, activeOnly bool) ([]*services.User, error) {
	sb := s.flavor.NewSelectBuilder()
	sb.Select(userColumns...).From("users").Where(sb.Equal("company_id", companyID)).OrderBy("id")
	if activeOnly {
		sb.Where(sb.Equal("is_active", true))
	}
	out := []*services.User{}
	if err := s.selectAll(ctx, &out, sb); err != nil {
		return nil, errors.Wrap(err, "list users")
	}
	return out, nil
}

func (s *Store) ActiveInvolvement(ctx context.Context, userID int64, email string) (services.Involvement, error) {
	var inv services.Involvement
	err := s.rawGet(ctx, &inv, `SELECT
		(SELECT COUNT(*) FROM assessments WHERE creator_id = ? AND is_active = ?) AS created,
		(SELECT COUNT(*) FROM assessment_participants p JOIN assessments a ON a.id = p.assessment_id
			WHERE a.is_active = ? AND p.assessee_id = ?) AS assessee,
		(SELECT COUNT(*) FROM assessment_participants p JOIN assessments a ON a.id = p.assessment_id
			WHERE a.is_active = ? AND p.assessor_id = ?) AS assessor,
		(SELECT COUNT(*) FROM invitations i JOIN assessments a ON a.id = i.assessment_id
			WHERE a.is_active = ? AND i.is_completed = ? AND lower(i.email) = ?) AS pending_invitations`,
		userID, true,
		true, userID,
		true, userID,
		true, false, strings.ToLower(email))
	return inv, errors.Wrap(err, "count active involvement")
}

func (s *Store) ListInactiveAssessmentIDsByCreator(ctx context.Context, userID int64) ([]int64, error) {
	sb := s.flavor.NewSelectBuilder()
	sb.Select("id").From("assessments").
		Where(sb.Equal("creator_id", userID), sb.Equal("is_active", false)).
		OrderBy("id")
	var ids []int64
	if err := s.selectAll(ctx, &ids, sb); err != nil {
		return nil, errors.Wrap(err, "list inactive assessments")
	}
	return ids, nil
}

const inactiveAssessments = `assessment_id IN (SELECT id FROM assessments WHERE is_active = ?)`

// DeleteInactiveFootprint removes the user's participant rows, responses and
// sent invitations that belong to inactive assessments.
func (s *Store) DeleteInactiveFootprint(ctx context.Context, userID int64) (int64, error) {
	var total int64
	for _, stmt := range []struct {
		query string
		args  []any
	}{
		{`DELETE FROM assessment_participants WHERE (assessee_id = ? OR assessor_id = ?) AND ` + inactiveAssessments, []any{userID, userID, false}},
		{`DELETE FROM responses WHERE user_id = ? AND ` + inactiveAssessments, []any{userID, false}},
		{`DELETE FROM invitations WHERE sender_id = ? AND ` + inactiveAssessments, []any{userID, false}},
	} {
		n, err := s.rawExec(ctx, stmt.query, stmt.args...)
		if err != nil {
			return total, errors.Wrap(err, "delete inactive footprint")
		}
		total += n
	}
	return total, nil
}

// DeleteUser removes the user row. Foreign keys clear sender_id on
// invitations and user_id on responses that outlive the user.
func (s *Store) DeleteUser(ctx context.Context, id int64) error {
	db := s.flavor.NewDeleteBuilder()
	db.DeleteFrom("users").Where(db.Equal("id", id))
	_, err := s.exec(ctx, db)
	return errors.Wrap(err, "delete user")
}
