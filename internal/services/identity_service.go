package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Involvement counts a user's ties to active assessments.
type Involvement struct {
	Created            int `db:"created" json:"created"`
	Assessee           int `db:"assessee" json:"assessee"`
	Assessor           int `db:"assessor" json:"assessor"`
	PendingInvitations int `db:"pending_invitations" json:"pending_invitations"`
}

func (i Involvement) Any() bool {
	return i.Created+i.Assessee+i.Assessor+i.PendingInvitations > 0
}

type IdentityStore interface {
	Transactor
	AuditLogger
	CascadeStore
	InsertCompany(ctx context.Context, c *Company) (int64, error)
	GetCompany(ctx context.Context, id int64) (*Company, error)
	GetCompanyByName(ctx context.Context, name string) (*Company, error)
	ListCompanies(ctx context.Context) ([]*Company, error)
	CountCompanyDependents(ctx context.Context, companyID int64) (users int, assessments int, err error)
	DeleteCompany(ctx context.Context, id int64) error
	InsertUser(ctx context.Context, u *User) (int64, error)
	GetUser(ctx context.Context, id int64) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	ListUsersByCompany(ctx context.Context, companyID int64, activeOnly bool) ([]*User, error)
	ActiveInvolvement(ctx context.Context, userID int64, email string) (Involvement, error)
	ListInactiveAssessmentIDsByCreator(ctx context.Context, userID int64) ([]int64, error)
	// DeleteInactiveFootprint removes the user's participation rows, legacy
	// responses and sent invitations that belong to inactive assessments.
	DeleteInactiveFootprint(ctx context.Context, userID int64) (int64, error)
	DeleteUser(ctx context.Context, id int64) error
}

type CreateCompanyInput struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description"`
	Industry    string `json:"industry" validate:"max=50"`
}

type CreateUserInput struct {
	Email     string `json:"email" validate:"required,email"`
	Name      string `json:"name" validate:"required,max=100"`
	CompanyID int64  `json:"company_id" validate:"required"`
	Role      string `json:"role"`
}

// IdentityService manages companies and users.
type IdentityService struct {
	store IdentityStore
	now   func() time.Time
}

func NewIdentityService(store IdentityStore) *IdentityService {
	return &IdentityService{store: store, now: systemNow}
}

func (s *IdentityService) CreateCompany(ctx context.Context, in CreateCompanyInput) (*Company, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, NewInvalidError("company name is required")
	}
	existing, err := s.store.GetCompanyByName(ctx, name)
	if err != nil {
		return nil, NewPersistenceError(err)
	}
	if existing != nil {
		return nil, NewConflictError("company already exists")
	}
	c := &Company{
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		Industry:    strings.TrimSpace(in.Industry),
		IsActive:    true,
		CreatedAt:   s.now(),
	}
	id, err := s.store.InsertCompany(ctx, c)
	if err != nil {
		return nil, NewPersistenceError(err)
	}
	c.ID = id
	return c, nil
}

func (s *IdentityService) ListCompanies(ctx context.Context) ([]*Company, error) {
	list, err := s.store.ListCompanies(ctx)
	if err != nil {
		return nil, NewPersistenceError(err)
	}
	return list, nil
}

// DeleteCompany refuses while any user or assessment still references the company.
func (s *IdentityService) DeleteCompany(ctx context.Context, id int64) error {
	c, err := s.store.GetCompany(ctx, id)
	if err != nil {
		return NewPersistenceError(err)
	}
	if c == nil {
		return NewNotFoundError("company not found")
	}
	users, assessments, err := s.store.CountCompanyDependents(ctx, id)
	if err != nil {
		return NewPersistenceError(err)
	}
	if users > 0 || assessments > 0 {
		return NewConflictError(fmt.Sprintf("company still has %d users and %d assessments", users, assessments))
	}
	err = s.store.InTx(ctx, func(ctx context.Context) error {
		if err := s.store.DeleteCompany(ctx, id); err != nil {
			return err
		}
		return s.store.AddAudit(ctx, AuditEntry{Time: s.now(), Actor: "admin", Action: "delete_company", Target: fmt.Sprint(id), Note: c.Name})
	})
	return NewPersistenceError(err)
}

func (s *IdentityService) CompanyUsers(ctx context.Context, companyID int64) ([]*User, error) {
	c, err := s.store.GetCompany(ctx, companyID)
	if err != nil {
		return nil, NewPersistenceError(err)
	}
	if c == nil {
		return nil, NewNotFoundError("company not found")
	}
	users, err := s.store.ListUsersByCompany(ctx, companyID, true)
	if err != nil {
		return nil, NewPersistenceError(err)
	}
	return users, nil
}

func (s *IdentityService) CreateUser(ctx context.Context, in CreateUserInput) (*User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	name := strings.TrimSpace(in.Name)
	if email == "" || name == "" || in.CompanyID == 0 {
		return nil, NewInvalidError("email, name and company are required")
	}
	c, err := s.store.GetCompany(ctx, in.CompanyID)
	if err != nil {
		return nil, NewPersistenceError(err)
	}
	if c == nil {
		return nil, NewNotFoundError("company not found")
	}
	existing, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, NewPersistenceError(err)
	}
	if existing != nil {
		return nil, NewConflictError("a user with this email already exists")
	}
	role := strings.TrimSpace(in.Role)
	if role == "" {
		role = "employee"
	}
	u := &User{
		Email:     email,
		Name:      name,
		CompanyID: ptr(in.CompanyID),
		Role:      role,
		IsActive:  true,
		CreatedAt: s.now(),
	}
	id, err := s.store.InsertUser(ctx, u)
	if err != nil {
		return nil, NewPersistenceError(err)
	}
	u.ID = id
	return u, nil
}

// DeleteUser is refused while the user is tied to any active assessment.
// Otherwise the user's inactive assessments and inactive-assessment history
// are removed with the user; references from active history fall back to
// NULL through the schema's foreign keys.
func (s *IdentityService) DeleteUser(ctx context.Context, id int64) error {
	u, err := s.store.GetUser(ctx, id)
	if err != nil {
		return NewPersistenceError(err)
	}
	if u == nil {
		return NewNotFoundError("user not found")
	}
	inv, err := s.store.ActiveInvolvement(ctx, id, u.Email)
	if err != nil {
		return NewPersistenceError(err)
	}
	if inv.Any() {
		return NewHasActiveInvolvementError(fmt.Sprintf(
			"user is involved in active assessments: created %d, assessee in %d, assessor in %d, pending invitations %d",
			inv.Created, inv.Assessee, inv.Assessor, inv.PendingInvitations))
	}
	owned, err := s.store.ListInactiveAssessmentIDsByCreator(ctx, id)
	if err != nil {
		return NewPersistenceError(err)
	}
	err = s.store.InTx(ctx, func(ctx context.Context) error {
		for _, aid := range owned {
			if err := deleteAssessmentTree(ctx, s.store, aid); err != nil {
				return err
			}
		}
		if _, err := s.store.DeleteInactiveFootprint(ctx, id); err != nil {
			return err
		}
		if err := s.store.DeleteUser(ctx, id); err != nil {
			return err
		}
		return s.store.AddAudit(ctx, AuditEntry{Time: s.now(), Actor: "admin", Action: "delete_user", Target: fmt.Sprint(id), Note: u.Email})
	})
	if err != nil {
		slog.Error("could not delete user", "user_id", id, "err", err)
		return NewPersistenceError(err)
	}
	slog.Info("user deleted", "user_id", id, "inactive_assessments", len(owned))
	return nil
}
