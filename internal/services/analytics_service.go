package services

import (
	"context"
	"sort"
)

// UserActivity is one user's footprint across all assessments.
type UserActivity struct {
	UserID             int64  `db:"user_id" json:"user_id"`
	Name               string `db:"name" json:"name"`
	Email              string `db:"email" json:"email"`
	AssessmentsCreated int    `db:"assessments_created" json:"assessments_created"`
	ResponsesSubmitted int    `db:"responses_submitted" json:"responses_submitted"`
	InvitationsSent    int    `db:"invitations_sent" json:"invitations_sent"`
}

// AssessmentCounts are the per-assessment totals behind completion accounting.
type AssessmentCounts struct {
	AssessmentID int64 `db:"assessment_id"`
	Invitations  int   `db:"invitations"`
	Responses    int   `db:"responses"`
}

type AnalyticsStore interface {
	ListAssessments(ctx context.Context, companyID int64) ([]*Assessment, error)
	AssessmentCounts(ctx context.Context) ([]AssessmentCounts, error)
	ListUserActivity(ctx context.Context) ([]UserActivity, error)
}

type AssessmentStats struct {
	*Assessment
	Completion Completion `json:"completion"`
}

type ReportsSummary struct {
	Assessments  []AssessmentStats `json:"assessments"`
	UserActivity []UserActivity    `json:"user_activity"`
}

type AnalyticsService struct {
	store AnalyticsStore
}

func NewAnalyticsService(store AnalyticsStore) *AnalyticsService {
	return &AnalyticsService{store: store}
}

// Reports lists completion per assessment, newest first, and per-user
// activity ordered by total activity.
func (s *AnalyticsService) Reports(ctx context.Context) (*ReportsSummary, error) {
	list, err := s.store.ListAssessments(ctx, 0)
	if err != nil {
		return nil, NewPersistenceError(err)
	}
	counts, err := s.store.AssessmentCounts(ctx)
	if err != nil {
		return nil, NewPersistenceError(err)
	}
	byID := make(map[int64]AssessmentCounts, len(counts))
	for _, c := range counts {
		byID[c.AssessmentID] = c
	}
	out := &ReportsSummary{Assessments: make([]AssessmentStats, 0, len(list))}
	for _, a := range list {
		c := byID[a.ID]
		out.Assessments = append(out.Assessments, AssessmentStats{Assessment: a, Completion: newCompletion(c.Invitations, c.Responses)})
	}
	sort.SliceStable(out.Assessments, func(i, j int) bool {
		return out.Assessments[i].CreatedAt.After(out.Assessments[j].CreatedAt)
	})

	activity, err := s.store.ListUserActivity(ctx)
	if err != nil {
		return nil, NewPersistenceError(err)
	}
	sort.SliceStable(activity, func(i, j int) bool {
		ti := activity[i].AssessmentsCreated + activity[i].ResponsesSubmitted + activity[i].InvitationsSent
		tj := activity[j].AssessmentsCreated + activity[j].ResponsesSubmitted + activity[j].InvitationsSent
		if ti != tj {
			return ti > tj
		}
		return activity[i].UserID < activity[j].UserID
	})
	out.UserActivity = activity
	return out, nil
}
