package services

import (
	"context"
	"sort"
)

type AuditStore interface {
	ListAudit(ctx context.Context, limit int) ([]AuditEntry, error)
}

type AuditService struct {
	store AuditStore
}

func NewAuditService(store AuditStore) *AuditService {
	return &AuditService{store: store}
}

// List returns the most recent entries first. Limits outside 1..1000 mean 200.
func (s *AuditService) List(ctx context.Context, limit int) ([]AuditEntry, error) {
	if limit <= 0 || limit > 1000 {
		limit = 200
	}
	list, err := s.store.ListAudit(ctx, limit)
	if err != nil {
		return nil, NewPersistenceError(err)
	}
	for i, j := 0, len(list)-1; i < j; i, j = i+1, j-1 {
		list[i], list[j] = list[j], list[i]
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].Time.After(list[j].Time) })
	return list, nil
}
