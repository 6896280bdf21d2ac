package api

import (
	"context"

	"github.com/soaringjerry/modern360/internal/services"
)

// Store is everything the HTTP layer needs from persistence. db.Store
// implements it for both SQLite and PostgreSQL.
type Store interface {
	services.IdentityStore
	services.AssessmentStore
	services.ParticipantStore
	services.InvitationStore
	services.ResponseStore
	services.ExportStore
	services.AnalyticsStore
	services.TemplateStore
	services.AuditStore

	Ping(ctx context.Context) error
}
