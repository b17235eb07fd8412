package events

import (
	"context"

	"github.com/balkashynov/hourly/internal/logger"
)

// auditedEvents are written to the audit log.
var auditedEvents = map[string]bool{
	TimesheetDeleted:     true,
	InvoiceCreated:       true,
	InvoiceStatusChanged: true,
	ExportCreated:        true,
	UserLogin:            true,
}

// AuditLog writes destructive and security relevant events to the audit log.
func AuditLog(log *logger.Logger) Subscriber {
	if log == nil {
		log = logger.Nop()
	}
	return SubscriberFunc(func(_ context.Context, e Event) error {
		if !auditedEvents[e.Name] {
			return nil
		}
		log.Audit(e.Name, "user_id", e.UserID, "entity_id", e.EntityID)
		return nil
	})
}
