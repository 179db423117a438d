package worker

import (
	"github.com/spec-kit/account-service/internal/service"
)

// StartAuditSubscriber registers the audit handlers.
func StartAuditSubscriber(audit *service.AuditService) {
	if audit == nil {
		return
	}
	audit.RegisterHandlers()
}
