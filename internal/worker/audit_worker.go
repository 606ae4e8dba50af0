package worker

import (
	"context"

	"github.com/spec-kit/backbone-auth/internal/events"
	"github.com/spec-kit/backbone-auth/internal/service"
)

// StartAuditWorker registers audit handlers and delivers queued events until
// ctx is done. The returned channel closes once the queue has drained.
func StartAuditWorker(ctx context.Context, auditService *service.AuditService, dispatcher *events.AsyncDispatcher) <-chan struct{} {
	done := make(chan struct{})
	if auditService == nil || dispatcher == nil {
		close(done)
		return done
	}
	auditService.RegisterHandlers()

	go func() {
		defer close(done)
		dispatcher.Run(ctx)
	}()
	return done
}
