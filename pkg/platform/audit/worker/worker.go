package worker

import (
	"context"
	"log/slog"

	audit "idvgate/pkg/platform/audit"
)

// Worker drains an audit channel into a store. It returns when the inbox is
// closed (after persisting everything queued) or the context ends.
type Worker struct {
	store  audit.Store
	inbox  <-chan audit.Event
	logger *slog.Logger
}

func NewWorker(store audit.Store, inbox <-chan audit.Event, logger *slog.Logger) *Worker {
	return &Worker{store: store, inbox: inbox, logger: logger}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.inbox:
			if !ok {
				return nil
			}
			// Detached from ctx so a cancelled caller still drains.
			if err := w.store.Append(context.WithoutCancel(ctx), event); err != nil && w.logger != nil {
				w.logger.Error("audit append failed",
					"action", event.Action,
					"subject_id", event.SubjectID,
					"error", err,
				)
			}
		}
	}
}
