package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dukex/newsroom/pkg/models"
	"github.com/dukex/newsroom/pkg/otelhelper"
	"github.com/dukex/newsroom/pkg/persistence"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/dukex/newsroom/pkg/services"

// NotificationSink hands a rendered message to whatever delivers the stage trigger.
// Delivery is fire-and-forget: a failure is logged and never fails the mutation.
type NotificationSink interface {
	Notify(ctx context.Context, trigger *models.Trigger, message string) error
}

// TriggerValidator checks that a stage trigger has a known type and a valid configuration.
type TriggerValidator interface {
	Validate(trigger *models.Trigger) error
}

// DocumentExporter copies a new document to an external editor and returns its ID there.
type DocumentExporter interface {
	Export(ctx context.Context, document *models.Document) (string, error)
}

// transact runs fn in a transaction and retries it once when a concurrent writer won a
// uniqueness race. A second conflict is returned as an internal failure.
func transact(
	ctx context.Context,
	store persistence.Persistence,
	logger *slog.Logger,
	op string,
	fn func(ctx context.Context, repos persistence.Repositories) error,
) error {
	err := store.Transaction(ctx, fn)
	if !persistence.IsConflict(err) {
		return err
	}

	logger.WarnContext(ctx, "transaction conflict, retrying", "op", op, "error", err)

	err = store.Transaction(ctx, fn)
	if persistence.IsConflict(err) {
		return fmt.Errorf("%s: conflict persisted after retry: %w", op, err)
	}

	return err
}

// endSpan records err on span, if any, and ends it.
func endSpan(span trace.Span, err error) {
	if err != nil {
		otelhelper.SetError(span, err)
	}

	span.End()
}

func requireUser(op string, user *models.User) error {
	if user == nil {
		return &ServiceError{Op: op, Code: "unauthorized", Message: "authentication required", Err: ErrUnauthenticated}
	}

	return nil
}

// grantCreator gives the acting user WRITE on something they just created.
func grantCreator(ctx context.Context, repos persistence.Repositories, user *models.User, target models.Target) error {
	err := repos.PermissionRepository().Upsert(ctx, &models.Grant{
		Grantee: models.UserGrantee(user.ID),
		Target:  target,
		Access:  models.AccessWrite,
	})
	if err != nil {
		return fmt.Errorf("failed to grant creator access: %w", err)
	}

	return nil
}
