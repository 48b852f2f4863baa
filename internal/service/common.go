package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/coursekit/course-service/internal/domain"
	"github.com/coursekit/course-service/internal/enrollment"
	"github.com/coursekit/course-service/internal/events"
	"github.com/coursekit/course-service/internal/observability"
	"github.com/coursekit/course-service/internal/repository"
	apperrors "github.com/coursekit/course-service/pkg/util/errorutil"
)

// Dependencies bundles collaborators shared by the workflow services.
type Dependencies struct {
	Store      repository.Store
	Dispatcher events.Dispatcher
	Clock      enrollment.Clock
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

func (d Dependencies) withDefaults() Dependencies {
	if d.Clock == nil {
		d.Clock = enrollment.SystemClock
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	return d
}

// notFoundAs replaces a missing-row error with notFound.
func notFoundAs(err, notFound error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return notFound
	}
	return err
}

func (d Dependencies) publish(ctx context.Context, event events.Event) {
	if d.Dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if err := d.Dispatcher.Publish(ctx, event); err != nil {
		d.Logger.Warn("event handler failed", zap.String("event", string(event.Type)), zap.Error(err))
	}
}

// record counts the outcome of operation and passes err through.
func (d Dependencies) record(operation string, err error) error {
	outcome := "ok"
	if err != nil {
		outcome = apperrors.CodeOf(err)
	}
	d.Metrics.RecordOutcome(operation, outcome)
	return err
}

func historyEntry(courseID, actorID, subjectID string, change domain.CourseChangeType, details map[string]any) *domain.CourseHistory {
	entry := &domain.CourseHistory{
		CourseID:   courseID,
		ChangeType: change,
		Details:    details,
	}
	if actorID != "" {
		entry.ActorID = &actorID
	}
	if subjectID != "" {
		entry.SubjectID = &subjectID
	}
	return entry
}
