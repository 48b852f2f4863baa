package repository

import (
	"context"
	"encoding/json"

	"github.com/coursekit/course-service/internal/domain"
)

// CourseHistoryRepository stores audit entries.
type CourseHistoryRepository interface {
	Create(ctx context.Context, history *domain.CourseHistory) error
	ListByCourse(ctx context.Context, courseID string) ([]domain.CourseHistory, error)
}

type courseHistoryRepository struct {
	db DBTX
}

// NewCourseHistoryRepository builds repository.
func NewCourseHistoryRepository(db DBTX) CourseHistoryRepository {
	return &courseHistoryRepository{db: db}
}

func (r *courseHistoryRepository) Create(ctx context.Context, history *domain.CourseHistory) error {
	const query = `
        INSERT INTO course_history (course_id, actor_id, subject_id, change_type, details)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	details := history.Details
	if details == nil {
		details = map[string]any{}
	}
	raw, err := json.Marshal(details)
	if err != nil {
		return err
	}
	return r.db.QueryRow(ctx, query,
		history.CourseID,
		history.ActorID,
		history.SubjectID,
		history.ChangeType,
		raw,
	).Scan(&history.ID, &history.CreatedAt)
}

func (r *courseHistoryRepository) ListByCourse(ctx context.Context, courseID string) ([]domain.CourseHistory, error) {
	const query = `
        SELECT id, course_id, actor_id, subject_id, change_type, details, created_at
        FROM course_history WHERE course_id=$1 ORDER BY created_at ASC`
	rows, err := r.db.Query(ctx, query, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.CourseHistory
	for rows.Next() {
		var (
			history domain.CourseHistory
			raw     []byte
		)
		if err := rows.Scan(
			&history.ID,
			&history.CourseID,
			&history.ActorID,
			&history.SubjectID,
			&history.ChangeType,
			&raw,
			&history.CreatedAt,
		); err != nil {
			return nil, err
		}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &history.Details); err != nil {
				return nil, err
			}
		}
		result = append(result, history)
	}
	return result, rows.Err()
}
