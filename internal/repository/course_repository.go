package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/coursekit/course-service/internal/domain"
)

// CourseRepository persists courses together with their registration ledger.
type CourseRepository interface {
	Create(ctx context.Context, course *domain.Course) error
	Update(ctx context.Context, course *domain.Course) error
	GetByID(ctx context.Context, id string) (*domain.Course, error)
	// GetByIDForUpdate locks the row until the surrounding transaction ends.
	GetByIDForUpdate(ctx context.Context, id string) (*domain.Course, error)
	// GetByActiveCodeForUpdate returns the course that most recently issued code.
	GetByActiveCodeForUpdate(ctx context.Context, code string) (*domain.Course, error)
	// ActiveCodeInUse reports whether another course holds code unexpired at the given instant.
	ActiveCodeInUse(ctx context.Context, code, excludeCourseID string, at time.Time) (bool, error)
	List(ctx context.Context, limit, offset int) ([]domain.Course, error)
}

type courseRepository struct {
	db DBTX
}

// NewCourseRepository builds repository.
func NewCourseRepository(db DBTX) CourseRepository {
	return &courseRepository{db: db}
}

const courseColumns = `id, name, description, location, image_url, price_cents, currency,
        enrollment_limit, current_enrollment, course_date, hours, application_start, application_end,
        generated_code, generated_code_at, generated_code_expires_at, registered_users, waiting_list,
        created_at, updated_at`

func (r *courseRepository) Create(ctx context.Context, course *domain.Course) error {
	const query = `
        INSERT INTO courses (id, name, description, location, image_url, price_cents, currency,
            enrollment_limit, current_enrollment, course_date, hours, application_start, application_end,
            registered_users, waiting_list)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
        RETURNING id, created_at, updated_at`

	// Course ids are time ordered so catalog pages and index inserts follow creation order.
	if course.ID == "" {
		id, err := newCourseID()
		if err != nil {
			return err
		}
		course.ID = id
	}

	registered, err := marshalList(course.RegisteredUsers)
	if err != nil {
		return err
	}
	waiting, err := marshalList(course.WaitingList)
	if err != nil {
		return err
	}
	return r.db.QueryRow(ctx, query,
		course.ID,
		course.Name,
		course.Description,
		course.Location,
		course.ImageURL,
		course.PriceCents,
		course.Currency,
		course.EnrollmentLimit,
		course.CurrentEnrollment,
		course.CourseDate,
		course.Hours,
		course.ApplicationPeriod.StartDate,
		course.ApplicationPeriod.EndDate,
		registered,
		waiting,
	).Scan(&course.ID, &course.CreatedAt, &course.UpdatedAt)
}

func (r *courseRepository) Update(ctx context.Context, course *domain.Course) error {
	const query = `
        UPDATE courses SET name=$1, description=$2, location=$3, image_url=$4, price_cents=$5, currency=$6,
            enrollment_limit=$7, current_enrollment=$8, course_date=$9, hours=$10,
            application_start=$11, application_end=$12,
            generated_code=$13, generated_code_at=$14, generated_code_expires_at=$15,
            registered_users=$16, waiting_list=$17, updated_at=NOW()
        WHERE id=$18
        RETURNING updated_at`

	registered, err := marshalList(course.RegisteredUsers)
	if err != nil {
		return err
	}
	waiting, err := marshalList(course.WaitingList)
	if err != nil {
		return err
	}

	var (
		code              *string
		issuedAt, expires *time.Time
	)
	if ac := course.ActiveCode; ac != nil {
		code, issuedAt, expires = &ac.Code, &ac.IssuedAt, &ac.ExpiresAt
	}

	return r.db.QueryRow(ctx, query,
		course.Name,
		course.Description,
		course.Location,
		course.ImageURL,
		course.PriceCents,
		course.Currency,
		course.EnrollmentLimit,
		course.CurrentEnrollment,
		course.CourseDate,
		course.Hours,
		course.ApplicationPeriod.StartDate,
		course.ApplicationPeriod.EndDate,
		code,
		issuedAt,
		expires,
		registered,
		waiting,
		course.ID,
	).Scan(&course.UpdatedAt)
}

func (r *courseRepository) GetByID(ctx context.Context, id string) (*domain.Course, error) {
	return scanCourse(r.db.QueryRow(ctx, `SELECT `+courseColumns+` FROM courses WHERE id=$1`, id))
}

func (r *courseRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Course, error) {
	return scanCourse(r.db.QueryRow(ctx, `SELECT `+courseColumns+` FROM courses WHERE id=$1 FOR UPDATE`, id))
}

func (r *courseRepository) GetByActiveCodeForUpdate(ctx context.Context, code string) (*domain.Course, error) {
	query := `SELECT ` + courseColumns + ` FROM courses
        WHERE generated_code=$1
        ORDER BY generated_code_at DESC
        LIMIT 1
        FOR UPDATE`
	return scanCourse(r.db.QueryRow(ctx, query, code))
}

func (r *courseRepository) ActiveCodeInUse(ctx context.Context, code, excludeCourseID string, at time.Time) (bool, error) {
	const query = `
        SELECT EXISTS (
            SELECT 1 FROM courses
            WHERE generated_code=$1 AND id<>$2 AND generated_code_expires_at >= $3
        )`
	var exists bool
	exclude := excludeCourseID
	if exclude == "" {
		exclude = "00000000-0000-0000-0000-000000000000"
	}
	if err := r.db.QueryRow(ctx, query, code, exclude, at).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *courseRepository) List(ctx context.Context, limit, offset int) ([]domain.Course, error) {
	query := `SELECT ` + courseColumns + ` FROM courses ORDER BY course_date ASC, id ASC LIMIT $1 OFFSET $2`
	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Course
	for rows.Next() {
		course, err := scanCourse(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *course)
	}
	return result, rows.Err()
}

func scanCourse(row pgx.Row) (*domain.Course, error) {
	var (
		course            domain.Course
		code              *string
		issuedAt, expires *time.Time
		registered        []byte
		waiting           []byte
	)
	if err := row.Scan(
		&course.ID,
		&course.Name,
		&course.Description,
		&course.Location,
		&course.ImageURL,
		&course.PriceCents,
		&course.Currency,
		&course.EnrollmentLimit,
		&course.CurrentEnrollment,
		&course.CourseDate,
		&course.Hours,
		&course.ApplicationPeriod.StartDate,
		&course.ApplicationPeriod.EndDate,
		&code,
		&issuedAt,
		&expires,
		&registered,
		&waiting,
		&course.CreatedAt,
		&course.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if code != nil && issuedAt != nil && expires != nil {
		course.ActiveCode = &domain.AttendanceCode{Code: *code, IssuedAt: issuedAt.UTC(), ExpiresAt: expires.UTC()}
	}
	course.CourseDate = course.CourseDate.UTC()
	course.ApplicationPeriod.StartDate = course.ApplicationPeriod.StartDate.UTC()
	course.ApplicationPeriod.EndDate = course.ApplicationPeriod.EndDate.UTC()

	var err error
	if course.RegisteredUsers, err = unmarshalList[domain.UserSummary](registered); err != nil {
		return nil, err
	}
	if course.WaitingList, err = unmarshalList[domain.WaitingEntry](waiting); err != nil {
		return nil, err
	}
	return &course, nil
}

func newCourseID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
