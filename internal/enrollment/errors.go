package enrollment

import (
	"net/http"

	apperrors "github.com/coursekit/course-service/pkg/util/errorutil"
)

// Workflow failures. Each carries a stable code callers can match with
// errors.Is or errorutil.CodeOf.
var (
	ErrCourseNotFound       = apperrors.NewDomainError(apperrors.KindNotFound, "COURSE_NOT_FOUND", "course not found", http.StatusNotFound, nil)
	ErrUserNotFound         = apperrors.NewDomainError(apperrors.KindNotFound, "USER_NOT_FOUND", "user not found", http.StatusNotFound, nil)
	ErrUserOrCourseNotFound = apperrors.NewDomainError(apperrors.KindNotFound, "USER_OR_COURSE_NOT_FOUND", "user or course not found", http.StatusNotFound, nil)
	ErrRegistrationClosed   = apperrors.NewDomainError(apperrors.KindConflict, "REGISTRATION_CLOSED", "registration is not open for this course", http.StatusConflict, nil)
	ErrAlreadyRegistered    = apperrors.NewDomainError(apperrors.KindConflict, "ALREADY_REGISTERED", "user already registered for this course", http.StatusConflict, nil)
	ErrScheduleConflict     = apperrors.NewDomainError(apperrors.KindConflict, "SCHEDULE_CONFLICT", "user already has a course at the same date", http.StatusConflict, nil)
	ErrCourseFull           = apperrors.NewDomainError(apperrors.KindConflict, "COURSE_FULL", "course is full", http.StatusConflict, nil)
	ErrOutOfWindow          = apperrors.NewDomainError(apperrors.KindConflict, "OUT_OF_WINDOW", "course session has not started yet", http.StatusConflict, nil)
	ErrWindowExpired        = apperrors.NewDomainError(apperrors.KindConflict, "WINDOW_EXPIRED", "course session window has passed", http.StatusConflict, nil)
	ErrCodeAlreadyActive    = apperrors.NewDomainError(apperrors.KindConflict, "CODE_ALREADY_ACTIVE", "an attendance code is already active for this session", http.StatusConflict, nil)
	ErrCodeRequired         = apperrors.NewDomainError(apperrors.KindValidation, "CODE_REQUIRED", "attendance code is required", http.StatusBadRequest, nil)
	ErrCodeMismatch         = apperrors.NewDomainError(apperrors.KindUnauthorized, "CODE_MISMATCH", "attendance code is invalid", http.StatusForbidden, nil)
	ErrNotRegistered        = apperrors.NewDomainError(apperrors.KindUnauthorized, "NOT_REGISTERED", "user is not registered for this course", http.StatusForbidden, nil)
	ErrAlreadyPending       = apperrors.NewDomainError(apperrors.KindConflict, "ALREADY_PENDING", "user is already waiting for approval", http.StatusConflict, nil)
	ErrInvalidAction        = apperrors.NewDomainError(apperrors.KindValidation, "INVALID_ACTION", "action must be approve or reject", http.StatusBadRequest, nil)
	ErrCodeSpaceExhausted   = apperrors.NewDomainError(apperrors.KindConflict, "CODE_SPACE_EXHAUSTED", "could not allocate a unique attendance code", http.StatusServiceUnavailable, nil)
)
