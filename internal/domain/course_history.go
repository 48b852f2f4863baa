package domain

import "time"

// CourseChangeType captures which workflow step produced a history entry.
type CourseChangeType string

const (
	ChangeTypeCreated       CourseChangeType = "CREATED"
	ChangeTypeUpdated       CourseChangeType = "UPDATED"
	ChangeTypeRegistered    CourseChangeType = "REGISTERED"
	ChangeTypeCodeGenerated CourseChangeType = "CODE_GENERATED"
	ChangeTypeCodeValidated CourseChangeType = "CODE_VALIDATED"
	ChangeTypeApproved      CourseChangeType = "APPROVED"
	ChangeTypeRejected      CourseChangeType = "REJECTED"
	ChangeTypeImageUploaded CourseChangeType = "IMAGE_UPLOADED"
)

// CourseHistory is an immutable audit trail entry for a course.
type CourseHistory struct {
	ID         string
	CourseID   string
	ActorID    *string
	SubjectID  *string
	ChangeType CourseChangeType
	Details    map[string]any
	CreatedAt  time.Time
}
