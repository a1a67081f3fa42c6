package storage

import "time"

// Change captures a single change event for auditing or printing.
type Change struct {
	OccurredAt time.Time
	SubjectID  string
	CallNumber string
	Title      string
	ChangeType string // added | updated
}

// ListOptions controls selection when listing courses.
type ListOptions struct {
	// Subjects restricts the listing to these subject codes; empty = all.
	Subjects []string
	Since    time.Time
}

// SubjectStats summarises the cached courses of one subject.
type SubjectStats struct {
	SubjectID   string
	SubjectLong string
	CourseCount int
	WithPrereqs int
}
