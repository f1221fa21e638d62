package models

// Course represents a lecture course offered by a department for one specialty.
type Course struct {
	ID           int64  `json:"id" db:"id"`
	DepartmentID int64  `json:"department_id" db:"department_id"`
	SpecialtyID  int64  `json:"specialty_id" db:"specialty_id"`
	Name         string `json:"name" db:"name"`
	PlannedHours int    `json:"planned_hours" db:"planned_hours"`
}

// Session is a single lecture of a course.
type Session struct {
	ID               int64  `json:"id" db:"id"`
	CourseID         int64  `json:"course_id" db:"course_id"`
	Topic            string `json:"topic" db:"topic"`
	DurationHours    int    `json:"duration_hours" db:"duration_hours"`
	IsSpecial        bool   `json:"is_special" db:"is_special"`
	TechRequirements string `json:"tech_requirements" db:"tech_requirements"`
	Description      string `json:"description" db:"description"` // free text, indexed for search
}

// SessionMaterial is a handout, recording or assignment attached to a session.
type SessionMaterial struct {
	ID          int64  `json:"id" db:"id"`
	SessionID   int64  `json:"session_id" db:"session_id"`
	Name        string `json:"name" db:"name"`
	Description string `json:"description" db:"description"`
}
