package models

// Group is a cohort of students of one specialty, owned by a department.
type Group struct {
	ID           int64  `json:"id" db:"id"`
	DepartmentID int64  `json:"department_id" db:"department_id"`
	SpecialtyID  int64  `json:"specialty_id" db:"specialty_id"`
	Name         string `json:"name" db:"name" validate:"group_name"`
	CohortYear   int    `json:"cohort_year" db:"cohort_year"`
	CourseNumber int    `json:"course_number" db:"course_number"` // derived from cohort year
}

// Student defines the student model based on the 'students' table
type Student struct {
	ID               int64  `json:"id" db:"id"`
	GroupID          int64  `json:"group_id" db:"group_id"`
	FullName         string `json:"full_name" db:"full_name"`
	EnrollmentRecord string `json:"enrollment_record" db:"enrollment_record" validate:"enrollment_record"` // unique across runs
}
