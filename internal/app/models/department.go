package models

// Department represents a department (kafedra) inside a division
type Department struct {
	ID         int64  `json:"id" db:"id"`
	DivisionID int64  `json:"division_id" db:"division_id"`
	Name       string `json:"name" db:"name"`
}

// Specialty is a degree program owned by a department.
type Specialty struct {
	ID           int64  `json:"id" db:"id"`
	DepartmentID int64  `json:"department_id" db:"department_id"`
	Code         string `json:"code" db:"code" validate:"specialty_code"` // e.g. 09.03.04
	Name         string `json:"name" db:"name"`
}
