package models

import "fmt"

// EntityType names one canonical entity kind of the store of record.
type EntityType string

const (
	EntityOrganization     EntityType = "organization"
	EntityDivision         EntityType = "division"
	EntityDepartment       EntityType = "department"
	EntitySpecialty        EntityType = "specialty"
	EntityCourse           EntityType = "course"
	EntitySession          EntityType = "session"
	EntitySessionMaterial  EntityType = "session_material"
	EntityGroup            EntityType = "group"
	EntityStudent          EntityType = "student"
	EntityScheduleSlot     EntityType = "schedule_slot"
	EntityAttendanceRecord EntityType = "attendance_record"
)

// EntityTypes lists every entity type in declaration order.
// The order doubles as the tie-breaker of TopologicalOrder.
var EntityTypes = []EntityType{
	EntityOrganization,
	EntityDivision,
	EntityDepartment,
	EntitySpecialty,
	EntityCourse,
	EntitySession,
	EntitySessionMaterial,
	EntityGroup,
	EntityStudent,
	EntityScheduleSlot,
	EntityAttendanceRecord,
}

var tableNames = map[EntityType]string{
	EntityOrganization:     "organizations",
	EntityDivision:         "divisions",
	EntityDepartment:       "departments",
	EntitySpecialty:        "specialties",
	EntityCourse:           "courses",
	EntitySession:          "sessions",
	EntitySessionMaterial:  "session_materials",
	EntityGroup:            "student_groups",
	EntityStudent:          "students",
	EntityScheduleSlot:     "schedule_slots",
	EntityAttendanceRecord: "attendance_records",
}

// Table returns the store-of-record table holding this entity type.
func (t EntityType) Table() string {
	return tableNames[t]
}

// Valid reports whether t is a declared entity type.
func (t EntityType) Valid() bool {
	_, ok := tableNames[t]
	return ok
}

// CacheKey builds the "<entity-type>:<canonical-id>" key used by the cache store.
func (t EntityType) CacheKey(id int64) string {
	return fmt.Sprintf("%s:%d", t, id)
}

// AttendanceStatus is the canonical attendance vocabulary.
type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "present"
	AttendanceAbsent  AttendanceStatus = "absent"
	AttendanceLate    AttendanceStatus = "late"
)

// Valid reports whether s belongs to the canonical vocabulary.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendancePresent, AttendanceAbsent, AttendanceLate:
		return true
	}
	return false
}
