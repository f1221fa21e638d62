package projectors_test

import (
	"github.com/yigit/unisync/internal/app/models"
)

func date(s string) models.Date {
	d, err := models.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// fixture is a committed snapshot: 1 organization, 2 divisions, 3 departments,
// 1 specialty, 1 course with 2 sessions, 2 groups, 3 students, 2 slots, 3 attendance records.
func fixture() *models.Snapshot {
	snap := &models.Snapshot{}
	snap.Add(
		&models.Organization{ID: 1, Name: "Technical University", Address: "Main st. 1"},
		&models.Division{ID: 10, OrganizationID: 1, Name: "IT"},
		&models.Division{ID: 11, OrganizationID: 1, Name: "Economics"},
		&models.Department{ID: 20, DivisionID: 10, Name: "Software"},
		&models.Department{ID: 21, DivisionID: 10, Name: "Security"},
		&models.Department{ID: 22, DivisionID: 11, Name: "Management"},
		&models.Specialty{ID: 30, DepartmentID: 20, Code: "09.03.04", Name: "Software Engineering"},
		&models.Course{ID: 40, DepartmentID: 20, SpecialtyID: 30, Name: "Databases", PlannedHours: 72},
		&models.Session{ID: 50, CourseID: 40, Topic: "Indexes", DurationHours: 2, TechRequirements: "Projector", Description: "B-trees and hashing"},
		&models.Session{ID: 51, CourseID: 40, Topic: "Transactions", DurationHours: 2, TechRequirements: "Projector", Description: "Isolation levels"},
		&models.SessionMaterial{ID: 55, SessionID: 50, Name: "Slides", Description: "Index slides"},
		&models.Group{ID: 60, DepartmentID: 20, SpecialtyID: 30, Name: "BSBO-01-22", CohortYear: 2022, CourseNumber: 3},
		&models.Group{ID: 61, DepartmentID: 20, SpecialtyID: 30, Name: "BSBO-02-23", CohortYear: 2023, CourseNumber: 2},
		&models.Student{ID: 70, GroupID: 60, FullName: "Anna Smirnova", EnrollmentRecord: "22B1001"},
		&models.Student{ID: 71, GroupID: 60, FullName: "Ivan Petrov", EnrollmentRecord: "22M2002"},
		&models.Student{ID: 72, GroupID: 61, FullName: "Olga Ivanova", EnrollmentRecord: "23A3003"},
		&models.ScheduleSlot{ID: 80, GroupID: 60, SessionID: 50, Room: "A-101", Capacity: 25},
		&models.ScheduleSlot{ID: 81, GroupID: 61, SessionID: 51, Room: "B-204", Capacity: 30},
		&models.AttendanceRecord{ID: 90, StudentID: 70, SlotID: 80, Status: models.AttendancePresent, WeekStart: date("2024-09-09"), AttendedOn: date("2024-09-10")},
		&models.AttendanceRecord{ID: 91, StudentID: 70, SlotID: 80, Status: models.AttendanceLate, WeekStart: date("2024-09-16"), AttendedOn: date("2024-09-17")},
		&models.AttendanceRecord{ID: 92, StudentID: 72, SlotID: 81, Status: models.AttendanceAbsent, WeekStart: date("2024-09-09"), AttendedOn: date("2024-09-11")},
	)
	return snap
}
