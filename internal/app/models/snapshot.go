package models

// Snapshot holds every committed entity of one run, grouped by entity type.
// Identifiers in it are the canonical ones assigned by the store of record.
type Snapshot struct {
	Organizations     []*Organization
	Divisions         []*Division
	Departments       []*Department
	Specialties       []*Specialty
	Courses           []*Course
	Sessions          []*Session
	SessionMaterials  []*SessionMaterial
	Groups            []*Group
	Students          []*Student
	ScheduleSlots     []*ScheduleSlot
	AttendanceRecords []*AttendanceRecord
}

// Add appends committed rows to the slice matching their entity type.
func (s *Snapshot) Add(rows ...Row) {
	for _, r := range rows {
		switch v := r.(type) {
		case *Organization:
			s.Organizations = append(s.Organizations, v)
		case *Division:
			s.Divisions = append(s.Divisions, v)
		case *Department:
			s.Departments = append(s.Departments, v)
		case *Specialty:
			s.Specialties = append(s.Specialties, v)
		case *Course:
			s.Courses = append(s.Courses, v)
		case *Session:
			s.Sessions = append(s.Sessions, v)
		case *SessionMaterial:
			s.SessionMaterials = append(s.SessionMaterials, v)
		case *Group:
			s.Groups = append(s.Groups, v)
		case *Student:
			s.Students = append(s.Students, v)
		case *ScheduleSlot:
			s.ScheduleSlots = append(s.ScheduleSlots, v)
		case *AttendanceRecord:
			s.AttendanceRecords = append(s.AttendanceRecords, v)
		}
	}
}

// Counts returns the number of rows per entity type.
func (s *Snapshot) Counts() map[EntityType]int {
	return map[EntityType]int{
		EntityOrganization:     len(s.Organizations),
		EntityDivision:         len(s.Divisions),
		EntityDepartment:       len(s.Departments),
		EntitySpecialty:        len(s.Specialties),
		EntityCourse:           len(s.Courses),
		EntitySession:          len(s.Sessions),
		EntitySessionMaterial:  len(s.SessionMaterials),
		EntityGroup:            len(s.Groups),
		EntityStudent:          len(s.Students),
		EntityScheduleSlot:     len(s.ScheduleSlots),
		EntityAttendanceRecord: len(s.AttendanceRecords),
	}
}

// Index is a set of id lookups over a snapshot.
type Index struct {
	Divisions   map[int64]*Division
	Departments map[int64]*Department
	Specialties map[int64]*Specialty
	Courses     map[int64]*Course
	Sessions    map[int64]*Session
	Groups      map[int64]*Group
	Students    map[int64]*Student
}

// Index builds id lookups for the parents projectors need to denormalize.
func (s *Snapshot) Index() *Index {
	idx := &Index{
		Divisions:   make(map[int64]*Division, len(s.Divisions)),
		Departments: make(map[int64]*Department, len(s.Departments)),
		Specialties: make(map[int64]*Specialty, len(s.Specialties)),
		Courses:     make(map[int64]*Course, len(s.Courses)),
		Sessions:    make(map[int64]*Session, len(s.Sessions)),
		Groups:      make(map[int64]*Group, len(s.Groups)),
		Students:    make(map[int64]*Student, len(s.Students)),
	}
	for _, d := range s.Divisions {
		idx.Divisions[d.ID] = d
	}
	for _, d := range s.Departments {
		idx.Departments[d.ID] = d
	}
	for _, sp := range s.Specialties {
		idx.Specialties[sp.ID] = sp
	}
	for _, c := range s.Courses {
		idx.Courses[c.ID] = c
	}
	for _, se := range s.Sessions {
		idx.Sessions[se.ID] = se
	}
	for _, g := range s.Groups {
		idx.Groups[g.ID] = g
	}
	for _, st := range s.Students {
		idx.Students[st.ID] = st
	}
	return idx
}

// SessionDepartment resolves the department a session originates from through its course.
func (idx *Index) SessionDepartment(sessionID int64) (int64, bool) {
	se, ok := idx.Sessions[sessionID]
	if !ok {
		return 0, false
	}
	c, ok := idx.Courses[se.CourseID]
	if !ok {
		return 0, false
	}
	return c.DepartmentID, true
}
