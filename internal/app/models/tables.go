package models

// Row is an entity that can be written to and read back from the store of record.
// Columns and Values exclude the identifier, which the store assigns.
type Row interface {
	EntityType() EntityType
	Columns() []string
	Values() []any
	GetID() int64
	SetID(id int64)
	// ScanTargets returns pointers for the id followed by Columns, in that order.
	ScanTargets() []any
}

func (o *Organization) EntityType() EntityType { return EntityOrganization }
func (o *Organization) Columns() []string      { return []string{"name", "address"} }
func (o *Organization) Values() []any          { return []any{o.Name, o.Address} }
func (o *Organization) GetID() int64           { return o.ID }
func (o *Organization) SetID(id int64)         { o.ID = id }
func (o *Organization) ScanTargets() []any     { return []any{&o.ID, &o.Name, &o.Address} }

func (d *Division) EntityType() EntityType { return EntityDivision }
func (d *Division) Columns() []string      { return []string{"organization_id", "name"} }
func (d *Division) Values() []any          { return []any{d.OrganizationID, d.Name} }
func (d *Division) GetID() int64           { return d.ID }
func (d *Division) SetID(id int64)         { d.ID = id }
func (d *Division) ScanTargets() []any     { return []any{&d.ID, &d.OrganizationID, &d.Name} }

func (d *Department) EntityType() EntityType { return EntityDepartment }
func (d *Department) Columns() []string      { return []string{"division_id", "name"} }
func (d *Department) Values() []any          { return []any{d.DivisionID, d.Name} }
func (d *Department) GetID() int64           { return d.ID }
func (d *Department) SetID(id int64)         { d.ID = id }
func (d *Department) ScanTargets() []any     { return []any{&d.ID, &d.DivisionID, &d.Name} }

func (s *Specialty) EntityType() EntityType { return EntitySpecialty }
func (s *Specialty) Columns() []string      { return []string{"department_id", "code", "name"} }
func (s *Specialty) Values() []any          { return []any{s.DepartmentID, s.Code, s.Name} }
func (s *Specialty) GetID() int64           { return s.ID }
func (s *Specialty) SetID(id int64)         { s.ID = id }
func (s *Specialty) ScanTargets() []any {
	return []any{&s.ID, &s.DepartmentID, &s.Code, &s.Name}
}

func (c *Course) EntityType() EntityType { return EntityCourse }
func (c *Course) Columns() []string {
	return []string{"department_id", "specialty_id", "name", "planned_hours"}
}
func (c *Course) Values() []any {
	return []any{c.DepartmentID, c.SpecialtyID, c.Name, c.PlannedHours}
}
func (c *Course) GetID() int64   { return c.ID }
func (c *Course) SetID(id int64) { c.ID = id }
func (c *Course) ScanTargets() []any {
	return []any{&c.ID, &c.DepartmentID, &c.SpecialtyID, &c.Name, &c.PlannedHours}
}

func (s *Session) EntityType() EntityType { return EntitySession }
func (s *Session) Columns() []string {
	return []string{"course_id", "topic", "duration_hours", "is_special", "tech_requirements", "description"}
}
func (s *Session) Values() []any {
	return []any{s.CourseID, s.Topic, s.DurationHours, s.IsSpecial, s.TechRequirements, s.Description}
}
func (s *Session) GetID() int64   { return s.ID }
func (s *Session) SetID(id int64) { s.ID = id }
func (s *Session) ScanTargets() []any {
	return []any{&s.ID, &s.CourseID, &s.Topic, &s.DurationHours, &s.IsSpecial, &s.TechRequirements, &s.Description}
}

func (m *SessionMaterial) EntityType() EntityType { return EntitySessionMaterial }
func (m *SessionMaterial) Columns() []string      { return []string{"session_id", "name", "description"} }
func (m *SessionMaterial) Values() []any          { return []any{m.SessionID, m.Name, m.Description} }
func (m *SessionMaterial) GetID() int64           { return m.ID }
func (m *SessionMaterial) SetID(id int64)         { m.ID = id }
func (m *SessionMaterial) ScanTargets() []any {
	return []any{&m.ID, &m.SessionID, &m.Name, &m.Description}
}

func (g *Group) EntityType() EntityType { return EntityGroup }
func (g *Group) Columns() []string {
	return []string{"department_id", "specialty_id", "name", "cohort_year", "course_number"}
}
func (g *Group) Values() []any {
	return []any{g.DepartmentID, g.SpecialtyID, g.Name, g.CohortYear, g.CourseNumber}
}
func (g *Group) GetID() int64   { return g.ID }
func (g *Group) SetID(id int64) { g.ID = id }
func (g *Group) ScanTargets() []any {
	return []any{&g.ID, &g.DepartmentID, &g.SpecialtyID, &g.Name, &g.CohortYear, &g.CourseNumber}
}

func (s *Student) EntityType() EntityType { return EntityStudent }
func (s *Student) Columns() []string      { return []string{"group_id", "full_name", "enrollment_record"} }
func (s *Student) Values() []any          { return []any{s.GroupID, s.FullName, s.EnrollmentRecord} }
func (s *Student) GetID() int64           { return s.ID }
func (s *Student) SetID(id int64)         { s.ID = id }
func (s *Student) ScanTargets() []any {
	return []any{&s.ID, &s.GroupID, &s.FullName, &s.EnrollmentRecord}
}

func (s *ScheduleSlot) EntityType() EntityType { return EntityScheduleSlot }
func (s *ScheduleSlot) Columns() []string {
	return []string{"group_id", "session_id", "room", "capacity"}
}
func (s *ScheduleSlot) Values() []any  { return []any{s.GroupID, s.SessionID, s.Room, s.Capacity} }
func (s *ScheduleSlot) GetID() int64   { return s.ID }
func (s *ScheduleSlot) SetID(id int64) { s.ID = id }
func (s *ScheduleSlot) ScanTargets() []any {
	return []any{&s.ID, &s.GroupID, &s.SessionID, &s.Room, &s.Capacity}
}

func (a *AttendanceRecord) EntityType() EntityType { return EntityAttendanceRecord }
func (a *AttendanceRecord) Columns() []string {
	return []string{"student_id", "schedule_slot_id", "status", "week_start", "attended_on"}
}

// Values passes dates as YYYY-MM-DD text, which both postgres DATE and sqlite accept.
func (a *AttendanceRecord) Values() []any {
	return []any{a.StudentID, a.SlotID, string(a.Status), a.WeekStart.String(), a.AttendedOn.String()}
}
func (a *AttendanceRecord) GetID() int64   { return a.ID }
func (a *AttendanceRecord) SetID(id int64) { a.ID = id }
func (a *AttendanceRecord) ScanTargets() []any {
	return []any{&a.ID, &a.StudentID, &a.SlotID, (*string)(&a.Status), &a.WeekStart, &a.AttendedOn}
}

// NewRow returns an empty row of entity type t, or nil for an undeclared type.
func NewRow(t EntityType) Row {
	switch t {
	case EntityOrganization:
		return &Organization{}
	case EntityDivision:
		return &Division{}
	case EntityDepartment:
		return &Department{}
	case EntitySpecialty:
		return &Specialty{}
	case EntityCourse:
		return &Course{}
	case EntitySession:
		return &Session{}
	case EntitySessionMaterial:
		return &SessionMaterial{}
	case EntityGroup:
		return &Group{}
	case EntityStudent:
		return &Student{}
	case EntityScheduleSlot:
		return &ScheduleSlot{}
	case EntityAttendanceRecord:
		return &AttendanceRecord{}
	}
	return nil
}
