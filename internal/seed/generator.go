package seed

import (
	"fmt"
	"iter"
	"strings"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/yigit/unisync/internal/app/models"
	"github.com/yigit/unisync/internal/pkg/apperrors"
	"github.com/yigit/unisync/internal/pkg/helpers"
	"github.com/yigit/unisync/internal/pkg/validation"
)

// Generator produces drafts (rows without identifiers) for every entity type. All
// randomness comes from one seeded faker, so equal seeds over equal snapshots give equal
// drafts. A Generator is not safe for concurrent use.
type Generator struct {
	params  Params
	faker   *gofakeit.Faker
	refYear int
	records map[string]struct{}
}

// NewGenerator validates p and returns a generator for it. A zero seed is replaced by a
// random one, which Seed reports so the run can be repeated.
func NewGenerator(p Params) (*Generator, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if p.Seed == 0 {
		p.Seed = int64(gofakeit.Uint32()) + 1
	}
	return &Generator{
		params:  p,
		faker:   gofakeit.New(uint64(p.Seed)),
		refYear: p.From.Year(),
		records: make(map[string]struct{}),
	}, nil
}

// Seed returns the seed the generator draws from.
func (g *Generator) Seed() int64 { return g.params.Seed }

// Reserve marks enrollment records as taken, e.g. those already in the store of record.
func (g *Generator) Reserve(records ...string) {
	for _, r := range records {
		g.records[r] = struct{}{}
	}
}

// Drafts returns the draft sequence of entity type t whose parents are taken from snap.
func (g *Generator) Drafts(t models.EntityType, snap *models.Snapshot) iter.Seq2[models.Row, error] {
	switch t {
	case models.EntityOrganization:
		return rows(g.Organizations())
	case models.EntityDivision:
		return rows(g.Divisions(snap.Organizations))
	case models.EntityDepartment:
		return rows(g.Departments(snap.Divisions))
	case models.EntitySpecialty:
		return rows(g.Specialties(snap.Departments))
	case models.EntityCourse:
		return rows(g.Courses(snap.Specialties))
	case models.EntitySession:
		return rows(g.Sessions(snap.Courses))
	case models.EntitySessionMaterial:
		return rows(g.Materials(snap.Sessions))
	case models.EntityGroup:
		return rows(g.Groups(snap.Departments, snap.Specialties))
	case models.EntityStudent:
		return rows(g.Students(snap.Groups))
	case models.EntityScheduleSlot:
		return rows(g.Slots(snap.Groups, snap.Courses, snap.Sessions))
	case models.EntityAttendanceRecord:
		return rows(g.Attendance(snap.ScheduleSlots, snap.Students))
	}
	return func(yield func(models.Row, error) bool) {
		yield(nil, fmt.Errorf("unknown entity type %q", t))
	}
}

// rows widens seq to models.Row and validates every draft on the way out. A draft that
// breaks a domain format ends the sequence with a validation error instead of reaching the
// store of record.
func rows[T models.Row](seq iter.Seq2[T, error]) iter.Seq2[models.Row, error] {
	return func(yield func(models.Row, error) bool) {
		for v, err := range seq {
			if err == nil {
				err = validation.Struct(v)
			}
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(v, nil) {
				return
			}
		}
	}
}

// counts returns the child count of each of n parents.
func (g *Generator) counts(l Level, n int) []int {
	out := make([]int, n)
	if n == 0 {
		return out
	}
	if l.Total > 0 {
		for i := range out {
			out[i] = l.Total / n
			if i < l.Total%n {
				out[i]++
			}
		}
		return out
	}
	for i := range out {
		out[i] = g.faker.IntRange(l.Min, l.Max)
	}
	return out
}

func (g *Generator) pick(items []string) string {
	return items[g.faker.IntRange(0, len(items)-1)]
}

// sample returns k distinct indexes of [0, n), or all of them when k >= n.
func (g *Generator) sample(n, k int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	for i := n - 1; i > 0; i-- {
		j := g.faker.IntRange(0, i)
		idx[i], idx[j] = idx[j], idx[i]
	}
	return idx[:min(k, n)]
}

func (g *Generator) paragraph(topic string) string {
	sentences := g.faker.IntRange(3, 5)
	var b strings.Builder
	fmt.Fprintf(&b, "%s covers the %s %s.", topic, g.faker.Adjective(), g.faker.Noun())
	for i := 1; i < sentences; i++ {
		fmt.Fprintf(&b, " Students %s the %s %s and %s.", g.faker.Verb(), g.faker.Adjective(), g.faker.Noun(), g.faker.Word())
	}
	return b.String()
}

// Organizations emits the configured number of root organizations.
func (g *Generator) Organizations() iter.Seq2[*models.Organization, error] {
	return func(yield func(*models.Organization, error) bool) {
		for i := 0; i < g.params.Organizations; i++ {
			src := organizationNames[i%len(organizationNames)]
			name := src.name
			if i >= len(organizationNames) {
				name = fmt.Sprintf("%s (%s)", src.name, g.faker.City())
			}
			if !yield(&models.Organization{Name: name, Address: src.address}, nil) {
				return
			}
		}
	}
}

func (g *Generator) Divisions(orgs []*models.Organization) iter.Seq2[*models.Division, error] {
	return func(yield func(*models.Division, error) bool) {
		for i, n := range g.counts(g.params.Divisions, len(orgs)) {
			for k := 0; k < n; k++ {
				d := &models.Division{
					OrganizationID: orgs[i].ID,
					Name:           fmt.Sprintf("%s No. %d", g.pick(divisionNames), k+1),
				}
				if !yield(d, nil) {
					return
				}
			}
		}
	}
}

func (g *Generator) Departments(divs []*models.Division) iter.Seq2[*models.Department, error] {
	return func(yield func(*models.Department, error) bool) {
		for i, n := range g.counts(g.params.Departments, len(divs)) {
			for k := 0; k < n; k++ {
				d := &models.Department{
					DivisionID: divs[i].ID,
					Name:       fmt.Sprintf("Department of %s No. %d", g.pick(departmentNames), k+1),
				}
				if !yield(d, nil) {
					return
				}
			}
		}
	}
}

// Specialties draws distinct programs per department.
func (g *Generator) Specialties(deps []*models.Department) iter.Seq2[*models.Specialty, error] {
	return func(yield func(*models.Specialty, error) bool) {
		for i, n := range g.counts(g.params.Specialties, len(deps)) {
			for _, j := range g.sample(len(specialties), n) {
				s := &models.Specialty{
					DepartmentID: deps[i].ID,
					Code:         specialties[j].code,
					Name:         specialties[j].name,
				}
				if !yield(s, nil) {
					return
				}
			}
		}
	}
}

// Courses are generated per specialty and owned by the specialty's department.
func (g *Generator) Courses(specs []*models.Specialty) iter.Seq2[*models.Course, error] {
	return func(yield func(*models.Course, error) bool) {
		for i, n := range g.counts(g.params.Courses, len(specs)) {
			spec := specs[i]
			for k := 0; k < n; k++ {
				c := &models.Course{
					DepartmentID: spec.DepartmentID,
					SpecialtyID:  spec.ID,
					Name:         fmt.Sprintf("%s (%s)", g.pick(courseNames), spec.Name),
					PlannedHours: plannedHours[g.faker.IntRange(0, len(plannedHours)-1)],
				}
				if !yield(c, nil) {
					return
				}
			}
		}
	}
}

func (g *Generator) Sessions(courses []*models.Course) iter.Seq2[*models.Session, error] {
	return func(yield func(*models.Session, error) bool) {
		for i, n := range g.counts(g.params.Sessions, len(courses)) {
			base, _, _ := strings.Cut(courses[i].Name, " (")
			topics, ok := courseTopics[base]
			if !ok {
				topics = make([]string, 8)
				for t := range topics {
					topics[t] = fmt.Sprintf("Lecture %d on %s", t+1, base)
				}
			}
			for k := 0; k < n; k++ {
				topic := topics[k%len(topics)]
				special := g.faker.Float64() < 0.2
				tech := techRegular
				if special {
					tech = techSpecial
				}
				s := &models.Session{
					CourseID:         courses[i].ID,
					Topic:            topic,
					DurationHours:    g.faker.IntRange(1, 3),
					IsSpecial:        special,
					TechRequirements: tech,
					Description:      g.paragraph(topic),
				}
				if !yield(s, nil) {
					return
				}
			}
		}
	}
}

func (g *Generator) Materials(sessions []*models.Session) iter.Seq2[*models.SessionMaterial, error] {
	return func(yield func(*models.SessionMaterial, error) bool) {
		for i, n := range g.counts(g.params.Materials, len(sessions)) {
			for k := 0; k < n; k++ {
				mt := materialTypes[g.faker.IntRange(0, len(materialTypes)-1)]
				m := &models.SessionMaterial{
					SessionID:   sessions[i].ID,
					Name:        fmt.Sprintf("%s for '%s'", mt.kind, sessions[i].Topic),
					Description: mt.description + ". " + g.paragraph(sessions[i].Topic),
				}
				if !yield(m, nil) {
					return
				}
			}
		}
	}
}

// CourseNumber is the study year of a cohort in refYear, capped at 6.
func CourseNumber(refYear, cohort int) int {
	return min(6, refYear-cohort+1)
}

// Groups are generated per department; each takes one of the department's specialties.
// Departments without specialties get no groups.
func (g *Generator) Groups(deps []*models.Department, specs []*models.Specialty) iter.Seq2[*models.Group, error] {
	byDept := make(map[int64][]*models.Specialty)
	for _, s := range specs {
		byDept[s.DepartmentID] = append(byDept[s.DepartmentID], s)
	}

	return func(yield func(*models.Group, error) bool) {
		var owners []*models.Department
		for _, d := range deps {
			if len(byDept[d.ID]) > 0 {
				owners = append(owners, d)
			}
		}
		for i, n := range g.counts(g.params.Groups, len(owners)) {
			dep := owners[i]
			for k := 0; k < n; k++ {
				cands := byDept[dep.ID]
				spec := cands[g.faker.IntRange(0, len(cands)-1)]
				cohort := g.faker.IntRange(g.refYear-4, g.refYear)
				grp := &models.Group{
					DepartmentID: dep.ID,
					SpecialtyID:  spec.ID,
					Name:         fmt.Sprintf("%s-%02d-%02d", g.pick(groupTypes), k%99+1, cohort%100),
					CohortYear:   cohort,
					CourseNumber: CourseNumber(g.refYear, cohort),
				}
				if !yield(grp, nil) {
					return
				}
			}
		}
	}
}

// enrollmentRecord draws a process-unique "<yy><B|M|A><1000-9999>" record.
func (g *Generator) enrollmentRecord(cohort int) (string, error) {
	for attempt := 0; attempt <= g.params.MaxUniqueRetries; attempt++ {
		rec := fmt.Sprintf("%02d%s%d", cohort%100, g.pick(degreeLetters), g.faker.IntRange(1000, 9999))
		if validation.Var(rec, "enrollment_record") != nil {
			continue
		}
		if _, taken := g.records[rec]; !taken {
			g.records[rec] = struct{}{}
			return rec, nil
		}
	}
	return "", apperrors.NewSyncError(apperrors.KindGenerationExhausted, "", string(models.EntityStudent),
		fmt.Errorf("no unique enrollment record for cohort %d after %d retries", cohort, g.params.MaxUniqueRetries))
}

// Students stops with GenerationExhausted when a unique record cannot be found.
func (g *Generator) Students(groups []*models.Group) iter.Seq2[*models.Student, error] {
	return func(yield func(*models.Student, error) bool) {
		for i, n := range g.counts(g.params.Students, len(groups)) {
			for k := 0; k < n; k++ {
				rec, err := g.enrollmentRecord(groups[i].CohortYear)
				if err != nil {
					yield(nil, err)
					return
				}
				s := &models.Student{
					GroupID:          groups[i].ID,
					FullName:         g.faker.Name(),
					EnrollmentRecord: rec,
				}
				if !yield(s, nil) {
					return
				}
			}
		}
	}
}

// Slots schedules sessions of each group's own specialty, so group and session always
// share the department lineage. Groups whose specialty has no sessions get no slots.
func (g *Generator) Slots(groups []*models.Group, courses []*models.Course, sessions []*models.Session) iter.Seq2[*models.ScheduleSlot, error] {
	specOfCourse := make(map[int64]int64, len(courses))
	for _, c := range courses {
		specOfCourse[c.ID] = c.SpecialtyID
	}
	bySpec := make(map[int64][]*models.Session)
	for _, s := range sessions {
		spec, ok := specOfCourse[s.CourseID]
		if ok {
			bySpec[spec] = append(bySpec[spec], s)
		}
	}

	return func(yield func(*models.ScheduleSlot, error) bool) {
		var owners []*models.Group
		for _, grp := range groups {
			if len(bySpec[grp.SpecialtyID]) > 0 {
				owners = append(owners, grp)
			}
		}
		for i, n := range g.counts(g.params.Slots, len(owners)) {
			grp := owners[i]
			cands := bySpec[grp.SpecialtyID]
			for k := 0; k < n; k++ {
				slot := &models.ScheduleSlot{
					GroupID:   grp.ID,
					SessionID: cands[g.faker.IntRange(0, len(cands)-1)].ID,
					Room:      fmt.Sprintf("%s-%d%02d", g.pick(buildings), g.faker.IntRange(1, 4), g.faker.IntRange(1, 20)),
					Capacity:  g.faker.IntRange(20, 30),
				}
				if !yield(slot, nil) {
					return
				}
			}
		}
	}
}

// status draws present/absent/late with weights 0.80/0.15/0.05.
func (g *Generator) status() models.AttendanceStatus {
	switch r := g.faker.Float64(); {
	case r < 0.80:
		return models.AttendancePresent
	case r < 0.95:
		return models.AttendanceAbsent
	default:
		return models.AttendanceLate
	}
}

// Attendance draws distinct weekday occurrence dates per slot inside the window and emits
// one record per student of the slot's group and occurrence.
func (g *Generator) Attendance(slots []*models.ScheduleSlot, students []*models.Student) iter.Seq2[*models.AttendanceRecord, error] {
	byGroup := make(map[int64][]*models.Student)
	for _, s := range students {
		byGroup[s.GroupID] = append(byGroup[s.GroupID], s)
	}
	days := helpers.Weekdays(g.params.From, g.params.To)

	return func(yield func(*models.AttendanceRecord, error) bool) {
		if len(days) == 0 {
			return
		}
		for i, n := range g.counts(g.params.Occurrences, len(slots)) {
			slot := slots[i]
			for _, d := range g.sample(len(days), n) {
				on := models.NewDate(days[d])
				for _, st := range byGroup[slot.GroupID] {
					rec := &models.AttendanceRecord{
						StudentID:  st.ID,
						SlotID:     slot.ID,
						Status:     g.status(),
						WeekStart:  on.WeekStart(),
						AttendedOn: on,
					}
					if !yield(rec, nil) {
						return
					}
				}
			}
		}
	}
}
