package seed

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/yigit/unisync/internal/config"
	"github.com/yigit/unisync/internal/pkg/validation"
)

// Level is the child count of one hierarchy level. A positive Total distributes exactly
// Total children round-robin across parents; otherwise Min..Max is drawn per parent.
type Level struct {
	Min   int `validate:"min=0"`
	Max   int `validate:"gtefield=Min"`
	Total int `validate:"min=0"`
}

// PerParent returns a level of exactly n children per parent.
func PerParent(n int) Level { return Level{Min: n, Max: n} }

// Between returns a level drawn uniformly from [lo, hi] per parent.
func Between(lo, hi int) Level { return Level{Min: lo, Max: hi} }

// Exactly returns a level of n children in total.
func Exactly(n int) Level { return Level{Total: n} }

// ParseLevel parses "N", "MIN-MAX" or "=N".
func ParseLevel(s string) (Level, error) {
	s = strings.TrimSpace(s)
	if rest, ok := strings.CutPrefix(s, "="); ok {
		n, err := strconv.Atoi(rest)
		if err != nil {
			return Level{}, fmt.Errorf("invalid total %q: %w", s, err)
		}
		return Exactly(n), nil
	}
	if loStr, hiStr, ok := strings.Cut(s, "-"); ok {
		lo, err := strconv.Atoi(strings.TrimSpace(loStr))
		if err != nil {
			return Level{}, fmt.Errorf("invalid range %q: %w", s, err)
		}
		hi, err := strconv.Atoi(strings.TrimSpace(hiStr))
		if err != nil {
			return Level{}, fmt.Errorf("invalid range %q: %w", s, err)
		}
		return Between(lo, hi), nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return Level{}, fmt.Errorf("invalid level %q: %w", s, err)
	}
	return PerParent(n), nil
}

// Params are the generation parameters of one run.
type Params struct {
	// Seed feeds the single random source; 0 picks a random seed.
	Seed          int64
	Organizations int `validate:"min=1"`
	Divisions     Level
	Departments   Level
	Specialties   Level
	Courses       Level // per specialty
	Sessions      Level // per course
	Materials     Level // per session
	Groups        Level // per department
	Students      Level // per group
	Slots         Level // per group
	Occurrences   Level // attendance dates per slot
	From          time.Time `validate:"required"`
	To            time.Time `validate:"required,gtefield=From"`
	// MaxUniqueRetries bounds regeneration of a colliding enrollment record.
	MaxUniqueRetries int `validate:"min=1"`
}

// DefaultParams returns a small but complete dataset description.
func DefaultParams() Params {
	return Params{
		Seed:             1,
		Organizations:    1,
		Divisions:        Between(2, 4),
		Departments:      Between(2, 3),
		Specialties:      PerParent(2),
		Courses:          Between(2, 3),
		Sessions:         Between(3, 6),
		Materials:        Between(1, 2),
		Groups:           Between(1, 2),
		Students:         Between(15, 25),
		Slots:            Between(2, 4),
		Occurrences:      Between(1, 3),
		From:             time.Date(2024, 9, 2, 0, 0, 0, 0, time.UTC),
		To:               time.Date(2024, 12, 27, 0, 0, 0, 0, time.UTC),
		MaxUniqueRetries: 64,
	}
}

// Validate checks the parameters with the shared validator.
func (p Params) Validate() error {
	return validation.Struct(p)
}

// ParamsFromConfig converts the generation section of the configuration.
func ParamsFromConfig(cfg *config.Config) (Params, error) {
	g := cfg.Generation
	p := Params{
		Seed:             g.Seed,
		Organizations:    g.Organizations,
		MaxUniqueRetries: g.MaxUniqueRetries,
	}

	levels := []struct {
		dst *Level
		src string
	}{
		{&p.Divisions, g.Divisions},
		{&p.Departments, g.Departments},
		{&p.Specialties, g.Specialties},
		{&p.Courses, g.Courses},
		{&p.Sessions, g.Sessions},
		{&p.Materials, g.Materials},
		{&p.Groups, g.Groups},
		{&p.Students, g.Students},
		{&p.Slots, g.Slots},
		{&p.Occurrences, g.OccurrencesPerSlot},
	}
	for _, l := range levels {
		lvl, err := ParseLevel(l.src)
		if err != nil {
			return Params{}, err
		}
		*l.dst = lvl
	}

	var err error
	if p.From, err = time.Parse("2006-01-02", g.AttendanceFrom); err != nil {
		return Params{}, fmt.Errorf("invalid attendance_from: %w", err)
	}
	if p.To, err = time.Parse("2006-01-02", g.AttendanceTo); err != nil {
		return Params{}, fmt.Errorf("invalid attendance_to: %w", err)
	}
	return p, p.Validate()
}
