package models

import (
	"errors"
	"fmt"
)

// ErrDependencyCycle is returned when the entity dependency declaration is not a DAG.
var ErrDependencyCycle = errors.New("entity dependency cycle")

// Dependencies declares, for each entity type, the entity types whose identifiers it references.
// Batch scheduling is derived from this table, never from call order.
var Dependencies = map[EntityType][]EntityType{
	EntityOrganization:     nil,
	EntityDivision:         {EntityOrganization},
	EntityDepartment:       {EntityDivision},
	EntitySpecialty:        {EntityDepartment},
	EntityCourse:           {EntityDepartment, EntitySpecialty},
	EntitySession:          {EntityCourse},
	EntitySessionMaterial:  {EntitySession},
	EntityGroup:            {EntityDepartment, EntitySpecialty},
	EntityStudent:          {EntityGroup},
	EntityScheduleSlot:     {EntityGroup, EntitySession},
	EntityAttendanceRecord: {EntityStudent, EntityScheduleSlot},
}

// TopologicalOrder returns the entity types of deps ordered so that every type follows all of
// its dependencies. Among ready types the one declared first in EntityTypes wins, so the order
// is deterministic.
func TopologicalOrder(deps map[EntityType][]EntityType) ([]EntityType, error) {
	rank := make(map[EntityType]int, len(EntityTypes))
	for i, t := range EntityTypes {
		rank[t] = i
	}

	indegree := make(map[EntityType]int, len(deps))
	children := make(map[EntityType][]EntityType, len(deps))
	for t, parents := range deps {
		if _, ok := indegree[t]; !ok {
			indegree[t] = 0
		}
		for _, p := range parents {
			if _, ok := deps[p]; !ok {
				return nil, fmt.Errorf("%s depends on undeclared %s", t, p)
			}
			indegree[t]++
			children[p] = append(children[p], t)
		}
	}

	var ready []EntityType
	for t, n := range indegree {
		if n == 0 {
			ready = append(ready, t)
		}
	}

	order := make([]EntityType, 0, len(deps))
	for len(ready) > 0 {
		best := 0
		for i := range ready {
			if less(rank, ready[i], ready[best]) {
				best = i
			}
		}
		next := ready[best]
		ready = append(ready[:best], ready[best+1:]...)
		order = append(order, next)

		for _, c := range children[next] {
			indegree[c]--
			if indegree[c] == 0 {
				ready = append(ready, c)
			}
		}
	}

	if len(order) != len(deps) {
		return nil, ErrDependencyCycle
	}
	return order, nil
}

func less(rank map[EntityType]int, a, b EntityType) bool {
	ra, okA := rank[a]
	rb, okB := rank[b]
	switch {
	case okA && okB:
		return ra < rb
	case okA:
		return true
	case okB:
		return false
	}
	return a < b
}

// Dependents returns every entity type that transitively depends on t.
func Dependents(deps map[EntityType][]EntityType, t EntityType) []EntityType {
	seen := map[EntityType]bool{}
	var walk func(EntityType)
	walk = func(parent EntityType) {
		for child, parents := range deps {
			if seen[child] {
				continue
			}
			for _, p := range parents {
				if p == parent {
					seen[child] = true
					walk(child)
					break
				}
			}
		}
	}
	walk(t)

	out := make([]EntityType, 0, len(seen))
	for _, candidate := range EntityTypes {
		if seen[candidate] {
			out = append(out, candidate)
		}
	}
	return out
}
