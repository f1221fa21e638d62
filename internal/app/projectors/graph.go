package projectors

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/yigit/unisync/internal/app/models"
)

// Graph node labels.
const (
	LabelOrganization = "Organization"
	LabelDivision     = "Division"
	LabelDepartment   = "Department"
	LabelGroup        = "Group"
	LabelStudent      = "Student"
	LabelSession      = "Session"
	LabelScheduleSlot = "ScheduleSlot"
)

// Graph relationship types.
const (
	RelMemberOf       = "MEMBER_OF"
	RelOriginatesFrom = "ORIGINATES_FROM"
	RelHasSchedule    = "HAS_SCHEDULE"
	RelAttended       = "ATTENDED"
)

// NodeRef identifies a node by label and canonical id.
type NodeRef struct {
	Label string
	ID    int64
}

// Edge is a relationship to merge. When Key is set the relationship is identified by
// Props[Key] instead of by its endpoints alone, so several edges may join the same pair.
type Edge struct {
	Type  string
	From  NodeRef
	To    NodeRef
	Key   string
	Props map[string]any
}

// GraphStore is the capability the graph projector needs. Both methods must be upserts.
// MergeEdge returns a ProjectionDeferred error when either endpoint node does not exist.
type GraphStore interface {
	MergeNode(ctx context.Context, node NodeRef, props map[string]any) error
	MergeEdge(ctx context.Context, edge Edge) error
}

// GraphProjector writes nodes and membership/origination/scheduling/attendance edges.
type GraphProjector struct {
	store   GraphStore
	retrier Retrier
	log     zerolog.Logger
}

// NewGraphProjector creates a graph projector
func NewGraphProjector(store GraphStore, retrier Retrier, log zerolog.Logger) *GraphProjector {
	return &GraphProjector{store: store, retrier: retrier, log: log}
}

func (p *GraphProjector) Name() string { return StoreGraph }

type nodeItem struct {
	entity models.EntityType
	ref    NodeRef
	props  map[string]any
}

type edgeItem struct {
	entity models.EntityType
	edge   Edge
}

// Project merges all nodes first, then all edges; edges whose endpoint is missing are
// retried once after everything else was written.
func (p *GraphProjector) Project(ctx context.Context, snap *models.Snapshot) *StoreReport {
	report := NewStoreReport(StoreGraph)

	for _, n := range graphNodes(snap) {
		err := p.retrier.Do(ctx, StoreGraph, func(ctx context.Context) error {
			return p.store.MergeNode(ctx, n.ref, n.props)
		})
		if err != nil {
			p.log.Warn().Err(err).Str("label", n.ref.Label).Int64("id", n.ref.ID).Msg("node projection failed")
			report.Fail(err)
			continue
		}
		report.Commit(n.entity, 1)
	}

	var queue []deferred
	for _, e := range graphEdges(snap) {
		apply(ctx, p.retrier, StoreGraph, e.entity, func(ctx context.Context) error {
			return p.store.MergeEdge(ctx, e.edge)
		}, &queue, report)
	}

	if len(queue) > 0 {
		p.log.Info().Int("deferred", len(queue)).Msg("retrying deferred edges")
		runDeferred(ctx, p.retrier, StoreGraph, queue, report)
	}

	p.log.Info().Int("committed", report.Committed).Int("failed", report.Failed).Msg("graph projection finished")
	return report
}

func graphNodes(snap *models.Snapshot) []nodeItem {
	var out []nodeItem
	add := func(t models.EntityType, label string, id int64, props map[string]any) {
		out = append(out, nodeItem{entity: t, ref: NodeRef{Label: label, ID: id}, props: props})
	}

	for _, o := range snap.Organizations {
		add(models.EntityOrganization, LabelOrganization, o.ID, map[string]any{"name": o.Name, "address": o.Address})
	}
	for _, d := range snap.Divisions {
		add(models.EntityDivision, LabelDivision, d.ID, map[string]any{"name": d.Name})
	}
	for _, d := range snap.Departments {
		add(models.EntityDepartment, LabelDepartment, d.ID, map[string]any{"name": d.Name})
	}
	for _, g := range snap.Groups {
		add(models.EntityGroup, LabelGroup, g.ID, map[string]any{"name": g.Name, "course_number": g.CourseNumber, "cohort_year": g.CohortYear})
	}
	for _, s := range snap.Students {
		add(models.EntityStudent, LabelStudent, s.ID, map[string]any{"full_name": s.FullName, "enrollment_record": s.EnrollmentRecord})
	}
	for _, s := range snap.Sessions {
		add(models.EntitySession, LabelSession, s.ID, map[string]any{
			"topic":             s.Topic,
			"duration_hours":    s.DurationHours,
			"is_special":        s.IsSpecial,
			"tech_requirements": s.TechRequirements,
		})
	}
	for _, s := range snap.ScheduleSlots {
		add(models.EntityScheduleSlot, LabelScheduleSlot, s.ID, map[string]any{"room": s.Room, "capacity": s.Capacity})
	}
	return out
}

func graphEdges(snap *models.Snapshot) []edgeItem {
	idx := snap.Index()
	var out []edgeItem
	add := func(t models.EntityType, e Edge) {
		out = append(out, edgeItem{entity: t, edge: e})
	}
	member := func(from, to NodeRef) Edge {
		return Edge{Type: RelMemberOf, From: from, To: to}
	}

	for _, d := range snap.Divisions {
		add(models.EntityDivision, member(NodeRef{LabelDivision, d.ID}, NodeRef{LabelOrganization, d.OrganizationID}))
	}
	for _, d := range snap.Departments {
		add(models.EntityDepartment, member(NodeRef{LabelDepartment, d.ID}, NodeRef{LabelDivision, d.DivisionID}))
	}
	for _, g := range snap.Groups {
		add(models.EntityGroup, member(NodeRef{LabelGroup, g.ID}, NodeRef{LabelDepartment, g.DepartmentID}))
	}
	for _, s := range snap.Students {
		add(models.EntityStudent, member(NodeRef{LabelStudent, s.ID}, NodeRef{LabelGroup, s.GroupID}))
	}
	for _, s := range snap.Sessions {
		// A session whose course is not in the snapshot has no department to originate from;
		// the zero id never matches a node so the edge ends up deferred and then failed.
		dep, _ := idx.SessionDepartment(s.ID)
		add(models.EntitySession, Edge{Type: RelOriginatesFrom, From: NodeRef{LabelSession, s.ID}, To: NodeRef{LabelDepartment, dep}})
	}
	for _, s := range snap.ScheduleSlots {
		add(models.EntityScheduleSlot, Edge{Type: RelOriginatesFrom, From: NodeRef{LabelScheduleSlot, s.ID}, To: NodeRef{LabelSession, s.SessionID}})
		add(models.EntityScheduleSlot, Edge{Type: RelHasSchedule, From: NodeRef{LabelGroup, s.GroupID}, To: NodeRef{LabelScheduleSlot, s.ID}})
	}
	for _, a := range snap.AttendanceRecords {
		add(models.EntityAttendanceRecord, Edge{
			Type: RelAttended,
			From: NodeRef{LabelStudent, a.StudentID},
			To:   NodeRef{LabelScheduleSlot, a.SlotID},
			Key:  "record_id",
			Props: map[string]any{
				"record_id":   a.ID,
				"status":      string(a.Status),
				"attended_on": a.AttendedOn.String(),
			},
		})
	}
	return out
}
