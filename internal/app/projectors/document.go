package projectors

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/yigit/unisync/internal/app/models"
)

// OrganizationDoc is the denormalized hierarchy document, keyed by organization id.
type OrganizationDoc struct {
	ID        int64         `json:"id" bson:"_id"`
	Name      string        `json:"name" bson:"name"`
	Address   string        `json:"address" bson:"address"`
	Divisions []DivisionDoc `json:"divisions" bson:"divisions"`
}

type DivisionDoc struct {
	ID          int64           `json:"id" bson:"id"`
	Name        string          `json:"name" bson:"name"`
	Departments []DepartmentDoc `json:"departments" bson:"departments"`
}

type DepartmentDoc struct {
	ID   int64  `json:"id" bson:"id"`
	Name string `json:"name" bson:"name"`
}

// DocumentStore updates organization documents in place. Pushes are no-ops when the
// element id is already present, and return ProjectionDeferred when the parent element
// (organization or division) does not exist yet.
type DocumentStore interface {
	UpsertOrganization(ctx context.Context, org OrganizationDoc) error
	PushDivision(ctx context.Context, orgID int64, div DivisionDoc) error
	PushDepartment(ctx context.Context, orgID, divisionID int64, dep DepartmentDoc) error
	GetOrganization(ctx context.Context, id int64) (*OrganizationDoc, error)
}

// DocumentProjector maintains one hierarchy document per organization.
type DocumentProjector struct {
	store   DocumentStore
	retrier Retrier
	log     zerolog.Logger
}

// NewDocumentProjector creates a document projector
func NewDocumentProjector(store DocumentStore, retrier Retrier, log zerolog.Logger) *DocumentProjector {
	return &DocumentProjector{store: store, retrier: retrier, log: log}
}

func (p *DocumentProjector) Name() string { return StoreDocument }

// Project projects every level, then retries pushes whose parent was missing once.
func (p *DocumentProjector) Project(ctx context.Context, snap *models.Snapshot) *StoreReport {
	report := NewStoreReport(StoreDocument)
	var queue []deferred

	p.projectOrganizations(ctx, snap.Organizations, report)
	p.projectDivisions(ctx, snap.Divisions, report, &queue)
	p.projectDepartments(ctx, snap, snap.Departments, report, &queue)

	if len(queue) > 0 {
		runDeferred(ctx, p.retrier, StoreDocument, queue, report)
	}
	p.log.Info().Int("committed", report.Committed).Int("failed", report.Failed).Msg("document projection finished")
	return report
}

// ProjectOrganizations upserts the root documents only.
func (p *DocumentProjector) ProjectOrganizations(ctx context.Context, orgs []*models.Organization) *StoreReport {
	report := NewStoreReport(StoreDocument)
	p.projectOrganizations(ctx, orgs, report)
	return report
}

// ProjectDivisions pushes divisions into already projected organization documents.
func (p *DocumentProjector) ProjectDivisions(ctx context.Context, divs []*models.Division) *StoreReport {
	report := NewStoreReport(StoreDocument)
	var queue []deferred
	p.projectDivisions(ctx, divs, report, &queue)
	runDeferred(ctx, p.retrier, StoreDocument, queue, report)
	return report
}

// ProjectDepartments pushes departments into already projected division entries. snap
// resolves each department's organization.
func (p *DocumentProjector) ProjectDepartments(ctx context.Context, snap *models.Snapshot, deps []*models.Department) *StoreReport {
	report := NewStoreReport(StoreDocument)
	var queue []deferred
	p.projectDepartments(ctx, snap, deps, report, &queue)
	runDeferred(ctx, p.retrier, StoreDocument, queue, report)
	return report
}

func (p *DocumentProjector) projectOrganizations(ctx context.Context, orgs []*models.Organization, report *StoreReport) {
	for _, o := range orgs {
		doc := OrganizationDoc{ID: o.ID, Name: o.Name, Address: o.Address}
		err := p.retrier.Do(ctx, StoreDocument, func(ctx context.Context) error {
			return p.store.UpsertOrganization(ctx, doc)
		})
		if err != nil {
			p.log.Warn().Err(err).Int64("organization_id", o.ID).Msg("organization upsert failed")
			report.Fail(err)
			continue
		}
		report.Commit(models.EntityOrganization, 1)
	}
}

func (p *DocumentProjector) projectDivisions(ctx context.Context, divs []*models.Division, report *StoreReport, queue *[]deferred) {
	for _, d := range divs {
		orgID, doc := d.OrganizationID, DivisionDoc{ID: d.ID, Name: d.Name}
		apply(ctx, p.retrier, StoreDocument, models.EntityDivision, func(ctx context.Context) error {
			return p.store.PushDivision(ctx, orgID, doc)
		}, queue, report)
	}
}

func (p *DocumentProjector) projectDepartments(ctx context.Context, snap *models.Snapshot, deps []*models.Department, report *StoreReport, queue *[]deferred) {
	idx := snap.Index()
	for _, d := range deps {
		var orgID int64
		if div, ok := idx.Divisions[d.DivisionID]; ok {
			orgID = div.OrganizationID
		}
		divID, doc := d.DivisionID, DepartmentDoc{ID: d.ID, Name: d.Name}
		apply(ctx, p.retrier, StoreDocument, models.EntityDepartment, func(ctx context.Context) error {
			return p.store.PushDepartment(ctx, orgID, divID, doc)
		}, queue, report)
	}
}
