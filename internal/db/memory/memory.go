// Package memory holds in-process implementations of the derived stores. They follow the
// same upsert and deferral rules as the networked adapters and back the "memory" driver
// and the pipeline tests.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/yigit/unisync/internal/app/models"
	"github.com/yigit/unisync/internal/app/projectors"
	"github.com/yigit/unisync/internal/pkg/apperrors"
)

// Hook runs before every store operation; a non-nil error is returned instead of
// performing the operation. Tests use it to inject failures.
type Hook func(ctx context.Context, op string) error

func (h Hook) run(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if h == nil {
		return nil
	}
	return h(ctx, op)
}

type edgeKey struct {
	typ  string
	from projectors.NodeRef
	to   projectors.NodeRef
	key  any
}

// Graph is an in-memory property graph.
type Graph struct {
	Hook  Hook
	mu    sync.Mutex
	nodes map[projectors.NodeRef]map[string]any
	edges map[edgeKey]map[string]any
}

func NewGraph() *Graph {
	return &Graph{
		nodes: make(map[projectors.NodeRef]map[string]any),
		edges: make(map[edgeKey]map[string]any),
	}
}

func (g *Graph) MergeNode(ctx context.Context, node projectors.NodeRef, props map[string]any) error {
	if err := g.Hook.run(ctx, "merge_node"); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nodes[node] = props
	return nil
}

func (g *Graph) MergeEdge(ctx context.Context, e projectors.Edge) error {
	if err := g.Hook.run(ctx, "merge_edge"); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, end := range []projectors.NodeRef{e.From, e.To} {
		if _, ok := g.nodes[end]; !ok {
			return projectors.Deferred(projectors.StoreGraph, e.Type,
				fmt.Sprintf("%s %d not projected yet", end.Label, end.ID))
		}
	}
	k := edgeKey{typ: e.Type, from: e.From, to: e.To}
	if e.Key != "" {
		k.key = e.Props[e.Key]
	}
	g.edges[k] = e.Props
	return nil
}

// NodeCount returns the number of nodes with label, or all nodes for "".
func (g *Graph) NodeCount(label string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for ref := range g.nodes {
		if label == "" || ref.Label == label {
			n++
		}
	}
	return n
}

// EdgeCount returns the number of relationships of type typ, or all for "".
func (g *Graph) EdgeCount(typ string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for k := range g.edges {
		if typ == "" || k.typ == typ {
			n++
		}
	}
	return n
}

func (g *Graph) Reset(context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	clear(g.nodes)
	clear(g.edges)
	return nil
}

func (g *Graph) Close(context.Context) error { return nil }

// Documents is an in-memory organization document collection.
type Documents struct {
	Hook Hook
	mu   sync.Mutex
	docs map[int64]*projectors.OrganizationDoc
}

func NewDocuments() *Documents {
	return &Documents{docs: make(map[int64]*projectors.OrganizationDoc)}
}

func (d *Documents) UpsertOrganization(ctx context.Context, org projectors.OrganizationDoc) error {
	if err := d.Hook.run(ctx, "upsert_organization"); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if cur, ok := d.docs[org.ID]; ok {
		cur.Name, cur.Address = org.Name, org.Address
		return nil
	}
	d.docs[org.ID] = &projectors.OrganizationDoc{ID: org.ID, Name: org.Name, Address: org.Address, Divisions: []projectors.DivisionDoc{}}
	return nil
}

func (d *Documents) PushDivision(ctx context.Context, orgID int64, div projectors.DivisionDoc) error {
	if err := d.Hook.run(ctx, "push_division"); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	org, ok := d.docs[orgID]
	if !ok {
		return projectors.Deferred(projectors.StoreDocument, string(models.EntityDivision), fmt.Sprintf("organization %d not projected yet", orgID))
	}
	if slices.ContainsFunc(org.Divisions, func(x projectors.DivisionDoc) bool { return x.ID == div.ID }) {
		return nil
	}
	org.Divisions = append(org.Divisions, projectors.DivisionDoc{ID: div.ID, Name: div.Name, Departments: []projectors.DepartmentDoc{}})
	return nil
}

func (d *Documents) PushDepartment(ctx context.Context, orgID, divisionID int64, dep projectors.DepartmentDoc) error {
	if err := d.Hook.run(ctx, "push_department"); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	org, ok := d.docs[orgID]
	if !ok {
		return projectors.Deferred(projectors.StoreDocument, string(models.EntityDepartment), fmt.Sprintf("organization %d not projected yet", orgID))
	}
	i := slices.IndexFunc(org.Divisions, func(x projectors.DivisionDoc) bool { return x.ID == divisionID })
	if i < 0 {
		return projectors.Deferred(projectors.StoreDocument, string(models.EntityDepartment), fmt.Sprintf("division %d not projected yet", divisionID))
	}
	div := &org.Divisions[i]
	if slices.ContainsFunc(div.Departments, func(x projectors.DepartmentDoc) bool { return x.ID == dep.ID }) {
		return nil
	}
	div.Departments = append(div.Departments, dep)
	return nil
}

func (d *Documents) GetOrganization(ctx context.Context, id int64) (*projectors.OrganizationDoc, error) {
	if err := d.Hook.run(ctx, "get_organization"); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	org, ok := d.docs[id]
	if !ok {
		return nil, apperrors.NewResourceNotFoundError(fmt.Sprintf("organization %d not found", id))
	}
	out := *org
	out.Divisions = make([]projectors.DivisionDoc, len(org.Divisions))
	for i, div := range org.Divisions {
		out.Divisions[i] = div
		out.Divisions[i].Departments = slices.Clone(div.Departments)
	}
	return &out, nil
}

func (d *Documents) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.docs)
}

func (d *Documents) Reset(context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	clear(d.docs)
	return nil
}

func (d *Documents) Close(context.Context) error { return nil }

// Cache is an in-memory key-value store without expiry.
type Cache struct {
	Hook Hook
	mu   sync.Mutex
	data map[string][]byte
}

func NewCache() *Cache {
	return &Cache{data: make(map[string][]byte)}
}

func (c *Cache) Set(ctx context.Context, key string, value []byte) error {
	if err := c.Hook.run(ctx, "set"); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = slices.Clone(value)
	return nil
}

func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	if err := c.Hook.run(ctx, "get"); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	if !ok {
		return nil, apperrors.NewResourceNotFoundError(fmt.Sprintf("key %s not found", key))
	}
	return slices.Clone(v), nil
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data)
}

func (c *Cache) Reset(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.data)
	return nil
}

func (c *Cache) Close(context.Context) error { return nil }

// Search is an in-memory document index keyed by id.
type Search struct {
	Hook     Hook
	mu       sync.Mutex
	mappings map[string]string
	docs     map[string]map[int64]any
}

func NewSearch() *Search {
	return &Search{
		mappings: make(map[string]string),
		docs:     make(map[string]map[int64]any),
	}
}

func (s *Search) EnsureIndex(ctx context.Context, index, mapping string) error {
	if err := s.Hook.run(ctx, "ensure_index"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.mappings[index]; !ok {
		s.mappings[index] = mapping
		s.docs[index] = make(map[int64]any)
	}
	return nil
}

func (s *Search) Index(ctx context.Context, index string, id int64, doc any) error {
	if err := s.Hook.run(ctx, "index"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[index]; !ok {
		s.docs[index] = make(map[int64]any)
	}
	s.docs[index][id] = doc
	return nil
}

// Count returns the number of documents in index.
func (s *Search) Count(index string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.docs[index])
}

// Doc returns the document stored under id.
func (s *Search) Doc(index string, id int64) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.docs[index][id]
	return d, ok
}

func (s *Search) Reset(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.mappings)
	clear(s.docs)
	return nil
}

func (s *Search) Close(context.Context) error { return nil }
