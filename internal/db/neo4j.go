package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/yigit/unisync/internal/app/projectors"
	"github.com/yigit/unisync/internal/config"
	"github.com/yigit/unisync/internal/pkg/apperrors"
	"github.com/yigit/unisync/internal/pkg/dberrors"
)

var graphLabels = []string{
	projectors.LabelOrganization,
	projectors.LabelDivision,
	projectors.LabelDepartment,
	projectors.LabelGroup,
	projectors.LabelStudent,
	projectors.LabelSession,
	projectors.LabelScheduleSlot,
}

// Neo4jGraph is the graph store backed by a Neo4j server.
type Neo4jGraph struct {
	driver   neo4j.DriverWithContext
	database string
}

// NewNeo4jGraph connects to Neo4j and makes sure every label has a unique id constraint.
func NewNeo4jGraph(ctx context.Context, cfg *config.Config) (*Neo4jGraph, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.Graph.URI, neo4j.BasicAuth(cfg.Graph.User, cfg.Graph.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("failed to establish neo4j connection: %w", classifyGraph("", err))
	}

	g := &Neo4jGraph{driver: driver, database: cfg.Graph.Database}
	if err := g.ensureConstraints(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, err
	}
	return g, nil
}

func (g *Neo4jGraph) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return g.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: mode, DatabaseName: g.database})
}

func (g *Neo4jGraph) ensureConstraints(ctx context.Context) error {
	session := g.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	for _, label := range graphLabels {
		query := fmt.Sprintf("CREATE CONSTRAINT %s_id IF NOT EXISTS FOR (n:%s) REQUIRE n.id IS UNIQUE",
			strings.ToLower(label), label)
		if err := run(ctx, session, query, nil); err != nil {
			return fmt.Errorf("failed to create constraint on %s: %w", label, classifyGraph(label, err))
		}
	}
	return nil
}

// MergeNode upserts the node identified by label and id and overwrites its properties.
func (g *Neo4jGraph) MergeNode(ctx context.Context, node projectors.NodeRef, props map[string]any) error {
	session := g.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	query := fmt.Sprintf("MERGE (n:%s {id: $id}) SET n += $props", node.Label)
	if props == nil {
		props = map[string]any{}
	}
	err := run(ctx, session, query, map[string]any{"id": node.ID, "props": props})
	return classifyGraph(node.Label, err)
}

// MergeEdge upserts a relationship between two existing nodes. Nothing is created when
// an endpoint is missing; the call then reports the edge as deferred.
func (g *Neo4jGraph) MergeEdge(ctx context.Context, e projectors.Edge) error {
	session := g.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	rel := fmt.Sprintf("[r:%s]", e.Type)
	params := map[string]any{"from": e.From.ID, "to": e.To.ID, "props": e.Props}
	if e.Key != "" {
		rel = fmt.Sprintf("[r:%s {%s: $key}]", e.Type, e.Key)
		params["key"] = e.Props[e.Key]
	}
	if e.Props == nil {
		params["props"] = map[string]any{}
	}

	query := fmt.Sprintf(`
		MATCH (a:%s {id: $from})
		MATCH (b:%s {id: $to})
		MERGE (a)-%s->(b)
		SET r += $props
		RETURN count(r) AS merged`, e.From.Label, e.To.Label, rel)

	result, err := session.Run(ctx, query, params)
	if err != nil {
		return classifyGraph(e.Type, err)
	}
	record, err := result.Single(ctx)
	if err != nil {
		return classifyGraph(e.Type, err)
	}
	merged, _ := record.Get("merged")
	if n, ok := merged.(int64); !ok || n == 0 {
		return projectors.Deferred(projectors.StoreGraph, e.Type,
			fmt.Sprintf("%s %d or %s %d not projected yet", e.From.Label, e.From.ID, e.To.Label, e.To.ID))
	}
	return nil
}

// Reset removes every node carrying one of the pipeline's labels, with its relationships.
func (g *Neo4jGraph) Reset(ctx context.Context) error {
	session := g.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	query := "MATCH (n) WHERE any(l IN labels(n) WHERE l IN $labels) DETACH DELETE n"
	if err := run(ctx, session, query, map[string]any{"labels": graphLabels}); err != nil {
		return fmt.Errorf("failed to reset graph: %w", classifyGraph("", err))
	}
	return nil
}

func (g *Neo4jGraph) Close(ctx context.Context) error {
	return g.driver.Close(ctx)
}

func run(ctx context.Context, session neo4j.SessionWithContext, query string, params map[string]any) error {
	result, err := session.Run(ctx, query, params)
	if err != nil {
		return err
	}
	_, err = result.Consume(ctx)
	return err
}

func classifyGraph(entity string, err error) error {
	if err == nil {
		return nil
	}
	if neo4j.IsConnectivityError(err) {
		return apperrors.NewSyncError(apperrors.KindConnectionLost, projectors.StoreGraph, entity, err)
	}
	var neoErr *neo4j.Neo4jError
	if errors.As(err, &neoErr) && strings.HasPrefix(neoErr.Code, "Neo.ClientError.Schema.ConstraintValidationFailed") {
		return apperrors.NewSyncError(apperrors.KindWriteRejected, projectors.StoreGraph, entity, err)
	}
	return dberrors.Classify(projectors.StoreGraph, entity, err)
}
