package graph

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	types "github.com/jomapps/aladdin-sub006/internal/domain"
	"github.com/jomapps/aladdin-sub006/internal/platform/logger"
	"github.com/jomapps/aladdin-sub006/internal/platform/neo4jdb"
)

func UpsertQualifiedKnowledgeGraph(
	ctx context.Context,
	client *neo4jdb.Client,
	log *logger.Logger,
	projectID uuid.UUID,
	runID uuid.UUID,
	items []*types.QualifiedItem,
) error {
	if client == nil || client.Driver == nil {
		return nil
	}
	if projectID == uuid.Nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)

	itemNodes := make([]map[string]any, 0, len(items))
	refRels := make([]map[string]any, 0, len(items))
	for _, it := range items {
		if it == nil || it.ID == uuid.Nil || it.ProjectID == uuid.Nil {
			continue
		}
		if it.ProjectID != projectID {
			continue
		}
		itemNodes = append(itemNodes, map[string]any{
			"id":         it.ID.String(),
			"project_id": it.ProjectID.String(),
			"run_id":     it.RunID.String(),
			"phase":      it.Phase,
			"department": it.Department,
			"score":      it.Score,
			"content_json": func() string {
				if len(it.Content) == 0 {
					return ""
				}
				return truncateString(string(it.Content), 1600)
			}(),
			"source_item_id": func() string {
				if it.SourceItemID == nil {
					return ""
				}
				return it.SourceItemID.String()
			}(),
			"created_at": it.CreatedAt.UTC().Format(time.RFC3339Nano),
			"synced_at":  now,
		})

		if len(it.CrossRefs) > 0 {
			var refs []uuid.UUID
			if err := json.Unmarshal(it.CrossRefs, &refs); err != nil {
				if log != nil {
					log.Warn("qualified item cross refs unreadable, skipping edges",
						"item_id", it.ID.String(), "error", err)
				}
			} else {
				for _, ref := range refs {
					if ref == uuid.Nil {
						continue
					}
					refRels = append(refRels, map[string]any{
						"item_id":   it.ID.String(),
						"ref_id":    ref.String(),
						"synced_at": now,
					})
				}
			}
		}
	}

	session := client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: client.Database,
	})
	defer session.Close(ctx)

	// Best-effort schema init.
	{
		stmts := []string{
			`CREATE CONSTRAINT project_id_unique IF NOT EXISTS FOR (p:Project) REQUIRE p.id IS UNIQUE`,
			`CREATE CONSTRAINT qualified_item_id_unique IF NOT EXISTS FOR (q:QualifiedItem) REQUIRE q.id IS UNIQUE`,
			`CREATE CONSTRAINT department_name_unique IF NOT EXISTS FOR (d:Department) REQUIRE d.name IS UNIQUE`,
		}
		for _, q := range stmts {
			if res, err := session.Run(ctx, q, nil); err != nil {
				if log != nil {
					log.Warn("neo4j schema init failed (continuing)", "error", err)
				}
			} else {
				_, _ = res.Consume(ctx)
			}
		}
	}

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		// Anchor the project node (may already exist from an earlier run).
		if res, err := tx.Run(ctx, `
MERGE (p:Project {id: $id})
SET p.last_run_id = $run_id,
    p.synced_at = $synced_at
`, map[string]any{"id": projectID.String(), "run_id": runID.String(), "synced_at": now}); err != nil {
			return nil, err
		} else if _, err := res.Consume(ctx); err != nil {
			return nil, err
		}

		if len(itemNodes) > 0 {
			res, err := tx.Run(ctx, `
UNWIND $items AS i
MERGE (q:QualifiedItem {id: i.id})
SET q += i
WITH q, i
MERGE (p:Project {id: i.project_id})
MERGE (q)-[:QUALIFIED_FOR]->(p)
WITH q, i
MERGE (d:Department {name: i.department})
MERGE (q)-[:PRODUCED_BY]->(d)
`, map[string]any{"items": itemNodes})
			if err != nil {
				return nil, err
			}
			if _, err := res.Consume(ctx); err != nil {
				return nil, err
			}
		}

		if len(refRels) > 0 {
			res, err := tx.Run(ctx, `
UNWIND $rels AS r
MERGE (q:QualifiedItem {id: r.item_id})
MERGE (g:GatherItem {id: r.ref_id})
MERGE (q)-[e:REFERENCES]->(g)
SET e.synced_at = r.synced_at
`, map[string]any{"rels": refRels})
			if err != nil {
				return nil, err
			}
			if _, err := res.Consume(ctx); err != nil {
				return nil, err
			}
		}

		return nil, nil
	})
	return err
}

func truncateString(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max]
}
