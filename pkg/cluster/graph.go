// Package cluster partitions a schema into groups of related tables
// using foreign-key connectivity. Clusters are the batching unit for
// enrichment prompts.
package cluster

import (
	"sort"
	"strings"

	"github.com/queryforge/queryforge-engine/pkg/models"
)

// tableGraph is an undirected graph over table indices. Edges are
// deduplicated and carry unit weight; self-loops are never added.
type tableGraph struct {
	nodeCount int
	edges     map[[2]int]float64
}

// buildGraph constructs the foreign-key graph for a schema. Node i is
// schema[i]. Relations whose target table is absent from the schema are
// ignored.
func buildGraph(schema models.Schema) *tableGraph {
	g := &tableGraph{
		nodeCount: len(schema),
		edges:     make(map[[2]int]float64),
	}

	index := make(map[string]int, len(schema))
	for i, t := range schema {
		index[strings.ToLower(t.Identifier)] = i
	}

	for i, t := range schema {
		for _, col := range t.Columns {
			for _, rel := range col.Relations {
				j, ok := index[strings.ToLower(rel.TargetTable)]
				if !ok || i == j {
					continue
				}
				g.edges[edgeKey(i, j)] = 1
			}
		}
	}

	return g
}

func edgeKey(i, j int) [2]int {
	if i > j {
		i, j = j, i
	}
	return [2]int{i, j}
}

// sortTables orders a cluster's tables alphabetically by identifier.
func sortTables(tables []*models.Table) {
	sort.Slice(tables, func(a, b int) bool {
		return strings.ToLower(tables[a].Identifier) < strings.ToLower(tables[b].Identifier)
	})
}
