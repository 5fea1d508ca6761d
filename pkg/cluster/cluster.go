package cluster

import (
	"sort"

	"go.uber.org/zap"

	"github.com/queryforge/queryforge-engine/pkg/models"
)

// DefaultResolution is the Louvain resolution used when the caller does
// not override it.
const DefaultResolution = 2.5

// minTablesForClustering is the schema size below which clustering has
// no benefit and a single cluster is returned.
const minTablesForClustering = 5

// Cluster is an ordered group of related tables. It holds references
// into the source schema, so mutations such as attaching sample rows are
// visible to the caller.
type Cluster []*models.Table

// TableNames returns the identifiers of the cluster's tables in order.
func (c Cluster) TableNames() []string {
	names := make([]string, len(c))
	for i, t := range c {
		names[i] = t.Identifier
	}
	return names
}

// Clusterer partitions schemas into foreign-key communities.
type Clusterer struct {
	resolution float64
	logger     *zap.Logger
}

// New creates a Clusterer. A resolution <= 0 uses DefaultResolution.
func New(resolution float64, logger *zap.Logger) *Clusterer {
	if resolution <= 0 {
		resolution = DefaultResolution
	}
	return &Clusterer{
		resolution: resolution,
		logger:     logger.Named("cluster"),
	}
}

// Clusters partitions the schema into related table groups. Clusters
// come back ordered by descending size, tables alphabetical within each.
// Any internal failure is recovered and reported as an empty list;
// callers treat that as "nothing to enrich".
func (c *Clusterer) Clusters(schema models.Schema) (clusters []Cluster) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("clustering panicked, returning no clusters",
				zap.Any("panic", r),
				zap.Int("table_count", len(schema)))
			clusters = nil
		}
	}()

	if len(schema) == 0 {
		return nil
	}

	if len(schema) < minTablesForClustering {
		single := make(Cluster, len(schema))
		copy(single, schema)
		sortTables(single)
		return []Cluster{single}
	}

	g := buildGraph(schema)

	if len(g.edges) == 0 {
		c.logger.Debug("schema has no foreign-key edges, one cluster per table",
			zap.Int("table_count", len(schema)))
		singles := make(Cluster, len(schema))
		copy(singles, schema)
		sortTables(singles)
		clusters = make([]Cluster, len(singles))
		for i, t := range singles {
			clusters[i] = Cluster{t}
		}
		return clusters
	}

	assignment := louvain(g, c.resolution)

	grouped := make(map[int]Cluster)
	order := make([]int, 0)
	for i, community := range assignment {
		if _, seen := grouped[community]; !seen {
			order = append(order, community)
		}
		grouped[community] = append(grouped[community], schema[i])
	}

	clusters = make([]Cluster, 0, len(order))
	for _, community := range order {
		group := grouped[community]
		sortTables(group)
		clusters = append(clusters, group)
	}

	// Largest first; equal sizes keep first-seen community order.
	sort.SliceStable(clusters, func(a, b int) bool {
		return len(clusters[a]) > len(clusters[b])
	})

	c.logger.Info("schema clustered",
		zap.Int("table_count", len(schema)),
		zap.Int("edge_count", len(g.edges)),
		zap.Int("cluster_count", len(clusters)),
		zap.Float64("resolution", c.resolution))

	return clusters
}
