package domain

import (
	"fmt"
	"strings"
	"time"
)

// DatasetID identifies a dataset by the platform that owns it and its
// qualified name within that platform.
type DatasetID struct {
	Platform string `json:"platform"`
	Name     string `json:"name"`
}

// String renders the canonical "platform://name" form.
func (d DatasetID) String() string {
	return fmt.Sprintf("%s://%s", d.Platform, d.Name)
}

// ParseDatasetID parses either the simple "platform://name" form or a
// DataHub-style URN: "urn:li:dataset:(urn:li:dataPlatform:platform,name,ENV)".
func ParseDatasetID(raw string) (DatasetID, error) {
	raw = strings.TrimSpace(raw)

	if strings.HasPrefix(raw, "urn:li:dataset:(") {
		inner := strings.TrimSuffix(strings.TrimPrefix(raw, "urn:li:dataset:("), ")")
		parts := strings.SplitN(inner, ",", 3)
		if len(parts) < 2 {
			return DatasetID{}, fmt.Errorf("malformed DataHub dataset URN: %s", raw)
		}
		platformURN := strings.TrimSpace(parts[0])
		platform := platformURN
		if idx := strings.LastIndex(platformURN, ":"); idx != -1 {
			platform = platformURN[idx+1:]
		}
		return DatasetID{Platform: platform, Name: strings.TrimSpace(parts[1])}, nil
	}

	if idx := strings.Index(raw, "://"); idx != -1 {
		return DatasetID{Platform: raw[:idx], Name: raw[idx+3:]}, nil
	}

	return DatasetID{}, fmt.Errorf("unrecognized dataset id format: %s", raw)
}

// Dataset carries identity and display metadata for one node in a
// lineage graph.
type Dataset struct {
	ID           DatasetID              `json:"id"`
	QualifiedName string                `json:"qualified_name"`
	DatasetType  string                 `json:"dataset_type"`
	Platform     string                 `json:"platform"`
	Database     string                 `json:"database,omitempty"`
	Schema       string                 `json:"schema,omitempty"`
	Tags         []string               `json:"tags,omitempty"`
	Owners       []string               `json:"owners,omitempty"`
	LastModified *time.Time             `json:"last_modified,omitempty"`
	RowCount     *int64                 `json:"row_count,omitempty"`
	Extra        map[string]interface{} `json:"extra,omitempty"`
}

// Job describes a pipeline/transformation job referenced by lineage
// edges.
type Job struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	Type     string      `json:"type"`
	Inputs   []DatasetID `json:"inputs"`
	Outputs  []DatasetID `json:"outputs"`
	Schedule string      `json:"schedule,omitempty"`
	Owners   []string    `json:"owners,omitempty"`
}

// JobRun is one execution of a Job.
type JobRun struct {
	ID              string       `json:"id"`
	JobID           string       `json:"job_id"`
	Status          JobRunStatus `json:"status"`
	StartedAt       time.Time    `json:"started_at"`
	EndedAt         *time.Time   `json:"ended_at,omitempty"`
	DurationSeconds float64      `json:"duration_seconds"`
	ErrorMessage    string       `json:"error_message,omitempty"`
}

// ColumnLineage maps one output column to the source columns it derives
// from, with a confidence score: 1.0 when parsed with certainty, lower
// when inferred by a best-effort heuristic.
type ColumnLineage struct {
	OutputColumn   string   `json:"output_column"`
	SourceColumns  []string `json:"source_columns"`
	Confidence     float64  `json:"confidence"`
}

// LineageEdge links a source dataset to a target dataset, optionally via
// the Job that produced the target, and optionally with column-level
// detail.
type LineageEdge struct {
	Source        DatasetID        `json:"source"`
	Target        DatasetID        `json:"target"`
	JobID         string           `json:"job_id,omitempty"`
	ColumnLineage []ColumnLineage  `json:"column_lineage,omitempty"`
}

// LineageGraph is a directed graph of datasets connected by edges,
// rooted at one dataset of interest.
type LineageGraph struct {
	Root     DatasetID           `json:"root"`
	Datasets map[string]Dataset  `json:"datasets"`
	Edges    []LineageEdge       `json:"edges"`
	Jobs     map[string]Job      `json:"jobs"`
}

// NewLineageGraph returns an empty graph rooted at root.
func NewLineageGraph(root DatasetID) *LineageGraph {
	return &LineageGraph{
		Root:     root,
		Datasets: map[string]Dataset{},
		Edges:    []LineageEdge{},
		Jobs:     map[string]Job{},
	}
}

// edgesInto returns the set of edges whose target is id.
func (g *LineageGraph) edgesInto(id DatasetID) []LineageEdge {
	var out []LineageEdge
	for _, e := range g.Edges {
		if e.Target == id {
			out = append(out, e)
		}
	}
	return out
}

func (g *LineageGraph) edgesFrom(id DatasetID) []LineageEdge {
	var out []LineageEdge
	for _, e := range g.Edges {
		if e.Source == id {
			out = append(out, e)
		}
	}
	return out
}

// GetUpstream does a breadth-first traversal backward from id up to
// depth hops, returning every dataset reached. The visited set prevents
// infinite loops on cyclic graphs.
func (g *LineageGraph) GetUpstream(id DatasetID, depth int) []DatasetID {
	return g.bfs(id, depth, g.edgesInto, func(e LineageEdge) DatasetID { return e.Source })
}

// GetDownstream does the mirror-image traversal forward from id.
func (g *LineageGraph) GetDownstream(id DatasetID, depth int) []DatasetID {
	return g.bfs(id, depth, g.edgesFrom, func(e LineageEdge) DatasetID { return e.Target })
}

func (g *LineageGraph) bfs(start DatasetID, depth int, edgesOf func(DatasetID) []LineageEdge, next func(LineageEdge) DatasetID) []DatasetID {
	visited := map[DatasetID]bool{start: true}
	frontier := []DatasetID{start}
	var result []DatasetID

	for level := 0; level < depth && len(frontier) > 0; level++ {
		var nextFrontier []DatasetID
		for _, id := range frontier {
			for _, edge := range edgesOf(id) {
				n := next(edge)
				if visited[n] {
					continue
				}
				visited[n] = true
				result = append(result, n)
				nextFrontier = append(nextFrontier, n)
			}
		}
		frontier = nextFrontier
	}

	return result
}

// GetPath finds a path from source to target via BFS over forward edges,
// strictly bounded by maxDepth to terminate on cycles. Returns nil if no
// path is found within maxDepth hops.
func (g *LineageGraph) GetPath(source, target DatasetID, maxDepth int) []DatasetID {
	type frame struct {
		id   DatasetID
		path []DatasetID
	}

	visited := map[DatasetID]bool{source: true}
	queue := []frame{{id: source, path: []DatasetID{source}}}

	for depth := 0; len(queue) > 0 && depth <= maxDepth; depth++ {
		var nextQueue []frame
		for _, f := range queue {
			if f.id == target {
				return f.path
			}
			for _, edge := range g.edgesFrom(f.id) {
				if visited[edge.Target] {
					continue
				}
				visited[edge.Target] = true
				newPath := append(append([]DatasetID{}, f.path...), edge.Target)
				nextQueue = append(nextQueue, frame{id: edge.Target, path: newPath})
			}
		}
		queue = nextQueue
	}

	return nil
}

// LineageCapabilities declares which optional operations a lineage
// provider supports.
type LineageCapabilities struct {
	ColumnLineage bool `json:"column_lineage"`
	JobRuns       bool `json:"job_runs"`
	Search        bool `json:"search"`
	ListDatasets  bool `json:"list_datasets"`
}

// AdapterCapabilities declares which optional operations a data-source
// adapter supports. Write must remain false for every adapter the core
// uses.
type AdapterCapabilities struct {
	ColumnStats bool `json:"column_stats"`
	Sampling    bool `json:"sampling"`
	RowCount    bool `json:"row_count"`
	Preview     bool `json:"preview"`
	Freshness   bool `json:"freshness"`
	Write       bool `json:"write"`
}
