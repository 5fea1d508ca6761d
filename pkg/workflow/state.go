// Package workflow contains the two orchestrations of the engine: the
// SQL agent (question to validated SQL) and the schema enricher
// (clustered description generation). Both drive the oracle and the
// execution service as a single-threaded sequence of states per run.
package workflow

import (
	"strings"
	"time"

	"github.com/queryforge/queryforge-engine/pkg/config"
	"github.com/queryforge/queryforge-engine/pkg/models"
)

// Config carries the workflow tuning knobs, assembled from the loaded
// engine configuration.
type Config struct {
	// RetrievalThreshold: schemas with more tables than this go through
	// table retrieval; at or below it, every table becomes a candidate.
	RetrievalThreshold int

	// MaxSQLRetries is the reflection budget per run.
	MaxSQLRetries int

	// PrivacyMode suppresses sample-row fetching.
	PrivacyMode bool

	// SampleRowLimit caps sample rows fetched per table.
	SampleRowLimit int

	RetrievalTimeout  time.Duration
	GenerationTimeout time.Duration
	EnrichmentTimeout time.Duration
}

// ConfigFrom maps the loaded engine configuration onto workflow tuning.
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		RetrievalThreshold: cfg.Workflow.RetrievalThreshold,
		MaxSQLRetries:      cfg.Workflow.MaxSQLRetries,
		PrivacyMode:        cfg.Workflow.PrivacyMode,
		SampleRowLimit:     cfg.Workflow.SampleRowLimit,
		RetrievalTimeout:   cfg.Oracle.RetrievalTimeout,
		GenerationTimeout:  cfg.Oracle.GenerationTimeout,
		EnrichmentTimeout:  cfg.Oracle.EnrichmentTimeout,
	}
}

// eventKind tags the next state of the agent state machine. The closed
// set of variants keeps dispatch exhaustively checkable.
type eventKind int

const (
	eventRetrieveTables eventKind = iota
	eventGenerateSQL
	eventValidateSQL
	eventExecuteSQL
	eventReflectSQL
	eventSuccess
)

func (k eventKind) String() string {
	switch k {
	case eventRetrieveTables:
		return "retrieve_tables"
	case eventGenerateSQL:
		return "generate_sql"
	case eventValidateSQL:
		return "validate_sql"
	case eventExecuteSQL:
		return "execute_sql"
	case eventReflectSQL:
		return "reflect_sql"
	case eventSuccess:
		return "success"
	default:
		return "unknown"
	}
}

// event is the value passed between states. Only the fields relevant to
// the target state are set: sql for validate/execute, sql+errText for
// reflect.
type event struct {
	kind    eventKind
	sql     string
	errText string
}

// runState owns all per-invocation data of one agent run. It is created
// when a request arrives, never shared across runs, and discarded when
// the run terminates. Every field is statically typed and always
// present.
type runState struct {
	question         string // refined once retrieval runs
	originalQuestion string
	conn             *models.ConnectionInfo
	schema           models.Schema
	dbDescription    string

	// candidates is the current candidate table-identifier set, in
	// first-added order. It grows monotonically during scope expansion;
	// candidateSet indexes it by lowercased identifier.
	candidates   []string
	candidateSet map[string]bool

	// selected is the most recent resolution of candidates against the
	// schema, reused by the repair prompt.
	selected []*models.Table

	retries   int
	lastError string
}

func newRunState(question string, schema models.Schema, conn *models.ConnectionInfo, dbDescription string) *runState {
	return &runState{
		question:         question,
		originalQuestion: question,
		conn:             conn,
		schema:           schema,
		dbDescription:    dbDescription,
		candidateSet:     make(map[string]bool),
	}
}

// addCandidates unions identifiers into the candidate set and reports
// how many were new.
func (st *runState) addCandidates(identifiers []string) int {
	added := 0
	for _, id := range identifiers {
		lower := strings.ToLower(strings.TrimSpace(id))
		if lower == "" || st.candidateSet[lower] {
			continue
		}
		st.candidateSet[lower] = true
		st.candidates = append(st.candidates, id)
		added++
	}
	return added
}

// hasCandidate reports whether the identifier is already in the set.
func (st *runState) hasCandidate(identifier string) bool {
	return st.candidateSet[strings.ToLower(identifier)]
}
