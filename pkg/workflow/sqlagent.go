package workflow

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/queryforge/queryforge-engine/pkg/apperrors"
	"github.com/queryforge/queryforge-engine/pkg/executor"
	"github.com/queryforge/queryforge-engine/pkg/llm"
	"github.com/queryforge/queryforge-engine/pkg/models"
	"github.com/queryforge/queryforge-engine/pkg/schema"
	"github.com/queryforge/queryforge-engine/pkg/sqlcheck"
)

// SQLAgent turns a natural-language question plus a schema into a
// validated, executed SQL statement. One agent is safe for concurrent
// runs; all per-run data lives on the run state.
type SQLAgent struct {
	oracle *llm.Oracle
	exec   executor.Executor
	cfg    Config
	logger *zap.Logger
}

// NewSQLAgent creates an agent bound to one oracle and one execution
// target.
func NewSQLAgent(oracle *llm.Oracle, exec executor.Executor, cfg Config, logger *zap.Logger) *SQLAgent {
	return &SQLAgent{
		oracle: oracle,
		exec:   exec,
		cfg:    cfg,
		logger: logger.Named("sqlagent"),
	}
}

// Run executes the state machine to completion and returns the final
// SQL string. Failures come back as *apperrors.Outcome values with
// stable codes; cancellation is re-checked at the top of every state.
func (a *SQLAgent) Run(ctx context.Context, question string, schemaSnapshot models.Schema, conn *models.ConnectionInfo, dbDescription string) (string, error) {
	st := newRunState(question, schemaSnapshot, conn, dbDescription)

	a.logger.Info("run started",
		zap.String("question", question),
		zap.Int("table_count", len(schemaSnapshot)),
		zap.String("dialect", string(conn.Dialect())))

	ev, err := a.start(st)
	for err == nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", apperrors.NewOutcomeWithCause(apperrors.CodeInternal, "run cancelled", ctxErr)
		}

		a.logger.Debug("state transition", zap.String("state", ev.kind.String()))

		switch ev.kind {
		case eventRetrieveTables:
			ev, err = a.retrieveTables(ctx, st)
		case eventGenerateSQL:
			ev, err = a.generateSQL(ctx, st)
		case eventValidateSQL:
			ev, err = a.validateSQL(st, ev)
		case eventExecuteSQL:
			ev, err = a.executeSQL(ctx, st, ev)
		case eventReflectSQL:
			ev, err = a.reflectSQL(ctx, st, ev)
		case eventSuccess:
			a.logger.Info("run succeeded",
				zap.String("sql", ev.sql),
				zap.Int("retries_used", st.retries))
			return ev.sql, nil
		}
	}

	a.logger.Warn("run terminated",
		zap.String("code", string(apperrors.CodeOf(err))),
		zap.Error(err))
	return "", err
}

// start decides between table retrieval and feeding the whole schema to
// generation.
func (a *SQLAgent) start(st *runState) (event, error) {
	if len(st.schema) == 0 {
		return event{}, apperrors.NewOutcome(apperrors.CodeNoValidTables, "schema has no tables")
	}

	if len(st.schema) > a.cfg.RetrievalThreshold {
		return event{kind: eventRetrieveTables}, nil
	}

	st.addCandidates(st.schema.TableNames())
	return event{kind: eventGenerateSQL}, nil
}

// retrieveTables refines the question and asks the oracle for the
// relevant table list. An empty list is a semantic rejection, not a
// transient failure.
func (a *SQLAgent) retrieveTables(ctx context.Context, st *runState) (event, error) {
	compact := schema.RenderCompact(st.schema)

	// Each oracle call gets its own timeout so a slow refinement cannot
	// starve the retrieval budget.
	refineCtx, cancelRefine := context.WithTimeout(ctx, a.cfg.RetrievalTimeout)
	refined, err := llm.Ask[models.RefinedQuestion](refineCtx, a.oracle,
		questionRefinementPrompt(compact, st.question), "")
	cancelRefine()
	if err != nil {
		// A failed refinement is not worth killing the run; the original
		// question still works.
		a.logger.Warn("question refinement failed, using original question", zap.Error(err))
	} else if strings.TrimSpace(refined.RefinedQuestion) != "" {
		st.question = strings.TrimSpace(refined.RefinedQuestion)
		a.logger.Info("question refined", zap.String("refined", st.question))
	}

	retrieveCtx, cancelRetrieve := context.WithTimeout(ctx, a.cfg.RetrievalTimeout)
	defer cancelRetrieve()

	answer, err := llm.Ask[models.RelevantTables](retrieveCtx, a.oracle,
		tableRetrievalPrompt(st.dbDescription, compact, st.question), "")
	if err != nil {
		return event{}, apperrors.NewOutcomeWithCause(apperrors.CodeInternal,
			"table retrieval failed", err)
	}

	if len(answer.RelevantTables) == 0 {
		return event{}, apperrors.NewOutcome(apperrors.CodeNotAnswerable,
			"cannot find any relevant tables in the database for this question")
	}

	st.addCandidates(answer.RelevantTables)
	a.logger.Info("relevant tables retrieved", zap.Strings("tables", st.candidates))

	return event{kind: eventGenerateSQL}, nil
}

// generateSQL resolves the candidate set, renders schema context, and
// asks the oracle for one SQL statement.
func (a *SQLAgent) generateSQL(ctx context.Context, st *runState) (event, error) {
	selected := a.resolveCandidates(st)
	if len(selected) == 0 {
		return event{}, apperrors.NewOutcome(apperrors.CodeNoValidTables,
			"no valid tables found for the question")
	}
	st.selected = selected

	if !a.cfg.PrivacyMode {
		a.attachSampleRows(ctx, selected)
	}

	callCtx, cancel := context.WithTimeout(ctx, a.cfg.GenerationTimeout)
	defer cancel()

	dialect := strings.ToUpper(string(st.conn.Dialect()))
	ddl := schema.RenderDDL(selected, !a.cfg.PrivacyMode)

	answer, err := llm.Ask[models.SQLAnswer](callCtx, a.oracle,
		textToSQLPrompt(dialect, st.dbDescription, ddl, st.question), "")
	if err != nil {
		return event{}, apperrors.NewOutcomeWithCause(apperrors.CodeGenerationFailed,
			"oracle did not produce a SQL candidate", err)
	}

	sql := sqlcheck.NormalizeWhitespace(answer.SQLQuery)
	if sql == "" || !strings.Contains(strings.ToUpper(sql), "SELECT") {
		return event{}, apperrors.NewOutcome(apperrors.CodeGenerationFailed,
			"generated text is not a SELECT statement")
	}

	// A fresh candidate gets a fresh repair budget. Safe because scope
	// expansion, the only way back into generation, is bounded by the
	// monotonic candidate set.
	st.retries = 0

	a.logger.Info("sql generated", zap.String("sql", sql))
	return event{kind: eventValidateSQL, sql: sql}, nil
}

// validateSQL runs the syntax surface check and table-scope validation.
func (a *SQLAgent) validateSQL(st *runState, ev event) (event, error) {
	dialect := st.conn.Dialect()

	if err := sqlcheck.CheckSyntax(ev.sql, dialect); err != nil {
		a.logger.Warn("syntax check failed", zap.String("sql", ev.sql), zap.Error(err))
		st.retries++
		st.lastError = err.Error()
		return event{kind: eventReflectSQL, sql: ev.sql, errText: err.Error()}, nil
	}

	referenced := sqlcheck.ExtractTables(ev.sql)

	var unknown, expansion []string
	for _, name := range referenced {
		if st.schema.FindTable(name) == nil {
			unknown = append(unknown, name)
		} else if !st.hasCandidate(name) {
			expansion = append(expansion, name)
		}
	}

	if len(unknown) > 0 {
		return event{}, apperrors.NewOutcome(apperrors.CodeUnknownTables,
			"SQL references tables that do not exist in the schema: "+strings.Join(unknown, ", "))
	}

	if len(expansion) > 0 {
		st.addCandidates(expansion)
		a.logger.Info("expanding candidate set",
			zap.Strings("new_tables", expansion),
			zap.Strings("candidates", st.candidates))
		return event{kind: eventGenerateSQL}, nil
	}

	return event{kind: eventExecuteSQL, sql: ev.sql}, nil
}

// executeSQL runs the statement against the live engine. Any failure
// payload routes to reflection; the engine is the authoritative parser.
func (a *SQLAgent) executeSQL(ctx context.Context, st *runState, ev event) (event, error) {
	result := a.exec.Execute(ctx, ev.sql)
	if result.Failed() {
		a.logger.Warn("execution failed",
			zap.String("sql", ev.sql),
			zap.String("error", result.ErrorMessage))
		st.retries++
		st.lastError = result.ErrorMessage
		return event{kind: eventReflectSQL, sql: ev.sql, errText: result.ErrorMessage}, nil
	}

	a.logger.Info("sql executed",
		zap.Int("row_count", result.RowCount()),
		zap.Duration("elapsed", result.Elapsed))
	return event{kind: eventSuccess, sql: ev.sql}, nil
}

// reflectSQL asks the oracle to repair a failing statement. The retry
// budget is checked before any oracle call is made.
func (a *SQLAgent) reflectSQL(ctx context.Context, st *runState, ev event) (event, error) {
	if st.retries >= a.cfg.MaxSQLRetries {
		return event{}, apperrors.NewOutcome(apperrors.CodeRetriesExhausted,
			"maximum retry attempts reached; last error: "+st.lastError)
	}

	callCtx, cancel := context.WithTimeout(ctx, a.cfg.GenerationTimeout)
	defer cancel()

	dialect := strings.ToUpper(string(st.conn.Dialect()))
	ddl := schema.RenderDDL(st.selected, !a.cfg.PrivacyMode)

	answer, err := llm.Ask[models.SQLAnswer](callCtx, a.oracle,
		sqlRepairPrompt(dialect, ddl, st.question, ev.sql, ev.errText), "")
	if err != nil {
		return event{}, apperrors.NewOutcomeWithCause(apperrors.CodeGenerationFailed,
			"oracle did not produce a repaired SQL candidate", err)
	}

	corrected := sqlcheck.NormalizeWhitespace(answer.SQLQuery)
	if corrected == "" {
		return event{}, apperrors.NewOutcome(apperrors.CodeGenerationFailed,
			"oracle returned an empty repair")
	}

	if corrected == ev.sql {
		// The oracle found no fix. The unchanged statement loops back
		// through validation and will hit the retry ceiling if nothing
		// changes.
		a.logger.Warn("repair returned identical sql", zap.String("sql", corrected))
	} else {
		a.logger.Info("sql repaired",
			zap.String("sql", corrected),
			zap.Int("attempt", st.retries))
	}

	return event{kind: eventValidateSQL, sql: corrected}, nil
}

// resolveCandidates matches candidate identifiers against the schema,
// dropping (with a warning) any the oracle invented.
func (a *SQLAgent) resolveCandidates(st *runState) []*models.Table {
	selected := make([]*models.Table, 0, len(st.candidates))
	var missing []string

	for _, name := range st.candidates {
		if t := st.schema.FindTable(name); t != nil {
			selected = append(selected, t)
		} else {
			missing = append(missing, name)
		}
	}

	if len(missing) > 0 {
		a.logger.Warn("candidate tables not found in schema", zap.Strings("tables", missing))
	}
	return selected
}

// attachSampleRows fetches prompt-context rows for tables that don't
// have them yet. Failures downgrade to warnings with empty samples.
func (a *SQLAgent) attachSampleRows(ctx context.Context, tables []*models.Table) {
	for _, t := range tables {
		if t.SampleRows != nil {
			continue
		}
		rows, err := a.exec.SampleRows(ctx, t.Identifier, a.cfg.SampleRowLimit)
		if err != nil {
			a.logger.Warn("could not fetch sample rows",
				zap.String("table", t.Identifier),
				zap.Error(err))
			t.SampleRows = []string{}
			continue
		}
		t.SampleRows = rows
	}
}
