package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Cyclone1070/kosuke/internal/config"
	"github.com/Cyclone1070/kosuke/internal/orchestrator/adapter"
	"github.com/Cyclone1070/kosuke/internal/orchestrator/models"
	"github.com/Cyclone1070/kosuke/internal/orchestrator/parser"
	provider "github.com/Cyclone1070/kosuke/internal/provider/models"
	"github.com/Cyclone1070/kosuke/internal/tokens"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// WorkspaceOpener resolves a project ID to the filesystem the run works on.
type WorkspaceOpener interface {
	Open(projectID string) (adapter.FileSystem, error)
}

// Dependencies are the collaborators of an Orchestrator. Provider and
// Workspaces are required; the rest are optional.
type Dependencies struct {
	Provider   provider.Provider
	Workspaces WorkspaceOpener
	Registry   *adapter.Registry
	History    models.HistoryProvider
	Reporter   models.Reporter
	Usage      models.UsageRecorder
	Tokens     *tokens.Counter
	Logger     *zap.Logger
}

// Orchestrator runs the agent loop. One Orchestrator serves many runs;
// runs for the same project must be serialized by the caller.
type Orchestrator struct {
	agent    config.AgentConfig
	model    config.ProviderConfig
	timeout  time.Duration
	policy   *Policy
	prompt   string
	deps     Dependencies
	logger   *zap.Logger
	registry *adapter.Registry
	now      func() time.Time
}

// New creates an Orchestrator.
func New(cfg *config.Config, deps Dependencies) (*Orchestrator, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if deps.Provider == nil {
		return nil, errors.New("provider is required")
	}
	if deps.Workspaces == nil {
		return nil, errors.New("workspace opener is required")
	}
	if deps.Registry == nil {
		deps.Registry = adapter.DefaultRegistry()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Tokens == nil {
		deps.Tokens = tokens.NewCounter(deps.Logger)
	}

	return &Orchestrator{
		agent:    cfg.Agent,
		model:    cfg.Provider,
		timeout:  time.Duration(cfg.Agent.CompletionTimeoutMs) * time.Millisecond,
		policy:   NewPolicy(cfg.Tools.ProtectedPaths),
		prompt:   systemPrompt(deps.Registry.Descriptions()),
		deps:     deps,
		logger:   deps.Logger,
		registry: deps.Registry,
		now:      time.Now,
	}, nil
}

// RunOption customizes a single run.
type RunOption func(*runOptions)

type runOptions struct {
	reporters []models.Reporter
}

// WithReporter adds a reporter that only observes this run.
func WithReporter(r models.Reporter) RunOption {
	return func(o *runOptions) {
		if r != nil {
			o.reporters = append(o.reporters, r)
		}
	}
}

type phase int

const (
	phaseThinking phase = iota
	phaseExecuting
	phaseForced
	phaseDone
	phaseFailed
)

func (p phase) String() string {
	switch p {
	case phaseThinking:
		return "thinking"
	case phaseExecuting:
		return "executing"
	case phaseForced:
		return "forced"
	case phaseDone:
		return "done"
	case phaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// run is the state of one invocation. It is never shared between runs.
type run struct {
	projectID string
	prompt    string
	started   time.Time
	logger    *zap.Logger
	reporters []models.Reporter
	guard     *LoopGuard

	fs      adapter.FileSystem
	history []models.Message

	phase     phase
	iteration int
	context   string
	readFiles map[string]bool
	readOrder []string
	gathered  map[string]string
	log       []string

	pending []models.Action
	applied []models.Action
	summary string
	usage   models.Usage
	err     error
}

func (r *run) transition(to phase) {
	r.logger.Debug("phase transition",
		zap.Stringer("from", r.phase),
		zap.Stringer("to", to),
		zap.Int("iteration", r.iteration))
	r.phase = to
}

func (r *run) fail(err error) {
	r.err = err
	r.transition(phaseFailed)
}

func (r *run) markRead(path string) {
	if r.readFiles[path] {
		return
	}
	r.readFiles[path] = true
	r.readOrder = append(r.readOrder, path)
}

// Run processes one prompt against a project to completion. It never
// returns an error: failures are classified into the result and reported.
func (o *Orchestrator) Run(ctx context.Context, projectID, prompt string, opts ...RunOption) models.RunResult {
	var ro runOptions
	for _, opt := range opts {
		opt(&ro)
	}

	reporters := make([]models.Reporter, 0, len(ro.reporters)+1)
	if o.deps.Reporter != nil {
		reporters = append(reporters, o.deps.Reporter)
	}
	reporters = append(reporters, ro.reporters...)

	r := &run{
		projectID: projectID,
		prompt:    prompt,
		started:   o.now(),
		logger: o.logger.With(
			zap.String("run_id", uuid.NewString()),
			zap.String("project_id", projectID)),
		reporters: reporters,
		guard:     NewLoopGuard(o.agent),
		readFiles: make(map[string]bool),
		gathered:  make(map[string]string),
	}
	r.logger.Info("agent run started", zap.Int("prompt_len", len(prompt)))

	o.report(ctx, r, models.Report{
		Message:    "Analyzing project structure...",
		Status:     models.StatusPending,
		UpdateType: models.UpdateThinking,
	})

	if err := o.prepare(ctx, r); err != nil {
		r.fail(err)
	}

	for r.phase != phaseDone && r.phase != phaseFailed {
		switch r.phase {
		case phaseThinking:
			o.think(ctx, r)
		case phaseForced:
			o.force(ctx, r)
		case phaseExecuting:
			o.execute(ctx, r)
		}
	}

	return o.finish(ctx, r)
}

// prepare opens the workspace, loads history and builds the initial context.
func (o *Orchestrator) prepare(ctx context.Context, r *run) error {
	if strings.TrimSpace(r.prompt) == "" {
		return models.NewAgentError(models.ErrorTypeProcessing, "prompt is empty", models.ErrNoActions)
	}

	fs, err := o.deps.Workspaces.Open(r.projectID)
	if err != nil {
		return models.NewAgentError(models.ErrorTypeProcessing, "could not open project", err)
	}
	r.fs = fs

	if o.deps.History != nil && o.agent.HistoryTurns > 0 {
		turns, err := o.deps.History.FetchRecentTurns(ctx, r.projectID, o.agent.HistoryTurns)
		if err != nil {
			r.logger.Warn("failed to fetch chat history, continuing without it", zap.Error(err))
		} else {
			r.history = turns
		}
	}

	files, err := fs.ListFiles()
	if err != nil {
		r.logger.Warn("failed to list project files", zap.Error(err))
	}
	preamble := fmt.Sprintf("Project %s. All paths are relative to the project root.", r.projectID)
	r.context = AddOrReplaceSection(preamble, SectionDirectory, directorySnapshot(files, o.agent.MaxSnapshotFiles))
	r.logger.Debug("initial context built", zap.Int("files", len(files)), zap.Int("history_turns", len(r.history)))
	return nil
}

// think runs one gathering iteration.
func (o *Orchestrator) think(ctx context.Context, r *run) {
	if err := ctx.Err(); err != nil {
		r.fail(err)
		return
	}

	if r.iteration >= o.agent.MaxIterations {
		r.fail(models.NewAgentError(models.ErrorTypeProcessing,
			fmt.Sprintf("reached maximum iterations (%d)", o.agent.MaxIterations), models.ErrMaxIterations))
		return
	}
	r.iteration++

	o.report(ctx, r, models.Report{
		Message:    fmt.Sprintf("Thinking... (iteration %d)", r.iteration),
		Status:     models.StatusPending,
		UpdateType: models.UpdateThinking,
	})

	r.context = o.trackingContext(r)
	text, err := o.completeText(ctx, r, "thinking", o.request(r, r.context))
	if err != nil {
		if Classify(err) == models.ErrorTypeTimeout || ctx.Err() != nil || !provider.IsRetryable(err) {
			r.fail(err)
			return
		}
		r.logger.Warn("retryable provider error, retrying next iteration", zap.Error(err))
		r.context = AddOrReplaceSection(r.context, SectionErrorNote, errorNote(err))
		return
	}

	res, err := parser.Parse(text)
	if err != nil {
		var perr *parser.ParseError
		if errors.As(err, &perr) {
			r.logger.Warn("unparseable model response", zap.String("preview", perr.Preview()), zap.Error(err))
		}
		r.context = AddOrReplaceSection(r.context, SectionErrorNote, errorNote(err))
		return
	}
	r.context = RemoveSection(r.context, SectionErrorNote)
	o.logParse(r, res)

	actions := res.Response.Actions
	if !res.Response.Thinking {
		if hasChanges(actions) {
			o.report(ctx, r, models.Report{
				Message:    "Ready to execute changes",
				Status:     models.StatusCompleted,
				UpdateType: models.UpdateThinking,
			})
			r.pending = actions
			r.transition(phaseExecuting)
			return
		}
		if len(actions) == 0 {
			r.logger.Warn("response marked ready without usable actions, retrying",
				zap.Int("dropped", len(res.Dropped)),
				zap.Int("iteration", r.iteration))
			r.context = AddOrReplaceSection(r.context, SectionErrorNote, noActionsNote(res.Dropped))
		} else {
			r.logger.Debug("response marked ready but only gathers context, continuing")
		}
	}

	d := r.guard.Observe(r.iteration, actions, r.readFiles)
	if d.Force {
		r.logger.Info("forcing execution",
			zap.String("reason", d.Reason),
			zap.Strings("duplicate_reads", d.Duplicates),
			zap.Int("iteration", r.iteration))
		o.report(ctx, r, models.Report{
			Message:    "Forcing execution mode",
			Status:     models.StatusPending,
			UpdateType: models.UpdateThinking,
		})
		r.transition(phaseForced)
		return
	}

	if o.gather(ctx, r, actions) > 0 {
		r.context = MergeFileContents(r.context, r.gathered, r.log)
		o.recordContext(r)
	}
}

// trackingContext adds the read-file list and the near-limit warning.
func (o *Orchestrator) trackingContext(r *run) string {
	ctx := r.context
	if len(r.readOrder) > 0 {
		lines := make([]string, 0, len(r.readOrder)+1)
		lines = append(lines, "Do not read these files again, their content is below:")
		for i, p := range r.readOrder {
			lines = append(lines, fmt.Sprintf("%d. %s", i+1, p))
		}
		ctx = AddOrReplaceSection(ctx, SectionReadFiles, strings.Join(lines, "\n"))
	}
	if w := r.guard.Warning(r.iteration); w != "" {
		ctx = AddOrReplaceSection(ctx, SectionWarning, w)
	}
	return ctx
}

// gather executes the read and search actions of a thinking response and
// returns how many ran. Failures are recorded in the context and never end
// the run.
func (o *Orchestrator) gather(ctx context.Context, r *run, actions []models.Action) int {
	ran := 0
	for _, a := range actions {
		if !a.Kind.IsGather() {
			r.logger.Debug("ignoring mutating action while thinking", zap.Stringer("action", a))
			continue
		}
		if a.Kind == models.ActionReadFile && r.readFiles[a.Path] {
			r.logger.Debug("skipping already read file", zap.String("path", a.Path))
			continue
		}

		o.reportAction(ctx, r, a, models.StatusPending, a.Message, "")
		ran++
		out, err := o.runTool(ctx, r, a)
		if err != nil {
			r.logger.Warn("context gathering failed", zap.Stringer("action", a), zap.Error(err))
			o.reportAction(ctx, r, a, models.StatusError, actionFailure(a), models.ErrorTypeProcessing)
			if a.Kind == models.ActionReadFile {
				r.gathered[a.Path] = "Error: " + err.Error()
				r.markRead(a.Path)
			}
			r.log = append(r.log, fmt.Sprintf("Failed to %s %s: %v", a.Kind.Verb(), a.Path, err))
			continue
		}

		o.reportAction(ctx, r, a, models.StatusCompleted, a.Message, "")
		switch a.Kind {
		case models.ActionReadFile:
			r.gathered[a.Path] = out
			r.markRead(a.Path)
			r.log = append(r.log, "Read "+a.Path)
		case models.ActionSearch:
			r.gathered["[search] "+a.Path] = out
			r.log = append(r.log, fmt.Sprintf("Searched for %q", a.Path))
		}
	}
	return ran
}

// force makes the one extra model call of a forced run.
func (o *Orchestrator) force(ctx context.Context, r *run) {
	forced := ReplaceSectionAtEnd(r.context, SectionFinal, forcedDirective)
	text, err := o.completeText(ctx, r, "forced", o.request(r, forced))
	if err != nil {
		r.fail(err)
		return
	}

	res, err := parser.Parse(text)
	if err != nil {
		r.fail(models.NewAgentError(models.ErrorTypeParsing, "could not parse the final response", err))
		return
	}
	o.logParse(r, res)

	work := withoutGather(res.Response.Actions)
	if len(work) == 0 {
		r.fail(models.NewAgentError(models.ErrorTypeProcessing, "no actions produced after forcing execution", models.ErrNoActions))
		return
	}
	r.pending = work
	r.transition(phaseExecuting)
}

// execute applies the pending actions in order, stopping at the first failure.
// Reads and searches run in place but only changes count as applied.
func (o *Orchestrator) execute(ctx context.Context, r *run) {
	for i, a := range r.pending {
		if err := ctx.Err(); err != nil {
			r.fail(err)
			return
		}
		if a.Kind == models.ActionReadFile && r.readFiles[a.Path] {
			r.logger.Debug("skipping already read file", zap.String("path", a.Path))
			continue
		}

		o.reportAction(ctx, r, a, models.StatusPending, a.Message, "")
		if _, err := o.runTool(ctx, r, a); err != nil {
			r.logger.Error("action failed, aborting remaining actions",
				zap.Stringer("action", a),
				zap.Int("applied", len(r.applied)),
				zap.Int("remaining", len(r.pending)-i-1),
				zap.Error(err))
			o.reportAction(ctx, r, a, models.StatusError, actionFailure(a), models.ErrorTypeProcessing)
			r.fail(models.NewAgentError(models.ErrorTypeProcessing,
				fmt.Sprintf("failed to %s %s", a.Kind.Verb(), a.Path), err))
			return
		}
		o.reportAction(ctx, r, a, models.StatusCompleted, a.Message, "")
		switch {
		case a.Kind == models.ActionReadFile:
			r.markRead(a.Path)
		case !a.Kind.IsGather():
			r.applied = append(r.applied, a)
		}
	}

	r.summary = o.summarize(ctx, r)
	r.transition(phaseDone)
}

func (o *Orchestrator) runTool(ctx context.Context, r *run, a models.Action) (string, error) {
	tool, err := o.registry.Lookup(a.Kind)
	if err != nil {
		return "", err
	}
	if err := o.policy.CheckAction(a); err != nil {
		return "", err
	}
	return tool.Execute(ctx, r.fs, a)
}

// summarize asks the summary model to describe the applied changes,
// falling back to a generated sentence.
func (o *Orchestrator) summarize(ctx context.Context, r *run) string {
	req := summaryRequest(o.model.SummaryModel, o.model.SummaryMaxOutputTokens, r.prompt, r.applied)
	resp, err := o.complete(ctx, r, "summary", req)
	if err != nil || resp == nil || strings.TrimSpace(resp.Text) == "" {
		r.logger.Warn("summary generation failed, using fallback", zap.Error(err))
		return fallbackSummary(r.applied)
	}
	return strings.TrimSpace(resp.Text)
}

// finish reports the outcome and builds the result.
func (o *Orchestrator) finish(ctx context.Context, r *run) models.RunResult {
	// Final reports go out even when the caller has given up.
	ctx = context.WithoutCancel(ctx)
	duration := o.now().Sub(r.started)

	res := models.RunResult{
		Actions:    r.applied,
		Iterations: r.iteration,
		Usage:      r.usage,
	}

	if r.phase == phaseFailed {
		agentErr := toAgentError(r.err)
		msg := UserMessage(agentErr.Type)
		r.logger.Error("agent run failed",
			zap.String("error_type", string(agentErr.Type)),
			zap.String("message", agentErr.Message),
			zap.String("details", agentErr.Details),
			zap.Int("iterations", r.iteration),
			zap.Int("applied", len(r.applied)),
			zap.Duration("duration", duration))
		o.report(ctx, r, models.Report{
			Message:    msg,
			Status:     models.StatusError,
			UpdateType: models.UpdateError,
			ErrorType:  agentErr.Type,
		})
		res.Error = msg
		res.ErrorType = agentErr.Type
	} else {
		r.logger.Info("agent run completed",
			zap.Int("iterations", r.iteration),
			zap.Int("applied", len(r.applied)),
			zap.Int("tokens", r.usage.Total()),
			zap.Duration("duration", duration))
		o.report(ctx, r, models.Report{
			Message:    r.summary,
			Status:     models.StatusCompleted,
			UpdateType: models.UpdateCompleted,
		})
		o.recordTurns(ctx, r)
		res.Success = true
		res.Summary = r.summary
	}

	completion := models.Completion{
		ProjectID:    r.projectID,
		Success:      res.Success,
		TotalActions: len(r.applied),
		TotalTokens:  r.usage.Total(),
		Duration:     duration,
		Summary:      res.Summary,
		ErrorType:    res.ErrorType,
	}
	for _, rep := range r.reporters {
		cr, ok := rep.(models.CompletionReporter)
		if !ok {
			continue
		}
		if err := cr.ReportCompletion(ctx, completion); err != nil {
			r.logger.Warn("completion report failed", zap.Error(err))
		}
	}
	return res
}

func (o *Orchestrator) recordTurns(ctx context.Context, r *run) {
	rec, ok := o.deps.History.(models.TurnRecorder)
	if !ok {
		return
	}
	turns := []models.Message{
		{Role: models.RoleUser, Content: r.prompt},
		{Role: models.RoleAssistant, Content: r.summary},
	}
	for _, m := range turns {
		if err := rec.AppendTurn(ctx, r.projectID, m); err != nil {
			r.logger.Warn("failed to record chat turn", zap.String("role", m.Role), zap.Error(err))
			return
		}
	}
}

func (o *Orchestrator) request(r *run, contextText string) *provider.GenerateRequest {
	temperature := o.model.Temperature
	maxTokens := o.model.MaxOutputTokens
	return &provider.GenerateRequest{
		SystemPrompt: o.prompt,
		Messages:     buildMessages(r.history, o.agent.HistoryTurns, contextText, r.prompt),
		Model:        o.model.Model,
		Config: &provider.GenerateConfig{
			Temperature:     &temperature,
			MaxOutputTokens: &maxTokens,
			ResponseJSON:    true,
		},
	}
}

// completeText returns the response text, accepting a truncated response
// when it carries partial text.
func (o *Orchestrator) completeText(ctx context.Context, r *run, phase string, req *provider.GenerateRequest) (string, error) {
	resp, err := o.complete(ctx, r, phase, req)
	if err != nil {
		if errors.Is(err, provider.ErrTruncated) && resp != nil && strings.TrimSpace(resp.Text) != "" {
			r.logger.Warn("model response truncated, parsing partial output", zap.Int("len", len(resp.Text)))
			return resp.Text, nil
		}
		return "", err
	}
	return resp.Text, nil
}

// complete races one provider call against the completion timeout. A result
// that arrives after the deadline is discarded.
func (o *Orchestrator) complete(ctx context.Context, r *run, phase string, req *provider.GenerateRequest) (*provider.GenerateResponse, error) {
	callCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	type result struct {
		resp *provider.GenerateResponse
		err  error
	}
	done := make(chan result, 1)
	go func() {
		resp, err := o.deps.Provider.Generate(callCtx, req)
		done <- result{resp: resp, err: err}
	}()

	select {
	case res := <-done:
		if res.resp != nil {
			o.recordUsage(r, phase, req, res.resp)
		}
		return res.resp, res.err
	case <-callCtx.Done():
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, models.NewAgentError(models.ErrorTypeTimeout,
			fmt.Sprintf("completion did not finish within %s", o.timeout), callCtx.Err())
	}
}

func (o *Orchestrator) recordUsage(r *run, phase string, req *provider.GenerateRequest, resp *provider.GenerateResponse) {
	var contextTokens int
	if n := len(req.Messages); n > 0 {
		contextTokens = o.deps.Tokens.Count(req.Messages[n-1].Content)
	}
	u := models.Usage{
		ProjectID:     r.projectID,
		Model:         resp.Metadata.ModelUsed,
		Phase:         phase,
		InputTokens:   resp.Metadata.PromptTokens,
		OutputTokens:  resp.Metadata.CompletionTokens,
		ContextTokens: contextTokens,
	}
	if u.Model == "" {
		u.Model = req.Model
	}
	if u.InputTokens == 0 {
		u.InputTokens = o.deps.Tokens.Count(req.SystemPrompt) + contextTokens
	}
	if u.OutputTokens == 0 {
		u.OutputTokens = o.deps.Tokens.Count(resp.Text)
	}
	r.usage.Add(u)
	r.logger.Debug("token usage",
		zap.String("phase", phase),
		zap.String("model", u.Model),
		zap.Int("input", u.InputTokens),
		zap.Int("output", u.OutputTokens),
		zap.String("context", tokens.Format(u.ContextTokens)))
	if o.deps.Usage != nil {
		o.deps.Usage.RecordUsage(u)
	}
}

// recordContext accounts the context size after new content was read in.
func (o *Orchestrator) recordContext(r *run) {
	u := models.Usage{
		ProjectID:     r.projectID,
		Model:         o.model.Model,
		Phase:         "context",
		ContextTokens: o.deps.Tokens.Count(r.context),
	}
	r.usage.Add(u)
	if o.deps.Usage != nil {
		o.deps.Usage.RecordUsage(u)
	}
}

func (o *Orchestrator) report(ctx context.Context, r *run, rep models.Report) {
	rep.ProjectID = r.projectID
	rep.Timestamp = o.now()
	for _, reporter := range r.reporters {
		if err := reporter.Report(ctx, rep); err != nil {
			r.logger.Warn("reporter failed",
				zap.String("status", string(rep.Status)),
				zap.String("action", string(rep.Kind)),
				zap.Error(err))
		}
	}
}

func (o *Orchestrator) reportAction(ctx context.Context, r *run, a models.Action, status models.Status, msg string, errType models.ErrorType) {
	update := models.UpdateTypeFor(a.Kind)
	if status == models.StatusError {
		update = models.UpdateError
	}
	o.report(ctx, r, models.Report{
		Kind:       a.Kind,
		Path:       a.Path,
		Message:    msg,
		Status:     status,
		UpdateType: update,
		ErrorType:  errType,
	})
}

func (o *Orchestrator) logParse(r *run, res parser.Result) {
	for _, d := range res.Dropped {
		r.logger.Warn("dropped invalid action", zap.Int("index", d.Index), zap.String("reason", d.Reason))
	}
	r.logger.Debug("parsed model response",
		zap.String("strategy", string(res.Strategy)),
		zap.Bool("thinking", res.Response.Thinking),
		zap.Int("actions", len(res.Response.Actions)))
}

// hasChanges reports whether actions mutate the project.
func hasChanges(actions []models.Action) bool {
	for _, a := range actions {
		if !a.Kind.IsGather() {
			return true
		}
	}
	return false
}

func withoutGather(actions []models.Action) []models.Action {
	out := make([]models.Action, 0, len(actions))
	for _, a := range actions {
		if !a.Kind.IsGather() {
			out = append(out, a)
		}
	}
	return out
}

func actionFailure(a models.Action) string {
	return fmt.Sprintf("Failed to %s %s", a.Kind.Verb(), a.Path)
}

func errorNote(err error) string {
	return fmt.Sprintf("Your previous response could not be used: %v\n"+
		"Answer with a single JSON object in the documented format and try a different approach.", err)
}

func noActionsNote(dropped []parser.Dropped) string {
	var b strings.Builder
	b.WriteString("Your previous response set \"thinking\" to false but contained no usable actions.\n")
	for _, d := range dropped {
		fmt.Fprintf(&b, "- action %d was dropped: %s\n", d.Index+1, d.Reason)
	}
	b.WriteString("Answer again with the complete list of actions. createFile and editFile need the full file in \"content\".")
	return b.String()
}

// directorySnapshot renders the project file list, capped at limit entries.
func directorySnapshot(files []string, limit int) string {
	if len(files) == 0 {
		return "(the project has no files yet)"
	}
	sorted := append([]string(nil), files...)
	sort.Strings(sorted)

	shown := sorted
	if limit > 0 && len(sorted) > limit {
		shown = sorted[:limit]
	}
	body := strings.Join(shown, "\n")
	if len(shown) < len(sorted) {
		body += fmt.Sprintf("\n... and %d more files", len(sorted)-len(shown))
	}
	fence := fenceFor(body)
	return fence + "\n" + body + "\n" + fence
}
