package agent

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fmuoria/nexushire/internal/eligibility"
	"github.com/fmuoria/nexushire/internal/events"
	"github.com/fmuoria/nexushire/internal/ingestion"
	"github.com/fmuoria/nexushire/internal/logger"
	"github.com/fmuoria/nexushire/internal/metrics"
	"github.com/fmuoria/nexushire/internal/models"
	"github.com/fmuoria/nexushire/internal/notify"
	"github.com/fmuoria/nexushire/internal/progress"
	"github.com/fmuoria/nexushire/internal/schedule"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Classifier decides whether a resume fits a role.
type Classifier interface {
	Classify(ctx context.Context, resumeText, role, requirements string) (string, error)
}

// TextExtractor turns a downloaded resume into plain text.
type TextExtractor interface {
	Extract(ctx context.Context, path string) (string, error)
}

// Scheduler books an interview and returns its meeting link.
type Scheduler interface {
	Schedule(ctx context.Context, iv schedule.Interview) (string, error)
}

// Notifier delivers the decision notice to a candidate.
type Notifier interface {
	Send(ctx context.Context, msg notify.Message, useOwnSMTP bool, smtpCfg *models.SMTPConfig) error
}

// BatchStore persists batches and per-candidate results.
type BatchStore interface {
	CreateBatch(ctx context.Context, batch *models.ScreeningBatch) error
	AddResult(ctx context.Context, result *models.CandidateResult) error
}

// Job is one screening run request.
type Job struct {
	RunID   string
	UserID  int64
	Request models.ProcessRequest
	// Source replaces the sheet named by Request.SheetLink when set.
	Source ingestion.RowSource
}

// RowOutcome is the result of processing one sheet row.
type RowOutcome struct {
	Email   string
	Status  string
	Err     error
	Skipped bool
}

// Summary describes a finished run.
type Summary struct {
	RunID       string
	BatchID     int64
	Outcome     string
	Eligible    int
	NotEligible int
	Errors      int
	Skipped     int
}

func (s *Summary) add(o RowOutcome) {
	switch {
	case o.Skipped:
		s.Skipped++
	case o.Err != nil:
		s.Errors++
	case o.Status == models.StatusEligible:
		s.Eligible++
	default:
		s.NotEligible++
	}
}

// Dependencies are the long-lived collaborators of a ScreeningAgent.
type Dependencies struct {
	Services   ServiceFactory
	Classifier Classifier
	Extractor  TextExtractor
	WorkDir    *ingestion.WorkDir
	Batches    BatchStore
	Progress   progress.Store
	// Events is optional.
	Events events.Publisher
	// Matchers defaults to ingestion.DefaultMatchers().
	Matchers []ingestion.ColumnMatcher
	Logger   *zap.Logger
}

// ScreeningAgent runs the screening pipeline: read rows, fetch each resume,
// classify it, notify the candidate and record the outcome.
type ScreeningAgent struct {
	deps Dependencies
	log  *zap.Logger
	now  func() time.Time
	wg   sync.WaitGroup
}

// NewScreeningAgent creates a new screening agent
func NewScreeningAgent(deps Dependencies) *ScreeningAgent {
	if deps.Matchers == nil {
		deps.Matchers = ingestion.DefaultMatchers()
	}
	if deps.Progress == nil {
		deps.Progress = progress.NewMemoryStore(0)
	}
	if deps.WorkDir == nil {
		deps.WorkDir = ingestion.NewWorkDir(filepath.Join(os.TempDir(), "nexushire"))
	}
	return &ScreeningAgent{
		deps: deps,
		log:  logger.WithFields(deps.Logger),
		now:  time.Now,
	}
}

// Progress returns the store holding run logs and results.
func (a *ScreeningAgent) Progress() progress.Store {
	return a.deps.Progress
}

// Begin registers the run so its logs are observable before it starts. A
// run id is allocated when job.RunID is empty.
func (a *ScreeningAgent) Begin(ctx context.Context, job *Job) error {
	if job.RunID == "" {
		job.RunID = uuid.NewString()
	}
	job.Request.ApplyDefaults()
	if err := a.deps.Progress.Begin(ctx, job.RunID, job.UserID); err != nil {
		return fmt.Errorf("failed to register run: %w", err)
	}
	return nil
}

// Start begins the run and processes it in the background. It returns the run id.
func (a *ScreeningAgent) Start(ctx context.Context, job Job) (string, error) {
	if err := a.Begin(ctx, &job); err != nil {
		return "", err
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.Run(context.WithoutCancel(ctx), job)
	}()
	return job.RunID, nil
}

// Wait blocks until every run started with Start has finished.
func (a *ScreeningAgent) Wait() {
	a.wg.Wait()
}

// Run processes a job that has been registered with Begin. It never returns
// an error and never panics: every failure ends up in the run's log.
func (a *ScreeningAgent) Run(ctx context.Context, job Job) (summary Summary) {
	summary.RunID = job.RunID
	rl := &runLog{
		store: a.deps.Progress,
		runID: job.RunID,
		now:   a.now,
		log:   logger.WithFields(a.log, zap.String(logger.FieldRunID, job.RunID), zap.Int64(logger.FieldUserID, job.UserID)),
	}

	metrics.RunsActive.Inc()
	defer metrics.RunsActive.Dec()

	defer func() {
		if err := a.deps.WorkDir.ReleaseRun(job.RunID); err != nil {
			rl.log.Warn("Failed to clean work directory", zap.Error(err))
		}
	}()

	defer func() {
		if r := recover(); r != nil {
			rl.logf("FATAL ERROR: %v", r)
			summary.Outcome = metrics.OutcomeFatal
		}
		metrics.RunsTotal.WithLabelValues(summary.Outcome).Inc()
	}()

	if err := a.execute(ctx, job, rl, &summary); err != nil {
		rl.logf("FATAL ERROR: %v", err)
		summary.Outcome = metrics.OutcomeFatal
	}
	return summary
}

func (a *ScreeningAgent) execute(ctx context.Context, job Job, rl *runLog, summary *Summary) error {
	req := job.Request
	summary.Outcome = metrics.OutcomeAborted

	rl.log.Info("Screening run started", zap.String("role", req.RoleName), zap.String("company", req.CompanyName))
	rl.logf("Initializing services...")
	svc, err := a.deps.Services.Services(ctx)
	if err != nil {
		rl.logf("CRITICAL ERROR: Failed to load Google Credentials: %v", err)
		return nil
	}

	rl.logf("Started screening for %s at %s", req.RoleName, req.CompanyName)

	source := job.Source
	if source == nil {
		source, err = svc.OpenSheet(ctx, req.SheetLink)
		if err != nil {
			return err
		}
	}
	rows, err := source.Rows(ctx)
	if err != nil {
		return err
	}

	if len(rows) < 2 {
		rl.logf("No responses found in Google Sheet")
		rl.logf("All resumes processed")
		return nil
	}

	headers := rows[0]
	cols, err := ingestion.ResolveColumns(headers, a.deps.Matchers)
	if err != nil {
		rl.logf("Error: Columns not found. Headers: %s", formatHeaders(headers))
		return nil
	}

	batch := &models.ScreeningBatch{
		UserID:           job.UserID,
		CompanyName:      req.CompanyName,
		Tagline:          req.Tagline,
		RoleName:         req.RoleName,
		RoleRequirements: req.RoleRequirements,
	}
	if err := a.deps.Batches.CreateBatch(ctx, batch); err != nil {
		return err
	}
	summary.BatchID = batch.ID
	rl.log = rl.log.With(zap.Int64(logger.FieldBatchID, batch.ID))

	data := rows[1:]
	total := len(data)
	for i, row := range data {
		if err := ctx.Err(); err != nil {
			return err
		}

		ref := rowRef{index: i + 1, pct: (i + 1) * 100 / total}
		started := a.now()
		outcome := a.processRow(ctx, job, svc, batch, cols, ref, row, rl)
		summary.add(outcome)

		switch {
		case outcome.Skipped:
			metrics.ObserveRow(metrics.StatusSkipped, started)
			continue
		case outcome.Err != nil:
			rl.logf("[%d%%] ERROR for %s: %v", ref.pct, outcome.Email, outcome.Err)
		}
		rl.addResult(models.ResultEntry{Email: outcome.Email, Status: outcome.Status})
		metrics.ObserveRow(outcome.Status, started)
	}

	rl.logf("100%% - All resumes processed")
	summary.Outcome = metrics.OutcomeCompleted
	a.publish(ctx, job, *summary, rl.log)
	return nil
}

type rowRef struct {
	index int
	pct   int
}

func (a *ScreeningAgent) processRow(ctx context.Context, job Job, svc *Services, batch *models.ScreeningBatch, cols ingestion.Columns, ref rowRef, row []string, rl *runLog) RowOutcome {
	if len(row) < cols.MinCells() {
		rl.logf("[%d%%] Skipping empty row %d", ref.pct, ref.index)
		return RowOutcome{Skipped: true}
	}

	email := strings.TrimSpace(row[cols.Email])
	link := strings.TrimSpace(row[cols.Resume])
	rl.logf("[%d%%] Processing %s", ref.pct, email)

	status, err := a.screen(ctx, job, svc, batch, ref, email, link, rl)
	if err != nil {
		rl.log.Warn("Candidate failed", zap.String("email", email), zap.Error(err))
		return RowOutcome{Email: email, Status: models.StatusError, Err: err}
	}
	return RowOutcome{Email: email, Status: status}
}

// screen runs one candidate from file reference to persisted result.
func (a *ScreeningAgent) screen(ctx context.Context, job Job, svc *Services, batch *models.ScreeningBatch, ref rowRef, email, link string, rl *runLog) (string, error) {
	req := job.Request

	fileID, err := ingestion.ParseFileID(link)
	if err != nil {
		return "", err
	}

	rl.logf("[%d%%] Analyzing %s...", ref.pct, email)

	tmp, err := a.deps.WorkDir.Acquire(job.RunID, ref.index, "")
	if err != nil {
		return "", err
	}
	defer func() {
		if err := tmp.Release(); err != nil {
			rl.log.Warn("Failed to remove resume file", zap.Error(err))
		}
	}()

	if err := svc.Fetcher.Fetch(ctx, fileID, tmp.Path); err != nil {
		return "", err
	}
	text, err := a.deps.Extractor.Extract(ctx, tmp.Path)
	if err != nil {
		return "", err
	}
	decision, err := a.deps.Classifier.Classify(ctx, text, req.RoleName, req.RoleRequirements)
	if err != nil {
		return "", err
	}
	status := eligibility.Status(decision)

	rl.logf("[%d%%] Sending result to %s...", ref.pct, email)

	notice := models.StatusNotEligible
	if status == models.StatusEligible {
		meet, err := svc.Scheduler.Schedule(ctx, schedule.Interview{
			Candidate: email,
			Role:      req.RoleName,
			Company:   req.CompanyName,
		})
		if err != nil {
			return "", err
		}
		notice = eligibility.EligibleDecision(meet)
	}

	msg := notify.Message{
		To:       email,
		Decision: notice,
		Company:  req.CompanyName,
		Tagline:  req.Tagline,
		Role:     req.RoleName,
	}
	if err := svc.Notifier.Send(ctx, msg, req.UseOwnSMTP, req.SMTPConfig); err != nil {
		return "", err
	}

	result := &models.CandidateResult{BatchID: batch.ID, Email: email, Status: status}
	if err := a.deps.Batches.AddResult(ctx, result); err != nil {
		return "", err
	}
	return status, nil
}

func (a *ScreeningAgent) publish(ctx context.Context, job Job, s Summary, log *zap.Logger) {
	if a.deps.Events == nil {
		return
	}
	event := events.BatchCompleted{
		RunID:       s.RunID,
		BatchID:     s.BatchID,
		UserID:      job.UserID,
		Company:     job.Request.CompanyName,
		Role:        job.Request.RoleName,
		Eligible:    s.Eligible,
		NotEligible: s.NotEligible,
		Errors:      s.Errors,
		Skipped:     s.Skipped,
		CompletedAt: a.now().UTC(),
	}
	if err := a.deps.Events.PublishBatchCompleted(ctx, event); err != nil {
		log.Warn("Failed to publish batch event", zap.Error(err))
	}
}

func formatHeaders(headers []string) string {
	quoted := make([]string, len(headers))
	for i, h := range headers {
		quoted[i] = "'" + h + "'"
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

// runLog writes to the run's Progress Log and mirrors every line to zap.
type runLog struct {
	store progress.Store
	runID string
	now   func() time.Time
	log   *zap.Logger
}

func (r *runLog) logf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	r.log.Info(msg)
	if err := r.store.Append(context.Background(), r.runID, progress.FormatLine(r.now(), msg)); err != nil {
		r.log.Warn("Failed to append progress line", zap.Error(err))
	}
}

func (r *runLog) addResult(entry models.ResultEntry) {
	if err := r.store.AddResult(context.Background(), r.runID, entry); err != nil {
		r.log.Warn("Failed to record result", zap.Error(err))
	}
}
