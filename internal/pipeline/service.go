package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"test-report-backend/internal/artifacts"
	"test-report-backend/internal/classify"
	"test-report-backend/internal/llm"
	"test-report-backend/internal/notifications"
	"test-report-backend/internal/reports"
	"test-report-backend/internal/shared/metrics"
	"test-report-backend/internal/shared/telemetry"
)

const (
	maxTitleLength       = 200
	maxInstructionLength = 4000
	defaultTerminalWrite = 15 * time.Second
)

// ArtifactSource reads uploaded artifacts.
type ArtifactSource interface {
	Get(ctx context.Context, artifactID string) (artifacts.Artifact, error)
	ReadArtifact(ctx context.Context, artifact artifacts.Artifact) ([]byte, error)
	SameContent(ctx context.Context, a, b artifacts.Artifact) (bool, error)
}

// TextGenerator produces the raw report text for a prompt.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// RunNotifier emits the per-run notifications.
type RunNotifier interface {
	InProgress(ctx context.Context, userID, documentID, title string) (notifications.Event, error)
	Completed(ctx context.Context, userID, documentID, title string) (notifications.Event, error)
	Failed(ctx context.Context, userID, documentID, title, detail string) (notifications.Event, error)
}

// Service is the report orchestrator. The synchronous methods validate and
// hand off; Execute drives one run to Completed or Failed.
type Service struct {
	Reports    reports.Repo
	Artifacts  ArtifactSource
	Generator  TextGenerator
	Notifier   RunNotifier
	Dispatcher Dispatcher

	// TerminalWriteTimeout bounds the final status write once the run context is done.
	TerminalWriteTimeout time.Duration
	now                  func() time.Time
}

// NewService constructs a Service. The dispatcher is usually set afterwards
// because the inline supervisor needs Execute.
func NewService(repo reports.Repo, source ArtifactSource, gen TextGenerator, notifier RunNotifier) *Service {
	return &Service{
		Reports:              repo,
		Artifacts:            source,
		Generator:            gen,
		Notifier:             notifier,
		TerminalWriteTimeout: defaultTerminalWrite,
		now:                  time.Now,
	}
}

// SubmitInput requests the first generation for an uploaded artifact.
type SubmitInput struct {
	ArtifactID    string
	Title         string
	Instruction   string
	RequesterID   string
	RequesterName string
}

// Validate checks the submission fields.
func (in SubmitInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.ArtifactID, validation.Required),
		validation.Field(&in.Title, validation.Required, validation.Length(1, maxTitleLength)),
		validation.Field(&in.Instruction, validation.Length(0, maxInstructionLength)),
		validation.Field(&in.RequesterID, validation.Required),
	)
}

// RegenerateInput requests a new version of an existing report.
type RegenerateInput struct {
	DocumentID      string
	PreviousVersion *int
	Title           string
	Instruction     string
	NewArtifactID   string
	RequesterID     string
	RequesterName   string
}

// Validate checks the re-generation fields. A missing previous version is
// reported as ErrPreviousVersionRequired by Regenerate itself.
func (in RegenerateInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.DocumentID, validation.Required),
		validation.Field(&in.Title, validation.Length(0, maxTitleLength)),
		validation.Field(&in.Instruction, validation.Length(0, maxInstructionLength)),
		validation.Field(&in.RequesterID, validation.Required),
	)
}

// Ack acknowledges an accepted run.
type Ack struct {
	DocumentID string
	Status     reports.Status
	PollRef    string
}

// StatusView is what a poller sees. Content is set only when Completed and
// ErrorDetail only when Failed.
type StatusView struct {
	DocumentID  string
	Title       string
	Status      reports.Status
	Content     string
	ErrorDetail string
	DurationMs  int64
	UpdatedAt   time.Time
}

// PollRef is the status path for a document.
func PollRef(documentID string) string {
	return "/api/v1/reports/" + documentID + "/status"
}

// Submit validates the artifact, creates a Pending document and dispatches
// the first run. Nothing is created when the artifact format is rejected.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (Ack, error) {
	in.ArtifactID = strings.TrimSpace(in.ArtifactID)
	in.Title = strings.TrimSpace(in.Title)
	in.Instruction = strings.TrimSpace(in.Instruction)
	if err := in.Validate(); err != nil {
		return Ack{}, err
	}

	artifact, err := s.Artifacts.Get(ctx, in.ArtifactID)
	if err != nil {
		return Ack{}, err
	}
	if artifact.UserID != "" && artifact.UserID != in.RequesterID {
		return Ack{}, artifacts.ErrNotFound
	}
	if !artifacts.IsValidFormat(artifact.FileName) {
		return Ack{}, artifacts.ErrUnsupportedFormat
	}

	now := s.clock().UTC()
	doc := reports.Document{
		ID:          uuid.NewString(),
		FileID:      artifact.ID,
		GeneratedBy: in.RequesterID,
		Title:       in.Title,
		Prompt:      in.Instruction,
		Status:      reports.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.Reports.Create(ctx, doc); err != nil {
		return Ack{}, fmt.Errorf("create report: %w", err)
	}
	logTransition(ctx, doc.ID, "", reports.StatusPending, FlowInitial)

	task := Task{
		DocumentID:    doc.ID,
		Flow:          FlowInitial,
		Title:         doc.Title,
		Instruction:   in.Instruction,
		RequesterID:   in.RequesterID,
		RequesterName: in.RequesterName,
		RequestID:     telemetry.RequestID(ctx),
	}
	if err := s.dispatch(ctx, task); err != nil {
		return Ack{}, err
	}
	return Ack{DocumentID: doc.ID, Status: reports.StatusPending, PollRef: PollRef(doc.ID)}, nil
}

// Regenerate moves a finished document back to Pending and dispatches a
// versioning run. Input rejections leave the document untouched.
func (s *Service) Regenerate(ctx context.Context, in RegenerateInput) (Ack, error) {
	in.DocumentID = strings.TrimSpace(in.DocumentID)
	in.Title = strings.TrimSpace(in.Title)
	in.Instruction = strings.TrimSpace(in.Instruction)
	in.NewArtifactID = strings.TrimSpace(in.NewArtifactID)
	if err := in.Validate(); err != nil {
		return Ack{}, err
	}
	if in.PreviousVersion == nil {
		return Ack{}, ErrPreviousVersionRequired
	}
	if in.Instruction == "" && in.NewArtifactID == "" {
		return Ack{}, fmt.Errorf("%w: an instruction or a new file is required", ErrInvalidInput)
	}

	doc, err := s.owned(ctx, in.DocumentID, in.RequesterID)
	if err != nil {
		return Ack{}, err
	}
	if (s.Dispatcher != nil && s.Dispatcher.Active(doc.ID)) || !doc.Status.CanStartRun() {
		metrics.IncRunRejected("in_progress")
		return Ack{}, reports.ErrRunInProgress
	}

	flow, err := s.regenerationFlow(ctx, doc.ID, *in.PreviousVersion)
	if err != nil {
		return Ack{}, err
	}

	if in.NewArtifactID != "" {
		if err := s.checkNewArtifact(ctx, doc, in); err != nil {
			return Ack{}, err
		}
	}

	previous := doc.Status
	doc, err = s.Reports.BeginRun(ctx, reports.BeginRunInput{
		DocumentID: doc.ID,
		FileID:     in.NewArtifactID,
		Prompt:     in.Instruction,
	})
	if err != nil {
		return Ack{}, err
	}
	logTransition(ctx, doc.ID, previous, reports.StatusPending, flow)

	if in.Title != "" && in.Title != doc.Title {
		updated, err := s.Reports.UpdateTitle(ctx, doc.ID, in.Title)
		if err != nil {
			telemetry.Warn("pipeline.title_update_failed", map[string]any{
				"document_id": doc.ID,
				"error":       err,
				"request_id":  telemetry.RequestID(ctx),
			})
		} else {
			doc = updated
		}
	}

	task := Task{
		DocumentID:      doc.ID,
		Flow:            flow,
		Title:           doc.Title,
		Instruction:     in.Instruction,
		RequesterID:     in.RequesterID,
		RequesterName:   in.RequesterName,
		PreviousVersion: *in.PreviousVersion,
		NewArtifactID:   in.NewArtifactID,
		RequestID:       telemetry.RequestID(ctx),
	}
	if err := s.dispatch(ctx, task); err != nil {
		return Ack{}, err
	}
	return Ack{DocumentID: doc.ID, Status: reports.StatusPending, PollRef: PollRef(doc.ID)}, nil
}

// regenerationFlow resolves the superseded version. Version 0 names a
// document whose runs all failed; it restarts the initial flow.
func (s *Service) regenerationFlow(ctx context.Context, documentID string, previous int) (Flow, error) {
	if previous < 0 {
		return "", ErrPreviousVersionNotFound
	}
	if previous == 0 {
		_, err := s.Reports.LatestVersion(ctx, documentID)
		switch {
		case errors.Is(err, reports.ErrVersionNotFound):
			return FlowInitial, nil
		case err != nil:
			return "", err
		default:
			return "", ErrPreviousVersionNotFound
		}
	}
	if _, err := s.Reports.GetVersion(ctx, documentID, previous); err != nil {
		if errors.Is(err, reports.ErrVersionNotFound) {
			return "", ErrPreviousVersionNotFound
		}
		return "", err
	}
	return FlowVersioning, nil
}

func (s *Service) checkNewArtifact(ctx context.Context, doc reports.Document, in RegenerateInput) error {
	next, err := s.Artifacts.Get(ctx, in.NewArtifactID)
	if err != nil {
		return err
	}
	if next.UserID != "" && next.UserID != in.RequesterID {
		return artifacts.ErrNotFound
	}
	if !artifacts.IsValidFormat(next.FileName) {
		return artifacts.ErrUnsupportedFormat
	}
	if next.ID == doc.FileID {
		return ErrDuplicateContent
	}
	current, err := s.Artifacts.Get(ctx, doc.FileID)
	if err != nil {
		if errors.Is(err, artifacts.ErrNotFound) {
			return nil
		}
		return err
	}
	same, err := s.Artifacts.SameContent(ctx, current, next)
	if err != nil {
		return fmt.Errorf("compare artifacts: %w", err)
	}
	if same {
		return ErrDuplicateContent
	}
	return nil
}

// UpdateMetadata changes the title without starting a run.
func (s *Service) UpdateMetadata(ctx context.Context, documentID, requesterID, title string) (reports.Document, error) {
	title = strings.TrimSpace(title)
	err := validation.Validate(title, validation.Required, validation.Length(1, maxTitleLength))
	if err != nil {
		return reports.Document{}, validation.Errors{"title": err}
	}
	if _, err := s.owned(ctx, documentID, requesterID); err != nil {
		return reports.Document{}, err
	}
	return s.Reports.UpdateTitle(ctx, documentID, title)
}

// Get returns a document owned by the requester.
func (s *Service) Get(ctx context.Context, documentID, requesterID string) (reports.Document, error) {
	return s.owned(ctx, documentID, requesterID)
}

// GetStatus returns the poll view of a document.
func (s *Service) GetStatus(ctx context.Context, documentID, requesterID string) (StatusView, error) {
	doc, err := s.owned(ctx, documentID, requesterID)
	if err != nil {
		return StatusView{}, err
	}
	view := StatusView{
		DocumentID: doc.ID,
		Title:      doc.Title,
		Status:     doc.Status,
		DurationMs: doc.DurationMs,
		UpdatedAt:  doc.UpdatedAt,
	}
	switch doc.Status {
	case reports.StatusCompleted:
		view.Content = doc.Content
	case reports.StatusFailed:
		view.ErrorDetail = doc.ErrorDetail
	case reports.StatusPending, reports.StatusInProgress:
	default:
		panic(fmt.Sprintf("unhandled report status %q", doc.Status))
	}
	return view, nil
}

// ListVersions returns the versions of a document in the given order.
func (s *Service) ListVersions(ctx context.Context, documentID, requesterID string, order reports.Order) ([]reports.Version, error) {
	if _, err := s.owned(ctx, documentID, requesterID); err != nil {
		return nil, err
	}
	return s.Reports.ListVersions(ctx, documentID, order)
}

// GetVersion returns one version of a document.
func (s *Service) GetVersion(ctx context.Context, documentID, requesterID string, number int) (reports.Version, error) {
	if _, err := s.owned(ctx, documentID, requesterID); err != nil {
		return reports.Version{}, err
	}
	return s.Reports.GetVersion(ctx, documentID, number)
}

// List returns the requester's documents.
func (s *Service) List(ctx context.Context, requesterID string) ([]reports.Document, error) {
	return s.Reports.ListByUser(ctx, requesterID)
}

// Delete soft-deletes a document; ErrRunInProgress while a run is active.
func (s *Service) Delete(ctx context.Context, documentID, requesterID string) error {
	if _, err := s.owned(ctx, documentID, requesterID); err != nil {
		return err
	}
	if s.Dispatcher != nil && s.Dispatcher.Active(documentID) {
		return reports.ErrRunInProgress
	}
	return s.Reports.SoftDelete(ctx, documentID)
}

func (s *Service) owned(ctx context.Context, documentID, requesterID string) (reports.Document, error) {
	doc, err := s.Reports.Get(ctx, documentID)
	if err != nil {
		return reports.Document{}, err
	}
	if doc.IsDeleted || doc.GeneratedBy != requesterID {
		return reports.Document{}, reports.ErrNotFound
	}
	return doc, nil
}

// dispatch hands task off. If the hand-off fails the Pending document is
// failed so it does not stay Pending forever.
func (s *Service) dispatch(ctx context.Context, task Task) error {
	if s.Dispatcher == nil {
		return fmt.Errorf("no dispatcher configured")
	}
	err := s.Dispatcher.Dispatch(ctx, task)
	if err == nil {
		return nil
	}
	telemetry.Error("pipeline.dispatch_failed", map[string]any{
		"document_id": task.DocumentID,
		"flow":        string(task.Flow),
		"error":       err,
		"request_id":  telemetry.RequestID(ctx),
	})
	failCtx, cancel := s.terminalContext(ctx)
	defer cancel()
	detail := "no se pudo programar la generación: " + err.Error()
	if ferr := s.Reports.FailRun(failCtx, reports.FailRunInput{
		DocumentID: task.DocumentID,
		Content:    failureContent(detail),
		Detail:     detail,
	}); ferr != nil {
		telemetry.Error("pipeline.dispatch_fail_write_failed", map[string]any{
			"document_id": task.DocumentID,
			"error":       ferr,
		})
	}
	return err
}

const staleDetail = "la generación se interrumpió antes de finalizar"

// RecoverStale fails Pending or InProgress documents that have not been
// updated for olderThan and that no local worker is running, such as runs
// orphaned by a crashed process. It returns how many documents it failed.
func (s *Service) RecoverStale(ctx context.Context, olderThan time.Duration) (int, error) {
	if olderThan <= 0 {
		return 0, nil
	}
	cutoff := s.clock().UTC().Add(-olderThan)
	stale, err := s.Reports.ListStale(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("list stale reports: %w", err)
	}

	recovered := 0
	for _, doc := range stale {
		if s.Dispatcher != nil && s.Dispatcher.Active(doc.ID) {
			continue
		}
		err := s.Reports.FailRun(ctx, reports.FailRunInput{
			DocumentID:  doc.ID,
			Content:     failureContent(staleDetail),
			Detail:      staleDetail,
			StaleBefore: cutoff,
		})
		switch {
		case errors.Is(err, reports.ErrInvalidTransition), errors.Is(err, reports.ErrNotFound):
			// finished or touched since it was listed
			continue
		case err != nil:
			return recovered, fmt.Errorf("fail stale report %s: %w", doc.ID, err)
		}
		recovered++
		metrics.IncRunFinished(string(reports.StatusFailed), "stale")
		logTransition(ctx, doc.ID, doc.Status, reports.StatusFailed, "", "error", staleDetail)
		if _, err := s.Notifier.Failed(ctx, doc.GeneratedBy, doc.ID, doc.Title, staleDetail); err != nil {
			logNotifyFailure(ctx, doc.ID, notifications.KindFailed, err)
		}
	}
	return recovered, nil
}

// Execute runs task to a terminal state. It never returns an error: every
// failure, including a panic, ends as a Failed document and notification.
// Exactly one terminal write and terminal notification are attempted per run.
func (s *Service) Execute(ctx context.Context, task Task) {
	started := s.clock()
	if task.RequestID != "" && telemetry.RequestID(ctx) == "" {
		ctx = telemetry.WithRequestID(ctx, task.RequestID)
	}

	r := &run{task: task, title: task.Title, started: started}
	defer func() {
		if p := recover(); p != nil {
			telemetry.Error("pipeline.run_panic", map[string]any{
				"document_id": task.DocumentID,
				"panic":       fmt.Sprint(p),
				"stack":       string(debug.Stack()),
				"terminal":    r.terminal,
				"request_id":  telemetry.RequestID(ctx),
			})
			if !r.terminal {
				s.fail(ctx, r, fmt.Errorf("unexpected fault: %v", p))
			}
		}
	}()

	doc, err := s.Reports.MarkInProgress(ctx, task.DocumentID)
	switch {
	case errors.Is(err, reports.ErrInvalidTransition), errors.Is(err, reports.ErrNotFound):
		// duplicate delivery or the document is gone
		r.terminal = true
		telemetry.Warn("pipeline.run_skipped", map[string]any{
			"document_id": task.DocumentID,
			"flow":        string(task.Flow),
			"error":       err,
			"request_id":  telemetry.RequestID(ctx),
		})
		return
	case err != nil:
		s.fail(ctx, r, fmt.Errorf("mark in progress: %w", err))
		return
	}

	r.title = doc.Title
	metrics.IncRunStarted()
	logTransition(ctx, doc.ID, reports.StatusPending, reports.StatusInProgress, task.Flow)
	if _, err := s.Notifier.InProgress(ctx, task.RequesterID, doc.ID, r.title); err != nil {
		logNotifyFailure(ctx, doc.ID, notifications.KindInProgress, err)
	}

	content, err := s.produce(ctx, task, doc)
	if err != nil {
		s.fail(ctx, r, err)
		return
	}
	s.complete(ctx, r, content)
}

// run tracks one Execute call. terminal is set once the terminal status
// write has been attempted; later faults must not emit a second outcome.
type run struct {
	task     Task
	title    string
	started  time.Time
	terminal bool
}

// produce reads the artifact, builds the prompt, generates and classifies.
func (s *Service) produce(ctx context.Context, task Task, doc reports.Document) (string, error) {
	artifact, err := s.Artifacts.Get(ctx, doc.FileID)
	if err != nil {
		return "", fmt.Errorf("load artifact: %w", err)
	}
	data, err := s.Artifacts.ReadArtifact(ctx, artifact)
	if err != nil {
		return "", fmt.Errorf("read artifact: %w", err)
	}

	var prompt string
	switch task.Flow {
	case FlowInitial:
		prompt = llm.BuildInitialPrompt(llm.InitialPromptInput{
			FileContent:   string(data),
			Instruction:   task.Instruction,
			RequesterName: task.RequesterName,
			DocumentID:    doc.ID,
			Title:         doc.Title,
		})
	case FlowVersioning:
		previous, err := s.Reports.GetVersion(ctx, doc.ID, task.PreviousVersion)
		if err != nil {
			return "", fmt.Errorf("load version %d: %w", task.PreviousVersion, err)
		}
		prompt = llm.BuildVersioningPrompt(llm.VersioningPromptInput{
			FileContent:     string(data),
			PreviousContent: previous.Content,
			Instruction:     task.Instruction,
			RequesterName:   task.RequesterName,
		})
	default:
		return "", fmt.Errorf("%w: unknown flow %q", ErrInvalidInput, task.Flow)
	}

	raw, err := s.Generator.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	result := classify.Classify(raw)
	if result.IsError {
		return "", &RejectedError{Detail: result.Detail}
	}
	return result.Content, nil
}

func (s *Service) complete(ctx context.Context, r *run, content string) {
	writeCtx, cancel := s.terminalContext(ctx)
	defer cancel()

	task := r.task
	elapsed := s.clock().Sub(r.started)
	version, err := s.Reports.CompleteRun(writeCtx, reports.CompleteRunInput{
		DocumentID:  task.DocumentID,
		Instruction: task.Instruction,
		Content:     content,
		CreatedBy:   task.RequesterID,
		Duration:    elapsed,
	})
	if err != nil {
		s.fail(ctx, r, fmt.Errorf("save version: %w", err))
		return
	}
	r.terminal = true

	metrics.IncRunFinished(string(reports.StatusCompleted), string(task.Flow))
	metrics.ObserveRunDurationMs(string(reports.StatusCompleted), float64(elapsed.Milliseconds()))
	logTransition(ctx, task.DocumentID, reports.StatusInProgress, reports.StatusCompleted, task.Flow,
		"version", version.Number, "duration_ms", elapsed.Milliseconds())

	if _, err := s.Notifier.Completed(writeCtx, task.RequesterID, task.DocumentID, r.title); err != nil {
		logNotifyFailure(ctx, task.DocumentID, notifications.KindCompleted, err)
	}
}

// fail writes the Failed state then the failed notification. A failed status
// write is logged and the notification is still attempted, unless the
// document already reached a terminal state.
func (s *Service) fail(ctx context.Context, r *run, cause error) {
	r.terminal = true
	writeCtx, cancel := s.terminalContext(ctx)
	defer cancel()

	task := r.task
	detail := failureDetail(cause)
	elapsed := s.clock().Sub(r.started)
	err := s.Reports.FailRun(writeCtx, reports.FailRunInput{
		DocumentID: task.DocumentID,
		Content:    failureContent(detail),
		Detail:     detail,
		Duration:   elapsed,
	})
	switch {
	case errors.Is(err, reports.ErrInvalidTransition):
		telemetry.Warn("pipeline.fail_after_terminal", map[string]any{
			"document_id": task.DocumentID,
			"cause":       cause,
			"request_id":  telemetry.RequestID(ctx),
		})
		return
	case err != nil:
		telemetry.Error("pipeline.fail_write_failed", map[string]any{
			"document_id": task.DocumentID,
			"cause":       cause,
			"error":       err,
			"request_id":  telemetry.RequestID(ctx),
		})
	default:
		metrics.IncRunFinished(string(reports.StatusFailed), string(task.Flow))
		metrics.ObserveRunDurationMs(string(reports.StatusFailed), float64(elapsed.Milliseconds()))
		logTransition(ctx, task.DocumentID, reports.StatusInProgress, reports.StatusFailed, task.Flow,
			"error", detail, "duration_ms", elapsed.Milliseconds())
	}

	if _, err := s.Notifier.Failed(writeCtx, task.RequesterID, task.DocumentID, r.title, detail); err != nil {
		logNotifyFailure(ctx, task.DocumentID, notifications.KindFailed, err)
	}
}

// terminalContext survives the run's cancellation so a timed-out run can
// still record its outcome.
func (s *Service) terminalContext(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := s.TerminalWriteTimeout
	if timeout <= 0 {
		timeout = defaultTerminalWrite
	}
	return context.WithTimeout(context.WithoutCancel(ctx), timeout)
}

func (s *Service) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

func failureDetail(err error) string {
	var rejected *RejectedError
	if errors.As(err, &rejected) {
		return rejected.Detail
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "la generación excedió el tiempo máximo permitido"
	case errors.Is(err, context.Canceled):
		return "la generación fue cancelada"
	}
	var genErr *llm.GenerationError
	if errors.As(err, &genErr) {
		return genErr.Error()
	}
	return err.Error()
}

func failureContent(detail string) string {
	if detail == "" {
		return "No se pudo generar el reporte."
	}
	return "No se pudo generar el reporte: " + detail
}

func logTransition(ctx context.Context, documentID string, from, to reports.Status, flow Flow, extra ...any) {
	fields := map[string]any{
		"document_id":       documentID,
		"status_transition": string(from) + "->" + string(to),
		"status":            string(to),
		"flow":              string(flow),
		"request_id":        telemetry.RequestID(ctx),
	}
	for i := 0; i+1 < len(extra); i += 2 {
		if key, ok := extra[i].(string); ok {
			fields[key] = extra[i+1]
		}
	}
	telemetry.Info("report.status", fields)
}

func logNotifyFailure(ctx context.Context, documentID string, kind notifications.Kind, err error) {
	telemetry.Warn("pipeline.notify_failed", map[string]any{
		"document_id": documentID,
		"kind":        string(kind),
		"error":       err,
		"request_id":  telemetry.RequestID(ctx),
	})
}
