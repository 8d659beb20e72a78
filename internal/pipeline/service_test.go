package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"test-report-backend/internal/artifacts"
	"test-report-backend/internal/llm"
	"test-report-backend/internal/notifications"
	"test-report-backend/internal/reports"
	"test-report-backend/internal/retry"
	"test-report-backend/internal/shared/storage/object/local"
)

const okReport = "[CONTEO]\n{\"total\":3,\"aprobadas\":3}\n[TEL]\n[]\n[TIR]\n[]"

type recordingPublisher struct {
	mu     sync.Mutex
	events []notifications.Event
	// panicOn makes the first delivery of that kind panic after recording it.
	panicOn  notifications.Kind
	panicked bool
}

func (p *recordingPublisher) Publish(_ context.Context, _ string, event notifications.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	if event.Kind == p.panicOn && !p.panicked {
		p.panicked = true
		panic("live channel exploded on " + string(event.Kind))
	}
	return nil
}

func (p *recordingPublisher) kinds() []notifications.Kind {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]notifications.Kind, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Kind)
	}
	return out
}

type harness struct {
	svc       *Service
	reports   *reports.MemoryRepo
	artifacts *artifacts.Service
	artRepo   *artifacts.MemoryRepo
	events    *notifications.MemoryRepo
	published *recordingPublisher
	sup       *Supervisor

	mu      sync.Mutex
	prompts []string
}

func (h *harness) lastPrompt() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.prompts) == 0 {
		return ""
	}
	return h.prompts[len(h.prompts)-1]
}

func newHarness(t *testing.T, stream llm.StreamFunc) *harness {
	t.Helper()
	h := &harness{
		reports:   reports.NewMemoryRepo(),
		artRepo:   artifacts.NewMemoryRepo(),
		events:    notifications.NewMemoryRepo(),
		published: &recordingPublisher{},
	}
	h.artifacts = artifacts.NewService(local.New(t.TempDir()), h.artRepo)

	recording := llm.StreamFunc(func(ctx context.Context, prompt string, onChunk func(string) error) error {
		h.mu.Lock()
		h.prompts = append(h.prompts, prompt)
		h.mu.Unlock()
		return stream(ctx, prompt, onChunk)
	})
	gen := llm.NewGenerator(recording, llm.Options{Provider: "test"})
	gen.Policy.Backoff = retry.Constant(time.Millisecond)

	notifier := notifications.NewNotifier(h.events, h.published)
	h.svc = NewService(h.reports, h.artifacts, gen, notifier)
	h.sup = NewSupervisor(h.svc.Execute, SupervisorOptions{Workers: 2, QueueSize: 8, RunTimeout: 5 * time.Second})
	h.sup.Start(context.Background())
	h.svc.Dispatcher = InlineDispatcher{Supervisor: h.sup}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = h.sup.Shutdown(ctx)
	})
	return h
}

func replying(text string) llm.StreamFunc {
	return func(ctx context.Context, prompt string, onChunk func(string) error) error {
		return onChunk(text)
	}
}

func (h *harness) upload(t *testing.T, name, body string) artifacts.Artifact {
	t.Helper()
	a, err := h.artifacts.Upload(context.Background(), artifacts.UploadInput{
		UserID:   "user-1",
		FileName: name,
		Body:     strings.NewReader(body),
	})
	require.NoError(t, err)
	return a
}

func (h *harness) waitFor(t *testing.T, documentID string, want reports.Status) reports.Document {
	t.Helper()
	var doc reports.Document
	require.Eventually(t, func() bool {
		var err error
		doc, err = h.reports.Get(context.Background(), documentID)
		return err == nil && doc.Status == want && !h.sup.Active(documentID)
	}, 2*time.Second, 5*time.Millisecond, "document never reached %s", want)
	return doc
}

func (h *harness) submit(t *testing.T, artifactID string) Ack {
	t.Helper()
	ack, err := h.svc.Submit(context.Background(), SubmitInput{
		ArtifactID:  artifactID,
		Title:       "Sprint 12",
		Instruction: "standard report",
		RequesterID: "user-1",
	})
	require.NoError(t, err)
	return ack
}

func TestSubmitGeneratesFirstVersion(t *testing.T) {
	h := newHarness(t, replying(okReport))
	a := h.upload(t, "results.json", `{"tests":[{"name":"login","status":"passed"}]}`)

	ack := h.submit(t, a.ID)
	assert.Equal(t, reports.StatusPending, ack.Status)
	assert.Equal(t, "/api/v1/reports/"+ack.DocumentID+"/status", ack.PollRef)

	h.waitFor(t, ack.DocumentID, reports.StatusCompleted)

	view, err := h.svc.GetStatus(context.Background(), ack.DocumentID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, reports.StatusCompleted, view.Status)
	assert.Equal(t, okReport, view.Content)
	assert.Empty(t, view.ErrorDetail)

	versions, err := h.svc.ListVersions(context.Background(), ack.DocumentID, "user-1", reports.OrderAsc)
	require.NoError(t, err)
	require.Len(t, versions, 1)
	assert.Equal(t, 1, versions[0].Number)
	assert.Equal(t, "standard report", versions[0].Instruction)

	assert.Equal(t, []notifications.Kind{notifications.KindInProgress, notifications.KindCompleted}, h.published.kinds())
	assert.Contains(t, h.lastPrompt(), `"login"`)
}

func TestSubmitRejectsUnsupportedFormat(t *testing.T) {
	h := newHarness(t, replying(okReport))
	require.NoError(t, h.artRepo.Create(context.Background(), artifacts.Artifact{
		ID:       "file-exe",
		UserID:   "user-1",
		FileName: "results.exe",
	}))

	_, err := h.svc.Submit(context.Background(), SubmitInput{
		ArtifactID:  "file-exe",
		Title:       "Sprint 12",
		RequesterID: "user-1",
	})
	require.ErrorIs(t, err, artifacts.ErrUnsupportedFormat)

	docs, err := h.svc.List(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Empty(t, docs)
	assert.Zero(t, h.sup.InFlight())
	assert.Empty(t, h.published.kinds())
}

func TestSubmitValidatesInput(t *testing.T) {
	h := newHarness(t, replying(okReport))
	_, err := h.svc.Submit(context.Background(), SubmitInput{RequesterID: "user-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file")
}

func TestSubmitHidesOtherUsersArtifacts(t *testing.T) {
	h := newHarness(t, replying(okReport))
	a := h.upload(t, "results.json", `{}`)

	_, err := h.svc.Submit(context.Background(), SubmitInput{ArtifactID: a.ID, Title: "x", RequesterID: "user-2"})
	assert.ErrorIs(t, err, artifacts.ErrNotFound)
}

func TestRejectedGenerationFailsWithoutVersion(t *testing.T) {
	h := newHarness(t, replying("[ERROR] Unsupported file"))
	a := h.upload(t, "notes.txt", "hello")

	ack := h.submit(t, a.ID)
	doc := h.waitFor(t, ack.DocumentID, reports.StatusFailed)
	assert.Equal(t, "Unsupported file", doc.ErrorDetail)
	assert.Contains(t, doc.Content, "Unsupported file")

	view, err := h.svc.GetStatus(context.Background(), ack.DocumentID, "user-1")
	require.NoError(t, err)
	assert.Empty(t, view.Content)
	assert.Equal(t, "Unsupported file", view.ErrorDetail)

	versions, err := h.reports.ListVersions(context.Background(), ack.DocumentID, reports.OrderAsc)
	require.NoError(t, err)
	assert.Empty(t, versions)

	assert.Equal(t, []notifications.Kind{notifications.KindInProgress, notifications.KindFailed}, h.published.kinds())
	events, err := h.events.ListByUser(context.Background(), "user-1", false)
	require.NoError(t, err)
	require.Len(t, events, 2)
	byKind := map[notifications.Kind]notifications.Event{}
	for _, e := range events {
		byKind[e.Kind] = e
	}
	assert.Equal(t, "Unsupported file", byKind[notifications.KindFailed].Metadata["error"])
	assert.Equal(t, ack.DocumentID, byKind[notifications.KindFailed].DocumentID)
	assert.False(t, byKind[notifications.KindFailed].CreatedAt.Before(byKind[notifications.KindInProgress].CreatedAt))
}

func TestMarkerWithoutDetailStillFails(t *testing.T) {
	h := newHarness(t, replying("[ERROR]"))
	a := h.upload(t, "notes.txt", "hello")

	ack := h.submit(t, a.ID)
	doc := h.waitFor(t, ack.DocumentID, reports.StatusFailed)
	assert.Empty(t, doc.ErrorDetail)
	assert.NotEmpty(t, doc.Content)
}

func TestExhaustedRetriesFailRun(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	h := newHarness(t, func(ctx context.Context, prompt string, onChunk func(string) error) error {
		mu.Lock()
		defer mu.Unlock()
		calls++
		return errors.New("upstream unavailable " + string(rune('0'+calls)))
	})
	a := h.upload(t, "results.csv", "name,status\nlogin,passed\n")

	ack := h.submit(t, a.ID)
	doc := h.waitFor(t, ack.DocumentID, reports.StatusFailed)
	assert.Equal(t, "upstream unavailable 2", doc.ErrorDetail)

	mu.Lock()
	assert.Equal(t, 2, calls)
	mu.Unlock()
}

func TestPanicDuringRunFailsDocument(t *testing.T) {
	h := newHarness(t, func(ctx context.Context, prompt string, onChunk func(string) error) error {
		panic("parser exploded")
	})
	a := h.upload(t, "results.xml", "<testsuite/>")

	ack := h.submit(t, a.ID)
	doc := h.waitFor(t, ack.DocumentID, reports.StatusFailed)
	assert.Contains(t, doc.ErrorDetail, "parser exploded")
	assert.Equal(t, []notifications.Kind{notifications.KindInProgress, notifications.KindFailed}, h.published.kinds())
}

func (h *harness) storedKinds(t *testing.T) map[notifications.Kind]int {
	t.Helper()
	events, err := h.events.ListByUser(context.Background(), "user-1", false)
	require.NoError(t, err)
	counts := map[notifications.Kind]int{}
	for _, e := range events {
		counts[e.Kind]++
	}
	return counts
}

func TestPanicWhilePublishingInProgressFailsDocument(t *testing.T) {
	h := newHarness(t, replying(okReport))
	h.published.panicOn = notifications.KindInProgress
	a := h.upload(t, "results.xml", "<testsuite/>")

	ack := h.submit(t, a.ID)
	doc := h.waitFor(t, ack.DocumentID, reports.StatusFailed)
	assert.Contains(t, doc.ErrorDetail, "live channel exploded")

	counts := h.storedKinds(t)
	assert.Equal(t, 1, counts[notifications.KindInProgress])
	assert.Equal(t, 1, counts[notifications.KindFailed])
	assert.Zero(t, counts[notifications.KindCompleted])

	// the document is free for a new run
	none := 0
	_, err := h.svc.Regenerate(context.Background(), RegenerateInput{
		DocumentID:      ack.DocumentID,
		PreviousVersion: &none,
		Instruction:     "retry",
		RequesterID:     "user-1",
	})
	require.NoError(t, err)
	h.waitFor(t, ack.DocumentID, reports.StatusCompleted)
}

func TestPanicAfterCompletionKeepsSingleOutcome(t *testing.T) {
	h := newHarness(t, replying(okReport))
	h.published.panicOn = notifications.KindCompleted
	a := h.upload(t, "results.xml", "<testsuite/>")

	ack := h.submit(t, a.ID)
	doc := h.waitFor(t, ack.DocumentID, reports.StatusCompleted)
	assert.Equal(t, okReport, doc.Content)
	assert.Empty(t, doc.ErrorDetail)

	counts := h.storedKinds(t)
	assert.Equal(t, 1, counts[notifications.KindInProgress])
	assert.Equal(t, 1, counts[notifications.KindCompleted])
	assert.Zero(t, counts[notifications.KindFailed])
	assert.NotContains(t, h.published.kinds(), notifications.KindFailed)
}

func TestRegenerateAppendsNextVersion(t *testing.T) {
	h := newHarness(t, replying(okReport))
	a := h.upload(t, "results.json", `{"run":1}`)
	ack := h.submit(t, a.ID)
	h.waitFor(t, ack.DocumentID, reports.StatusCompleted)

	b := h.upload(t, "results.json", `{"run":2}`)
	prev := 1
	ack2, err := h.svc.Regenerate(context.Background(), RegenerateInput{
		DocumentID:      ack.DocumentID,
		PreviousVersion: &prev,
		Instruction:     "resaltar regresiones",
		NewArtifactID:   b.ID,
		RequesterID:     "user-1",
	})
	require.NoError(t, err)
	assert.Equal(t, reports.StatusPending, ack2.Status)

	doc := h.waitFor(t, ack.DocumentID, reports.StatusCompleted)
	assert.Equal(t, b.ID, doc.FileID)

	versions, err := h.svc.ListVersions(context.Background(), ack.DocumentID, "user-1", reports.OrderDesc)
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, 2, versions[0].Number)
	assert.Equal(t, 1, versions[1].Number)

	prompt := h.lastPrompt()
	assert.Contains(t, prompt, okReport)
	assert.Contains(t, prompt, `{"run":2}`)
	assert.Contains(t, prompt, "resaltar regresiones")
}

func TestRegenerateRejectsDuplicateContent(t *testing.T) {
	h := newHarness(t, replying(okReport))
	a := h.upload(t, "results.json", `{"run":1}`)
	ack := h.submit(t, a.ID)
	h.waitFor(t, ack.DocumentID, reports.StatusCompleted)
	before := len(h.published.kinds())

	same := h.upload(t, "results-copy.json", `{"run":1}`)
	prev := 1
	_, err := h.svc.Regenerate(context.Background(), RegenerateInput{
		DocumentID:      ack.DocumentID,
		PreviousVersion: &prev,
		NewArtifactID:   same.ID,
		RequesterID:     "user-1",
	})
	require.ErrorIs(t, err, ErrDuplicateContent)

	doc, err := h.reports.Get(context.Background(), ack.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, reports.StatusCompleted, doc.Status)
	assert.Equal(t, a.ID, doc.FileID)
	assert.Len(t, h.published.kinds(), before)
}

func TestRegenerateRequiresPreviousVersion(t *testing.T) {
	h := newHarness(t, replying(okReport))
	a := h.upload(t, "results.json", `{}`)
	ack := h.submit(t, a.ID)
	h.waitFor(t, ack.DocumentID, reports.StatusCompleted)

	_, err := h.svc.Regenerate(context.Background(), RegenerateInput{
		DocumentID:  ack.DocumentID,
		Instruction: "otra vez",
		RequesterID: "user-1",
	})
	assert.ErrorIs(t, err, ErrPreviousVersionRequired)

	missing := 7
	_, err = h.svc.Regenerate(context.Background(), RegenerateInput{
		DocumentID:      ack.DocumentID,
		PreviousVersion: &missing,
		Instruction:     "otra vez",
		RequesterID:     "user-1",
	})
	assert.ErrorIs(t, err, ErrPreviousVersionNotFound)
}

func TestRegenerateWhileRunningIsRejected(t *testing.T) {
	release := make(chan struct{})
	var once sync.Once
	h := newHarness(t, func(ctx context.Context, prompt string, onChunk func(string) error) error {
		<-release
		return onChunk(okReport)
	})
	defer once.Do(func() { close(release) })

	a := h.upload(t, "results.json", `{}`)
	ack := h.submit(t, a.ID)
	h.waitForStatus(t, ack.DocumentID, reports.StatusInProgress)

	prev := 1
	_, err := h.svc.Regenerate(context.Background(), RegenerateInput{
		DocumentID:      ack.DocumentID,
		PreviousVersion: &prev,
		Instruction:     "again",
		RequesterID:     "user-1",
	})
	assert.ErrorIs(t, err, reports.ErrRunInProgress)

	assert.ErrorIs(t, h.svc.Delete(context.Background(), ack.DocumentID, "user-1"), reports.ErrRunInProgress)

	once.Do(func() { close(release) })
	h.waitFor(t, ack.DocumentID, reports.StatusCompleted)
}

func (h *harness) waitForStatus(t *testing.T, documentID string, want reports.Status) {
	t.Helper()
	require.Eventually(t, func() bool {
		doc, err := h.reports.Get(context.Background(), documentID)
		return err == nil && doc.Status == want
	}, 2*time.Second, 5*time.Millisecond)
}

func TestUpdateMetadataSkipsStateMachine(t *testing.T) {
	h := newHarness(t, replying(okReport))
	a := h.upload(t, "results.json", `{}`)
	ack := h.submit(t, a.ID)
	h.waitFor(t, ack.DocumentID, reports.StatusCompleted)
	before := len(h.published.kinds())

	doc, err := h.svc.UpdateMetadata(context.Background(), ack.DocumentID, "user-1", "Sprint 12 final")
	require.NoError(t, err)
	assert.Equal(t, "Sprint 12 final", doc.Title)
	assert.Equal(t, reports.StatusCompleted, doc.Status)
	assert.Len(t, h.published.kinds(), before)

	versions, err := h.reports.ListVersions(context.Background(), ack.DocumentID, reports.OrderAsc)
	require.NoError(t, err)
	assert.Len(t, versions, 1)

	_, err = h.svc.UpdateMetadata(context.Background(), ack.DocumentID, "user-2", "stolen")
	assert.ErrorIs(t, err, reports.ErrNotFound)
}

type failingNotifier struct{}

func (failingNotifier) InProgress(context.Context, string, string, string) (notifications.Event, error) {
	return notifications.Event{}, errors.New("db down")
}

func (failingNotifier) Completed(context.Context, string, string, string) (notifications.Event, error) {
	return notifications.Event{}, errors.New("db down")
}

func (failingNotifier) Failed(context.Context, string, string, string, string) (notifications.Event, error) {
	return notifications.Event{}, errors.New("db down")
}

func TestNotificationFailureDoesNotAffectStatus(t *testing.T) {
	h := newHarness(t, replying(okReport))
	h.svc.Notifier = failingNotifier{}
	a := h.upload(t, "results.json", `{}`)

	ack := h.submit(t, a.ID)
	doc := h.waitFor(t, ack.DocumentID, reports.StatusCompleted)
	assert.Equal(t, okReport, doc.Content)
}

type refusingDispatcher struct{ err error }

func (d refusingDispatcher) Dispatch(context.Context, Task) error { return d.err }
func (refusingDispatcher) Active(string) bool                     { return false }

func TestDispatchFailureFailsDocument(t *testing.T) {
	h := newHarness(t, replying(okReport))
	h.svc.Dispatcher = refusingDispatcher{err: ErrQueueFull}
	a := h.upload(t, "results.json", `{}`)

	_, err := h.svc.Submit(context.Background(), SubmitInput{ArtifactID: a.ID, Title: "x", RequesterID: "user-1"})
	require.ErrorIs(t, err, ErrQueueFull)

	docs, err := h.reports.ListByUser(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, reports.StatusFailed, docs[0].Status)
}

func TestExecuteSkipsDuplicateDelivery(t *testing.T) {
	h := newHarness(t, replying(okReport))
	a := h.upload(t, "results.json", `{}`)
	ack := h.submit(t, a.ID)
	h.waitFor(t, ack.DocumentID, reports.StatusCompleted)
	before := len(h.published.kinds())

	h.svc.Execute(context.Background(), Task{DocumentID: ack.DocumentID, Flow: FlowInitial, RequesterID: "user-1"})

	versions, err := h.reports.ListVersions(context.Background(), ack.DocumentID, reports.OrderAsc)
	require.NoError(t, err)
	assert.Len(t, versions, 1)
	assert.Len(t, h.published.kinds(), before)
}

func TestTimedOutRunStillRecordsFailure(t *testing.T) {
	h := newHarness(t, func(ctx context.Context, prompt string, onChunk func(string) error) error {
		<-ctx.Done()
		return ctx.Err()
	})
	a := h.upload(t, "results.json", `{}`)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	require.NoError(t, h.reports.Create(context.Background(), reports.Document{
		ID: "doc-timeout", FileID: a.ID, GeneratedBy: "user-1", Title: "t", Status: reports.StatusPending,
	}))
	h.svc.Execute(ctx, Task{DocumentID: "doc-timeout", Flow: FlowInitial, RequesterID: "user-1"})

	doc, err := h.reports.Get(context.Background(), "doc-timeout")
	require.NoError(t, err)
	assert.Equal(t, reports.StatusFailed, doc.Status)
	assert.Contains(t, doc.ErrorDetail, "tiempo")
}

func TestRegenerateAfterFailedFirstRun(t *testing.T) {
	var mu sync.Mutex
	reply := "[ERROR] empty log"
	h := newHarness(t, func(ctx context.Context, prompt string, onChunk func(string) error) error {
		mu.Lock()
		defer mu.Unlock()
		return onChunk(reply)
	})
	a := h.upload(t, "run.log", "PASS login\n")
	ack := h.submit(t, a.ID)
	h.waitFor(t, ack.DocumentID, reports.StatusFailed)

	mu.Lock()
	reply = okReport
	mu.Unlock()

	none := 0
	_, err := h.svc.Regenerate(context.Background(), RegenerateInput{
		DocumentID:      ack.DocumentID,
		PreviousVersion: &none,
		Instruction:     "intentar de nuevo",
		RequesterID:     "user-1",
	})
	require.NoError(t, err)

	doc := h.waitFor(t, ack.DocumentID, reports.StatusCompleted)
	assert.Empty(t, doc.ErrorDetail)
	versions, err := h.reports.ListVersions(context.Background(), ack.DocumentID, reports.OrderAsc)
	require.NoError(t, err)
	require.Len(t, versions, 1)
	assert.Equal(t, 1, versions[0].Number)
}

type busyDispatcher struct {
	Dispatcher
	busy string
}

func (d busyDispatcher) Active(documentID string) bool { return documentID == d.busy }

func TestRecoverStaleFailsOrphanedRuns(t *testing.T) {
	h := newHarness(t, replying(okReport))
	ctx := context.Background()
	a := h.upload(t, "results.json", `{}`)

	for _, doc := range []reports.Document{
		{ID: "orphan-pending", FileID: a.ID, GeneratedBy: "user-1", Title: "Nightly", Status: reports.StatusPending},
		{ID: "orphan-running", FileID: a.ID, GeneratedBy: "user-1", Title: "Smoke", Status: reports.StatusInProgress},
		{ID: "busy", FileID: a.ID, GeneratedBy: "user-1", Title: "Busy", Status: reports.StatusInProgress},
		{ID: "done", FileID: a.ID, GeneratedBy: "user-1", Title: "Done", Status: reports.StatusCompleted},
	} {
		require.NoError(t, h.reports.Create(ctx, doc))
	}
	h.svc.Dispatcher = busyDispatcher{Dispatcher: h.svc.Dispatcher, busy: "busy"}

	n, err := h.svc.RecoverStale(ctx, time.Hour)
	require.NoError(t, err)
	assert.Zero(t, n, "recently updated runs are not stale")

	h.svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	n, err = h.svc.RecoverStale(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	for _, id := range []string{"orphan-pending", "orphan-running"} {
		doc, err := h.reports.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, reports.StatusFailed, doc.Status, id)
		assert.Equal(t, staleDetail, doc.ErrorDetail, id)
	}
	busy, err := h.reports.Get(ctx, "busy")
	require.NoError(t, err)
	assert.Equal(t, reports.StatusInProgress, busy.Status)
	done, err := h.reports.Get(ctx, "done")
	require.NoError(t, err)
	assert.Equal(t, reports.StatusCompleted, done.Status)
	assert.Equal(t, 2, h.storedKinds(t)[notifications.KindFailed])

	n, err = h.svc.RecoverStale(ctx, time.Hour)
	require.NoError(t, err)
	assert.Zero(t, n, "a second sweep finds nothing left to fail")

	_, err = h.svc.Regenerate(ctx, RegenerateInput{
		DocumentID: "orphan-running", PreviousVersion: new(int), Instruction: "retry", RequesterID: "user-1",
	})
	require.NoError(t, err)
	h.waitFor(t, "orphan-running", reports.StatusCompleted)
}
