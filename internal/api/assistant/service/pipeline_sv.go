package assistantService

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"ProjectAssistant/internal/api/assistant"
	"ProjectAssistant/internal/entity"
	"ProjectAssistant/internal/reply"
	"ProjectAssistant/pkg/audio"
	contextPkg "ProjectAssistant/pkg/context"
	"ProjectAssistant/pkg/nlp"
	"ProjectAssistant/pkg/s3"
	websocketPkg "ProjectAssistant/pkg/websocket"
	"github.com/sirupsen/logrus"
)

const (
	DefaultVoiceMimeType = "audio/ogg; codecs=opus"
	inAppQueueSize       = 16
	subscriberBuffer     = 4
)

type Lifecycle uint8

const (
	Stopped Lifecycle = iota
	Starting
	Running
	Stopping
)

var LifecycleMap = map[Lifecycle]string{
	Stopped:  "stopped",
	Starting: "starting",
	Running:  "running",
	Stopping: "stopping",
}

func (l Lifecycle) String() string {
	if name, ok := LifecycleMap[l]; ok {
		return name
	}
	return "unknown"
}

// Catalog is the part of catalog.Manager the pipeline drives.
type Catalog interface {
	Refresh(ctx context.Context) error
	LoadShortcuts(ctx context.Context) error
	RegisterShortcut(ctx context.Context, name, description string) (entity.CatalogShortcut, error)
	Snapshot() entity.Catalog
	Validate(intent entity.Intent) bool
}

type Executor interface {
	Execute(ctx context.Context, intent entity.Intent) (entity.ExecutionResult, error)
}

type PendingReader interface {
	CurrentPending() (entity.PendingConfirmation, bool)
}

type IDGenerator interface {
	NewULIDFromTimestamp(t time.Time) (string, error)
}

type Dependencies struct {
	Classifier    nlp.IIntentClassifier
	Catalog       Catalog
	Executor      Executor
	Confirmations PendingReader
	Memory        IMemoryService
	NewRelay      func() websocketPkg.IRelayLink
	IDs           IDGenerator

	// Optional.
	Transcriber audio.ITranscriber
	Archive     s3.ItfS3
}

type ICommandPipeline interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context)
	Lifecycle() Lifecycle
	State() entity.PipelineState
	Subscribe() (<-chan entity.PipelineState, func())
	Submit(ctx context.Context, text string) (entity.Command, entity.ExecutionResult, error)
	RefreshCatalog(ctx context.Context) (entity.Catalog, error)
	RegisterShortcut(ctx context.Context, name, description string) (entity.CatalogShortcut, error)
	PendingConfirmation() (entity.PendingConfirmation, bool)
	History(ctx context.Context, limit int) ([]entity.CommandLog, error)
}

type submission struct {
	cmd  entity.Command
	done chan entity.ExecutionResult
}

type commandPipeline struct {
	log  *logrus.Logger
	deps Dependencies

	mu        sync.Mutex
	lifecycle Lifecycle
	relay     websocketPkg.IRelayLink
	cancel    context.CancelFunc
	state     entity.PipelineState
	wg        sync.WaitGroup

	inApp chan submission

	subMu       sync.Mutex
	subscribers map[int]chan entity.PipelineState
	nextSub     int
}

func NewCommandPipeline(log *logrus.Logger, deps Dependencies) ICommandPipeline {
	return &commandPipeline{
		log:         log,
		deps:        deps,
		inApp:       make(chan submission, inAppQueueSize),
		subscribers: make(map[int]chan entity.PipelineState),
	}
}

func (p *commandPipeline) Lifecycle() Lifecycle {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lifecycle
}

func (p *commandPipeline) State() entity.PipelineState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Start is a no-op unless the pipeline is stopped. Catalog and shortcut
// loading failures are logged and do not block startup.
func (p *commandPipeline) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.lifecycle != Stopped {
		p.mu.Unlock()
		return nil
	}
	p.lifecycle = Starting
	p.mu.Unlock()

	start := time.Now()

	if err := p.deps.Classifier.WarmUp(ctx); err != nil {
		p.setLifecycle(Stopped)
		p.log.WithFields(logrus.Fields{
			"error": err.Error(),
		}).Error("Failed to warm up intent classifier")
		return err
	}

	if err := p.deps.Catalog.Refresh(ctx); err != nil {
		p.log.WithFields(logrus.Fields{
			"error": err.Error(),
		}).Warn("Catalog refresh failed, starting with stale catalog")
	}

	if err := p.deps.Catalog.LoadShortcuts(ctx); err != nil {
		p.log.WithFields(logrus.Fields{
			"error": err.Error(),
		}).Warn("Failed to load registered shortcuts")
	}

	// The link outlives intake so the unit in flight at Stop can still reply.
	runCtx := context.WithoutCancel(ctx)
	relay := p.deps.NewRelay()
	if err := relay.StartListening(runCtx); err != nil {
		p.deps.Classifier.CoolDown(ctx)
		p.setLifecycle(Stopped)
		return fmt.Errorf("start relay link: %w", err)
	}

	intake, cancel := context.WithCancel(runCtx)

	p.mu.Lock()
	p.relay = relay
	p.cancel = cancel
	p.lifecycle = Running
	p.mu.Unlock()

	p.wg.Add(2)
	go p.processLoop(intake, relay)
	go p.monitorStatus(intake, relay)

	p.log.WithFields(logrus.Fields{
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("Command pipeline running")

	return nil
}

// Stop ends intake and waits for the command in flight, if any, to be
// replied to and logged before the relay link is closed. It is safe to call
// when not running.
func (p *commandPipeline) Stop(ctx context.Context) {
	p.mu.Lock()
	if p.lifecycle != Running {
		p.mu.Unlock()
		return
	}
	p.lifecycle = Stopping
	cancel := p.cancel
	relay := p.relay
	p.mu.Unlock()

	cancel()
	p.wg.Wait()
	relay.StopListening()

	p.deps.Classifier.CoolDown(ctx)
	if p.deps.Transcriber != nil {
		p.deps.Transcriber.Unload()
	}

	p.mu.Lock()
	p.relay = nil
	p.cancel = nil
	p.lifecycle = Stopped
	p.state.RelayConnected = false
	p.state.IsProcessing = false
	p.mu.Unlock()

	p.log.Info("Command pipeline stopped")
}

// Submit queues a locally entered command on the same sequential loop the
// relay feeds and waits for its result.
func (p *commandPipeline) Submit(ctx context.Context, text string) (entity.Command, entity.ExecutionResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return entity.Command{}, entity.ExecutionResult{}, assistant.ErrEmptyCommand
	}
	now := time.Now()
	id, err := p.deps.IDs.NewULIDFromTimestamp(now)
	if err != nil {
		return entity.Command{}, entity.ExecutionResult{}, err
	}

	sub := submission{
		cmd: entity.Command{
			ID:        id,
			RawText:   text,
			Source:    entity.SourceInAppUI,
			Timestamp: now,
		},
		done: make(chan entity.ExecutionResult, 1),
	}

	if err := p.enqueue(sub); err != nil {
		return entity.Command{}, entity.ExecutionResult{}, err
	}

	select {
	case res := <-sub.done:
		return sub.cmd, res, nil
	case <-ctx.Done():
		return sub.cmd, entity.ExecutionResult{}, ctx.Err()
	}
}

// enqueue holds p.mu so a submission accepted while running is always seen
// by the loop or by its final drain.
func (p *commandPipeline) enqueue(sub submission) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.lifecycle != Running {
		return assistant.ErrPipelineNotRunning
	}
	select {
	case p.inApp <- sub:
		return nil
	default:
		return assistant.ErrPipelineBusy
	}
}

func (p *commandPipeline) RefreshCatalog(ctx context.Context) (entity.Catalog, error) {
	if err := p.deps.Catalog.Refresh(ctx); err != nil {
		p.log.WithFields(logrus.Fields{
			"request_id": contextPkg.GetRequestID(ctx),
			"error":      err.Error(),
		}).Warn("Catalog refresh failed")
		return entity.Catalog{}, assistant.ErrCatalogRefresh
	}
	return p.deps.Catalog.Snapshot(), nil
}

func (p *commandPipeline) RegisterShortcut(ctx context.Context, name, description string) (entity.CatalogShortcut, error) {
	return p.deps.Catalog.RegisterShortcut(ctx, strings.TrimSpace(name), strings.TrimSpace(description))
}

func (p *commandPipeline) PendingConfirmation() (entity.PendingConfirmation, bool) {
	return p.deps.Confirmations.CurrentPending()
}

func (p *commandPipeline) History(ctx context.Context, limit int) ([]entity.CommandLog, error) {
	return p.deps.Memory.FetchRecentCommands(ctx, limit)
}

// processLoop stops taking work once intake is cancelled. A command already
// picked up runs to completion on a context that ignores the cancellation.
func (p *commandPipeline) processLoop(intake context.Context, relay websocketPkg.IRelayLink) {
	defer p.wg.Done()

	work := context.WithoutCancel(intake)
	for {
		if intake.Err() != nil {
			p.drainInApp()
			return
		}

		select {
		case <-intake.Done():
			p.drainInApp()
			return
		case cmd, ok := <-relay.Commands():
			if !ok {
				p.drainInApp()
				return
			}
			p.handle(work, relay, cmd)
		case sub := <-p.inApp:
			sub.done <- p.handle(work, relay, sub.cmd)
		}
	}
}

func (p *commandPipeline) drainInApp() {
	for {
		select {
		case sub := <-p.inApp:
			sub.done <- entity.Failure("Assistant is shutting down")
		default:
			return
		}
	}
}

// handle runs one command to completion, including its reply and log. A
// state snapshot is published before and after every unit of work.
func (p *commandPipeline) handle(ctx context.Context, relay websocketPkg.IRelayLink, cmd entity.Command) entity.ExecutionResult {
	ctx = contextPkg.WithCommandID(ctx, cmd.ID)

	if cmd.IsEmpty() && !cmd.NeedsTranscription() {
		p.skipEmpty(cmd)
		return entity.Failure("Nothing to do")
	}

	p.notify(func(s *entity.PipelineState) {
		s.IsProcessing = true
		s.LastCommand = cmd.RawText
	})

	result, done := p.run(ctx, relay, cmd)

	p.notify(func(s *entity.PipelineState) {
		s.IsProcessing = false
		if done {
			s.LastResult = reply.Format(result)
		}
	})

	return result
}

// run reports false when a voice note transcribed to nothing and was skipped.
func (p *commandPipeline) run(ctx context.Context, relay websocketPkg.IRelayLink, cmd entity.Command) (entity.ExecutionResult, bool) {
	var audioURL string
	if cmd.NeedsTranscription() {
		audioURL = p.archiveAudio(ctx, cmd)

		text, err := p.transcribe(ctx, cmd)
		if err != nil {
			p.log.WithFields(logrus.Fields{
				"command_id": cmd.ID,
				"error":      err.Error(),
			}).Warn("Transcription failed")
			result := entity.Failure("Transcription failed: " + err.Error())
			p.replyAndLog(ctx, relay, cmd, nil, result, audioURL)
			return result, true
		}
		cmd = cmd.WithText(text)

		if cmd.IsEmpty() {
			p.skipEmpty(cmd)
			return entity.Failure("Nothing to do"), false
		}
		p.notify(func(s *entity.PipelineState) {
			s.LastCommand = cmd.RawText
		})
	}

	intent, result := p.process(ctx, cmd)
	p.replyAndLog(ctx, relay, cmd, intent, result, audioURL)
	return result, true
}

func (p *commandPipeline) skipEmpty(cmd entity.Command) {
	p.log.WithFields(logrus.Fields{
		"command_id": cmd.ID,
		"source":     cmd.Source.String(),
	}).Debug("Skipping empty command")
}

func (p *commandPipeline) process(ctx context.Context, cmd entity.Command) (*entity.Intent, entity.ExecutionResult) {
	intent, err := p.deps.Classifier.Route(ctx, cmd, p.deps.Catalog.Snapshot())
	if err != nil {
		p.log.WithFields(logrus.Fields{
			"command_id": cmd.ID,
			"error":      err.Error(),
		}).Warn("Failed to classify command")
		return nil, entity.Failure(err.Error())
	}

	if intent.Action == entity.ActionRecall {
		return &intent, p.recall(ctx, cmd, intent)
	}

	if intent.Action != entity.ActionUnknown && !p.deps.Catalog.Validate(intent) {
		p.log.WithFields(logrus.Fields{
			"command_id": cmd.ID,
			"action":     intent.Action.String(),
			"target":     intent.TargetOr(""),
		}).Info("Intent failed catalog validation")
		return &intent, entity.Failure(fmt.Sprintf("'%s' not found in available devices/shortcuts", intent.TargetOr("unknown")))
	}

	result, err := p.deps.Executor.Execute(ctx, intent)
	if err != nil {
		p.log.WithFields(logrus.Fields{
			"command_id": cmd.ID,
			"action":     intent.Action.String(),
			"error":      err.Error(),
		}).Warn("Actuator failed")
		return &intent, entity.Failure(err.Error())
	}

	return &intent, result
}

func (p *commandPipeline) recall(ctx context.Context, cmd entity.Command, intent entity.Intent) entity.ExecutionResult {
	query := intent.Parameters.Lookup("query")
	if query == "" {
		query = intent.TargetOr(cmd.RawText)
	}

	matches, err := p.deps.Memory.Search(ctx, query)
	if err != nil {
		p.log.WithFields(logrus.Fields{
			"command_id": cmd.ID,
			"error":      err.Error(),
		}).Warn("Memory search failed")
		return entity.Failure(err.Error())
	}
	if len(matches) == 0 {
		return entity.Success("I don't have any notes about that.")
	}
	if len(matches) > RecallMatches {
		matches = matches[:RecallMatches]
	}
	return entity.Success(strings.Join(matches, "\n"))
}

func (p *commandPipeline) transcribe(ctx context.Context, cmd entity.Command) (string, error) {
	t := p.deps.Transcriber
	if t == nil {
		return "", errors.New("voice notes are not supported")
	}
	if !t.Loaded() {
		if err := t.Load(ctx); err != nil {
			return "", err
		}
	}

	mimeType := cmd.AudioMimeType
	if mimeType == "" {
		mimeType = DefaultVoiceMimeType
	}
	return t.Transcribe(ctx, cmd.AudioPayload, mimeType)
}

func (p *commandPipeline) archiveAudio(ctx context.Context, cmd entity.Command) string {
	if p.deps.Archive == nil {
		return ""
	}

	mimeType := cmd.AudioMimeType
	if mimeType == "" {
		mimeType = DefaultVoiceMimeType
	}

	location, err := p.deps.Archive.UploadBytes(ctx, cmd.ID+audio.Extension(cmd.AudioPayload, mimeType), cmd.AudioPayload, mimeType)
	if err != nil {
		p.log.WithFields(logrus.Fields{
			"command_id": cmd.ID,
			"error":      err.Error(),
		}).Warn("Failed to archive voice note")
		return ""
	}
	return location
}

// replyAndLog never fails the loop; both errors are logged and dropped.
func (p *commandPipeline) replyAndLog(ctx context.Context, relay websocketPkg.IRelayLink, cmd entity.Command, intent *entity.Intent, result entity.ExecutionResult, audioURL string) {
	if cmd.From != "" {
		msg := websocketPkg.NewReplyText(cmd.From, reply.Format(result), cmd.MessageID)
		if err := relay.SendReply(ctx, msg); err != nil {
			p.log.WithFields(logrus.Fields{
				"command_id": cmd.ID,
				"to":         cmd.From,
				"error":      err.Error(),
			}).Warn("Failed to send reply")
		}
	}

	if err := p.deps.Memory.StoreCommandLog(ctx, cmd, intent, &result, audioURL); err != nil {
		p.log.WithFields(logrus.Fields{
			"command_id": cmd.ID,
			"error":      err.Error(),
		}).Warn("Failed to store command log")
	}
}

func (p *commandPipeline) monitorStatus(ctx context.Context, relay websocketPkg.IRelayLink) {
	defer p.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case status, ok := <-relay.Statuses():
			if !ok {
				return
			}
			p.notify(func(s *entity.PipelineState) {
				s.RelayConnected = status.RelayConnected
				s.WhatsappConnected = status.WhatsApp == websocketPkg.WhatsAppConnected
			})
		}
	}
}

func (p *commandPipeline) Subscribe() (<-chan entity.PipelineState, func()) {
	p.subMu.Lock()
	defer p.subMu.Unlock()

	id := p.nextSub
	p.nextSub++
	ch := make(chan entity.PipelineState, subscriberBuffer)
	p.subscribers[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			p.subMu.Lock()
			delete(p.subscribers, id)
			p.subMu.Unlock()
			close(ch)
		})
	}
}

// notify applies fn to the state and fans the snapshot out without blocking.
func (p *commandPipeline) notify(fn func(*entity.PipelineState)) {
	p.mu.Lock()
	fn(&p.state)
	snapshot := p.state
	p.mu.Unlock()

	p.subMu.Lock()
	defer p.subMu.Unlock()
	for _, ch := range p.subscribers {
		select {
		case ch <- snapshot:
		default:
		}
	}
}

func (p *commandPipeline) setLifecycle(l Lifecycle) {
	p.mu.Lock()
	p.lifecycle = l
	p.mu.Unlock()
}
