package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/notebookrag/internal/access"
	"github.com/xxxsen/notebookrag/internal/ai"
	"github.com/xxxsen/notebookrag/internal/model"
	appErr "github.com/xxxsen/notebookrag/internal/pkg/errors"
	"github.com/xxxsen/notebookrag/internal/rag"
)

const eventBuffer = 16

// Policy is what differs between the owner and the share chat paths.
type Policy struct {
	Name                  string
	Resolve               func(ctx context.Context) (*access.Scope, error)
	TopK                  int
	Threshold             float64
	DegradeOnEmbedFailure bool
}

// ChatServiceConfig bounds one answer. Timeout covers the whole pipeline;
// ProviderTimeout bounds each embedding or generation call inside it.
type ChatServiceConfig struct {
	Timeout         time.Duration
	ProviderTimeout time.Duration
	MaxHistory      int
}

type ChatService struct {
	embedder  ai.IEmbedder
	retriever rag.Retriever
	streamer  ai.IStreamer
	persister *ExchangePersister
	cfg       ChatServiceConfig
	now       func() time.Time
}

func NewChatService(embedder ai.IEmbedder, retriever rag.Retriever, streamer ai.IStreamer, persister *ExchangePersister, cfg ChatServiceConfig) *ChatService {
	return &ChatService{
		embedder:  embedder,
		retriever: retriever,
		streamer:  streamer,
		persister: persister,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Answer resolves the caller, gathers context and starts the answer stream.
// Errors returned here happen before any event is produced; failures after
// that arrive as an error event. The channel is closed after the final event.
func (s *ChatService) Answer(ctx context.Context, policy Policy, msgs []model.ChatMessage) (<-chan Event, error) {
	scope, err := policy.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	if err := ValidateMessages(msgs); err != nil {
		return nil, err
	}
	askedAt := s.now()
	question := msgs[len(msgs)-1].Content
	logger := logutil.GetLogger(ctx).With(
		zap.String("policy", policy.Name),
		zap.String("collection_id", scope.CollectionID),
	)

	runCtx := ctx
	cancel := context.CancelFunc(func() {})
	if s.cfg.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
	}
	run := &answerRun{state: StateIdle}

	sources, err := s.gatherSources(runCtx, scope, policy, question)
	if err != nil {
		cancel()
		run.to(StateAborted)
		logger.Error("gather sources failed", zap.Error(err))
		return nil, err
	}
	contextBlock, _ := rag.Assemble(sources)
	run.to(StateContextReady)
	logger.Debug("context ready", zap.Int("sources", len(sources)))

	events := make(chan Event, eventBuffer)
	go func() {
		defer close(events)
		defer cancel()
		s.stream(ctx, runCtx, run, scope, askedAt, question, contextBlock, sources, msgs, events)
	}()
	return events, nil
}

func (s *ChatService) gatherSources(ctx context.Context, scope *access.Scope, policy Policy, question string) ([]model.RetrievedSource, error) {
	logger := logutil.GetLogger(ctx)
	callCtx, cancel := s.providerCall(ctx)
	vec, err := s.embedder.Embed(callCtx, question, ai.TaskTypeRetrievalQuery)
	err = providerError(ctx, callCtx, err)
	cancel()
	if err == nil {
		var found []model.RetrievedSource
		found, err = s.retriever.Retrieve(ctx, vec, scope.OwnerID, scope.CollectionID, policy.TopK, policy.Threshold)
		if err == nil {
			return rag.Dedupe(found), nil
		}
	}
	if ctxErr := contextError(ctx); ctxErr != nil {
		return nil, ctxErr
	}
	if !policy.DegradeOnEmbedFailure {
		return nil, fmt.Errorf("%w: %v", appErr.ErrUpstream, err)
	}
	logger.Warn("retrieval failed, answering without context", zap.String("policy", policy.Name), zap.Error(err))
	return []model.RetrievedSource{}, nil
}

func (s *ChatService) stream(parent, ctx context.Context, run *answerRun, scope *access.Scope, askedAt time.Time,
	question, contextBlock string, sources []model.RetrievedSource, msgs []model.ChatMessage, events chan<- Event) {
	logger := logutil.GetLogger(parent).With(zap.String("collection_id", scope.CollectionID))
	defer func() {
		logger.Debug("answer finished", zap.String("state", run.current().String()))
	}()

	if err := send(ctx, events, Event{Type: EventSources, Sources: sources}); err != nil {
		run.to(StateAborted)
		s.fail(parent, events, err)
		return
	}
	run.to(StateStreaming)

	var answer strings.Builder
	history := rag.TrimHistory(msgs, s.cfg.MaxHistory)
	callCtx, cancel := s.providerCall(ctx)
	err := s.streamer.Stream(callCtx, rag.SystemInstruction(contextBlock), history, func(delta string) error {
		answer.WriteString(delta)
		return send(ctx, events, Event{Type: EventText, Delta: delta})
	})
	err = providerError(ctx, callCtx, err)
	cancel()
	if err == nil {
		err = contextError(ctx)
	}
	if err != nil {
		run.to(StateAborted)
		logger.Warn("answer stream aborted", zap.Error(err), zap.Int("partial_len", answer.Len()))
		s.fail(parent, events, err)
		return
	}
	run.to(StateCompleted)

	text := answer.String()
	if bad := rag.InvalidCitations(text, len(sources)); len(bad) > 0 {
		logger.Warn("answer cites unknown sources", zap.Ints("citations", bad), zap.Int("sources", len(sources)))
	}
	if s.persister != nil {
		s.persister.PersistAsync(parent, &Exchange{
			Scope:    scope,
			Question: question,
			Answer:   text,
			Sources:  sources,
			AskedAt:  askedAt,
		})
	}
	_ = send(parent, events, Event{Type: EventDone})
}

// fail emits the error event unless the caller is gone.
func (s *ChatService) fail(parent context.Context, events chan<- Event, err error) {
	kind := ErrorKindUpstream
	switch {
	case errors.Is(err, appErr.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		kind = ErrorKindTimeout
	case errors.Is(err, context.Canceled):
		kind = ErrorKindCancelled
	}
	if parent.Err() != nil {
		return
	}
	_ = send(parent, events, Event{Type: EventError, Kind: kind})
}

func send(ctx context.Context, events chan<- Event, ev Event) error {
	select {
	case events <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *ChatService) providerCall(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.ProviderTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.cfg.ProviderTimeout)
}

// providerError reports a call that ran past its own deadline, while the
// pipeline still had time, as a timeout.
func providerError(ctx, callCtx context.Context, err error) error {
	if err == nil || ctx.Err() != nil {
		return err
	}
	if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("provider call: %w", appErr.ErrTimeout)
	}
	return err
}

// contextError maps a finished context to the pipeline error taxonomy.
func contextError(ctx context.Context) error {
	switch ctx.Err() {
	case nil:
		return nil
	case context.DeadlineExceeded:
		return fmt.Errorf("answer pipeline: %w", appErr.ErrTimeout)
	default:
		return ctx.Err()
	}
}

type answerRun struct {
	mu    sync.Mutex
	state State
}

func (r *answerRun) to(next State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !canTransition(r.state, next) {
		panic(fmt.Sprintf("invalid answer state transition %s -> %s", r.state, next))
	}
	r.state = next
}

func (r *answerRun) current() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}
