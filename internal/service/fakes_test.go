package service

import (
	"context"
	"errors"
	"sync"

	"github.com/xxxsen/notebookrag/internal/access"
	"github.com/xxxsen/notebookrag/internal/ai"
	"github.com/xxxsen/notebookrag/internal/model"
)

type stubEmbedder struct {
	vec []float32
	err error
	// block waits for ctx to finish
	block bool
}

func (s *stubEmbedder) Embed(ctx context.Context, text, taskType string) ([]float32, error) {
	if s.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.vec, nil
}

func (s *stubEmbedder) ModelName() string { return "stub" }

type stubRetriever struct {
	sources []model.RetrievedSource
	err     error
	owner   string
}

func (s *stubRetriever) Retrieve(ctx context.Context, query []float32, ownerID, collectionID string, k int, threshold float64) ([]model.RetrievedSource, error) {
	s.owner = ownerID
	return s.sources, s.err
}

type stubStreamer struct {
	deltas []string
	err    error
	// block waits for ctx to finish after emitting deltas
	block  bool
	system string
	msgs   []model.ChatMessage
}

func (s *stubStreamer) Stream(ctx context.Context, system string, msgs []model.ChatMessage, onDelta ai.DeltaFunc) error {
	s.system = system
	s.msgs = msgs
	for _, d := range s.deltas {
		if err := onDelta(d); err != nil {
			return err
		}
	}
	if s.block {
		<-ctx.Done()
		return ctx.Err()
	}
	return s.err
}

func (s *stubStreamer) ModelName() string { return "stub" }

type memMessages struct {
	mu   sync.Mutex
	msgs []*model.Message
	err  error
}

func (m *memMessages) AppendExchange(ctx context.Context, msgs []*model.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.msgs = append(m.msgs, msgs...)
	return nil
}

func (m *memMessages) ListByCollection(ctx context.Context, collectionID, ownerID string, limit, offset uint) ([]model.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Message{}
	for _, msg := range m.msgs {
		if msg.CollectionID == collectionID && msg.OwnerID == ownerID {
			out = append(out, *msg)
		}
	}
	return out, nil
}

func (m *memMessages) all() []*model.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*model.Message(nil), m.msgs...)
}

type memAudits struct {
	mu    sync.Mutex
	items []*model.ChatAudit
}

func (m *memAudits) Record(ctx context.Context, item *model.ChatAudit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = append(m.items, item)
	return nil
}

var errBoom = errors.New("boom")

func ownerPolicy(degrade bool) Policy {
	return Policy{
		Name: "owner",
		Resolve: func(ctx context.Context) (*access.Scope, error) {
			return &access.Scope{OwnerID: "u1", CollectionID: "c1", ActorID: "u1"}, nil
		},
		TopK:                  5,
		Threshold:             0.5,
		DegradeOnEmbedFailure: degrade,
	}
}

func sharePolicy() Policy {
	return Policy{
		Name: "share",
		Resolve: func(ctx context.Context) (*access.Scope, error) {
			return &access.Scope{OwnerID: "owner", CollectionID: "c1", ActorID: "owner", Anonymous: true, ShareID: "s1", ClientHash: "hash"}, nil
		},
		TopK:      8,
		Threshold: 0.3,
	}
}

func drain(events <-chan Event) []Event {
	var out []Event
	for ev := range events {
		out = append(out, ev)
	}
	return out
}

func ownerScope() *access.Scope {
	return &access.Scope{OwnerID: "u1", CollectionID: "c1", ActorID: "u1"}
}
