package service

import "github.com/xxxsen/notebookrag/internal/model"

type EventType string

const (
	EventSources EventType = "sources"
	EventText    EventType = "text"
	EventDone    EventType = "done"
	EventError   EventType = "error"
)

type ErrorKind string

const (
	ErrorKindUpstream  ErrorKind = "upstream"
	ErrorKindTimeout   ErrorKind = "timeout"
	ErrorKindCancelled ErrorKind = "cancelled"
)

// Event is one element of an answer stream. Exactly one sources event comes
// first, then text events, then a single done or error event.
type Event struct {
	Type    EventType
	Delta   string
	Sources []model.RetrievedSource
	Kind    ErrorKind
}

type State int

const (
	StateIdle State = iota
	StateContextReady
	StateStreaming
	StateCompleted
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateContextReady:
		return "context_ready"
	case StateStreaming:
		return "streaming"
	case StateCompleted:
		return "completed"
	case StateAborted:
		return "aborted"
	}
	return "unknown"
}

var allowedTransitions = map[State][]State{
	StateIdle:         {StateContextReady, StateAborted},
	StateContextReady: {StateStreaming, StateAborted},
	StateStreaming:    {StateCompleted, StateAborted},
}

func canTransition(from, to State) bool {
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
