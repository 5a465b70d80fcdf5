package model

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is one turn of the conversation sent by the caller.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Message is a persisted entry of a collection's message log.
type Message struct {
	ID           string            `json:"id"`
	CollectionID string            `json:"collection_id"`
	OwnerID      string            `json:"owner_id"`
	Role         string            `json:"role"`
	Content      string            `json:"content"`
	Sources      []RetrievedSource `json:"sources"`
	Ctime        int64             `json:"created_at"`
}
