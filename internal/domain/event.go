package domain

// EventType represents the kind of inbound chat event
type EventType string

const (
	EventTypeText   EventType = "text"
	EventTypeAction EventType = "action"
)

// Event represents one inbound chat update
type Event struct {
	ID     int64
	Type   EventType
	ChatID int64

	// Text is set for EventTypeText
	Text string

	// ActionID and Token are set for EventTypeAction. ActionID identifies the
	// selection itself so it can be acknowledged.
	ActionID string
	Token    string
}

// Action is one selectable button on an interactive prompt
type Action struct {
	Label string
	Token string
}
