package domain

// Role identifies who authored a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is one entry in a session's append-only log. Messages are
// immutable once appended; ordering is insertion order.
type Message struct {
	Role Role              `json:"role"`
	Text string            `json:"text"`
	Turn int               `json:"turn"`
	Meta map[string]string `json:"meta,omitempty"`
}

// AgentResult records one delegated action's outcome during a turn's
// decision loop. Results are never mutated once appended.
type AgentResult struct {
	AgentID   string            `json:"agent_id"`
	Result    string            `json:"result_text"`
	Success   bool              `json:"success"`
	Reasoning string            `json:"reasoning,omitempty"`
	Meta      map[string]string `json:"metadata,omitempty"`
}
