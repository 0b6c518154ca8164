package models

import "time"

// Message is one turn of a lead's conversation with the bot.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Lead is written by the external conversation bot. This service only
// appends to IntelTags.
type Lead struct {
	ID           string    `json:"id"`
	AgentID      string    `json:"agentId"`
	Name         string    `json:"name"`
	Phone        string    `json:"phone"`
	Conversation []Message `json:"conversation"`
	IntelTags    []string  `json:"intelTags"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// HasTag reports whether tag is already in the lead's tag set.
func (l *Lead) HasTag(tag string) bool {
	for _, t := range l.IntelTags {
		if t == tag {
			return true
		}
	}
	return false
}

// LeadChange is one observed update of a lead document.
type LeadChange struct {
	Before *Lead
	After  *Lead
}
