package models

// Message is one chat message, ordered by the server by created_at
type Message struct {
	MessageID      int64  `json:"message_id"`
	ConversationID int64  `json:"conversation_id"`
	SenderID       int64  `json:"sender_id"`
	Content        string `json:"content"`
	CreatedAt      string `json:"created_at,omitempty"`
	Read           bool   `json:"read,omitempty"`
}

// UserSummary is the public part of another user's profile
type UserSummary struct {
	UserID int64  `json:"user_id"`
	Name   string `json:"name"`
	Email  string `json:"email,omitempty"`
}

// LastMessage previews the latest message of a conversation
type LastMessage struct {
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
}

// Conversation is a two-party chat
type Conversation struct {
	ConversationID int64        `json:"conversation_id"`
	User1ID        int64        `json:"user1_id"`
	User2ID        int64        `json:"user2_id"`
	CreatedAt      string       `json:"created_at,omitempty"`
	OtherUser      UserSummary  `json:"other_user"`
	LastMessage    *LastMessage `json:"last_message"`
}

// CompanionQuery asks the matching service for travel companions
type CompanionQuery struct {
	Destination string         `json:"destination"`
	StartDate   string         `json:"start_date,omitempty"`
	EndDate     string         `json:"end_date,omitempty"`
	Preferences map[string]any `json:"preferences,omitempty"`
}

// CompanionMatch is a suggested companion
type CompanionMatch struct {
	UserID             int64    `json:"user_id"`
	Name               string   `json:"name"`
	Email              string   `json:"email,omitempty"`
	CompatibilityScore float64  `json:"compatibility_score"`
	SharedInterests    []string `json:"shared_interests,omitempty"`
	Reasoning          string   `json:"reasoning,omitempty"`
	DestinationOverlap bool     `json:"destination_overlap"`
	DateOverlap        bool     `json:"date_overlap"`
}
