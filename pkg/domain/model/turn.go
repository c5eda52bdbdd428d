package model

// ConversationTurn is one committed question/answer exchange within a
// session. A turn is created only after a generation stream completes in
// full; partial answers are never committed.
type ConversationTurn struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}
