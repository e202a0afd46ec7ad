package models

type SessionStatusChangedEvent struct {
	SessionID string `json:"session_id"`
	From      string `json:"from"`
	To        string `json:"to"`
	ActorID   string `json:"actor_id"`
	Timestamp int64  `json:"timestamp"`
}

type EvaluationCompletedEvent struct {
	EvaluationID string `json:"evaluation_id"`
	SessionID    string `json:"session_id"`
	StudentID    string `json:"student_id"`
	JuryID       string `json:"jury_id"`
	TotalScore   int    `json:"total_score"`
	MaxScore     int    `json:"max_score"`
	Percentage   int    `json:"percentage"`
	Timestamp    int64  `json:"timestamp"`
}
