package domain

import "time"

// SessionStatus is the lifecycle state of a game session as persisted.
type SessionStatus string

const (
	SessionActive SessionStatus = "ACTIVE"
	SessionEnded  SessionStatus = "ENDED"
)

// QuestionRecord is one entry of the question bank. Answers are stored
// lowercased; a record always has at least one accepted answer.
type QuestionRecord struct {
	Text    string
	Answers []string
	Points  int
}

// GameSession is one complete run of the game from start to termination.
type GameSession struct {
	ID           int64
	Status       SessionStatus
	MaxRounds    int
	CurrentRound int
	StartedAt    time.Time
	EndedAt      time.Time
}

// SessionInfo is the round-progress view of a session.
type SessionInfo struct {
	CurrentRound int
	MaxRounds    int
	Status       SessionStatus
}

// RosterEntry is a player who joined a session.
type RosterEntry struct {
	UserID      string
	DisplayName string
	JoinedAt    time.Time
}

// PostedQuestion is a question that has been put in play for a session.
// Ref is a stable identifier minted when the question is posted.
type PostedQuestion struct {
	ID            int64
	SessionID     int64
	Ref           string
	Text          string
	Points        int
	CorrectAnswer string
	PostedAt      time.Time
	ClosesAt      time.Time
}

// SubmittedAnswer is a player's scored attempt at a posted question.
// At most one exists per (session, question, player).
type SubmittedAnswer struct {
	SessionID     int64
	QuestionID    int64
	UserID        string
	DisplayName   string
	Text          string
	PointsAwarded int
	AnsweredAt    time.Time
}

// BanEntry excludes a user from submitting answers.
type BanEntry struct {
	UserID   string
	BannedAt time.Time
	BannedBy string
	Reason   string
}

// LeaderboardEntry is one row of a session scoreboard, highest first.
type LeaderboardEntry struct {
	DisplayName string
	Points      int
}
