package game

import (
	"context"

	"mesh-jeopardy-service/internal/domain"
)

// Store persists sessions, rosters, posted questions, answers and bans.
// Duplicate-prone writes (AddPlayer, RecordAnswer) report the outcome as a
// boolean instead of an error: the insert must be a single conditional
// operation in the backing store, never a read-then-write.
type Store interface {
	CreateSession(ctx context.Context, maxRounds int) (int64, error)
	EndSession(ctx context.Context, sessionID int64) error
	SessionInfo(ctx context.Context, sessionID int64) (domain.SessionInfo, error)

	// AddPlayer is idempotent per (session, user); added is false on repeats.
	AddPlayer(ctx context.Context, sessionID int64, userID, displayName string) (added bool, err error)
	ListPlayers(ctx context.Context, sessionID int64) ([]domain.RosterEntry, error)

	// RecordQuestion also advances the session's round counter.
	RecordQuestion(ctx context.Context, q domain.PostedQuestion) (questionID int64, err error)
	// RecordAnswer enforces the one-attempt-per-player-per-question
	// constraint; recorded is false when the player already answered.
	RecordAnswer(ctx context.Context, a domain.SubmittedAnswer) (recorded bool, err error)
	Leaderboard(ctx context.Context, sessionID int64, limit int) ([]domain.LeaderboardEntry, error)

	IsBanned(ctx context.Context, userID string) (bool, error)
	Ban(ctx context.Context, entry domain.BanEntry) error
	Unban(ctx context.Context, userID string) error
}

// Sender delivers outbound text. Implementations handle transport size
// limits (chunking) and pacing internally and must not block the caller;
// delivery failures are logged, not returned to game logic.
type Sender interface {
	Broadcast(ctx context.Context, text string) error
	Direct(ctx context.Context, recipientID, text string) error
}

// Commentator produces short host flavor text. Optional: the engine falls
// back to static copy when it is absent, unavailable, or failing.
type Commentator interface {
	Available() bool
	Generate(ctx context.Context, prompt, styleHint string) (string, error)
}
