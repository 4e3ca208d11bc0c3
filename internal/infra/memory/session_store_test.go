package memory

import (
	"context"
	"testing"
	"time"

	"mesh-jeopardy-service/internal/domain"
)

func TestSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore()

	id, err := store.CreateSession(ctx, 5)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	info, err := store.SessionInfo(ctx, id)
	if err != nil {
		t.Fatalf("session info: %v", err)
	}
	if info.Status != domain.SessionActive || info.MaxRounds != 5 || info.CurrentRound != 0 {
		t.Fatalf("unexpected info %+v", info)
	}

	if _, err := store.RecordQuestion(ctx, domain.PostedQuestion{SessionID: id}); err != nil {
		t.Fatalf("record question: %v", err)
	}
	info, _ = store.SessionInfo(ctx, id)
	if info.CurrentRound != 1 {
		t.Fatalf("expected round incremented, got %d", info.CurrentRound)
	}

	if err := store.EndSession(ctx, id); err != nil {
		t.Fatalf("end session: %v", err)
	}
	info, _ = store.SessionInfo(ctx, id)
	if info.Status != domain.SessionEnded {
		t.Fatalf("expected ended, got %s", info.Status)
	}

	if _, err := store.SessionInfo(ctx, id+99); err != domain.ErrSessionNotFound {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestAddPlayerIdempotent(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore()
	id, _ := store.CreateSession(ctx, 5)

	added, err := store.AddPlayer(ctx, id, "!aa11", "Alice")
	if err != nil || !added {
		t.Fatalf("first join: added=%v err=%v", added, err)
	}
	added, err = store.AddPlayer(ctx, id, "!aa11", "Alice")
	if err != nil || added {
		t.Fatalf("repeat join: added=%v err=%v", added, err)
	}

	players, err := store.ListPlayers(ctx, id)
	if err != nil {
		t.Fatalf("list players: %v", err)
	}
	if len(players) != 1 {
		t.Fatalf("expected roster size 1, got %d", len(players))
	}
}

func TestRecordAnswerUniquePerPlayer(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore()
	id, _ := store.CreateSession(ctx, 5)
	qid, _ := store.RecordQuestion(ctx, domain.PostedQuestion{SessionID: id, Points: 100})

	answer := domain.SubmittedAnswer{
		SessionID: id, QuestionID: qid,
		UserID: "!aa11", DisplayName: "Alice",
		Text: "22", PointsAwarded: 100, AnsweredAt: time.Now(),
	}
	recorded, err := store.RecordAnswer(ctx, answer)
	if err != nil || !recorded {
		t.Fatalf("first answer: recorded=%v err=%v", recorded, err)
	}
	recorded, err = store.RecordAnswer(ctx, answer)
	if err != nil || recorded {
		t.Fatalf("duplicate answer: recorded=%v err=%v", recorded, err)
	}

	// A different player may still score the same question.
	other := answer
	other.UserID = "!bb22"
	other.DisplayName = "Bob"
	recorded, err = store.RecordAnswer(ctx, other)
	if err != nil || !recorded {
		t.Fatalf("second player answer: recorded=%v err=%v", recorded, err)
	}

	entries, err := store.Leaderboard(ctx, id, 10)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(entries) != 2 || entries[0].Points != 100 || entries[1].Points != 100 {
		t.Fatalf("unexpected leaderboard %+v", entries)
	}
}

func TestLeaderboardSignedTotalsAndLimit(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore()
	id, _ := store.CreateSession(ctx, 5)
	q1, _ := store.RecordQuestion(ctx, domain.PostedQuestion{SessionID: id})
	q2, _ := store.RecordQuestion(ctx, domain.PostedQuestion{SessionID: id})

	_, _ = store.RecordAnswer(ctx, domain.SubmittedAnswer{SessionID: id, QuestionID: q1, UserID: "u1", DisplayName: "Alice", PointsAwarded: 100})
	_, _ = store.RecordAnswer(ctx, domain.SubmittedAnswer{SessionID: id, QuestionID: q2, UserID: "u1", DisplayName: "Alice", PointsAwarded: -200})
	_, _ = store.RecordAnswer(ctx, domain.SubmittedAnswer{SessionID: id, QuestionID: q1, UserID: "u2", DisplayName: "Bob", PointsAwarded: 100})

	entries, err := store.Leaderboard(ctx, id, 1)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(entries) != 1 || entries[0].DisplayName != "Bob" || entries[0].Points != 100 {
		t.Fatalf("expected Bob leading with 100, got %+v", entries)
	}
}

func TestBanRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore()

	banned, _ := store.IsBanned(ctx, "!cc33")
	if banned {
		t.Fatalf("expected not banned initially")
	}
	if err := store.Ban(ctx, domain.BanEntry{UserID: "!cc33", BannedBy: "!admin", Reason: "spam"}); err != nil {
		t.Fatalf("ban: %v", err)
	}
	if banned, _ := store.IsBanned(ctx, "!cc33"); !banned {
		t.Fatalf("expected banned")
	}
	if err := store.Unban(ctx, "!cc33"); err != nil {
		t.Fatalf("unban: %v", err)
	}
	if banned, _ := store.IsBanned(ctx, "!cc33"); banned {
		t.Fatalf("expected unbanned")
	}
}
