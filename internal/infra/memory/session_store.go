// Package memory holds in-process store implementations used by tests and
// redis-less deployments.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"mesh-jeopardy-service/internal/domain"
	"mesh-jeopardy-service/internal/game"
)

// SessionStore is an in-memory implementation of game.Store. All writes
// happen under one lock, so the duplicate checks are single conditional
// inserts from the caller's point of view.
type SessionStore struct {
	now func() time.Time

	mu           sync.Mutex
	nextSession  int64
	nextQuestion int64
	sessions     map[int64]*domain.GameSession
	rosters      map[int64][]domain.RosterEntry
	questions    map[int64]domain.PostedQuestion
	answers      map[string]domain.SubmittedAnswer
	banned       map[string]domain.BanEntry
}

var _ game.Store = (*SessionStore)(nil)

func NewSessionStore() *SessionStore {
	return NewSessionStoreWithClock(time.Now)
}

// NewSessionStoreWithClock allows deterministic timestamps in tests.
func NewSessionStoreWithClock(now func() time.Time) *SessionStore {
	return &SessionStore{
		now:       now,
		sessions:  make(map[int64]*domain.GameSession),
		rosters:   make(map[int64][]domain.RosterEntry),
		questions: make(map[int64]domain.PostedQuestion),
		answers:   make(map[string]domain.SubmittedAnswer),
		banned:    make(map[string]domain.BanEntry),
	}
}

func (s *SessionStore) CreateSession(_ context.Context, maxRounds int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextSession++
	id := s.nextSession
	s.sessions[id] = &domain.GameSession{
		ID:        id,
		Status:    domain.SessionActive,
		MaxRounds: maxRounds,
		StartedAt: s.now(),
	}
	return id, nil
}

func (s *SessionStore) EndSession(_ context.Context, sessionID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return domain.ErrSessionNotFound
	}
	session.Status = domain.SessionEnded
	session.EndedAt = s.now()
	return nil
}

func (s *SessionStore) SessionInfo(_ context.Context, sessionID int64) (domain.SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return domain.SessionInfo{}, domain.ErrSessionNotFound
	}
	return domain.SessionInfo{
		CurrentRound: session.CurrentRound,
		MaxRounds:    session.MaxRounds,
		Status:       session.Status,
	}, nil
}

func (s *SessionStore) AddPlayer(_ context.Context, sessionID int64, userID, displayName string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[sessionID]; !ok {
		return false, domain.ErrSessionNotFound
	}
	for _, entry := range s.rosters[sessionID] {
		if entry.UserID == userID {
			return false, nil
		}
	}
	s.rosters[sessionID] = append(s.rosters[sessionID], domain.RosterEntry{
		UserID:      userID,
		DisplayName: displayName,
		JoinedAt:    s.now(),
	})
	return true, nil
}

func (s *SessionStore) ListPlayers(_ context.Context, sessionID int64) ([]domain.RosterEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	roster := s.rosters[sessionID]
	out := make([]domain.RosterEntry, len(roster))
	copy(out, roster)
	return out, nil
}

func (s *SessionStore) RecordQuestion(_ context.Context, q domain.PostedQuestion) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[q.SessionID]
	if !ok {
		return 0, domain.ErrSessionNotFound
	}

	s.nextQuestion++
	q.ID = s.nextQuestion
	s.questions[q.ID] = q
	session.CurrentRound++
	return q.ID, nil
}

func (s *SessionStore) RecordAnswer(_ context.Context, a domain.SubmittedAnswer) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.questions[a.QuestionID]; !ok {
		return false, domain.ErrQuestionNotFound
	}
	key := answerKey(a.SessionID, a.QuestionID, a.UserID)
	if _, ok := s.answers[key]; ok {
		return false, nil
	}
	s.answers[key] = a
	return true, nil
}

func (s *SessionStore) Leaderboard(_ context.Context, sessionID int64, limit int) ([]domain.LeaderboardEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	totals := make(map[string]int)
	names := make(map[string]string)
	for _, a := range s.answers {
		if a.SessionID != sessionID {
			continue
		}
		totals[a.UserID] += a.PointsAwarded
		names[a.UserID] = a.DisplayName
	}

	entries := make([]domain.LeaderboardEntry, 0, len(totals))
	for userID, points := range totals {
		entries = append(entries, domain.LeaderboardEntry{
			DisplayName: names[userID],
			Points:      points,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Points != entries[j].Points {
			return entries[i].Points > entries[j].Points
		}
		return entries[i].DisplayName < entries[j].DisplayName
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (s *SessionStore) IsBanned(_ context.Context, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.banned[userID]
	return ok, nil
}

func (s *SessionStore) Ban(_ context.Context, entry domain.BanEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.banned[entry.UserID] = entry
	return nil
}

func (s *SessionStore) Unban(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.banned, userID)
	return nil
}

func answerKey(sessionID, questionID int64, userID string) string {
	return fmt.Sprintf("%d:%d:%s", sessionID, questionID, userID)
}
