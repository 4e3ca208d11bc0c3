// Package redis implements the session store on Redis. The uniqueness
// rules ride on single conditional writes (ZADD NX for rosters, HSETNX for
// answers) so concurrent submissions cannot double-score.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"mesh-jeopardy-service/internal/domain"
	"mesh-jeopardy-service/internal/game"
)

type SessionStore struct {
	client *redis.Client
	now    func() time.Time
}

var _ game.Store = (*SessionStore)(nil)

func NewSessionStore(client *redis.Client) *SessionStore {
	return &SessionStore{client: client, now: time.Now}
}

func (s *SessionStore) CreateSession(ctx context.Context, maxRounds int) (int64, error) {
	id, err := s.client.Incr(ctx, "hj:session:seq").Result()
	if err != nil {
		return 0, fmt.Errorf("allocate session id: %w", err)
	}
	err = s.client.HSet(ctx, sessionKey(id),
		"status", string(domain.SessionActive),
		"max_rounds", maxRounds,
		"current_round", 0,
		"started_at", s.now().Format(time.RFC3339),
	).Err()
	if err != nil {
		return 0, fmt.Errorf("create session: %w", err)
	}
	return id, nil
}

func (s *SessionStore) EndSession(ctx context.Context, sessionID int64) error {
	exists, err := s.client.Exists(ctx, sessionKey(sessionID)).Result()
	if err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	if exists == 0 {
		return domain.ErrSessionNotFound
	}
	err = s.client.HSet(ctx, sessionKey(sessionID),
		"status", string(domain.SessionEnded),
		"ended_at", s.now().Format(time.RFC3339),
	).Err()
	if err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	return nil
}

func (s *SessionStore) SessionInfo(ctx context.Context, sessionID int64) (domain.SessionInfo, error) {
	fields, err := s.client.HGetAll(ctx, sessionKey(sessionID)).Result()
	if err != nil {
		return domain.SessionInfo{}, fmt.Errorf("session info: %w", err)
	}
	if len(fields) == 0 {
		return domain.SessionInfo{}, domain.ErrSessionNotFound
	}
	current, _ := strconv.Atoi(fields["current_round"])
	max, _ := strconv.Atoi(fields["max_rounds"])
	return domain.SessionInfo{
		CurrentRound: current,
		MaxRounds:    max,
		Status:       domain.SessionStatus(fields["status"]),
	}, nil
}

func (s *SessionStore) AddPlayer(ctx context.Context, sessionID int64, userID, displayName string) (bool, error) {
	added, err := s.client.ZAddNX(ctx, rosterKey(sessionID), redis.Z{
		Score:  float64(s.now().UnixNano()),
		Member: userID,
	}).Result()
	if err != nil {
		return false, fmt.Errorf("add player: %w", err)
	}
	if added == 0 {
		return false, nil
	}
	if err := s.client.HSet(ctx, namesKey(sessionID), userID, displayName).Err(); err != nil {
		return true, fmt.Errorf("store player name: %w", err)
	}
	return true, nil
}

func (s *SessionStore) ListPlayers(ctx context.Context, sessionID int64) ([]domain.RosterEntry, error) {
	members, err := s.client.ZRangeWithScores(ctx, rosterKey(sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	names, err := s.client.HGetAll(ctx, namesKey(sessionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("list player names: %w", err)
	}

	entries := make([]domain.RosterEntry, 0, len(members))
	for _, member := range members {
		userID, _ := member.Member.(string)
		name := names[userID]
		if name == "" {
			name = userID
		}
		entries = append(entries, domain.RosterEntry{
			UserID:      userID,
			DisplayName: name,
			JoinedAt:    time.Unix(0, int64(member.Score)),
		})
	}
	return entries, nil
}

func (s *SessionStore) RecordQuestion(ctx context.Context, q domain.PostedQuestion) (int64, error) {
	id, err := s.client.Incr(ctx, "hj:question:seq").Result()
	if err != nil {
		return 0, fmt.Errorf("allocate question id: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, questionKey(id),
		"session_id", q.SessionID,
		"ref", q.Ref,
		"text", q.Text,
		"points", q.Points,
		"correct_answer", q.CorrectAnswer,
		"posted_at", q.PostedAt.Format(time.RFC3339),
		"closes_at", q.ClosesAt.Format(time.RFC3339),
	)
	pipe.HIncrBy(ctx, sessionKey(q.SessionID), "current_round", 1)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("record question: %w", err)
	}
	return id, nil
}

type answerPayload struct {
	DisplayName   string    `json:"displayName"`
	Text          string    `json:"text"`
	PointsAwarded int       `json:"pointsAwarded"`
	AnsweredAt    time.Time `json:"answeredAt"`
}

func (s *SessionStore) RecordAnswer(ctx context.Context, a domain.SubmittedAnswer) (bool, error) {
	payload, err := json.Marshal(answerPayload{
		DisplayName:   a.DisplayName,
		Text:          a.Text,
		PointsAwarded: a.PointsAwarded,
		AnsweredAt:    a.AnsweredAt,
	})
	if err != nil {
		return false, fmt.Errorf("encode answer: %w", err)
	}

	// The whole anti-cheat rule is this one conditional write.
	recorded, err := s.client.HSetNX(ctx, answersKey(a.SessionID, a.QuestionID), a.UserID, payload).Result()
	if err != nil {
		return false, fmt.Errorf("record answer: %w", err)
	}
	if !recorded {
		return false, nil
	}

	pipe := s.client.TxPipeline()
	pipe.ZIncrBy(ctx, scoresKey(a.SessionID), float64(a.PointsAwarded), a.UserID)
	pipe.HSet(ctx, namesKey(a.SessionID), a.UserID, a.DisplayName)
	if _, err := pipe.Exec(ctx); err != nil {
		return true, fmt.Errorf("apply answer score: %w", err)
	}
	return true, nil
}

func (s *SessionStore) Leaderboard(ctx context.Context, sessionID int64, limit int) ([]domain.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	scores, err := s.client.ZRevRangeWithScores(ctx, scoresKey(sessionID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}
	names, err := s.client.HGetAll(ctx, namesKey(sessionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("leaderboard names: %w", err)
	}

	entries := make([]domain.LeaderboardEntry, 0, len(scores))
	for _, z := range scores {
		userID, _ := z.Member.(string)
		name := names[userID]
		if name == "" {
			name = userID
		}
		entries = append(entries, domain.LeaderboardEntry{
			DisplayName: name,
			Points:      int(z.Score),
		})
	}
	return entries, nil
}

func (s *SessionStore) IsBanned(ctx context.Context, userID string) (bool, error) {
	banned, err := s.client.HExists(ctx, "hj:banned", userID).Result()
	if err != nil {
		return false, fmt.Errorf("ban check: %w", err)
	}
	return banned, nil
}

func (s *SessionStore) Ban(ctx context.Context, entry domain.BanEntry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode ban: %w", err)
	}
	if err := s.client.HSet(ctx, "hj:banned", entry.UserID, payload).Err(); err != nil {
		return fmt.Errorf("ban: %w", err)
	}
	return nil
}

func (s *SessionStore) Unban(ctx context.Context, userID string) error {
	if err := s.client.HDel(ctx, "hj:banned", userID).Err(); err != nil {
		return fmt.Errorf("unban: %w", err)
	}
	return nil
}

func sessionKey(id int64) string {
	return fmt.Sprintf("hj:session:%d", id)
}

func rosterKey(id int64) string {
	return fmt.Sprintf("hj:session:%d:roster", id)
}

func namesKey(id int64) string {
	return fmt.Sprintf("hj:session:%d:names", id)
}

func scoresKey(id int64) string {
	return fmt.Sprintf("hj:session:%d:scores", id)
}

func questionKey(id int64) string {
	return fmt.Sprintf("hj:question:%d", id)
}

func answersKey(sessionID, questionID int64) string {
	return fmt.Sprintf("hj:session:%d:answers:%d", sessionID, questionID)
}
