// Package game implements the live Hacker Jeopardy session engine: the
// round state machine, answer-window timers, scoring and ban enforcement.
package game

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"mesh-jeopardy-service/internal/bank"
	"mesh-jeopardy-service/internal/domain"
)

// State is the engine's position in the round loop.
type State string

const (
	StateIdle       State = "IDLE"
	StateActive     State = "ACTIVE"
	StateCollecting State = "COLLECTING_ANSWERS"
)

// Config carries the tunables of a game. Zero fields get defaults.
type Config struct {
	// AdminIDs are the cleaned (no leading "!") IDs allowed to run admin
	// commands.
	AdminIDs              []string
	MaxRounds             int
	AnswerWindow          time.Duration
	BreakBetweenQuestions time.Duration
	// JoinDelay is the window between game start and the first question.
	JoinDelay        time.Duration
	LeaderboardLimit int
}

func (c Config) withDefaults() Config {
	if c.MaxRounds <= 0 {
		c.MaxRounds = 10
	}
	if c.AnswerWindow <= 0 {
		c.AnswerWindow = 2 * time.Minute
	}
	if c.BreakBetweenQuestions <= 0 {
		c.BreakBetweenQuestions = time.Minute
	}
	if c.JoinDelay <= 0 {
		c.JoinDelay = 30 * time.Second
	}
	if c.LeaderboardLimit <= 0 {
		c.LeaderboardLimit = 5
	}
	return c
}

// Engine owns all mutable session state. Inbound messages and timer firings
// are serialized through one mutex so that a closing timer and a concurrent
// admin command cannot both act on the same question.
type Engine struct {
	cfg    Config
	store  Store
	bank   *bank.Bank
	sender Sender
	host   Commentator
	now    func() time.Time

	mu         sync.Mutex
	state      State
	sessionID  int64
	used       map[int]struct{}
	current    *openQuestion
	postTimer  *time.Timer
	closeTimer *time.Timer
}

type openQuestion struct {
	id       int64
	record   domain.QuestionRecord
	round    int
	closesAt time.Time
}

// NewEngine builds an engine. host may be nil; the engine then uses static
// host copy.
func NewEngine(cfg Config, store Store, questionBank *bank.Bank, sender Sender, host Commentator) *Engine {
	return NewEngineWithClock(cfg, store, questionBank, sender, host, time.Now)
}

// NewEngineWithClock allows deterministic timestamps in tests.
func NewEngineWithClock(cfg Config, store Store, questionBank *bank.Bank, sender Sender, host Commentator, now func() time.Time) *Engine {
	return &Engine{
		cfg:    cfg.withDefaults(),
		store:  store,
		bank:   questionBank,
		sender: sender,
		host:   host,
		now:    now,
		state:  StateIdle,
		used:   make(map[int]struct{}),
	}
}

// State reports the engine's current position in the round loop.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Shutdown cancels any pending round timers. It does not end the persisted
// session; that is an operator decision via the stop command.
func (e *Engine) Shutdown() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopTimersLocked()
}

func (e *Engine) isAdmin(userID string) bool {
	cleaned := strings.TrimPrefix(userID, "!")
	for _, admin := range e.cfg.AdminIDs {
		if cleaned == strings.TrimPrefix(admin, "!") {
			return true
		}
	}
	return false
}

func (e *Engine) stopTimersLocked() {
	if e.postTimer != nil {
		e.postTimer.Stop()
		e.postTimer = nil
	}
	if e.closeTimer != nil {
		e.closeTimer.Stop()
		e.closeTimer = nil
	}
}

func (e *Engine) schedulePostLocked(delay time.Duration) {
	if e.postTimer != nil {
		e.postTimer.Stop()
	}
	e.postTimer = time.AfterFunc(delay, func() {
		e.postQuestion(context.Background())
	})
}

func (e *Engine) scheduleCloseLocked(delay time.Duration) {
	if e.closeTimer != nil {
		e.closeTimer.Stop()
	}
	e.closeTimer = time.AfterFunc(delay, func() {
		e.closeQuestion(context.Background())
	})
}

// broadcast hands text to the sender, which chunks and paces off the
// engine's lock. Failures are logged, never propagated into game state.
func (e *Engine) broadcast(text string) {
	if err := e.sender.Broadcast(context.Background(), text); err != nil {
		log.Printf("channel broadcast failed: %v", err)
	}
}

// postQuestion fires from the post timer. A stale firing after stop or skip
// is a no-op thanks to the state guard; timer cancellation alone can race.
func (e *Engine) postQuestion(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == StateIdle {
		return
	}

	info, err := e.store.SessionInfo(ctx, e.sessionID)
	if err != nil {
		log.Printf("session info for #%d: %v", e.sessionID, err)
		e.schedulePostLocked(e.cfg.BreakBetweenQuestions)
		return
	}
	if info.CurrentRound >= info.MaxRounds {
		e.broadcast("🏁 Final round complete!")
		e.finishLocked(ctx)
		return
	}

	record, idx, ok := e.bank.Pick(e.used)
	if !ok {
		e.broadcast("📚 Out of questions!")
		e.finishLocked(ctx)
		return
	}
	e.used[idx] = struct{}{}

	now := e.now()
	closesAt := now.Add(e.cfg.AnswerWindow)
	questionID, err := e.store.RecordQuestion(ctx, domain.PostedQuestion{
		SessionID:     e.sessionID,
		Ref:           uuid.New().String(),
		Text:          record.Text,
		Points:        record.Points,
		CorrectAnswer: record.Answers[0],
		PostedAt:      now,
		ClosesAt:      closesAt,
	})
	if err != nil {
		log.Printf("record question for #%d: %v", e.sessionID, err)
		delete(e.used, idx)
		e.schedulePostLocked(e.cfg.BreakBetweenQuestions)
		return
	}

	round := info.CurrentRound + 1
	e.current = &openQuestion{
		id:       questionID,
		record:   record,
		round:    round,
		closesAt: closesAt,
	}
	e.state = StateCollecting

	e.broadcast(questionAnnouncement(round, info.MaxRounds, record, e.cfg.AnswerWindow))
	go e.directQuestionToRoster(e.sessionID, round, info.MaxRounds, record)

	e.scheduleCloseLocked(e.cfg.AnswerWindow)
}

// closeQuestion fires from the close timer; re-checks state so that a race
// with an admin skip or stop reveals the answer at most once.
func (e *Engine) closeQuestion(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateCollecting {
		return
	}
	e.closeLocked(ctx)
}

func (e *Engine) closeLocked(_ context.Context) {
	e.broadcast("✅ Answer: " + e.current.record.Answers[0])
	e.current = nil
	e.state = StateActive
	e.schedulePostLocked(e.cfg.BreakBetweenQuestions)
}

// finishLocked ends the running session: final leaderboard broadcast,
// persisted session end, timers cancelled, back to IDLE.
func (e *Engine) finishLocked(ctx context.Context) {
	e.broadcastFinalScores(ctx)
	if e.sessionID != 0 {
		if err := e.store.EndSession(ctx, e.sessionID); err != nil {
			log.Printf("end session #%d: %v", e.sessionID, err)
		}
	}
	e.stopTimersLocked()
	e.state = StateIdle
	e.sessionID = 0
	e.current = nil
}

func (e *Engine) broadcastFinalScores(ctx context.Context) {
	if e.sessionID == 0 {
		return
	}
	entries, err := e.store.Leaderboard(ctx, e.sessionID, e.cfg.LeaderboardLimit)
	if err != nil {
		log.Printf("leaderboard for #%d: %v", e.sessionID, err)
		return
	}
	e.broadcast(finalScoresMessage(entries))
}

// directQuestionToRoster DMs the open question to every rostered player.
// Runs off the engine lock; a failed delivery to one player never aborts
// the rest.
func (e *Engine) directQuestionToRoster(sessionID int64, round, maxRounds int, record domain.QuestionRecord) {
	ctx := context.Background()
	players, err := e.store.ListPlayers(ctx, sessionID)
	if err != nil {
		log.Printf("list players for #%d: %v", sessionID, err)
		return
	}
	message := questionDirect(round, maxRounds, record)
	for _, player := range players {
		if err := e.sender.Direct(ctx, player.UserID, message); err != nil {
			log.Printf("question DM to %s failed: %v", player.UserID, err)
		}
	}
}

// gameIntro produces the start-of-game announcement, preferring host
// commentary and degrading to the static rules text.
func (e *Engine) gameIntro(ctx context.Context) string {
	fallback := fmt.Sprintf(`🎮 HACKER JEOPARDY - GAME ON!

Send !join to play! You can join anytime.
Questions posted here + DM'd to players.
DM your answers back to me.

Correct = +points | Wrong = -points
%d rounds total. Good luck! 🚀`, e.cfg.MaxRounds)

	if e.host == nil || !e.host.Available() {
		return fallback
	}

	styleHint := "You are the charismatic host of Hacker Jeopardy, a live cybersecurity trivia game on a mesh network. Be enthusiastic, witty, and reference hacking culture. Keep response under 200 characters total. Be BRIEF but entertaining."
	prompt := fmt.Sprintf("Welcome players to Hacker Jeopardy! Explain: send !join to play, answers go by DM, %d minute answer window, correct = +points, wrong = -points, %d rounds.",
		int(e.cfg.AnswerWindow.Minutes()), e.cfg.MaxRounds)

	intro, err := e.host.Generate(ctx, prompt, styleHint)
	if err != nil {
		log.Printf("host intro generation failed: %v", err)
		return fallback
	}
	return "🎮 " + intro
}
