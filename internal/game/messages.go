package game

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"mesh-jeopardy-service/internal/domain"
)

func questionAnnouncement(round, maxRounds int, record domain.QuestionRecord, window time.Duration) string {
	return fmt.Sprintf("❓ ROUND %d/%d - %d POINTS\n%s\n\n⏱️ DM your answer within %d minutes!",
		round, maxRounds, record.Points, record.Text, int(window.Minutes()))
}

func questionDirect(round, maxRounds int, record domain.QuestionRecord) string {
	return fmt.Sprintf("❓ ROUND %d/%d - %d pts\n%s", round, maxRounds, record.Points, record.Text)
}

func finalScoresMessage(entries []domain.LeaderboardEntry) string {
	if len(entries) == 0 {
		return "🎮 Game over! No scores recorded."
	}

	var b strings.Builder
	b.WriteString("🏁 GAME OVER - FINAL SCORES:\n\n")
	medals := []string{"🥇", "🥈", "🥉"}
	for i, entry := range entries {
		medal := "  "
		if i < len(medals) {
			medal = medals[i]
		}
		fmt.Fprintf(&b, "%s %d. %s: %d pts\n", medal, i+1, entry.DisplayName, entry.Points)
	}
	b.WriteString("\nThanks for playing! 🎉")
	return b.String()
}

func (e *Engine) helpText() string {
	help := `🎮 HACKER JEOPARDY
Questions posted to channel.
DM your answers to me!

Correct = +points
Wrong = -points
No answer = 0

Commands:
!hj join - Join the game
!hj status - Game info
!hj scores - Leaderboard`

	if len(e.cfg.AdminIDs) > 0 {
		help += "\n\nAdmin: !hj start/stop/next"
	}
	return help
}

func (e *Engine) statusText(ctx context.Context) string {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == StateIdle {
		return "⏸️ No game in progress."
	}

	info, err := e.store.SessionInfo(ctx, e.sessionID)
	if err != nil {
		log.Printf("session info for #%d: %v", e.sessionID, err)
		return "🎮 Game in progress"
	}
	return fmt.Sprintf("🎮 Game #%d\nRound %d/%d\nStatus: %s",
		e.sessionID, info.CurrentRound, info.MaxRounds, e.state)
}

func (e *Engine) scoresText(ctx context.Context) string {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.sessionID == 0 {
		return "⏸️ No game in progress."
	}

	entries, err := e.store.Leaderboard(ctx, e.sessionID, e.cfg.LeaderboardLimit)
	if err != nil {
		log.Printf("leaderboard for #%d: %v", e.sessionID, err)
		return "⚠️ Scores unavailable right now."
	}
	if len(entries) == 0 {
		return "📊 No scores yet!"
	}

	var b strings.Builder
	b.WriteString("📊 LEADERBOARD:\n")
	for i, entry := range entries {
		fmt.Fprintf(&b, "%d. %s: %d pts\n", i+1, entry.DisplayName, entry.Points)
	}
	return strings.TrimRight(b.String(), "\n")
}
