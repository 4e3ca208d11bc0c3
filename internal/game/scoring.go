package game

import (
	"context"
	"fmt"
	"log"
	"strings"

	"mesh-jeopardy-service/internal/domain"
)

// processAnswer scores a free-text submission. Matching is exact after
// trim+lowercase; correct earns the question's points, wrong loses the same
// amount, and the store's conditional insert rejects repeat attempts.
func (e *Engine) processAnswer(ctx context.Context, senderID, senderName, text string) string {
	e.mu.Lock()
	defer e.mu.Unlock()

	banned, err := e.store.IsBanned(ctx, senderID)
	if err != nil {
		log.Printf("ban check for %s: %v", senderID, err)
	}
	if banned {
		return "🚫 You are banned from playing."
	}

	if e.state != StateCollecting {
		if e.state == StateIdle {
			return "⏸️ No game in progress. Wait for an admin to start one!"
		}
		return "⏳ No active question right now. Wait for the next one!"
	}

	if !e.now().Before(e.current.closesAt) {
		return "⏰ Too late! Answer window closed."
	}

	guess := strings.ToLower(strings.TrimSpace(text))
	correct := false
	for _, accepted := range e.current.record.Answers {
		if guess == accepted {
			correct = true
			break
		}
	}

	points := e.current.record.Points
	if !correct {
		points = -points
	}

	recorded, err := e.store.RecordAnswer(ctx, domain.SubmittedAnswer{
		SessionID:     e.sessionID,
		QuestionID:    e.current.id,
		UserID:        senderID,
		DisplayName:   senderName,
		Text:          text,
		PointsAwarded: points,
		AnsweredAt:    e.now(),
	})
	if err != nil {
		log.Printf("record answer from %s: %v", senderID, err)
		return "⚠️ Could not record your answer. Try again!"
	}
	if !recorded {
		return "⚠️ You already answered this question!"
	}

	if correct {
		return fmt.Sprintf("✅ Correct! +%d points! 🎉", e.current.record.Points)
	}
	return fmt.Sprintf("❌ Wrong! -%d points.\nCorrect answer: %s",
		e.current.record.Points, e.current.record.Answers[0])
}
