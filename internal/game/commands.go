package game

import (
	"context"
	"fmt"
	"log"
	"strings"

	"mesh-jeopardy-service/internal/domain"
)

// HandleMessage classifies inbound text as a command or an answer attempt
// and returns the reply to DM back to the sender. Commands are
// case-insensitive and whitespace-trimmed; anything without the leading
// marker is treated as an answer while a question is open.
func (e *Engine) HandleMessage(ctx context.Context, senderID, senderName, text string) string {
	trimmed := strings.TrimSpace(text)
	lower := strings.ToLower(trimmed)

	switch {
	case lower == "!hj start":
		return e.startGame(ctx, senderID)
	case lower == "!hj stop":
		return e.stopGame(ctx, senderID)
	case lower == "!hj next":
		return e.skipQuestion(ctx, senderID)
	case strings.HasPrefix(lower, "!hj ban "):
		return e.banUser(ctx, senderID, strings.TrimSpace(trimmed[len("!hj ban "):]))
	case strings.HasPrefix(lower, "!hj unban "):
		return e.unbanUser(ctx, senderID, strings.TrimSpace(trimmed[len("!hj unban "):]))
	case lower == "!hj join" || lower == "!join":
		return e.joinGame(ctx, senderID, senderName)
	case lower == "!hj help":
		return e.helpText()
	case lower == "!hj status" || lower == "!hj info":
		return e.statusText(ctx)
	case lower == "!hj scores" || lower == "!hj leaderboard":
		return e.scoresText(ctx)
	case !strings.HasPrefix(lower, "!"):
		return e.processAnswer(ctx, senderID, senderName, trimmed)
	default:
		return "❓ Unknown command. Use !hj help for commands."
	}
}

func (e *Engine) startGame(ctx context.Context, senderID string) string {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateIdle {
		return "⚠️ Game already in progress!"
	}
	if !e.isAdmin(senderID) {
		return "❌ Only admins can start games!"
	}

	sessionID, err := e.store.CreateSession(ctx, e.cfg.MaxRounds)
	if err != nil {
		log.Printf("create session: %v", err)
		return "⚠️ Could not start a game right now."
	}

	e.sessionID = sessionID
	e.state = StateActive
	e.used = make(map[int]struct{})

	go func() {
		e.broadcast(e.gameIntro(context.Background()))
	}()
	e.schedulePostLocked(e.cfg.JoinDelay)

	return fmt.Sprintf("✅ Game #%d started! Players can !join", sessionID)
}

func (e *Engine) stopGame(ctx context.Context, senderID string) string {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == StateIdle {
		return "⚠️ No game in progress!"
	}
	if !e.isAdmin(senderID) {
		return "❌ Only admins can stop games!"
	}

	e.finishLocked(ctx)
	return "✅ Game stopped!"
}

func (e *Engine) skipQuestion(ctx context.Context, senderID string) string {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.isAdmin(senderID) {
		return "❌ Only admins can skip questions!"
	}
	if e.state != StateCollecting {
		return "⏳ No open question to skip!"
	}

	if e.closeTimer != nil {
		e.closeTimer.Stop()
		e.closeTimer = nil
	}
	e.closeLocked(ctx)
	return "⏭️ Question skipped!"
}

func (e *Engine) banUser(ctx context.Context, senderID, targetID string) string {
	if !e.isAdmin(senderID) {
		return "❌ Only admins can ban users!"
	}
	if targetID == "" {
		return "Usage: !hj ban <user id>"
	}
	err := e.store.Ban(ctx, domain.BanEntry{
		UserID:   targetID,
		BannedAt: e.now(),
		BannedBy: senderID,
		Reason:   "admin ban",
	})
	if err != nil {
		log.Printf("ban %s: %v", targetID, err)
		return "⚠️ Could not ban that user right now."
	}
	return fmt.Sprintf("🚫 Banned %s", targetID)
}

func (e *Engine) unbanUser(ctx context.Context, senderID, targetID string) string {
	if !e.isAdmin(senderID) {
		return "❌ Only admins can unban users!"
	}
	if targetID == "" {
		return "Usage: !hj unban <user id>"
	}
	if err := e.store.Unban(ctx, targetID); err != nil {
		log.Printf("unban %s: %v", targetID, err)
		return "⚠️ Could not unban that user right now."
	}
	return fmt.Sprintf("✅ Unbanned %s", targetID)
}

func (e *Engine) joinGame(ctx context.Context, senderID, senderName string) string {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == StateIdle || e.sessionID == 0 {
		return "⏸️ No game in progress. Wait for an admin to start one!"
	}

	added, err := e.store.AddPlayer(ctx, e.sessionID, senderID, senderName)
	if err != nil {
		log.Printf("add player %s: %v", senderID, err)
		return "⚠️ Could not join right now. Try again!"
	}
	if !added {
		return "👍 You're already in the game!"
	}

	players, err := e.store.ListPlayers(ctx, e.sessionID)
	if err != nil {
		log.Printf("list players for #%d: %v", e.sessionID, err)
	}

	// A joiner mid-question gets the open question DM'd right away.
	if e.state == StateCollecting && e.current != nil {
		message := questionDirect(e.current.round, e.cfg.MaxRounds, e.current.record)
		go func() {
			if err := e.sender.Direct(context.Background(), senderID, message); err != nil {
				log.Printf("question DM to new joiner %s failed: %v", senderID, err)
			}
		}()
	}

	return fmt.Sprintf("✅ You're in! %d players joined. Good luck! 🎮", len(players))
}
