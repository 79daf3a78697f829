package drawing

import (
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/playroomlabs/partyroom/internal/engine"
	"github.com/playroomlabs/partyroom/internal/model"
)

// guardOK rejects schedules that would fire within the deadline guard
// window of the named phase timer
func (e *Engine) guardOK(timerName string, d time.Duration) bool {
	end := e.host.TimerEndTime(timerName)
	if end.IsZero() {
		return true
	}
	return !e.clock.Now().Add(d + e.cfg.DeadlineGuard).After(end)
}

// scheduleAIComment arms a chat comment for the AI. Regular comments are
// gated on a minimum interval since the AI's last comment and a random
// probability; both must hold at fire time.
func (e *Engine) scheduleAIComment(id model.PlayerID, first bool) {
	rng := e.cfg.Delays.Comment
	if first {
		rng = e.cfg.Delays.FirstComment
	}
	d := rng.Pick(e.random)
	if !e.guardOK(engine.TimerRoundEnd, d) {
		return
	}

	epoch := e.epoch
	e.aiTimers.Schedule(id, engine.ActionComment, d, func() {
		e.run(epoch, func() { e.fireAIComment(id, first) })
	})
}

func (e *Engine) fireAIComment(id model.PlayerID, first bool) {
	if e.phase != PhaseDrawing || id == e.drawer {
		return
	}
	st, ok := e.ai[id]
	if !ok {
		return
	}

	if !first {
		if !st.lastChatTime.IsZero() && e.clock.Now().Sub(st.lastChatTime) < e.cfg.Delays.CommentMinInterval {
			e.scheduleAIComment(id, false)
			return
		}
		if e.random.Float64() >= e.cfg.Delays.CommentChance {
			e.scheduleAIComment(id, false)
			return
		}
	}

	profile, _ := e.host.AIProfile(id)
	epoch := e.epoch
	go func() {
		history, _ := e.host.ChatHistory(e.ctx)
		prompt := commentPrompt(profile, history)
		res, err := e.gateway.GenerateText(e.ctx, prompt, "")
		if err != nil {
			e.logger.Debug("ai comment generation failed",
				slog.String("player_id", string(id)),
				slog.String("error", err.Error()),
			)
			return
		}
		e.run(epoch, func() {
			if e.phase != PhaseDrawing {
				return
			}
			st, ok := e.ai[id]
			if !ok {
				return
			}
			e.host.SendPlayerMessage(id, strings.TrimSpace(res.Text), false)
			st.lastChatTime = e.clock.Now()
			st.hasCommented = true
			e.scheduleAIComment(id, false)
		})
	}()
}

// scheduleAIGuess arms a guess for the AI guesser
func (e *Engine) scheduleAIGuess(id model.PlayerID, first bool) {
	rng := e.cfg.Delays.Guess
	if first {
		rng = e.cfg.Delays.FirstGuess
	}
	d := rng.Pick(e.random)
	if !e.guardOK(engine.TimerRoundEnd, d) {
		return
	}

	epoch := e.epoch
	e.aiTimers.Schedule(id, engine.ActionGuess, d, func() {
		e.run(epoch, func() { e.fireAIGuess(id) })
	})
}

func (e *Engine) fireAIGuess(id model.PlayerID) {
	if e.phase != PhaseDrawing || id == e.drawer {
		return
	}
	if _, ok := e.ai[id]; !ok {
		return
	}

	profile, _ := e.host.AIProfile(id)
	epoch := e.epoch
	go func() {
		snapshot, err := e.host.DrawingData(e.ctx)
		if err != nil {
			snapshot = ""
		}
		prompt := profile.Personality + "\n\nYou are guessing what a drawing shows. Reply with one short guess, a few words at most."
		res, genErr := e.gateway.GenerateText(e.ctx, prompt, snapshot)
		if genErr != nil {
			e.logger.Debug("ai guess generation failed",
				slog.String("player_id", string(id)),
				slog.String("error", genErr.Error()),
			)
			return
		}
		e.run(epoch, func() {
			e.submitGuess(id, strings.TrimSpace(res.Text))
			// Refine later if the drawing keeps evolving
			e.scheduleAIGuess(id, false)
		})
	}()
}

// scheduleDrawerAction arms the simulated drawing action when the round's
// drawer is an AI
func (e *Engine) scheduleDrawerAction(id model.PlayerID) {
	d := e.cfg.Delays.DrawStart.Pick(e.random)
	if !e.guardOK(engine.TimerRoundEnd, d) {
		return
	}

	epoch := e.epoch
	e.aiTimers.Schedule(id, engine.ActionDraw, d, func() {
		e.run(epoch, func() { e.fireDrawerAction(id) })
	})
}

func (e *Engine) fireDrawerAction(id model.PlayerID) {
	if e.phase != PhaseDrawing || id != e.drawer {
		return
	}

	profile, _ := e.host.AIProfile(id)
	epoch := e.epoch
	go func() {
		prompt := profile.Personality + "\n\nDraw a simple doodle of something fun and recognisable."
		img, err := e.gateway.GenerateImage(e.ctx, prompt, "")
		if err != nil || img == nil {
			e.logger.Warn("ai drawer generation failed", slog.String("player_id", string(id)))
			return
		}
		encoded := base64.StdEncoding.EncodeToString(img.ImageData)
		e.run(epoch, func() {
			if e.phase != PhaseDrawing || id != e.drawer {
				return
			}
			if err := e.host.SetDrawingData(e.ctx, encoded); err != nil {
				e.logger.Warn("failed to store ai drawing", slog.String("error", err.Error()))
				return
			}
			e.host.EmitToRoom(model.EventDrawingUpdated, nil)
			e.rearmGuessesAfterDrawingUpdate()
		})
	}()
}

// rearmGuessesAfterDrawingUpdate opportunistically reschedules guess
// timers so AIs react to new canvas content. Caller holds the lock.
func (e *Engine) rearmGuessesAfterDrawingUpdate() {
	for id, st := range e.ai {
		if id == e.drawer {
			continue
		}
		e.scheduleAIGuess(id, !st.hasGuessed)
	}
}

// scheduleAIVote arms a vote for the AI voter
func (e *Engine) scheduleAIVote(id model.PlayerID) {
	d := e.cfg.Delays.Vote.Pick(e.random)
	if !e.guardOK(engine.TimerVoteEnd, d) {
		// Never skip voting entirely; fire immediately instead
		d = 0
	}

	epoch := e.epoch
	e.aiTimers.Schedule(id, engine.ActionVote, d, func() {
		e.run(epoch, func() { e.fireAIVote(id) })
	})
}

func (e *Engine) fireAIVote(id model.PlayerID) {
	if e.phase != PhaseVoting || id == e.drawer {
		return
	}
	if _, voted := e.votes[id]; voted {
		return
	}
	if _, ok := e.ai[id]; !ok {
		return
	}

	options := append([]model.GeneratedResult(nil), e.results...)
	if len(options) == 0 {
		return
	}
	profile, _ := e.host.AIProfile(id)
	prompt := engine.BuildVotePrompt(profile.Personality, options)
	epoch := e.epoch

	go func() {
		var reply string
		if res, err := e.gateway.GenerateText(e.ctx, prompt, ""); err == nil {
			reply = res.Text
		}
		e.run(epoch, func() {
			if e.phase != PhaseVoting {
				return
			}
			idx, reason, ok := engine.ParseVoteReply(reply, len(options))
			if !ok {
				idx = e.random.Intn(len(options))
			}
			if reason != "" {
				e.host.SendPlayerMessage(id, reason, false)
			}
			// Same path a human vote takes
			e.recordVote(id, options[idx].PlayerID)
		})
	}()
}

// armLastChance schedules the once-per-round sweep that force-schedules
// guesses for AIs that have gone quiet. Caller holds the lock.
func (e *Engine) armLastChance() {
	e.stopLastChance()
	lead := e.cfg.DrawDuration - e.cfg.LastChanceLead
	if lead <= 0 {
		return
	}

	epoch := e.epoch
	e.lastChance = e.scheduler.AfterFunc(lead, func() {
		e.run(epoch, e.lastChanceSweep)
	})
}

// lastChanceSweep force-schedules an imminent guess for every AI guesser
// that has not guessed within the last half of the round, preempting any
// pending regular guess timer
func (e *Engine) lastChanceSweep() {
	if e.phase != PhaseDrawing {
		return
	}

	half := e.cfg.DrawDuration / 2
	now := e.clock.Now()
	epoch := e.epoch
	for id, st := range e.ai {
		if id == e.drawer {
			continue
		}
		if !st.lastGuessTime.IsZero() && now.Sub(st.lastGuessTime) <= half {
			continue
		}
		aiID := id
		e.aiTimers.Schedule(aiID, engine.ActionGuess, e.cfg.LastChanceDelay, func() {
			e.run(epoch, func() { e.fireAIGuess(aiID) })
		})
	}
}

// commentPrompt builds a short in-character chat prompt from recent history
func commentPrompt(profile model.AIProfile, history []model.ChatMessage) string {
	var b strings.Builder
	b.WriteString(profile.Personality)
	b.WriteString("\n\nYou are chatting while watching someone draw. Recent chat:\n")
	start := 0
	if len(history) > 10 {
		start = len(history) - 10
	}
	for _, msg := range history[start:] {
		if msg.IsSystem {
			continue
		}
		fmt.Fprintf(&b, "%s: %s\n", msg.Username, msg.Content)
	}
	b.WriteString("\nReply with one short, casual chat message.")
	return b.String()
}
