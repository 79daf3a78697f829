package adventure

import (
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
	if e.phase != PhaseInput {
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
	scene := e.world.Description
	epoch := e.epoch
	go func() {
		history, _ := e.host.ChatHistory(e.ctx)
		prompt := commentPrompt(profile, scene, history)
		res, err := e.gateway.GenerateText(e.ctx, prompt, "")
		if err != nil {
			e.logger.Debug("ai comment generation failed",
				slog.String("player_id", string(id)),
				slog.String("error", err.Error()),
			)
			return
		}
		e.run(epoch, func() {
			if e.phase != PhaseInput {
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

// scheduleAIAction arms an action submission for the AI
func (e *Engine) scheduleAIAction(id model.PlayerID) {
	d := e.cfg.Delays.FirstGuess.Pick(e.random)
	if !e.guardOK(engine.TimerRoundEnd, d) {
		// Always participate; fire immediately instead
		d = 0
	}

	epoch := e.epoch
	e.aiTimers.Schedule(id, engine.ActionGuess, d, func() {
		e.run(epoch, func() { e.fireAIAction(id) })
	})
}

func (e *Engine) fireAIAction(id model.PlayerID) {
	if e.phase != PhaseInput {
		return
	}
	if _, submitted := e.actions[id]; submitted {
		return
	}
	if _, ok := e.ai[id]; !ok {
		return
	}

	profile, _ := e.host.AIProfile(id)
	prompt := fmt.Sprintf(
		"%s\n\n%s\nYou are playing a text adventure. Reply with one short action you take, a few words, imperative mood.",
		profile.Personality, e.outcomePromptContext(),
	)
	epoch := e.epoch
	go func() {
		res, err := e.gateway.GenerateText(e.ctx, prompt, "")
		if err != nil {
			e.logger.Debug("ai action generation failed",
				slog.String("player_id", string(id)),
				slog.String("error", err.Error()),
			)
			return
		}
		e.run(epoch, func() {
			e.submitAction(id, strings.TrimSpace(res.Text))
		})
	}()
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
	if e.phase != PhaseVoting {
		return
	}
	if _, voted := e.votes[id]; voted {
		return
	}
	if _, ok := e.ai[id]; !ok {
		return
	}

	// Only non-failed outcomes are valid choices
	var options []model.GeneratedResult
	for _, r := range e.results {
		if !r.Failed {
			options = append(options, r)
		}
	}
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

// commentPrompt builds a short in-character chat prompt from the scene and
// recent history
func commentPrompt(profile model.AIProfile, scene string, history []model.ChatMessage) string {
	var b strings.Builder
	b.WriteString(profile.Personality)
	b.WriteString("\n\nYou are playing a collaborative text adventure. The current scene:\n")
	b.WriteString(scene)
	b.WriteString("\n\nRecent chat:\n")
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
