package adventure

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/playroomlabs/partyroom/internal/engine"
	"github.com/playroomlabs/partyroom/internal/model"
)

// describeScene broadcasts the current world and opens input immediately;
// the describing phase has no deadline of its own. Caller holds the lock.
func (e *Engine) describeScene() {
	e.phase = PhaseDescribing
	e.bumpEpoch()

	e.host.EmitToRoom(model.EventSceneDescribed, model.SceneDescribedPayload{
		Round:       e.round,
		Description: e.world.Description,
		ImageRef:    e.world.ImageRef,
		Inventory:   e.world.Inventory.Items(),
	})
	e.host.SendSystemMessage(fmt.Sprintf("Round %d. What do you do?", e.round), true)
	e.host.SyncGameState()

	e.openInput()
}

// openInput starts accepting one action per player. Caller holds the lock.
func (e *Engine) openInput() {
	e.phase = PhaseInput
	e.bumpEpoch()
	e.actionOrder = nil
	e.actions = make(map[model.PlayerID]string)
	e.votes = make(map[model.PlayerID]model.PlayerID)
	e.results = nil
	e.stopGrace()

	for _, st := range e.ai {
		st.hasCommented = false
	}

	e.host.StartTimer(engine.TimerRoundEnd, e.cfg.InputDuration)
	e.host.EmitToRoom(model.EventInputOpen, nil)

	for id := range e.ai {
		e.scheduleAIComment(id, true)
		e.scheduleAIAction(id)
	}
}

// submitAction records one action per player per round, last-write-wins.
// Submissions outside the input phase are silently rejected.
// Caller holds the lock.
func (e *Engine) submitAction(id model.PlayerID, text string) {
	if e.phase != PhaseInput {
		return
	}

	text = e.host.Sanitize(text, "'!?,.-")
	if text == "" {
		return
	}

	if _, exists := e.actions[id]; !exists {
		e.actionOrder = append(e.actionOrder, id)
	}
	e.actions[id] = text

	if st, ok := e.ai[id]; ok {
		st.lastActionTime = e.clock.Now()
	}

	e.host.SendPlayerMessage(id, text, true)
	e.checkInputQuorum()
}

// checkInputQuorum advances early once submitted actions reach the number
// of human players present. A short grace delay lets a near-simultaneous
// last submission land; the advance is guarded to fire once.
// Caller holds the lock.
func (e *Engine) checkInputQuorum() {
	if e.phase != PhaseInput || e.graceArmed {
		return
	}
	humans := e.humanCount()
	if humans == 0 || len(e.actionOrder) < humans {
		return
	}

	e.graceArmed = true
	epoch := e.epoch
	e.grace = e.scheduler.AfterFunc(e.cfg.GraceDelay, func() {
		e.run(epoch, func() {
			if e.phase == PhaseInput {
				e.closeInput()
			}
		})
	})
}

// closeInput ends the input phase and begins generating outcomes for the
// earliest-submitted actions, bounded by the action cap.
// Caller holds the lock.
func (e *Engine) closeInput() {
	e.host.ClearTimer(engine.TimerRoundEnd)
	e.stopGrace()
	e.aiTimers.CancelAll()

	if len(e.actionOrder) == 0 {
		e.host.SendSystemMessage("Nobody did anything. The world holds its breath... next round!", true)
		e.nextRound()
		return
	}

	order := e.actionOrder
	if len(order) > e.cfg.ActionCap {
		order = order[:e.cfg.ActionCap]
	}

	e.phase = PhaseGeneratingActions
	e.bumpEpoch()
	e.host.EmitToRoom(model.EventGenerating, nil)
	e.host.SendSystemMessage("The fates consider your actions...", false)
	e.beginActionGeneration(order)
}

// beginActionGeneration issues outcome text + illustration per action
// concurrently and joins them all regardless of individual failure.
// A failed item becomes a synthetic failure result rather than aborting
// the batch. Caller holds the lock.
func (e *Engine) beginActionGeneration(order []model.PlayerID) {
	epoch := e.epoch
	round := e.round
	selected := append([]model.PlayerID(nil), order...)
	actions := make(map[model.PlayerID]string, len(selected))
	names := make(map[model.PlayerID]string, len(selected))
	for _, id := range selected {
		actions[id] = e.actions[id]
		names[id] = e.playerName(id)
	}
	worldPrompt := e.outcomePromptContext()

	go func() {
		results := make([]model.GeneratedResult, len(selected))
		var wg sync.WaitGroup
		for i, id := range selected {
			wg.Add(1)
			go func(i int, id model.PlayerID) {
				defer wg.Done()
				res := model.GeneratedResult{
					PlayerID:   id,
					PlayerName: names[id],
				}
				prompt := fmt.Sprintf("%s\nA player tries to: %s\nNarrate the outcome in two or three vivid sentences.", worldPrompt, actions[id])
				text, err := e.gateway.GenerateText(e.ctx, prompt, "")
				if err != nil {
					results[i] = failedResult(res)
					return
				}
				res.Content = strings.TrimSpace(text.Text)

				img, imgErr := e.gateway.GenerateImage(e.ctx, "An illustration of: "+res.Content, "")
				if imgErr != nil || img == nil {
					results[i] = failedResult(res)
					return
				}
				if ref, saveErr := e.host.SaveGeneratedImage(e.ctx, img.ImageData, id, round); saveErr == nil {
					res.ImageRef = ref
				} else {
					res.ImageRef = e.cfg.PlaceholderImage
				}
				results[i] = res
			}(i, id)
		}
		wg.Wait()

		e.run(epoch, func() { e.finishActionGeneration(results) })
	}()
}

func failedResult(res model.GeneratedResult) model.GeneratedResult {
	res.Content = failedOutcomeText
	res.Failed = true
	return res
}

// finishActionGeneration opens voting over the generated outcomes, or
// skips the round if none are usable. Failed results stay visible but are
// not valid vote targets. Caller holds the lock via run().
func (e *Engine) finishActionGeneration(results []model.GeneratedResult) {
	if e.phase != PhaseGeneratingActions {
		return
	}

	for i := range results {
		// Players who left during generation keep a visible result, but it
		// can no longer win
		if _, present := e.players[results[i].PlayerID]; !present {
			results[i].Failed = true
		}
		if results[i].Failed && results[i].ImageRef == "" {
			results[i].ImageRef = e.cfg.PlaceholderImage
		}
	}

	usable := 0
	for _, r := range results {
		if !r.Failed {
			usable++
		}
	}
	if usable == 0 {
		e.host.SendSystemMessage("The fates are silent. Nothing happens this round.", true)
		e.nextRound()
		return
	}

	e.results = results
	e.startVoting()
}

// startVoting broadcasts all results and arms the voting deadline.
// Caller holds the lock.
func (e *Engine) startVoting() {
	e.phase = PhaseVoting
	e.bumpEpoch()

	e.host.EmitToRoom(model.EventActionsPresented, model.ActionsPresentedPayload{
		Round:   e.round,
		Results: append([]model.GeneratedResult(nil), e.results...),
	})
	e.host.StartTimer(engine.TimerVoteEnd, e.cfg.VoteDuration)
	e.host.SendSystemMessage("Vote for what really happens!", false)

	for id := range e.ai {
		e.scheduleAIVote(id)
	}
	e.host.SyncGameState()
}

// recordVote applies one immutable vote per voter; every present player
// is eligible. Caller holds the lock.
func (e *Engine) recordVote(voter, target model.PlayerID) {
	if e.phase != PhaseVoting {
		return
	}
	if _, ok := e.players[voter]; !ok {
		return
	}
	if _, voted := e.votes[voter]; voted {
		return
	}
	if !e.validVoteTarget(target) {
		return
	}

	e.votes[voter] = target
	e.host.EmitToRoom(model.EventVoteRecorded, model.VoteRecordedPayload{
		VotesCast:      len(e.votes),
		EligibleVoters: len(e.players),
	})
	e.checkVotesComplete()
}

func (e *Engine) validVoteTarget(target model.PlayerID) bool {
	if _, ok := e.players[target]; !ok {
		return false
	}
	for _, r := range e.results {
		if r.PlayerID == target {
			return !r.Failed
		}
	}
	return false
}

// pruneVotesFor marks a departed player's outcome unvotable and discards
// votes already cast for it. Caller holds the lock.
func (e *Engine) pruneVotesFor(id model.PlayerID) {
	for i := range e.results {
		if e.results[i].PlayerID == id {
			e.results[i].Failed = true
		}
	}
	for voter, target := range e.votes {
		if target == id {
			delete(e.votes, voter)
		}
	}
}

// checkVotesComplete tallies early once every present player has voted.
// Caller holds the lock.
func (e *Engine) checkVotesComplete() {
	if e.phase != PhaseVoting {
		return
	}
	if len(e.votes) >= len(e.players) {
		e.tallyVotes()
	}
}

// tallyVotes picks the winning action by raw plurality among non-failed
// results: ties break uniformly at random; zero votes fall back to a
// random non-failed result. Caller holds the lock.
func (e *Engine) tallyVotes() {
	e.host.ClearTimer(engine.TimerVoteEnd)
	e.aiTimers.CancelAll()

	tally := make(map[model.PlayerID]int)
	for _, target := range e.votes {
		tally[target]++
	}

	var winner *model.GeneratedResult
	if len(tally) > 0 {
		best := 0
		for _, count := range tally {
			if count > best {
				best = count
			}
		}
		var tied []model.PlayerID
		for _, r := range e.results {
			if !r.Failed && tally[r.PlayerID] == best {
				tied = append(tied, r.PlayerID)
			}
		}
		if len(tied) > 0 {
			winnerID := tied[e.random.Intn(len(tied))]
			winner = e.resultFor(winnerID)
		}
	} else {
		var candidates []model.PlayerID
		for _, r := range e.results {
			if !r.Failed {
				candidates = append(candidates, r.PlayerID)
			}
		}
		if len(candidates) > 0 {
			winner = e.resultFor(candidates[e.random.Intn(len(candidates))])
		}
	}

	if winner == nil {
		e.host.SendSystemMessage("No outcome could be chosen. The round is abandoned.", true)
		e.nextRound()
		return
	}

	e.logger.Info("vote tallied",
		slog.Int("round", e.round),
		slog.String("winner", string(winner.PlayerID)),
		slog.Int("votes_cast", len(e.votes)),
	)
	e.generateResult(*winner)
}

func (e *Engine) resultFor(id model.PlayerID) *model.GeneratedResult {
	for i := range e.results {
		if e.results[i].PlayerID == id {
			return &e.results[i]
		}
	}
	return nil
}

// outcomeData is the machine-parseable part of a canonical outcome
type outcomeData struct {
	Narrative    string   `json:"narrative"`
	ItemsAdded   []string `json:"items_added"`
	ItemsRemoved []string `json:"items_removed"`
}

// generateResult produces the canonical outcome for the winning action:
// structured narrative + inventory delta, then an illustration. Text
// failure aborts the round with world state unchanged; image failure
// falls back to the placeholder. Caller holds the lock.
func (e *Engine) generateResult(winner model.GeneratedResult) {
	e.phase = PhaseGeneratingResult
	e.bumpEpoch()
	epoch := e.epoch

	prompt := fmt.Sprintf(
		"%s\nThe chosen action's outcome: %s\n"+
			"Respond with JSON: {\"narrative\": \"one paragraph continuing the story\", \"items_added\": [], \"items_removed\": []}",
		e.outcomePromptContext(), winner.Content,
	)

	go func() {
		res, err := e.gateway.GenerateStructured(e.ctx, prompt)
		if err != nil {
			e.run(epoch, func() {
				if e.phase != PhaseGeneratingResult {
					return
				}
				e.host.SendSystemMessage("The story thread was lost. The world is unchanged... next round!", true)
				e.nextRound()
			})
			return
		}

		var outcome outcomeData
		if len(res.Data) == 0 || json.Unmarshal(res.Data, &outcome) != nil || outcome.Narrative == "" {
			// Parse failure degrades to an empty-effect outcome
			outcome = outcomeData{Narrative: strings.TrimSpace(res.Text)}
		}
		if outcome.Narrative == "" {
			// Nothing usable came back at all; leave the world untouched
			e.run(epoch, func() {
				if e.phase != PhaseGeneratingResult {
					return
				}
				e.host.SendSystemMessage("The story thread was lost. The world is unchanged... next round!", true)
				e.nextRound()
			})
			return
		}

		imageRef := e.cfg.PlaceholderImage
		if img, imgErr := e.gateway.GenerateImage(e.ctx, "An illustration of: "+outcome.Narrative, ""); imgErr == nil && img != nil {
			if ref, saveErr := e.host.SaveGeneratedImage(e.ctx, img.ImageData, winner.PlayerID, e.round); saveErr == nil {
				imageRef = ref
			}
		}

		e.run(epoch, func() {
			if e.phase != PhaseGeneratingResult {
				return
			}
			e.applyOutcome(winner, outcome, imageRef)
		})
	}()
}

// applyOutcome commits the winning narrative to the world, applies
// inventory deltas, and either ends the game on a terminal phrase or
// shows results. Caller holds the lock.
func (e *Engine) applyOutcome(winner model.GeneratedResult, outcome outcomeData, imageRef string) {
	e.world.Description = outcome.Narrative
	e.world.ImageRef = imageRef
	e.world.History.Push(outcome.Narrative)

	var added, removed []string
	for _, item := range outcome.ItemsAdded {
		if e.world.Inventory.Add(item) {
			added = append(added, item)
		}
	}
	for _, item := range outcome.ItemsRemoved {
		if e.world.Inventory.Remove(item) {
			removed = append(removed, item)
		}
	}

	e.host.EmitToRoom(model.EventOutcomeRevealed, model.OutcomeRevealedPayload{
		Round:      e.round,
		WinnerID:   winner.PlayerID,
		WinnerName: winner.PlayerName,
		Narrative:  outcome.Narrative,
		ImageRef:   imageRef,
	})
	e.host.SendSystemMessage(fmt.Sprintf("%s's action wins the round!", winner.PlayerName), true)

	if phrase := terminalPhrase(outcome.Narrative); phrase != "" {
		e.host.SendSystemMessage("The adventure has come to an end. Thanks for playing!", true)
		e.host.EmitToRoom(model.EventGameOver, model.GameOverPayload{Reason: phrase})
		e.teardown("terminal narrative")
		return
	}

	e.phase = PhaseResults
	e.bumpEpoch()
	e.host.StartTimer(engine.TimerResultsEnd, e.cfg.ResultsDuration)
	e.host.SyncGameState()

	if len(added) > 0 || len(removed) > 0 {
		e.scheduleInventoryNotice(added, removed)
	}
}

// scheduleInventoryNotice emits a delayed follow-up chat summary of
// inventory gains and losses. Caller holds the lock.
func (e *Engine) scheduleInventoryNotice(added, removed []string) {
	epoch := e.epoch
	items := e.world.Inventory.Items()
	e.scheduler.AfterFunc(2*time.Second, func() {
		e.run(epoch, func() {
			var parts []string
			if len(added) > 0 {
				parts = append(parts, "Gained: "+strings.Join(added, ", "))
			}
			if len(removed) > 0 {
				parts = append(parts, "Lost: "+strings.Join(removed, ", "))
			}
			e.host.SendSystemMessage(strings.Join(parts, " / "), true)
			e.host.EmitToRoom(model.EventInventoryChanged, model.InventoryChangedPayload{
				Added:   added,
				Removed: removed,
				Items:   items,
			})
		})
	})
}

// terminalPhrase returns the matched terminal phrase, or empty
func terminalPhrase(narrative string) string {
	lower := strings.ToLower(narrative)
	for _, phrase := range terminalPhrases {
		if strings.Contains(lower, phrase) {
			return phrase
		}
	}
	return ""
}

// nextRound advances to the next round's scene description.
// Caller holds the lock.
func (e *Engine) nextRound() {
	e.round++
	e.describeScene()
}

// outcomePromptContext summarises world state for generation prompts
func (e *Engine) outcomePromptContext() string {
	var b strings.Builder
	b.WriteString("Current scene: " + e.world.Description + "\n")
	if items := e.world.Inventory.Items(); len(items) > 0 {
		b.WriteString("Inventory: " + strings.Join(items, ", ") + "\n")
	}
	history := e.world.History.Entries()
	if len(history) > 5 {
		history = history[len(history)-5:]
	}
	if len(history) > 0 {
		b.WriteString("Recent events:\n")
		for _, h := range history {
			b.WriteString("- " + h + "\n")
		}
	}
	return b.String()
}
