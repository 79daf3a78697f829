package drawing

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/playroomlabs/partyroom/internal/engine"
	"github.com/playroomlabs/partyroom/internal/model"
)

// startRound selects the drawer and enters the drawing phase.
// Caller holds the lock.
func (e *Engine) startRound() {
	if len(e.order) == 0 {
		e.phase = PhaseWaiting
		e.bumpEpoch()
		return
	}
	if e.round == 0 {
		e.round = 1
	}

	// Select the drawer by join order, skipping departed players.
	// Bounded to one pass; if nothing valid remains, fall back to waiting.
	drawer := model.PlayerID("")
	n := len(e.order)
	for attempt := 0; attempt < n; attempt++ {
		candidate := e.order[(e.round-1+attempt)%n]
		if _, ok := e.players[candidate]; ok {
			drawer = candidate
			break
		}
	}
	if drawer == "" {
		e.phase = PhaseWaiting
		e.bumpEpoch()
		return
	}

	e.aiTimers.CancelAll()
	e.stopLastChance()
	e.phase = PhaseDrawing
	e.bumpEpoch()
	e.drawer = drawer
	e.guessOrder = nil
	e.guesses = make(map[model.PlayerID]string)
	e.votes = make(map[model.PlayerID]model.PlayerID)
	e.results = nil

	for _, st := range e.ai {
		st.lastGuessTime = time.Time{}
		st.lastChatTime = time.Time{}
		st.hasGuessed = false
		st.hasCommented = false
	}

	e.host.StartTimer(engine.TimerRoundEnd, e.cfg.DrawDuration)
	e.host.EmitToRoom(model.EventRoundStarted, model.RoundStartedPayload{
		Round:      e.round,
		DrawerID:   drawer,
		DrawerName: e.playerName(drawer),
	})
	e.host.SendSystemMessage(fmt.Sprintf("Round %d! %s is drawing.", e.round, e.playerName(drawer)), true)

	e.logger.Info("round started",
		slog.Int("round", e.round),
		slog.String("drawer", string(drawer)),
	)

	e.armLastChance()
	for id := range e.ai {
		if id == drawer {
			e.scheduleDrawerAction(id)
			continue
		}
		e.scheduleAIComment(id, true)
		e.scheduleAIGuess(id, true)
	}
	e.host.SyncGameState()
}

// submitGuess records one guess per player per round, last-write-wins.
// Guesses from the drawer or outside the drawing phase are silently
// rejected. Caller holds the lock.
func (e *Engine) submitGuess(id model.PlayerID, text string) {
	if e.phase != PhaseDrawing || id == e.drawer {
		return
	}

	text = e.host.Sanitize(text, "'!?,.-")
	if text == "" {
		return
	}

	if _, exists := e.guesses[id]; !exists {
		e.guessOrder = append(e.guessOrder, id)
	}
	e.guesses[id] = text

	if st, ok := e.ai[id]; ok {
		st.lastGuessTime = e.clock.Now()
		st.hasGuessed = true
	}

	e.host.SendPlayerMessage(id, text, true)
}

// endDrawing leaves the drawing phase, triggered by deadline expiry or by
// the drawer ending early. Caller holds the lock.
func (e *Engine) endDrawing() {
	e.host.ClearTimer(engine.TimerRoundEnd)
	e.stopLastChance()
	e.aiTimers.CancelAll()

	if len(e.guessOrder) == 0 {
		e.host.SendSystemMessage("Not enough guesses came in, moving on!", true)
		e.advanceRound()
		return
	}

	e.phase = PhaseGenerating
	e.bumpEpoch()
	e.host.EmitToRoom(model.EventGenerating, nil)
	e.host.SendSystemMessage("Time's up! Generating images from your guesses...", false)
	e.beginGeneration()
}

// beginGeneration issues one image request per guess concurrently and
// joins them all regardless of individual failure. Results keep
// submission order. Caller holds the lock.
func (e *Engine) beginGeneration() {
	epoch := e.epoch
	round := e.round
	guessers := append([]model.PlayerID(nil), e.guessOrder...)
	guesses := make(map[model.PlayerID]string, len(e.guesses))
	names := make(map[model.PlayerID]string, len(guessers))
	for _, id := range guessers {
		guesses[id] = e.guesses[id]
		names[id] = e.playerName(id)
	}

	go func() {
		snapshot, err := e.host.DrawingData(e.ctx)
		if err != nil {
			e.logger.Warn("drawing snapshot unavailable", slog.String("error", err.Error()))
			snapshot = ""
		}

		results := make([]model.GeneratedResult, len(guessers))
		var wg sync.WaitGroup
		for i, id := range guessers {
			wg.Add(1)
			go func(i int, id model.PlayerID) {
				defer wg.Done()
				res := model.GeneratedResult{
					PlayerID:   id,
					PlayerName: names[id],
					Content:    guesses[id],
				}
				prompt := fmt.Sprintf("Render a polished version of this sketch as if it were %q.", guesses[id])
				img, genErr := e.gateway.GenerateImage(e.ctx, prompt, snapshot)
				if genErr != nil || img == nil {
					res.Failed = true
				} else if ref, saveErr := e.host.SaveGeneratedImage(e.ctx, img.ImageData, id, round); saveErr == nil {
					res.ImageRef = ref
				}
				results[i] = res
			}(i, id)
		}
		wg.Wait()

		e.run(epoch, func() { e.finishGeneration(results) })
	}()
}

// finishGeneration collects successful results and opens voting, or skips
// the round if everything failed. Caller holds the lock via run().
func (e *Engine) finishGeneration(results []model.GeneratedResult) {
	if e.phase != PhaseGenerating {
		return
	}

	var succeeded []model.GeneratedResult
	for _, r := range results {
		if r.Failed {
			continue
		}
		// Guessers who left during generation are no longer candidates
		if _, present := e.players[r.PlayerID]; !present {
			continue
		}
		succeeded = append(succeeded, r)
	}
	if len(succeeded) == 0 {
		e.host.SendSystemMessage("Image generation failed this round, moving on!", true)
		e.advanceRound()
		return
	}

	e.results = succeeded
	e.startVoting()
}

// startVoting broadcasts the results and arms the voting deadline.
// Caller holds the lock.
func (e *Engine) startVoting() {
	e.phase = PhaseVoting
	e.bumpEpoch()

	e.host.EmitToRoom(model.EventVotingStarted, model.VotingStartedPayload{
		Round:   e.round,
		Results: append([]model.GeneratedResult(nil), e.results...),
	})
	e.host.StartTimer(engine.TimerVoteEnd, e.cfg.VoteDuration)
	e.host.SendSystemMessage("Vote for your favourite!", false)

	for id := range e.ai {
		if id != e.drawer {
			e.scheduleAIVote(id)
		}
	}
	e.host.SyncGameState()
}

// recordVote applies one immutable vote per voter. Invalid and duplicate
// votes are silently rejected. Caller holds the lock.
func (e *Engine) recordVote(voter, target model.PlayerID) {
	if e.phase != PhaseVoting {
		return
	}
	if _, ok := e.players[voter]; !ok {
		return
	}
	if voter == e.drawer {
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
		EligibleVoters: e.eligibleVoters(),
	})
	e.checkVotesComplete()
}

// validVoteTarget requires a present player with a non-failed result entry
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

// pruneVotesFor marks a departed player's result unvotable and discards
// votes already cast for it, so a player who left can never win the
// round. Caller holds the lock.
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

// eligibleVoters counts present players other than the drawer
func (e *Engine) eligibleVoters() int {
	n := 0
	for id := range e.players {
		if id != e.drawer {
			n++
		}
	}
	return n
}

// checkVotesComplete tallies early once every eligible voter has voted.
// Caller holds the lock.
func (e *Engine) checkVotesComplete() {
	if e.phase != PhaseVoting {
		return
	}
	if len(e.votes) >= e.eligibleVoters() {
		e.tallyVotes()
	}
}

// tallyVotes scores the round: a target wins iff its count is a strict
// majority of the votes cast; ties above the threshold all win one point.
// Caller holds the lock.
func (e *Engine) tallyVotes() {
	e.host.ClearTimer(engine.TimerVoteEnd)
	e.aiTimers.CancelAll()

	votesCast := len(e.votes)
	tally := make(map[model.PlayerID]int)
	for _, target := range e.votes {
		tally[target]++
	}

	var winners []model.PlayerID
	for target, count := range tally {
		if 2*count > votesCast {
			winners = append(winners, target)
		}
	}

	if len(winners) > 0 {
		deltas := make(map[model.PlayerID]int, len(winners))
		for _, w := range winners {
			deltas[w] = 1
			if p, ok := e.players[w]; ok {
				p.score++
			}
		}
		e.host.UpdateScores(deltas)
		for _, w := range winners {
			e.host.SendSystemMessage(fmt.Sprintf("%s wins the round!", e.playerName(w)), true)
		}
	} else {
		e.host.SendSystemMessage("No clear favourite this round, no points awarded.", true)
	}

	scores := make(map[model.PlayerID]int, len(e.players))
	for id, p := range e.players {
		scores[id] = p.score
	}

	e.phase = PhaseResults
	e.bumpEpoch()
	e.host.EmitToRoom(model.EventRoundResults, model.RoundResultsPayload{
		Round:   e.round,
		Winners: winners,
		Tally:   tally,
		Scores:  scores,
	})
	e.host.StartTimer(engine.TimerResultsEnd, e.cfg.ResultsDuration)
	e.host.SyncGameState()
}

// advanceRound starts the next round. Caller holds the lock.
func (e *Engine) advanceRound() {
	e.round++
	e.startRound()
}
