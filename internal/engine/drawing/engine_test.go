package drawing

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/playroomlabs/partyroom/internal/dependencies/mocks"
	"github.com/playroomlabs/partyroom/internal/engine"
	"github.com/playroomlabs/partyroom/internal/model"
	"github.com/playroomlabs/partyroom/internal/testutil"
)

const eventuallyTick = 5 * time.Millisecond

type EngineSuite struct {
	suite.Suite

	clock     *mocks.MockClock
	random    *mocks.MockRandom
	scheduler *mocks.MockScheduler
	host      *mocks.MockHost
	gateway   *mocks.MockGateway
	engine    *Engine
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

func (s *EngineSuite) SetupTest() {
	s.clock = mocks.NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	s.random = mocks.NewMockRandom()
	s.scheduler = mocks.NewMockScheduler()
	s.host = mocks.NewMockHost(s.clock)
	s.gateway = mocks.NewMockGateway()

	s.engine = New(s.host, s.gateway, s.clock, s.random, s.scheduler, DefaultConfig(), testutil.NopLogger())
	s.engine.Start()
}

func (s *EngineSuite) TearDownTest() {
	s.engine.Close()
}

// join adds a player to the host roster and the engine. The first join
// starts round one with that player as drawer.
func (s *EngineSuite) join(id, name string, isAI bool) model.PlayerID {
	pid := model.PlayerID(id)
	player := model.RoomPlayer{
		ID:       pid,
		Username: name,
		IsAI:     isAI,
		JoinedAt: s.clock.Now(),
	}
	var profile *model.AIProfile
	if isAI {
		profile = &model.AIProfile{Username: name, Personality: "You are a cheerful test player."}
	}
	s.host.AddPlayer(player, profile)
	s.engine.OnPlayerJoin(player)
	return pid
}

func (s *EngineSuite) leave(id model.PlayerID) {
	s.host.RemovePlayer(id)
	s.engine.OnPlayerLeave(id)
}

func (s *EngineSuite) snapshot() Snapshot {
	return s.engine.Snapshot().(Snapshot)
}

func (s *EngineSuite) guess(id model.PlayerID, text string) {
	s.engine.OnCommand(id, "guess", text)
}

// reachVoting expires the drawing deadline and waits out the concurrent
// generation phase
func (s *EngineSuite) reachVoting() {
	s.engine.OnTimerExpired(engine.TimerRoundEnd)
	s.Require().Eventually(func() bool {
		return s.snapshot().Phase == PhaseVoting
	}, time.Second, eventuallyTick)
}

func (s *EngineSuite) systemMessageContaining(substr string) bool {
	for _, m := range s.host.SystemMessages() {
		if strings.Contains(strings.ToLower(m.Text), strings.ToLower(substr)) {
			return true
		}
	}
	return false
}

func (s *EngineSuite) TestFirstJoinStartsRound() {
	a := s.join("p-a", "Alice", false)

	snap := s.snapshot()
	s.Equal(PhaseDrawing, snap.Phase)
	s.Equal(1, snap.Round)
	s.Equal(a, snap.DrawerID)
	s.True(s.host.TimerArmed(engine.TimerRoundEnd))

	started := s.host.EventsOfType(model.EventRoundStarted)
	s.Require().Len(started, 1)
	payload := started[0].Payload.(model.RoundStartedPayload)
	s.Equal(a, payload.DrawerID)
	s.Equal("Alice", payload.DrawerName)
	s.True(s.systemMessageContaining("Round 1"))
}

func (s *EngineSuite) TestGuessRules() {
	a := s.join("p-a", "Alice", false)
	b := s.join("p-b", "Bob", false)

	// The drawer cannot guess
	s.guess(a, "a house")
	s.Equal(0, s.snapshot().GuessCount)

	// Blank guesses are dropped
	s.guess(b, "   ")
	s.Equal(0, s.snapshot().GuessCount)

	// One slot per player, last write wins
	s.guess(b, "a cat")
	s.guess(b, "a dog")
	s.Equal(1, s.snapshot().GuessCount)

	guesses := s.host.GuessMessages()
	s.Require().Len(guesses, 2)
	s.Equal("a dog", guesses[1].Text)
}

func (s *EngineSuite) TestMajorityVoteAwardsPoint() {
	s.join("p-a", "Alice", false)
	b := s.join("p-b", "Bob", false)
	c := s.join("p-c", "Carol", false)

	s.guess(b, "a cat")
	s.guess(c, "a spaceship")
	s.reachVoting()

	voting := s.host.EventsOfType(model.EventVotingStarted)
	s.Require().Len(voting, 1)
	results := voting[0].Payload.(model.VotingStartedPayload).Results
	s.Require().Len(results, 2)
	s.NotEmpty(results[0].ImageRef)

	// Both eligible voters pick Carol; a strict majority
	s.engine.OnVote(b, c)
	s.engine.OnVote(c, c)

	snap := s.snapshot()
	s.Equal(PhaseResults, snap.Phase)
	s.Equal(1, snap.Scores[c])
	s.Equal(0, snap.Scores[b])

	s.Require().Len(s.host.ScoreDeltas, 1)
	s.Equal(map[model.PlayerID]int{c: 1}, s.host.ScoreDeltas[0])
	s.True(s.systemMessageContaining("Carol wins"))
	s.True(s.host.TimerArmed(engine.TimerResultsEnd))
}

func (s *EngineSuite) TestSplitVoteAwardsNothing() {
	s.join("p-a", "Alice", false)
	b := s.join("p-b", "Bob", false)
	c := s.join("p-c", "Carol", false)

	s.guess(b, "a cat")
	s.guess(c, "a spaceship")
	s.reachVoting()

	// One vote each; neither has a strict majority of the two cast
	s.engine.OnVote(b, b)
	s.engine.OnVote(c, c)

	snap := s.snapshot()
	s.Equal(PhaseResults, snap.Phase)
	s.Empty(s.host.ScoreDeltas)
	s.True(s.systemMessageContaining("No clear favourite"))

	resultsEvents := s.host.EventsOfType(model.EventRoundResults)
	s.Require().Len(resultsEvents, 1)
	payload := resultsEvents[0].Payload.(model.RoundResultsPayload)
	s.Empty(payload.Winners)
	s.Equal(2, payload.Tally[b]+payload.Tally[c])
}

func (s *EngineSuite) TestVotesAreImmutable() {
	s.join("p-a", "Alice", false)
	b := s.join("p-b", "Bob", false)
	c := s.join("p-c", "Carol", false)

	s.guess(b, "a cat")
	s.guess(c, "a spaceship")
	s.reachVoting()

	s.engine.OnVote(b, c)
	// Bob tries to switch; the first vote stands
	s.engine.OnVote(b, b)
	s.engine.OnVote(c, c)

	s.Require().Len(s.host.ScoreDeltas, 1)
	s.Equal(map[model.PlayerID]int{c: 1}, s.host.ScoreDeltas[0])
}

func (s *EngineSuite) TestDrawerCannotVote() {
	a := s.join("p-a", "Alice", false)
	b := s.join("p-b", "Bob", false)
	c := s.join("p-c", "Carol", false)

	s.guess(b, "a cat")
	s.guess(c, "a spaceship")
	s.reachVoting()

	s.engine.OnVote(a, b)
	s.Equal(0, s.snapshot().VoteCount)
}

func (s *EngineSuite) TestVoterLeaveDropsVote() {
	s.join("p-a", "Alice", false)
	b := s.join("p-b", "Bob", false)
	c := s.join("p-c", "Carol", false)

	s.guess(b, "a cat")
	s.guess(c, "a spaceship")
	s.reachVoting()

	s.engine.OnVote(c, b)
	s.leave(c)

	// Carol's vote is gone; voting stays open for Bob
	s.Equal(PhaseVoting, s.snapshot().Phase)
	s.Equal(0, s.snapshot().VoteCount)

	s.engine.OnVote(b, b)
	s.Equal(PhaseResults, s.snapshot().Phase)
	s.Require().Len(s.host.ScoreDeltas, 1)
	s.Equal(map[model.PlayerID]int{b: 1}, s.host.ScoreDeltas[0])
}

func (s *EngineSuite) TestVotesForDepartedPlayerAreDiscarded() {
	s.join("p-a", "Alice", false)
	b := s.join("p-b", "Bob", false)
	c := s.join("p-c", "Carol", false)
	d := s.join("p-d", "Dave", false)

	s.guess(b, "a cat")
	s.guess(c, "a spaceship")
	s.guess(d, "a volcano")
	s.reachVoting()

	s.engine.OnVote(b, d)
	s.engine.OnVote(c, d)
	s.leave(d)

	// Dave's votes leave with him and his entry can no longer win
	s.Equal(PhaseVoting, s.snapshot().Phase)
	s.Equal(0, s.snapshot().VoteCount)

	// A fresh vote for the departed player is rejected outright
	s.engine.OnVote(b, d)
	s.Equal(0, s.snapshot().VoteCount)

	s.engine.OnVote(b, b)
	s.engine.OnVote(c, b)
	s.Equal(PhaseResults, s.snapshot().Phase)
	s.Require().Len(s.host.ScoreDeltas, 1)
	s.Equal(map[model.PlayerID]int{b: 1}, s.host.ScoreDeltas[0])

	resultsEvents := s.host.EventsOfType(model.EventRoundResults)
	s.Require().Len(resultsEvents, 1)
	payload := resultsEvents[0].Payload.(model.RoundResultsPayload)
	s.Equal([]model.PlayerID{b}, payload.Winners)
	s.Zero(payload.Tally[d])
}

func (s *EngineSuite) TestDrawerLeaveSkipsRound() {
	a := s.join("p-a", "Alice", false)
	s.join("p-b", "Bob", false)
	c := s.join("p-c", "Carol", false)

	s.leave(a)

	snap := s.snapshot()
	s.Equal(PhaseDrawing, snap.Phase)
	s.Equal(2, snap.Round)
	s.Equal(c, snap.DrawerID)
	s.True(s.systemMessageContaining("drawer left"))
}

func (s *EngineSuite) TestNoGuessesSkipsRound() {
	s.join("p-a", "Alice", false)
	s.join("p-b", "Bob", false)

	s.engine.OnTimerExpired(engine.TimerRoundEnd)

	snap := s.snapshot()
	s.Equal(PhaseDrawing, snap.Phase)
	s.Equal(2, snap.Round)
	s.True(s.systemMessageContaining("Not enough guesses"))
}

func (s *EngineSuite) TestAllGenerationFailedSkipsRound() {
	s.join("p-a", "Alice", false)
	b := s.join("p-b", "Bob", false)

	s.guess(b, "a cat")
	s.gateway.QueueImage(nil, errors.New("backend down"))

	s.engine.OnTimerExpired(engine.TimerRoundEnd)

	s.Require().Eventually(func() bool {
		snap := s.snapshot()
		return snap.Phase == PhaseDrawing && snap.Round == 2
	}, time.Second, eventuallyTick)
	s.True(s.systemMessageContaining("generation failed"))
}

func (s *EngineSuite) TestDrawerEndsRoundEarly() {
	a := s.join("p-a", "Alice", false)
	b := s.join("p-b", "Bob", false)

	s.guess(b, "a cat")
	s.engine.OnCommand(a, "endRound", "")

	s.Require().Eventually(func() bool {
		return s.snapshot().Phase == PhaseVoting
	}, time.Second, eventuallyTick)
	s.False(s.host.TimerArmed(engine.TimerRoundEnd))
}

func (s *EngineSuite) TestNonDrawerCannotEndRound() {
	s.join("p-a", "Alice", false)
	b := s.join("p-b", "Bob", false)

	s.engine.OnCommand(b, "endRound", "")
	s.Equal(PhaseDrawing, s.snapshot().Phase)
}

func (s *EngineSuite) TestStaleTimerExpiryIsIgnored() {
	s.join("p-a", "Alice", false)
	b := s.join("p-b", "Bob", false)

	s.guess(b, "a cat")
	s.reachVoting()

	// A late drawing deadline notification must not disturb voting
	s.engine.OnTimerExpired(engine.TimerRoundEnd)
	s.Equal(PhaseVoting, s.snapshot().Phase)
}

func (s *EngineSuite) TestResultsDeadlineAdvancesRound() {
	s.join("p-a", "Alice", false)
	b := s.join("p-b", "Bob", false)
	c := s.join("p-c", "Carol", false)

	s.guess(b, "a cat")
	s.guess(c, "a spaceship")
	s.reachVoting()
	s.engine.OnVote(b, c)
	s.engine.OnVote(c, c)
	s.Require().Equal(PhaseResults, s.snapshot().Phase)

	s.engine.OnTimerExpired(engine.TimerResultsEnd)

	snap := s.snapshot()
	s.Equal(PhaseDrawing, snap.Phase)
	s.Equal(2, snap.Round)
	s.Equal(0, snap.GuessCount)
	s.Equal(0, snap.VoteCount)
}

func (s *EngineSuite) TestDrawingUpdatedBroadcast() {
	a := s.join("p-a", "Alice", false)

	s.engine.OnCommand(a, "drawingUpdated", "")
	s.Len(s.host.EventsOfType(model.EventDrawingUpdated), 1)
}

func (s *EngineSuite) TestAIGuesserSubmitsGuess() {
	s.join("p-a", "Alice", false)
	s.join("p-z", "Pixel", true)

	s.Require().Eventually(func() bool {
		s.scheduler.FireAll()
		return s.snapshot().GuessCount >= 1
	}, 2*time.Second, eventuallyTick)

	guesses := s.host.GuessMessages()
	s.Require().NotEmpty(guesses)
	s.Equal(model.PlayerID("p-z"), guesses[0].PlayerID)
}

func (s *EngineSuite) TestLastChanceSweepForcesQuietGuessers() {
	s.join("p-a", "Alice", false)
	z := s.join("p-z", "Pixel", true)

	// Drop Pixel's regular timers so only the sweep's schedule remains
	s.engine.aiTimers.CancelPlayer(z)
	before := s.scheduler.PendingCount()

	s.engine.mu.Lock()
	s.engine.lastChanceSweep()
	s.engine.mu.Unlock()

	s.Equal(before+1, s.scheduler.PendingCount())
	s.Require().True(s.scheduler.FireNext())
	s.Require().Eventually(func() bool {
		return s.snapshot().GuessCount >= 1
	}, 2*time.Second, eventuallyTick)

	guesses := s.host.GuessMessages()
	s.Require().NotEmpty(guesses)
	s.Equal(z, guesses[0].PlayerID)
}

func (s *EngineSuite) TestLastChanceSweepSkipsRecentGuessers() {
	s.join("p-a", "Alice", false)
	z := s.join("p-z", "Pixel", true)

	s.engine.OnCommand(z, "guess", "a cat")
	s.Require().Len(s.host.GuessMessages(), 1)

	s.engine.aiTimers.CancelPlayer(z)
	before := s.scheduler.PendingCount()

	s.engine.mu.Lock()
	s.engine.lastChanceSweep()
	s.engine.mu.Unlock()

	// Pixel guessed moments ago, so no forced guess is armed
	s.Equal(before, s.scheduler.PendingCount())
}

func (s *EngineSuite) TestDeadlineGuardSuppressesLateAISchedules() {
	s.join("p-a", "Alice", false)
	before := s.scheduler.PendingCount()

	// With the round fresh, a joining AI arms its comment and guess timers
	s.join("p-y", "Echo", true)
	s.Equal(before+2, s.scheduler.PendingCount())

	// Near the deadline every delay would land inside the guard window
	s.clock.Advance(DefaultConfig().DrawDuration - 2*time.Second)
	s.join("p-z", "Pixel", true)
	s.Equal(before+2, s.scheduler.PendingCount())
}

func (s *EngineSuite) TestRegularCommentGates() {
	s.join("p-a", "Alice", false)
	z := s.join("p-z", "Pixel", true)

	s.engine.mu.Lock()
	s.engine.ai[z].lastChatTime = s.clock.Now()
	s.engine.mu.Unlock()
	prompts := s.gateway.PromptCount()

	// Within the minimum interval nothing is generated, only rescheduled
	s.engine.mu.Lock()
	s.engine.fireAIComment(z, false)
	s.engine.mu.Unlock()
	s.Equal(prompts, s.gateway.PromptCount())

	// Past the interval the probability gate still has to pass
	s.clock.Advance(DefaultConfig().Delays.CommentMinInterval + time.Second)
	s.random.QueueFloat64(0.9)
	s.engine.mu.Lock()
	s.engine.fireAIComment(z, false)
	s.engine.mu.Unlock()
	s.Equal(prompts, s.gateway.PromptCount())

	// Both gates open; the comment is generated
	s.random.QueueFloat64(0.1)
	s.engine.mu.Lock()
	s.engine.fireAIComment(z, false)
	s.engine.mu.Unlock()
	s.Require().Eventually(func() bool {
		return s.gateway.PromptCount() > prompts
	}, 2*time.Second, eventuallyTick)
}

func (s *EngineSuite) TestAIVoterVotesThroughPrompt() {
	s.join("p-a", "Alice", false)
	b := s.join("p-b", "Bob", false)
	s.join("p-z", "Pixel", true)

	s.guess(b, "a cat")
	s.reachVoting()

	s.gateway.QueueText("Vote: 1\nReason: love the whiskers", nil)

	s.Require().Eventually(func() bool {
		s.scheduler.FireAll()
		return s.snapshot().VoteCount >= 1
	}, 2*time.Second, eventuallyTick)

	// The reason line arrives as regular chat from the AI
	found := false
	for _, m := range s.host.Messages {
		if m.PlayerID == "p-z" && !m.IsSystem && !m.IsGuess && m.Text == "love the whiskers" {
			found = true
		}
	}
	s.True(found)

	// Bob completes the vote; Bob's entry had both votes
	s.engine.OnVote(b, b)
	s.Equal(PhaseResults, s.snapshot().Phase)
	s.Require().Len(s.host.ScoreDeltas, 1)
	s.Equal(map[model.PlayerID]int{b: 1}, s.host.ScoreDeltas[0])
}

func (s *EngineSuite) TestLastHumanLeavingEndsGame() {
	a := s.join("p-a", "Alice", false)
	s.join("p-z", "Pixel", true)

	ended := make(chan string, 1)
	s.engine.OnEnded(func(reason string) { ended <- reason })

	s.leave(a)

	s.Equal(PhaseEnded, s.snapshot().Phase)
	s.Len(s.host.EventsOfType(model.EventGameEnded), 1)
	select {
	case reason := <-ended:
		s.Contains(reason, "simulated")
	case <-time.After(time.Second):
		s.Fail("ended hook never fired")
	}
}

func (s *EngineSuite) TestEmptyRoomEndsGame() {
	a := s.join("p-a", "Alice", false)
	s.leave(a)

	s.Equal(PhaseEnded, s.snapshot().Phase)
	s.Len(s.host.EventsOfType(model.EventGameEnded), 1)
	s.False(s.host.TimerArmed(engine.TimerRoundEnd))
}

func (s *EngineSuite) TestCommandsAfterEndAreIgnored() {
	a := s.join("p-a", "Alice", false)
	s.leave(a)

	s.engine.OnCommand(a, "guess", "a cat")
	s.engine.OnVote(a, a)
	s.engine.OnTimerExpired(engine.TimerRoundEnd)
	s.Equal(PhaseEnded, s.snapshot().Phase)
}
