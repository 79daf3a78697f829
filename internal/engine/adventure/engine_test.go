package adventure

import (
	"encoding/json"
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
	s.newEngine(DefaultConfig())
}

func (s *EngineSuite) TearDownTest() {
	s.engine.Close()
}

func (s *EngineSuite) newEngine(cfg Config) {
	s.engine = New(s.host, s.gateway, s.clock, s.random, s.scheduler, cfg, testutil.NopLogger())
}

// roster registers a player on the host before the engine starts
func (s *EngineSuite) roster(id, name string, isAI bool) model.PlayerID {
	pid := model.PlayerID(id)
	player := model.RoomPlayer{
		ID:       pid,
		Username: name,
		IsAI:     isAI,
		JoinedAt: s.clock.Now(),
	}
	var profile *model.AIProfile
	if isAI {
		profile = &model.AIProfile{Username: name, Personality: "You are a daring test adventurer."}
	}
	s.host.AddPlayer(player, profile)
	return pid
}

// start runs the engine and waits past the opening scene into input
func (s *EngineSuite) start() {
	s.engine.Start()
	s.Require().Eventually(func() bool {
		return s.snapshot().Phase == PhaseInput
	}, time.Second, eventuallyTick)
}

func (s *EngineSuite) snapshot() Snapshot {
	return s.engine.Snapshot().(Snapshot)
}

func (s *EngineSuite) act(id model.PlayerID, text string) {
	s.engine.OnCommand(id, "guess", text)
}

// reachVoting closes input via the phase deadline and waits out generation
func (s *EngineSuite) reachVoting() {
	s.engine.OnTimerExpired(engine.TimerRoundEnd)
	s.Require().Eventually(func() bool {
		return s.snapshot().Phase == PhaseVoting
	}, time.Second, eventuallyTick)
}

func (s *EngineSuite) waitForResults() {
	s.Require().Eventually(func() bool {
		return s.snapshot().Phase == PhaseResults
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

func outcomeJSON(narrative string, added, removed []string) json.RawMessage {
	data, _ := json.Marshal(map[string]any{
		"narrative":     narrative,
		"items_added":   added,
		"items_removed": removed,
	})
	return data
}

func (s *EngineSuite) TestStartDescribesSceneAndOpensInput() {
	s.roster("p-a", "Alice", false)
	s.start()

	snap := s.snapshot()
	s.Equal(1, snap.Round)
	s.Equal(DefaultStartingScene, snap.Description)
	s.NotEmpty(snap.ImageRef)
	s.True(s.host.TimerArmed(engine.TimerRoundEnd))

	described := s.host.EventsOfType(model.EventSceneDescribed)
	s.Require().Len(described, 1)
	payload := described[0].Payload.(model.SceneDescribedPayload)
	s.Equal(DefaultStartingScene, payload.Description)
	s.Empty(payload.Inventory)
	s.True(s.systemMessageContaining("What do you do?"))
	s.Len(s.host.EventsOfType(model.EventInputOpen), 1)
}

func (s *EngineSuite) TestOpeningImageFailureUsesPlaceholder() {
	s.roster("p-a", "Alice", false)
	s.gateway.QueueImage(nil, errors.New("backend down"))
	s.start()

	s.Equal(DefaultConfig().PlaceholderImage, s.snapshot().ImageRef)
}

func (s *EngineSuite) TestActionRules() {
	a := s.roster("p-a", "Alice", false)
	s.roster("p-b", "Bob", false)
	s.start()

	// Blank submissions are dropped
	s.act(a, "   ")
	s.Equal(0, s.snapshot().ActionCount)

	// One slot per player, last write wins
	s.act(a, "open mailbox")
	s.act(a, "read leaflet")
	s.Equal(1, s.snapshot().ActionCount)

	guesses := s.host.GuessMessages()
	s.Require().Len(guesses, 2)
	s.Equal("read leaflet", guesses[1].Text)
}

func (s *EngineSuite) TestQuorumArmsGraceOnce() {
	a := s.roster("p-a", "Alice", false)
	b := s.roster("p-b", "Bob", false)
	s.start()

	s.act(a, "open mailbox")
	before := s.scheduler.PendingCount()

	s.act(b, "go north")
	s.Equal(before+1, s.scheduler.PendingCount())

	// Quorum already armed; re-checks must not stack further delays
	s.engine.OnPlayerLeave(b)
	s.host.RemovePlayer(b)
	s.Equal(before+1, s.scheduler.PendingCount())

	// The grace delay is the soonest pending callback
	s.Require().True(s.scheduler.FireNext())
	s.Require().Eventually(func() bool {
		return s.snapshot().Phase == PhaseVoting
	}, time.Second, eventuallyTick)
}

func (s *EngineSuite) TestSingleHumanRoundTrip() {
	a := s.roster("p-a", "Alice", false)
	s.start()

	s.act(a, "open mailbox")
	s.Require().True(s.scheduler.FireNext()) // grace

	s.Require().Eventually(func() bool {
		return s.snapshot().Phase == PhaseVoting
	}, time.Second, eventuallyTick)

	presented := s.host.EventsOfType(model.EventActionsPresented)
	s.Require().Len(presented, 1)
	results := presented[0].Payload.(model.ActionsPresentedPayload).Results
	s.Require().Len(results, 1)
	s.Equal(a, results[0].PlayerID)
	s.NotEmpty(results[0].ImageRef)

	s.gateway.QueueStructured("", outcomeJSON("Inside the mailbox is a leaflet.", []string{"leaflet"}, nil), nil)
	s.engine.OnVote(a, a)
	s.waitForResults()

	snap := s.snapshot()
	s.Equal("Inside the mailbox is a leaflet.", snap.Description)
	s.Equal([]string{"leaflet"}, snap.Inventory)

	revealed := s.host.EventsOfType(model.EventOutcomeRevealed)
	s.Require().Len(revealed, 1)
	payload := revealed[0].Payload.(model.OutcomeRevealedPayload)
	s.Equal(a, payload.WinnerID)
	s.Equal("Inside the mailbox is a leaflet.", payload.Narrative)
	s.True(s.systemMessageContaining("Alice's action wins"))
	s.True(s.host.TimerArmed(engine.TimerResultsEnd))
}

func (s *EngineSuite) TestInputDeadlineWithoutActionsSkipsRound() {
	s.roster("p-a", "Alice", false)
	s.start()

	s.engine.OnTimerExpired(engine.TimerRoundEnd)

	snap := s.snapshot()
	s.Equal(PhaseInput, snap.Phase)
	s.Equal(2, snap.Round)
	s.True(s.systemMessageContaining("Nobody did anything"))
}

func (s *EngineSuite) TestActionCapBoundsGeneration() {
	cfg := DefaultConfig()
	cfg.ActionCap = 2
	s.newEngine(cfg)

	a := s.roster("p-a", "Alice", false)
	b := s.roster("p-b", "Bob", false)
	c := s.roster("p-c", "Carol", false)
	s.start()

	s.act(a, "open mailbox")
	s.act(b, "go north")
	s.act(c, "climb the tree")
	s.reachVoting()

	// Only the two earliest actions were generated
	results := s.snapshot().Results
	s.Require().Len(results, 2)
	s.Equal(a, results[0].PlayerID)
	s.Equal(b, results[1].PlayerID)
}

func (s *EngineSuite) TestPluralityWinWithInventoryNotice() {
	a := s.roster("p-a", "Alice", false)
	b := s.roster("p-b", "Bob", false)
	c := s.roster("p-c", "Carol", false)
	s.start()

	s.act(a, "open mailbox")
	s.act(b, "kick the door")
	s.act(c, "climb the tree")
	s.reachVoting()

	s.gateway.QueueStructured("", outcomeJSON("The door splinters. A brass key drops out.", []string{"brass key"}, nil), nil)

	// Every present player votes; Bob takes the plurality
	s.engine.OnVote(a, b)
	s.engine.OnVote(b, b)
	s.engine.OnVote(c, c)
	s.waitForResults()

	revealed := s.host.EventsOfType(model.EventOutcomeRevealed)
	s.Require().Len(revealed, 1)
	s.Equal(b, revealed[0].Payload.(model.OutcomeRevealedPayload).WinnerID)

	// The inventory summary arrives on a short delay
	s.scheduler.FireAll()
	s.Require().Eventually(func() bool {
		return s.systemMessageContaining("Gained: brass key")
	}, time.Second, eventuallyTick)

	changed := s.host.EventsOfType(model.EventInventoryChanged)
	s.Require().Len(changed, 1)
	payload := changed[0].Payload.(model.InventoryChangedPayload)
	s.Equal([]string{"brass key"}, payload.Added)
	s.Equal([]string{"brass key"}, payload.Items)
}

func (s *EngineSuite) TestTieBreaksRandomly() {
	a := s.roster("p-a", "Alice", false)
	b := s.roster("p-b", "Bob", false)
	s.start()

	s.act(a, "open mailbox")
	s.act(b, "go north")
	s.reachVoting()

	// Both vote for themselves; the draw picks the second tied entry
	s.random.QueueIntn(1)
	s.engine.OnVote(a, a)
	s.engine.OnVote(b, b)
	s.waitForResults()

	revealed := s.host.EventsOfType(model.EventOutcomeRevealed)
	s.Require().Len(revealed, 1)
	s.Equal(b, revealed[0].Payload.(model.OutcomeRevealedPayload).WinnerID)
}

func (s *EngineSuite) TestZeroVotesFallsBackToRandomOutcome() {
	a := s.roster("p-a", "Alice", false)
	s.roster("p-b", "Bob", false)
	s.start()

	s.act(a, "open mailbox")
	s.reachVoting()

	s.engine.OnTimerExpired(engine.TimerVoteEnd)
	s.waitForResults()

	revealed := s.host.EventsOfType(model.EventOutcomeRevealed)
	s.Require().Len(revealed, 1)
	s.Equal(a, revealed[0].Payload.(model.OutcomeRevealedPayload).WinnerID)
}

func (s *EngineSuite) TestUnknownVoteTargetRejected() {
	a := s.roster("p-a", "Alice", false)
	s.roster("p-b", "Bob", false)
	s.start()

	s.act(a, "open mailbox")
	s.reachVoting()

	s.engine.OnVote(a, "p-nobody")
	s.Equal(0, s.snapshot().VoteCount)
}

func (s *EngineSuite) TestDepartedPlayerOutcomeCannotWin() {
	a := s.roster("p-a", "Alice", false)
	b := s.roster("p-b", "Bob", false)
	c := s.roster("p-c", "Carol", false)
	s.start()

	s.act(a, "open mailbox")
	s.act(b, "go north")
	s.act(c, "climb the tree")
	s.reachVoting()

	s.engine.OnVote(a, c)
	s.engine.OnVote(b, c)

	s.host.RemovePlayer(c)
	s.engine.OnPlayerLeave(c)

	// Carol's outcome lost its votes and is no longer votable
	s.Equal(PhaseVoting, s.snapshot().Phase)
	s.Equal(0, s.snapshot().VoteCount)
	s.engine.OnVote(a, c)
	s.Equal(0, s.snapshot().VoteCount)

	s.gateway.QueueStructured("", outcomeJSON("The path north opens up.", nil, nil), nil)
	s.engine.OnVote(a, b)
	s.engine.OnVote(b, b)
	s.waitForResults()

	revealed := s.host.EventsOfType(model.EventOutcomeRevealed)
	s.Require().Len(revealed, 1)
	s.Equal(b, revealed[0].Payload.(model.OutcomeRevealedPayload).WinnerID)
}

func (s *EngineSuite) TestDeadlineGuardKeepsAIActionImminent() {
	s.roster("p-a", "Alice", false)
	s.start()

	// Near the deadline an AI's comment is suppressed but its action is
	// armed to fire at once; it never skips participating
	s.clock.Advance(DefaultConfig().InputDuration - 2*time.Second)
	before := s.scheduler.PendingCount()

	z := model.PlayerID("p-z")
	player := model.RoomPlayer{ID: z, Username: "Sage", IsAI: true, JoinedAt: s.clock.Now()}
	s.host.AddPlayer(player, &model.AIProfile{Username: "Sage", Personality: "You are terse."})
	s.engine.OnPlayerJoin(player)

	s.Equal(before+1, s.scheduler.PendingCount())
	s.Require().True(s.scheduler.FireNext())
	s.Require().Eventually(func() bool {
		return s.snapshot().ActionCount >= 1
	}, 2*time.Second, eventuallyTick)
}

func (s *EngineSuite) TestAllGenerationsFailedSkipsRound() {
	a := s.roster("p-a", "Alice", false)
	b := s.roster("p-b", "Bob", false)
	s.start()

	s.act(a, "open mailbox")
	s.act(b, "go north")
	s.gateway.QueueText("", errors.New("backend down"))
	s.gateway.QueueText("", errors.New("backend down"))

	s.engine.OnTimerExpired(engine.TimerRoundEnd)

	s.Require().Eventually(func() bool {
		snap := s.snapshot()
		return snap.Phase == PhaseInput && snap.Round == 2
	}, time.Second, eventuallyTick)
	s.True(s.systemMessageContaining("fates are silent"))
}

func (s *EngineSuite) TestStructuredFailureLeavesWorldUnchanged() {
	a := s.roster("p-a", "Alice", false)
	s.start()

	s.act(a, "open mailbox")
	s.reachVoting()

	s.gateway.QueueStructured("", nil, errors.New("backend down"))
	s.engine.OnVote(a, a)

	s.Require().Eventually(func() bool {
		snap := s.snapshot()
		return snap.Phase == PhaseInput && snap.Round == 2
	}, time.Second, eventuallyTick)

	s.Equal(DefaultStartingScene, s.snapshot().Description)
	s.True(s.systemMessageContaining("story thread was lost"))
	s.Empty(s.host.EventsOfType(model.EventOutcomeRevealed))
}

func (s *EngineSuite) TestUnparseableOutcomeDegradesToPlainText() {
	a := s.roster("p-a", "Alice", false)
	s.start()

	s.act(a, "open mailbox")
	s.reachVoting()

	s.gateway.QueueStructured("The hinge squeaks but holds.", json.RawMessage("not json"), nil)
	s.engine.OnVote(a, a)
	s.waitForResults()

	s.Equal("The hinge squeaks but holds.", s.snapshot().Description)
	s.Empty(s.snapshot().Inventory)
}

func (s *EngineSuite) TestEmptyOutcomeLeavesWorldUnchanged() {
	a := s.roster("p-a", "Alice", false)
	s.start()

	s.act(a, "open mailbox")
	s.reachVoting()

	// Unparseable payload with no fallback text at all
	s.gateway.QueueStructured("", json.RawMessage("not json"), nil)
	s.engine.OnVote(a, a)

	s.Require().Eventually(func() bool {
		snap := s.snapshot()
		return snap.Phase == PhaseInput && snap.Round == 2
	}, time.Second, eventuallyTick)

	s.Equal(DefaultStartingScene, s.snapshot().Description)
	s.True(s.systemMessageContaining("story thread was lost"))
	s.Empty(s.host.EventsOfType(model.EventOutcomeRevealed))
}

func (s *EngineSuite) TestTerminalNarrativeEndsGame() {
	a := s.roster("p-a", "Alice", false)
	s.start()

	ended := make(chan string, 1)
	s.engine.OnEnded(func(reason string) { ended <- reason })

	s.act(a, "eat the glowing mushroom")
	s.reachVoting()

	s.gateway.QueueStructured("", outcomeJSON("It was poison. You have died.", nil, nil), nil)
	s.engine.OnVote(a, a)

	s.Require().Eventually(func() bool {
		return s.snapshot().Phase == PhaseEnded
	}, time.Second, eventuallyTick)

	s.Len(s.host.EventsOfType(model.EventGameOver), 1)
	s.Len(s.host.EventsOfType(model.EventGameEnded), 1)
	select {
	case reason := <-ended:
		s.Equal("terminal narrative", reason)
	case <-time.After(time.Second):
		s.Fail("ended hook never fired")
	}
}

func (s *EngineSuite) TestVoterLeaveCompletesVoting() {
	a := s.roster("p-a", "Alice", false)
	b := s.roster("p-b", "Bob", false)
	s.start()

	s.act(a, "open mailbox")
	s.act(b, "go north")
	s.reachVoting()

	s.engine.OnVote(b, b)
	s.host.RemovePlayer(a)
	s.engine.OnPlayerLeave(a)

	// Bob's vote now covers everyone present
	s.waitForResults()
	revealed := s.host.EventsOfType(model.EventOutcomeRevealed)
	s.Require().Len(revealed, 1)
	s.Equal(b, revealed[0].Payload.(model.OutcomeRevealedPayload).WinnerID)
}

func (s *EngineSuite) TestResultsDeadlineStartsNextRound() {
	a := s.roster("p-a", "Alice", false)
	s.start()

	s.act(a, "open mailbox")
	s.reachVoting()
	s.engine.OnVote(a, a)
	s.waitForResults()

	s.engine.OnTimerExpired(engine.TimerResultsEnd)

	snap := s.snapshot()
	s.Equal(PhaseInput, snap.Phase)
	s.Equal(2, snap.Round)
	s.Equal(0, snap.ActionCount)
	s.Equal(0, snap.VoteCount)
}

func (s *EngineSuite) TestMidGameJoinReceivesScene() {
	s.roster("p-a", "Alice", false)
	s.start()

	b := model.PlayerID("p-b")
	player := model.RoomPlayer{ID: b, Username: "Bob", JoinedAt: s.clock.Now()}
	s.host.AddPlayer(player, nil)
	s.engine.OnPlayerJoin(player)

	found := false
	for _, m := range s.host.Messages {
		if m.PlayerID == b && m.IsSystem && m.Text == DefaultStartingScene {
			found = true
		}
	}
	s.True(found)
}

func (s *EngineSuite) TestAIPlayerSubmitsAction() {
	s.roster("p-a", "Alice", false)
	z := s.roster("p-z", "Sage", true)
	s.start()

	s.Require().Eventually(func() bool {
		s.scheduler.FireAll()
		return s.snapshot().ActionCount >= 1
	}, 2*time.Second, eventuallyTick)

	found := false
	for _, m := range s.host.GuessMessages() {
		if m.PlayerID == z {
			found = true
		}
	}
	s.True(found)
}

func (s *EngineSuite) TestAIVoterVotesThroughPrompt() {
	a := s.roster("p-a", "Alice", false)
	s.roster("p-z", "Sage", true)
	s.start()

	s.act(a, "open mailbox")
	s.reachVoting()

	s.gateway.QueueText("Vote: 1\nReason: sounds promising", nil)
	s.Require().Eventually(func() bool {
		s.scheduler.FireAll()
		return s.snapshot().VoteCount >= 1
	}, 2*time.Second, eventuallyTick)

	s.gateway.QueueStructured("", outcomeJSON("The mailbox creaks open.", nil, nil), nil)
	s.engine.OnVote(a, a)
	s.waitForResults()

	revealed := s.host.EventsOfType(model.EventOutcomeRevealed)
	s.Require().Len(revealed, 1)
	s.Equal(a, revealed[0].Payload.(model.OutcomeRevealedPayload).WinnerID)
}

func (s *EngineSuite) TestLastHumanLeavingEndsGame() {
	a := s.roster("p-a", "Alice", false)
	s.roster("p-z", "Sage", true)
	s.start()

	s.host.RemovePlayer(a)
	s.engine.OnPlayerLeave(a)

	s.Equal(PhaseEnded, s.snapshot().Phase)
	s.Len(s.host.EventsOfType(model.EventGameEnded), 1)
	s.False(s.host.TimerArmed(engine.TimerRoundEnd))
}
