package room

import (
	"context"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/suite"

	"github.com/playroomlabs/partyroom/internal/dependencies/mocks"
	"github.com/playroomlabs/partyroom/internal/model"
	"github.com/playroomlabs/partyroom/internal/sse"
	"github.com/playroomlabs/partyroom/internal/storage/memory"
	"github.com/playroomlabs/partyroom/internal/testutil"
)

type HostSuite struct {
	suite.Suite

	ctx       context.Context
	clock     *mocks.MockClock
	scheduler *mocks.MockScheduler
	store     *memory.Storage
	hub       *sse.Hub
	host      *Host
}

func TestHostSuite(t *testing.T) {
	suite.Run(t, new(HostSuite))
}

func (s *HostSuite) SetupTest() {
	s.ctx = context.Background()
	s.clock = mocks.NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	s.scheduler = mocks.NewMockScheduler()
	s.store = memory.New()

	logger := testutil.NopLogger()
	s.hub = sse.NewHub("ABC234", logger)
	go s.hub.Run()
	s.T().Cleanup(s.hub.Close)

	s.host = NewHost("ABC234", s.hub, s.store, s.scheduler, s.clock, logger)
}

func (s *HostSuite) addPlayer(id, name string) model.PlayerID {
	pid := model.PlayerID(id)
	s.host.AddPlayer(model.RoomPlayer{ID: pid, Username: name, JoinedAt: s.clock.Now()}, nil)
	return pid
}

func (s *HostSuite) TestRoster() {
	a := s.addPlayer("p-a", "Alice")
	s.addPlayer("p-z", "Pixel")

	players := s.host.Players()
	s.Len(players, 2)
	s.Equal("Alice", players[a].Username)

	// The returned map is a copy
	delete(players, a)
	s.Len(s.host.Players(), 2)

	s.host.RemovePlayer(a)
	s.Len(s.host.Players(), 1)
}

func (s *HostSuite) TestAIProfile() {
	profile := model.AIProfile{Username: "Pixel", Personality: "Chaotic doodler"}
	s.host.AddPlayer(model.RoomPlayer{ID: "p-z", Username: "Pixel", IsAI: true}, &profile)

	got, ok := s.host.AIProfile("p-z")
	s.Require().True(ok)
	s.Equal("Chaotic doodler", got.Personality)

	_, ok = s.host.AIProfile("p-unknown")
	s.False(ok)
}

func (s *HostSuite) TestTimersRouteToHandler() {
	var fired []string
	s.host.SetTimerHandler(func(name string) { fired = append(fired, name) })

	s.host.StartTimer("roundEnd", 90*time.Second)
	s.Equal(s.clock.Now().Add(90*time.Second), s.host.TimerEndTime("roundEnd"))

	s.scheduler.FireAll()
	s.Equal([]string{"roundEnd"}, fired)
	s.True(s.host.TimerEndTime("roundEnd").IsZero())
}

func (s *HostSuite) TestClearTimer() {
	fired := false
	s.host.SetTimerHandler(func(string) { fired = true })

	s.host.StartTimer("voteEnd", 30*time.Second)
	s.host.ClearTimer("voteEnd")
	s.scheduler.FireAll()

	s.False(fired)
	s.True(s.host.TimerEndTime("voteEnd").IsZero())
}

func (s *HostSuite) TestSystemMessagePersistence() {
	s.host.SendSystemMessage("Round 1!", true)
	s.host.SendSystemMessage("ephemeral notice", false)

	history, err := s.store.GetChatHistory(s.ctx, "ABC234")
	s.Require().NoError(err)
	s.Require().Len(history, 1)
	s.Equal("Round 1!", history[0].Content)
	s.Equal("System", history[0].Username)
	s.True(history[0].IsSystem)
}

func (s *HostSuite) TestPlayerMessagePersists() {
	s.addPlayer("p-a", "Alice")

	s.host.SendPlayerMessage("p-a", "a cat", true)
	// Unknown senders are dropped
	s.host.SendPlayerMessage("p-x", "ghost message", false)

	history, err := s.store.GetChatHistory(s.ctx, "ABC234")
	s.Require().NoError(err)
	s.Require().Len(history, 1)
	s.Equal("Alice", history[0].Username)
	s.Equal("a cat", history[0].Content)
	s.False(history[0].IsSystem)
}

func (s *HostSuite) TestTargetedMessageIsNotPersisted() {
	s.addPlayer("p-a", "Alice")
	s.host.SendSystemMessageTo("p-a", "welcome back")

	history, err := s.store.GetChatHistory(s.ctx, "ABC234")
	s.Require().NoError(err)
	s.Empty(history)
}

func (s *HostSuite) TestSanitize() {
	s.Equal("hello world", s.host.Sanitize("  hello   world  ", ""))
	s.Equal("whats up", s.host.Sanitize("what's up!", ""))
	s.Equal("what's up!", s.host.Sanitize("what's up!", "'!?,.-"))
	s.Equal("abc123", s.host.Sanitize("<abc>&123;", ""))
	s.Equal("tabs and newlines", s.host.Sanitize("tabs\tand\nnewlines", ""))

	long := strings.Repeat("a", 200)
	s.Len(s.host.Sanitize(long, ""), maxMessageLength)

	s.Equal("", s.host.Sanitize("$%^&*", ""))
}

func (s *HostSuite) TestSanitizeTruncatesOnRuneBoundary() {
	s.Equal("héllo wörld", s.host.Sanitize("héllo wörld", ""))

	capped := s.host.Sanitize(strings.Repeat("é", 200), "")
	s.True(utf8.ValidString(capped))
	s.Equal(maxMessageLength, utf8.RuneCountInString(capped))
}

func (s *HostSuite) TestDrawingData() {
	data, err := s.host.DrawingData(s.ctx)
	s.Require().NoError(err)
	s.Empty(data)

	s.Require().NoError(s.host.SetDrawingData(s.ctx, "canvas-state"))
	data, err = s.host.DrawingData(s.ctx)
	s.Require().NoError(err)
	s.Equal("canvas-state", data)
}

func (s *HostSuite) TestSaveGeneratedImage() {
	ref, err := s.host.SaveGeneratedImage(s.ctx, []byte("png-bytes"), "p-a", 3)
	s.Require().NoError(err)
	s.True(strings.HasPrefix(ref, "/api/media/ABC234-3-p-a-"))

	data, err := s.store.GetMedia(s.ctx, strings.TrimPrefix(ref, "/api/media/"))
	s.Require().NoError(err)
	s.Equal([]byte("png-bytes"), data)
}

func (s *HostSuite) TestUpdateScoresPersistsRoster() {
	room := model.NewRoom("ABC234", model.GameKindDrawing, s.clock.Now())
	s.Require().NoError(s.store.SaveRoom(s.ctx, room))

	a := s.addPlayer("p-a", "Alice")
	b := s.addPlayer("p-b", "Bob")

	s.host.UpdateScores(map[model.PlayerID]int{a: 2, b: 1})
	s.host.UpdateScores(map[model.PlayerID]int{a: 1})

	s.Equal(3, s.host.Players()[a].Score)
	s.Equal(1, s.host.Players()[b].Score)

	saved, err := s.store.GetRoom(s.ctx, "ABC234")
	s.Require().NoError(err)
	s.Equal(3, saved.Players[a].Score)
	s.Equal(1, saved.Players[b].Score)
}
