package engine_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/playroomlabs/partyroom/internal/dependencies/mocks"
	"github.com/playroomlabs/partyroom/internal/engine"
)

func TestAITimersScheduleReplacesPerKind(t *testing.T) {
	scheduler := mocks.NewMockScheduler()
	timers := engine.NewAITimers(scheduler)

	first, second := 0, 0
	timers.Schedule("p-z", engine.ActionGuess, 10*time.Second, func() { first++ })
	timers.Schedule("p-z", engine.ActionGuess, 5*time.Second, func() { second++ })

	scheduler.FireAll()
	assert.Equal(t, 0, first)
	assert.Equal(t, 1, second)
}

func TestAITimersKindsAreIndependent(t *testing.T) {
	scheduler := mocks.NewMockScheduler()
	timers := engine.NewAITimers(scheduler)

	fired := map[engine.ActionKind]int{}
	timers.Schedule("p-z", engine.ActionGuess, 10*time.Second, func() { fired[engine.ActionGuess]++ })
	timers.Schedule("p-z", engine.ActionComment, 5*time.Second, func() { fired[engine.ActionComment]++ })

	scheduler.FireAll()
	assert.Equal(t, 1, fired[engine.ActionGuess])
	assert.Equal(t, 1, fired[engine.ActionComment])
}

func TestAITimersCancelPlayer(t *testing.T) {
	scheduler := mocks.NewMockScheduler()
	timers := engine.NewAITimers(scheduler)

	zFired, yFired := 0, 0
	timers.Schedule("p-z", engine.ActionGuess, 10*time.Second, func() { zFired++ })
	timers.Schedule("p-z", engine.ActionComment, 5*time.Second, func() { zFired++ })
	timers.Schedule("p-y", engine.ActionGuess, 8*time.Second, func() { yFired++ })

	timers.CancelPlayer("p-z")
	scheduler.FireAll()

	assert.Equal(t, 0, zFired)
	assert.Equal(t, 1, yFired)
}

func TestAITimersCancelAll(t *testing.T) {
	scheduler := mocks.NewMockScheduler()
	timers := engine.NewAITimers(scheduler)

	fired := 0
	timers.Schedule("p-z", engine.ActionGuess, 10*time.Second, func() { fired++ })
	timers.Schedule("p-y", engine.ActionVote, 5*time.Second, func() { fired++ })

	timers.CancelAll()
	scheduler.FireAll()

	assert.Equal(t, 0, fired)
}

func TestAITimersRescheduleAfterFire(t *testing.T) {
	scheduler := mocks.NewMockScheduler()
	timers := engine.NewAITimers(scheduler)

	fired := 0
	timers.Schedule("p-z", engine.ActionGuess, 5*time.Second, func() { fired++ })
	scheduler.FireAll()
	assert.Equal(t, 1, fired)

	// The slot frees up once the timer fires
	timers.Schedule("p-z", engine.ActionGuess, 5*time.Second, func() { fired++ })
	scheduler.FireAll()
	assert.Equal(t, 2, fired)
}
