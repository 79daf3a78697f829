package model

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInventoryAddIgnoresCaseDuplicates(t *testing.T) {
	inv := NewInventory()

	assert.True(t, inv.Add("Sword"))
	assert.False(t, inv.Add("sword"))
	assert.False(t, inv.Add("  SWORD  "))

	assert.Equal(t, []string{"Sword"}, inv.Items())
	assert.True(t, inv.Has("sWoRd"))
}

func TestInventoryAddRejectsBlank(t *testing.T) {
	inv := NewInventory()
	assert.False(t, inv.Add(""))
	assert.False(t, inv.Add("   "))
	assert.Equal(t, 0, inv.Len())
}

func TestInventoryRemove(t *testing.T) {
	inv := NewInventory()
	inv.Add("Sword")
	inv.Add("Lantern")

	assert.True(t, inv.Remove("sword"))
	assert.False(t, inv.Remove("sword"))
	assert.Equal(t, []string{"Lantern"}, inv.Items())
}

func TestInventoryItemsIsACopy(t *testing.T) {
	inv := NewInventory()
	inv.Add("Sword")

	items := inv.Items()
	items[0] = "mutated"
	assert.Equal(t, []string{"Sword"}, inv.Items())
}

func TestHistoryLogEvictsOldest(t *testing.T) {
	log := NewHistoryLog(HistoryCapacity)
	for i := 1; i <= 30; i++ {
		log.Push(fmt.Sprintf("entry %d", i))
	}

	entries := log.Entries()
	assert.Len(t, entries, HistoryCapacity)
	assert.Equal(t, "entry 6", entries[0])
	assert.Equal(t, "entry 30", entries[len(entries)-1])
}

func TestHistoryLogDefaultsCapacity(t *testing.T) {
	log := NewHistoryLog(0)
	for i := 0; i < HistoryCapacity+1; i++ {
		log.Push("x")
	}
	assert.Equal(t, HistoryCapacity, log.Len())
}

func TestNewWorld(t *testing.T) {
	world := NewWorld("an open field")
	assert.Equal(t, "an open field", world.Description)
	assert.Equal(t, 0, world.History.Len())
	assert.Equal(t, 0, world.Inventory.Len())
}
