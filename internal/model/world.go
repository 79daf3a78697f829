package model

import "strings"

// HistoryCapacity bounds the adventure history log
const HistoryCapacity = 25

// HistoryLog is a bounded, oldest-first log of narrative entries.
// Pushing past capacity drops the oldest entry.
type HistoryLog struct {
	entries  []string
	capacity int
}

// NewHistoryLog creates a log bounded to the given capacity
func NewHistoryLog(capacity int) *HistoryLog {
	if capacity <= 0 {
		capacity = HistoryCapacity
	}
	return &HistoryLog{capacity: capacity}
}

// Push appends an entry, evicting the oldest if the log is full
func (l *HistoryLog) Push(entry string) {
	l.entries = append(l.entries, entry)
	if len(l.entries) > l.capacity {
		l.entries = l.entries[len(l.entries)-l.capacity:]
	}
}

// Entries returns a copy of the log, oldest first
func (l *HistoryLog) Entries() []string {
	out := make([]string, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of entries currently held
func (l *HistoryLog) Len() int {
	return len(l.entries)
}

// Inventory is an ordered list of item names with case-insensitive
// membership and case-preserving storage.
type Inventory struct {
	items []string
}

// NewInventory creates an empty inventory
func NewInventory() *Inventory {
	return &Inventory{}
}

// Has reports whether an equivalent item is present, ignoring case
func (inv *Inventory) Has(item string) bool {
	return inv.indexOf(item) >= 0
}

// Add inserts the item unless an equivalent one is already present.
// It returns true if the inventory changed.
func (inv *Inventory) Add(item string) bool {
	item = strings.TrimSpace(item)
	if item == "" || inv.Has(item) {
		return false
	}
	inv.items = append(inv.items, item)
	return true
}

// Remove deletes the first case-insensitive match. Removing an absent
// item is silently ignored; returns true if the inventory changed.
func (inv *Inventory) Remove(item string) bool {
	idx := inv.indexOf(item)
	if idx < 0 {
		return false
	}
	inv.items = append(inv.items[:idx], inv.items[idx+1:]...)
	return true
}

// Items returns a copy of the inventory in insertion order
func (inv *Inventory) Items() []string {
	out := make([]string, len(inv.items))
	copy(out, inv.items)
	return out
}

// Len returns the number of items held
func (inv *Inventory) Len() int {
	return len(inv.items)
}

func (inv *Inventory) indexOf(item string) int {
	for i, existing := range inv.items {
		if strings.EqualFold(strings.TrimSpace(item), existing) {
			return i
		}
	}
	return -1
}

// World is the adventure engine's shared persistent state
type World struct {
	Description string
	ImageRef    string
	History     *HistoryLog
	Inventory   *Inventory
}

// NewWorld creates a world with the given starting scene description
func NewWorld(description string) *World {
	return &World{
		Description: description,
		History:     NewHistoryLog(HistoryCapacity),
		Inventory:   NewInventory(),
	}
}
