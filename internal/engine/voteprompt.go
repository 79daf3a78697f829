package engine

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/playroomlabs/partyroom/internal/model"
)

var (
	votePattern   = regexp.MustCompile(`(?i)vote:\s*#?(\d+)`)
	reasonPattern = regexp.MustCompile(`(?is)reason:\s*(.+)`)
)

// BuildVotePrompt assembles a ranked-choice prompt for a simulated voter.
// Options are numbered 1-based in display order; failed results must be
// filtered out by the caller.
func BuildVotePrompt(persona string, options []model.GeneratedResult) string {
	var b strings.Builder
	if persona != "" {
		b.WriteString(persona)
		b.WriteString("\n\n")
	}
	b.WriteString("Pick your favourite of the following entries.\n")
	for i, opt := range options {
		fmt.Fprintf(&b, "%d. %s (by %s)\n", i+1, opt.Content, opt.PlayerName)
	}
	b.WriteString("\nReply in exactly this format:\nVote: <number>\nReason: <one short sentence>\n")
	return b.String()
}

// ParseVoteReply extracts a 1-based vote index and free-text reason from a
// generated reply. It returns ok=false when no in-range vote number can be
// parsed; callers fall back to a random valid target.
func ParseVoteReply(text string, numOptions int) (index int, reason string, ok bool) {
	if m := reasonPattern.FindStringSubmatch(text); m != nil {
		reason = strings.TrimSpace(m[1])
	}

	m := votePattern.FindStringSubmatch(text)
	if m == nil {
		return 0, reason, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n < 1 || n > numOptions {
		return 0, reason, false
	}
	return n - 1, reason, true
}
