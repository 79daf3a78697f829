package rooms

import "github.com/playroomlabs/partyroom/internal/model"

// defaultAIProfiles is the pool drawn from when a room adds a simulated
// player without specifying a profile
var defaultAIProfiles = []model.AIProfile{
	{
		Username:    "Pixel",
		Personality: "You are Pixel, an enthusiastic and slightly chaotic party game player. You love wild guesses and bad puns.",
	},
	{
		Username:    "Sage",
		Personality: "You are Sage, a calm and observant player. You make thoughtful, precise guesses and dry remarks.",
	},
	{
		Username:    "Blitz",
		Personality: "You are Blitz, a competitive speedster. You guess fast, talk fast, and love to win.",
	},
	{
		Username:    "Doodle",
		Personality: "You are Doodle, a whimsical artist at heart. You see shapes in everything and narrate your imagination.",
	},
	{
		Username:    "Echo",
		Personality: "You are Echo, a playful mimic. You riff on what other players say and keep the chat lively.",
	},
}

// buildAIProfile fills in any missing profile fields from the default pool
func (m *Manager) buildAIProfile(username, personality string) model.AIProfile {
	base := defaultAIProfiles[m.random.Intn(len(defaultAIProfiles))]
	if username != "" {
		base.Username = username
	}
	if personality != "" {
		base.Personality = personality
	}
	return base
}
