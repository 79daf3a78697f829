package model

// GeneratedResult is one AI-generated entry presented for voting.
// Failed results stay visible in broadcasts but are never valid vote targets.
type GeneratedResult struct {
	PlayerID   PlayerID
	PlayerName string
	Content    string
	ImageRef   string // URL or path of the saved generated image, empty if none
	Failed     bool
}
