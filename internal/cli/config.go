package cli

import "os"

// Config holds CLI configuration
type Config struct {
	// ServerURL is the base URL of the party room server
	ServerURL string
	// Output selects the output format: text or json
	Output string
	// Verbose enables verbose output
	Verbose bool
}

// DefaultConfig returns CLI defaults, honouring environment overrides
func DefaultConfig() *Config {
	serverURL := os.Getenv("PARTYROOM_SERVER")
	if serverURL == "" {
		serverURL = "http://localhost:8080"
	}

	return &Config{
		ServerURL: serverURL,
		Output:    "text",
	}
}
