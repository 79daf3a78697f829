package cli

import (
	"encoding/json"
	"fmt"
)

// printResult prints a result as JSON when requested, otherwise via the
// given text formatter
func printResult(result any, text func()) {
	if cfg.Output == "json" {
		data, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(data))
		return
	}
	text()
}
