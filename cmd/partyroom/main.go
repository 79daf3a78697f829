package main

import "github.com/playroomlabs/partyroom/internal/cli"

func main() {
	cli.Execute()
}
