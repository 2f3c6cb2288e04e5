package main

import "github.com/mcoot/partyroom/internal/cli"

func main() {
	cli.Execute()
}
