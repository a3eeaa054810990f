package main

import "github.com/ogulcanaydogan/slack-alert-processor/internal/cli"

func main() {
	cli.Execute()
}
