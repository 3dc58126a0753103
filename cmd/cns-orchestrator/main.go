package main

import "github.com/cnscp/cns-orchestrator/internal/cli"

func main() {
	cli.Execute()
}
