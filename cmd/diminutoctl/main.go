// Command diminutoctl is a local CLI for exercising the diminuto
// endpoint parser, ICMP probe engine, and rate meter.
package main

import "github.com/diminuto-go/diminuto/cmd/diminutoctl/commands"

func main() {
	commands.Execute()
}
