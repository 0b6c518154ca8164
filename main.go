package main

import "agent-optimus/commands"

func main() {
	commands.Execute()
}
