package main

import "imis/cmd/cli/command"

func main() {
	command.Execute()
}
