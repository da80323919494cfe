package main

import "github.com/stratoscan/stratoscan/cmd/stratoscan/commands"

func main() {
	commands.Execute()
}
