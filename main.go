package main

import "github.com/robobook/bookchat/cmd/bookchat/commands"

func main() {
	commands.Execute()
}
