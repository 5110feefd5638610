package main

import "github.com/klabast/wb-services/habit-tracker/internal/commands"

func main() {
	commands.Execute()
}
