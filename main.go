package main

import "github.com/syncwire/clerk-sync/cmd"

func main() {
	cmd.Execute()
}
