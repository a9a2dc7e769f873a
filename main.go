package main

import "github.com/driftshell/driftshell/cmd"

func main() {
	cmd.Execute()
}
