package main

import "github.com/eslsoft/vocsync/cmd"

func main() {
	cmd.Execute()
}
