package main

import "github.com/RyanBlaney/melodia/cmd"

func main() {
	cmd.Execute()
}
