package main

import "github.com/drgolem/audioengine/cmd"

func main() {
	cmd.Execute()
}
