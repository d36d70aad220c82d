package main

import "canopy/cmd"

const Version = "v0.1.0"

func main() {
	cmd.Execute()
}
