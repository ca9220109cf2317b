package main

import "goscript/cmd"

var version = "v0.1.0"

func main() {
	cmd.Execute(version)
}
