package main

import "github.com/nitpickhq/nitpick/cli"

func main() {
	cli.Run()
}
