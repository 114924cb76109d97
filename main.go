package main

import "github.com/fakeyudi/encore/cmd"

func main() {
	cmd.Execute()
}
