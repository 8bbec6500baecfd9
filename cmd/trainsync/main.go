package main

import "github.com/trainsync/trainsync/cmd/trainsync/cmd"

func main() {
	cmd.Execute()
}
