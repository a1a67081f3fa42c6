package main

import "github.com/prereqgraph/prereqgraph/cmd"

func main() {
	cmd.Execute()
}
