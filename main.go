package main

import "github.com/samsaffron/tale-llm/cmd"

func main() {
	cmd.Execute()
}
