package main

import "github.com/nfrund/chatline/cmd/chatline-cli/cmd"

func main() {
	cmd.Execute()
}
