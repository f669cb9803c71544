package main

import "github.com/feynmanium/feynmanium/cmd"

func main() {
	cmd.Execute()
}
