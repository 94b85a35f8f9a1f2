package main

import "github.com/octabyte/sentimind-session/cmd/sentimind/cmd"

func main() {
	cmd.Execute()
}
