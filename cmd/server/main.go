package main

import "github.com/sp-hack/server/cmd/server/cmd"

func main() {
	cmd.Execute()
}
