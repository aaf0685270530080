package main

import "github.com/illustraitor/cli/cmd"

func main() {
	cmd.Execute()
}
