package main

import "github.com/jmcleod/daystore/cmd/daystore/cmd"

func main() {
	cmd.Execute()
}
