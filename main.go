package main

import "batchup/cmd"

func main() {
	cmd.Execute()
}
