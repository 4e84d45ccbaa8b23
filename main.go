package main

import "flight-tools/cmd"

func main() {
	cmd.Execute()
}
