package main

import "imscale/cmd"

func main() {
	cmd.Execute()
}
