package main

import "dbnav/internal/cmd"

func main() {
	cmd.Execute()
}
