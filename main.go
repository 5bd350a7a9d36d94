package main

import "github.com/Daskott/lifealert/cmd"

func main() {
	cmd.Execute()
}
