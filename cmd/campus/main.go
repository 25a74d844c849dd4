package main

import "github.com/neuland-ingolstadt/campus-client/cmd/campus/cmd"

func main() {
	cmd.Execute()
}
