package main

import "github.com/jsphweid/pianofalls/cmd"

func main() {
	cmd.Execute()
}
