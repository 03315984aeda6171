package main

import "github.com/mkarpov/opinion-mm/cmd"

func main() {
	cmd.Execute()
}
