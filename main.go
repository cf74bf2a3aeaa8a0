package main

import "github.com/derickschaefer/bazi/cmd"

func main() {
	cmd.Execute()
}
