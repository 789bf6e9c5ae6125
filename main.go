package main

import "github.com/jonandersen/tradier/cmd"

func main() {
	cmd.Execute()
}
