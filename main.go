package main

import "photoutils/cmd"

func main() {
	cmd.Execute()
}
