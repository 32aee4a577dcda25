package main

import "censys-toolkit/cmd"

func main() {
	cmd.Execute()
}
