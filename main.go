package main

import "github.com/liamg/nagprobe/cmd"

func main() {
	cmd.Execute()
}
