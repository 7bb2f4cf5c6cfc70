package main

import "calnotify/internal/cli"

func main() {
	cli.Execute()
}
