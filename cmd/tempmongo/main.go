package main

import "github.com/tempmongo/tempmongo/internal/cli"

func main() {
	cli.Main()
}
