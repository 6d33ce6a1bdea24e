package main

import "github.com/LeJamon/goMarble/internal/cli"

func main() {
	cli.Execute()
}
