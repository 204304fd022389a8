package main

import "github.com/vietddude/prospector/internal/cli"

func main() {
	cli.Execute()
}
