package main

import "github.com/mcoot/wsgate/internal/cli"

func main() {
	cli.Execute()
}
