package main

import (
	"os"

	"cartbot/presentation/cli"
)

func main() {
	os.Exit(cli.Execute())
}
