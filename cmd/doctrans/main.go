package main

import "github.com/olexh/doctrans/internal/client/cli"

func main() {
	cli.Execute()
}
