package main

import "github.com/dmitrijs2005/idverifier/internal/server/cli"

func main() {
	cli.Execute()
}
