package main

import "itemcatalog/internal/cli"

func main() {
	cli.Execute()
}
