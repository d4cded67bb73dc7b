package main

import "github.com/dgallion1/binder/internal/cli"

func main() {
	cli.Execute()
}
