package main

import "github.com/ripas/ripas-go/cmd"

func main() {
	cmd.Execute()
}
