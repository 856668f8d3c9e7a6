package main

import (
	"github.com/ghoul-sol/treasure-marketplace/cmd"
)

func main() {
	cmd.Execute()
}
