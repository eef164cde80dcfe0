package main

import (
	"fmt"
	"os"

	"github.com/hermes-soc/filesorter/cmd/filesorter/commands"
)

func main() {
	err := commands.Execute()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
