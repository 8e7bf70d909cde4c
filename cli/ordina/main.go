package main

import (
	"os"

	ordinacmder "github.com/civitaslabs/ordina/cmd/ordina"
)

func main() {
	cmd := ordinacmder.NewOrdinaCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
