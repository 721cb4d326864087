package main

import "github.com/simaogato/ledger-backend/cmd/ledger/commands"

func main() {
	commands.Execute()
}
