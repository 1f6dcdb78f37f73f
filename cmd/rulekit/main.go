package main

import (
	"os"

	"github.com/Oyestore/receivables-sub031/cmd/rulekit/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
