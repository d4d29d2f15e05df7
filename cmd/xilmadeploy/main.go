package main

import (
	"os"

	"github.com/xilma-bot/xilmadeploy/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		cmd.PrintError("%v", err)
		os.Exit(cmd.ExitCode(err))
	}
}
