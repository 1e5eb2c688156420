// Command barriada-admin runs ledger administration from the shell: dues
// calls, payments, expenses, statements and admin tokens.
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"barriada/internal/cli"
)

func main() {
	cli.LoadEnvFile()
	setupConsoleLog(os.Getenv("LOG_LEVEL"))

	ctx, stop := cli.SignalContext()
	defer stop()

	if err := newRootCmd(newApp()).ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
