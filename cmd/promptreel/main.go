package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	promptreelcmd "promptreel/internal/cli/cmd"
)

func main() {
	// Local .env is a convenience for the gateway credentials; absence
	// is fine.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := promptreelcmd.Execute(ctx); err != nil {
		var ee *promptreelcmd.ExitError
		if errors.As(err, &ee) {
			if ee.Err != nil {
				fmt.Fprintln(os.Stderr, ee.Err)
			}
			os.Exit(ee.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(promptreelcmd.ExitCLIError)
	}
	os.Exit(promptreelcmd.ExitOK)
}
