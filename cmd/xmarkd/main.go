package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/matheus3301/xmark/internal/account"
	"github.com/matheus3301/xmark/internal/daemon"
	"go.uber.org/fx"
)

func main() {
	accountFlag := flag.String("account", "", "account name (overrides config default)")
	debugFlag := flag.Bool("debug", false, "log at debug level")
	flag.Parse()

	accountName := account.Resolve(*accountFlag)
	if err := account.ValidateName(accountName); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	app := fx.New(
		daemon.Module(daemon.Params{AccountName: accountName, Debug: *debugFlag}),
	)

	app.Run()
}
