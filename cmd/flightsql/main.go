// Command flightsql renders flight statistics queries and runs one-off chat
// exchanges from the terminal.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	opts := &Options{}
	parser := flags.NewParser(opts, flags.Default)
	if _, err := parser.ParseArgs(args); err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			return 0
		}
		// parse errors are already printed by the parser
		if !errors.As(err, &ferr) {
			fmt.Fprintln(os.Stderr, err)
		}
		return 1
	}
	return 0
}
