package main

import (
	"log/slog"
	"os"

	"git.home.luguber.info/inful/sitebuilder/cmd/sitebuilder/commands"
	"git.home.luguber.info/inful/sitebuilder/internal/errors"
)

func main() {
	cli := &commands.CLI{}
	parser, err := commands.NewParser(cli)
	if err != nil {
		panic(err)
	}

	ctx, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)

	err = ctx.Run(&commands.Global{Logger: slog.Default(), Out: os.Stdout}, cli)
	errors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).HandleError(err)
}
