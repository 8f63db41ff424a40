package commands

import (
	"fmt"

	"git.home.luguber.info/inful/sitebuilder/internal/tree"
)

// CleanCmd implements the 'clean' command.
type CleanCmd struct {
	RemoveSelf bool `name:"remove-self" help:"Also remove the output directory itself"`
}

func (c *CleanCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.LoadConfig()
	if err != nil {
		return err
	}
	if err := tree.Clean(cfg.Output.Directory, c.RemoveSelf); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(g.out(), "Cleaned %s\n", cfg.Output.Directory)
	return nil
}
