package main

import (
	"github.com/spf13/cobra"

	"github.com/haricheung/boxplan/internal/pddl"
	"github.com/haricheung/boxplan/internal/workspace"
)

func (a *app) domainCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "domain",
		Short: "Print the fixed " + pddl.DomainName + " domain",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			return workspace.WriteOutput(out, a.stdout, []byte(pddl.Domain))
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the domain here instead of stdout")
	return cmd
}
