package main

import (
	"github.com/spf13/cobra"

	"github.com/haricheung/boxplan/internal/pddl"
	"github.com/haricheung/boxplan/internal/problem"
	"github.com/haricheung/boxplan/internal/workspace"
)

func (a *app) convertCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "convert INPUT.json",
		Short: "Compile a problem document to a PDDL problem (INPUT may be -)",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, _, err := a.compile(args[0])
			if err != nil {
				return err
			}
			return workspace.WriteOutput(out, a.stdout, []byte(text))
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the problem here instead of stdout")
	return cmd
}

// compile loads the document at path ("-" for stdin) and renders it.
func (a *app) compile(path string) (string, *problem.Model, error) {
	in, err := workspace.OpenInput(path, a.stdin)
	if err != nil {
		return "", nil, err
	}
	defer in.Close()

	m, err := problem.Load(in, a.logger)
	if err != nil {
		return "", nil, err
	}
	text, err := pddl.Render(m)
	if err != nil {
		return "", nil, err
	}
	return text, m, nil
}
