package main

import (
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/IshaanNene/ReviewGoat/internal/sources"
)

// sourcesCmd lists the supported review directories.
func sourcesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "List supported sources, their aliases and acquisition modes",
		Run: func(cmd *cobra.Command, args []string) {
			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.AppendHeader(table.Row{"Source", "Aliases", "Site", "Modes"})
			for _, p := range sources.All() {
				modes := make([]string, len(p.Modes))
				for i, m := range p.Modes {
					modes[i] = string(m)
				}
				t.AppendRow(table.Row{p.Source, strings.Join(p.Aliases, ", "), p.Origin, strings.Join(modes, ", ")})
			}
			t.SetStyle(table.StyleRounded)
			t.Render()
		},
	}
}
