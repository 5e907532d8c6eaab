package main

import (
	"fmt"

	"github.com/chazu/cortex/pkg/colormap"
	"github.com/chazu/cortex/pkg/geometry"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newTemplatesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "templates",
		Short: "List the built-in mesh templates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range geometry.Templates() {
				m, err := geometry.Load(name)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-12s %8s vertices %8s faces\n", name,
					humanize.Comma(int64(m.NumVertices())),
					humanize.Comma(int64(m.NumFaces())))
			}
			return nil
		},
	}
}

func newPalettesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "palettes",
		Short: "List the available colormaps (append _r to reverse any of them)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range colormap.Names() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}
