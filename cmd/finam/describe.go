package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/finam-ufz/finam/manifest"
)

var describeCmd = &cobra.Command{
	Use:   "describe <manifest.yaml>",
	Short: "Print a composition manifest's components and links",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := manifest.Load(args[0])
		if err != nil {
			return err
		}
		fmt.Print(m.Summary())
		return nil
	},
}
