package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/finam-ufz/finam/manifest"
)

var validateCmd = &cobra.Command{
	Use:   "validate <manifest.yaml>",
	Short: "Validate a composition manifest's schema and topology",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		raw, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		if err := manifest.ValidateSchema(raw); err != nil {
			return err
		}

		m, err := manifest.Parse(raw)
		if err != nil {
			return err
		}
		if err := m.Validate(); err != nil {
			return err
		}

		if viper.GetBool("json") {
			fmt.Printf(`{"valid":true,"components":%d,"links":%d}`+"\n", len(m.Components), len(m.Links))
			return nil
		}
		fmt.Printf("%s: valid (%d components, %d links)\n", path, len(m.Components), len(m.Links))
		return nil
	},
}
