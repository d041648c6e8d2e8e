package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/finam-ufz/finam/manifest"
	"github.com/finam-ufz/finam/registry"
)

var runUntil string

var runCmd = &cobra.Command{
	Use:   "run <manifest.yaml>",
	Short: "Build and run the composition described by a manifest",
	Long: `run instantiates every component and link named in the manifest using
the component and adapter types this build of the finam binary has
registered, then drives the scheduler until the --until time.

A bare finam binary only has the built-in adapter types registered; running
a manifest that names custom component types requires a hosting program
that imports registry, registers its own component factories, and calls
this same machinery directly rather than through the CLI.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := manifest.Load(args[0])
		if err != nil {
			return err
		}

		until, err := time.Parse(time.RFC3339, runUntil)
		if err != nil {
			return fmt.Errorf("--until must be RFC3339, e.g. 2020-01-02T00:00:00Z: %w", err)
		}

		reg := registry.New()
		comp, err := reg.Build(m)
		if err != nil {
			return err
		}

		if err := comp.Initialize(); err != nil {
			return err
		}
		if err := comp.Connect(); err != nil {
			return err
		}
		if err := comp.Run(until); err != nil {
			return err
		}

		fmt.Println("run complete")
		return nil
	},
}

func init() {
	runCmd.Flags().StringVar(&runUntil, "until", "", "RFC3339 timestamp to run the composition until")
	_ = runCmd.MarkFlagRequired("until")
}
