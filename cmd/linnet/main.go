package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/shangma/linnet-go/pkg/circuit"
	"github.com/shangma/linnet-go/pkg/engine"
	"github.com/shangma/linnet-go/pkg/netlist"
)

func main() {
	var bitmaskWidth int
	var logLevel string
	var outDir string

	rootCmd := &cobra.Command{
		Use:   "linnet",
		Short: "Solve a linear circuit's symbolic transfer functions",
	}
	rootCmd.PersistentFlags().IntVar(&bitmaskWidth, "bitmask-width", 64, "Width of the product-of-constants bitmask")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVarP(&outDir, "out-dir", "o", ".", "Directory for rendered text and script output")

	newEngine := func() (*engine.Engine, error) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			return nil, fmt.Errorf("invalid --log-level: %w", err)
		}
		e := engine.New(engine.Config{BitmaskWidth: bitmaskWidth, OutDir: outDir})
		e.Log.SetLevel(level)
		return e, nil
	}

	loadCircuits := func(paths []string) ([]*circuit.Circuit, error) {
		fs := afero.NewOsFs()
		circuits := make([]*circuit.Circuit, 0, len(paths))
		for _, p := range paths {
			c, err := netlist.Parse(fs, p)
			if err != nil {
				return nil, fmt.Errorf("parse %s: %w", p, err)
			}
			circuits = append(circuits, c)
		}
		return circuits, nil
	}

	solveCmd := &cobra.Command{
		Use:   "solve [netlist...]",
		Short: "Solve one or more netlists and write text and numeric output",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEngine()
			if err != nil {
				return err
			}
			circuits, err := loadCircuits(args)
			if err != nil {
				return err
			}
			code := e.RunAll(circuits)
			if code != 0 {
				os.Exit(code)
			}
			return nil
		},
	}

	listCmd := &cobra.Command{
		Use:   "list-requests [netlist...]",
		Short: "List the result requests declared in one or more netlists",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			circuits, err := loadCircuits(args)
			if err != nil {
				return err
			}
			for _, c := range circuits {
				fmt.Printf("%s:\n", c.Name)
				for _, r := range c.Requests {
					if r.IsBode() {
						fmt.Printf("  %s: %s / %s (bode)\n", r.Name, r.Dependents[0], r.Independent)
					} else {
						fmt.Printf("  %s: %v\n", r.Name, r.Dependents)
					}
				}
			}
			return nil
		},
	}

	rootCmd.AddCommand(solveCmd, listCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
