package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"anvil/internal/ir"
	"anvil/internal/irpack"
)

var dumpCmd = &cobra.Command{
	Use:   "dump <module>",
	Short: "Print the portable IR of a serialized module",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		m, err := irpack.DecodeModule(data)
		if err != nil {
			return fmt.Errorf("decode %s: %w", args[0], err)
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "module %s\n", m.Name)
		for _, f := range m.Funcs {
			fmt.Fprintf(out, "\nfunc %s -> %s\n%s", f.Name, f.ReturnType, ir.Dump(f))
		}
		return nil
	},
}
