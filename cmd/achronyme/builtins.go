package main

import (
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"

	"github.com/vito/achronyme/pkg/ach"
	"github.com/vito/achronyme/pkg/ioctx"
)

func builtinsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "builtins [MODULE]",
		Short: "List builtin functions, optionally for one module",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := ioctx.StdoutFromContext(cmd.Context())
			if len(args) == 0 {
				printBuiltins(w, ach.Modules(), nil)
				return nil
			}
			if !slices.Contains(ach.Modules(), args[0]) {
				return fmt.Errorf("unknown module %q (have %v)", args[0], ach.Modules())
			}
			printBuiltins(w, []string{args[0]}, ach.ModuleBuiltins(args[0]))
			return nil
		},
	}
}

// printBuiltins lists builtins grouped by module. When defs is nil every
// registered builtin is listed.
func printBuiltins(w io.Writer, modules []string, defs []ach.BuiltinDef) {
	p := newPrinter(w)
	byModule := map[string][]ach.BuiltinDef{}
	if defs != nil {
		byModule[modules[0]] = defs
	} else {
		ach.ForEachFunction(func(def ach.BuiltinDef) {
			byModule[def.Module] = append(byModule[def.Module], def)
		})
	}
	for k, mod := range modules {
		if k > 0 {
			p.Printf("\n")
		}
		p.Title(mod)
		width := 0
		for _, def := range byModule[mod] {
			width = max(width, len(def.Signature()))
		}
		for _, def := range byModule[mod] {
			p.Printf("  %s  %s\n", pad(def.Signature(), width), p.render(labelStyle, def.Doc))
		}
	}
}
