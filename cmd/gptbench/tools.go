package main

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/metalagman/gptbench/internal/toolcall"
)

func toolsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "Inspect and call the benchmark tools",
	}
	cmd.AddCommand(toolsListCmd())
	cmd.AddCommand(toolsCallCmd())
	return cmd
}

func toolsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List tools with their signatures",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			tb, err := newToolbox(cfg)
			if err != nil {
				return err
			}
			specs := tb.reg.Specs()
			sort.SliceStable(specs, func(i, j int) bool { return specs[i].Category < specs[j].Category })
			t := table.New().Headers("Category", "Signature", "Description")
			for _, s := range specs {
				t.Row(s.Category, s.Signature(), s.Description)
			}
			fmt.Fprintln(cmd.OutOrStdout(), t.Render())

			aliases := tb.reg.Aliases()
			names := make([]string, 0, len(aliases))
			for a := range aliases {
				names = append(names, a)
			}
			sort.Strings(names)
			for _, a := range names {
				fmt.Fprintf(cmd.OutOrStdout(), "alias %s -> %s\n", a, aliases[a])
			}
			return nil
		},
	}
}

func toolsCallCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "call <tool> [json-arguments | model-output]",
		Short: "Run one tool through the argument normalizer",
		Long: `Run one tool through the argument normalizer and print the JSON result.

With a single argument that parses as a model tool call, e.g.
'{"name": "calc", "arguments": {"expr": "2+2"}}', the call is detected and
dispatched the way benchmarked output is.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			tb, err := newToolbox(cfg)
			if err != nil {
				return err
			}

			name := args[0]
			var callArgs any = map[string]any{}
			if len(args) == 2 {
				if err := json.Unmarshal([]byte(args[1]), &callArgs); err != nil {
					// raw strings go to the tool's positional parameter
					callArgs = args[1]
				}
			} else if call, ok := toolcall.Parse(name); ok {
				name, callArgs = call.Name, call.Arguments
			}

			res := tb.norm.Execute(cmd.Context(), name, callArgs)
			out, err := json.MarshalIndent(res.Value(), "", "  ")
			if err != nil {
				return fmt.Errorf("encode result: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			if !res.OK() {
				return fmt.Errorf("%s failed", res.Tool)
			}
			return nil
		},
	}
}
