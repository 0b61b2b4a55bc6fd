package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/metalagman/gptbench/internal/suite"
)

func suitesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "suites",
		Short: "Inspect test suites",
	}
	cmd.AddCommand(suitesListCmd())
	return cmd
}

func suitesListCmd() *cobra.Command {
	var mode string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the cases of the configured suites",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			modes, err := suite.ParseMode(mode)
			if err != nil {
				return err
			}
			for _, m := range modes {
				s, err := loadSuite(cfg, m)
				if err != nil {
					return err
				}
				t := table.New().Headers("Case", "Tool", "Steps", "Prompt")
				for _, c := range s.Cases {
					tool := ""
					if c.ExpectsTool {
						tool = "yes"
					}
					t.Row(c.Name, tool, strings.Join(c.Steps, " → "), oneLine(c.Prompt, 70))
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s (%s, %d cases)\n%s\n\n", s.Name, s.Mode, len(s.Cases), t.Render())
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "all", "instruct, tool, agent or all")
	return cmd
}

func oneLine(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > n {
		return string(r[:n]) + "…"
	}
	return s
}
