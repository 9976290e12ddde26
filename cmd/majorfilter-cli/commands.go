package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"yashubustudio/majorfilter/majorfilter"
)

func newValidateCmd(c *cli) *cobra.Command {
	var strategy string
	cmd := &cobra.Command{
		Use:   "validate CONDITIONS_FILE",
		Short: "Load and compile a condition file without reading any data",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conds, err := majorfilter.LoadConditions(args[0])
			if err != nil {
				return err
			}
			plan, err := majorfilter.Compile(conds, majorfilter.CompileOptions{ContainsStrategy: strategy})
			if err != nil {
				return err
			}
			bad := printPlan(cmd.OutOrStdout(), plan)
			c.logger.Info("conditions validated")
			if bad > 0 {
				return fmt.Errorf("%d condition(s) can never match", bad)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&strategy, "contains-strategy", majorfilter.ContainsAuto, "contains matcher: auto, regex or automaton")
	return cmd
}

// printPlan lists every condition and contains group and returns how many
// conditions carry a diagnostic.
func printPlan(w io.Writer, plan *majorfilter.Plan) int {
	bad := 0
	fmt.Fprintf(w, "条件 %d 条：\n", len(plan.Conditions))
	for i, cc := range plan.Conditions {
		line := fmt.Sprintf("  %d. %s (weight=%g)", i+1, cc.Describe(), cc.Weight)
		if cc.Diagnostic != "" {
			bad++
			line += "  !! " + cc.Diagnostic
		}
		fmt.Fprintln(w, line)
	}
	if len(plan.Groups) > 0 {
		fmt.Fprintf(w, "contains 组 %d 个：\n", len(plan.Groups))
		for _, g := range plan.Groups {
			fmt.Fprintf(w, "  - %s [%s] %d 个词，策略 %s\n", g.Column, g.Options.Key(), len(g.Tokens), g.Strategy)
		}
	}
	return bad
}

func newInitConfigCmd(c *cli) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init-config [PATH]",
		Short: "Write a config file holding the defaults",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "majorfilter.yaml"
			if len(args) == 1 && strings.TrimSpace(args[0]) != "" {
				path = strings.TrimSpace(args[0])
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := majorfilter.SaveConfig(path, majorfilter.DefaultConfig()); err != nil {
				return err
			}
			c.logger.Debug("config written", zap.String("path", path))
			fmt.Fprintf(cmd.OutOrStdout(), "已生成配置文件：%s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing file")
	return cmd
}
