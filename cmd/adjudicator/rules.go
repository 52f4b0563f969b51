package main

import (
	"fmt"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"adjudicator/internal/eligibility"
	"adjudicator/internal/platform/config"
	"adjudicator/internal/refund/models"
)

type ruleRow struct {
	ID       string   `yaml:"id"`
	Category string   `yaml:"category,omitempty"`
	Stages   []string `yaml:"stages,omitempty"`
	Ground   string   `yaml:"ground"`
	Outcome  string   `yaml:"outcome"`
	Formula  string   `yaml:"formula,omitempty"`
	Clause   string   `yaml:"clause"`
}

type limitationRow struct {
	Category     string `yaml:"category"`
	Days         int    `yaml:"days"`
	BusinessDays bool   `yaml:"business_days"`
}

func rulesCmd() *cobra.Command {
	var asYAML bool
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Print the eligibility rule table and limitation windows",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			cal, err := newCalendar(cfg.Pipeline)
			if err != nil {
				return err
			}
			engine := eligibility.New(cal)
			rules, limits := ruleRows(engine.Rules()), limitationRows(engine.Limitations())

			out := cmd.OutOrStdout()
			if asYAML {
				enc := yaml.NewEncoder(out)
				enc.SetIndent(2)
				defer enc.Close()
				return enc.Encode(map[string]any{"rules": rules, "limitations": limits})
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "RULE\tCATEGORY\tSTAGES\tGROUND\tOUTCOME\tFORMULA\tCLAUSE")
			for _, r := range rules {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
					r.ID, orAny(r.Category), orAny(strings.Join(r.Stages, ",")), r.Ground, r.Outcome, orDash(r.Formula), r.Clause)
			}
			fmt.Fprintln(tw)
			fmt.Fprintln(tw, "CATEGORY\tLIMITATION")
			for _, l := range limits {
				unit := "calendar days"
				if l.BusinessDays {
					unit = "business days"
				}
				fmt.Fprintf(tw, "%s\t%d %s\n", l.Category, l.Days, unit)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asYAML, "yaml", false, "emit YAML instead of a table")
	return cmd
}

func ruleRows(rules []eligibility.Rule) []ruleRow {
	out := make([]ruleRow, 0, len(rules))
	for _, r := range rules {
		stages := make([]string, 0, len(r.Stages))
		for _, s := range r.Stages {
			stages = append(stages, string(s))
		}
		out = append(out, ruleRow{
			ID:       r.ID,
			Category: string(r.Category),
			Stages:   stages,
			Ground:   string(r.Ground),
			Outcome:  string(r.Outcome),
			Formula:  string(r.Formula),
			Clause:   r.Clause,
		})
	}
	return out
}

func limitationRows(limits map[models.Category]eligibility.Limitation) []limitationRow {
	out := make([]limitationRow, 0, len(limits))
	for c, l := range limits {
		out = append(out, limitationRow{Category: string(c), Days: l.Days, BusinessDays: l.BusinessDays})
	}
	slices.SortFunc(out, func(a, b limitationRow) int { return strings.Compare(a.Category, b.Category) })
	return out
}

func orAny(s string) string {
	if s == "" {
		return "any"
	}
	return s
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
