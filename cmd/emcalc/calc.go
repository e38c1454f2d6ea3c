package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/em-billing-mcp-server/internal/domain"
	"github.com/em-billing-mcp-server/internal/service"
)

func mdmCmd(opts *rootOptions) *cobra.Command {
	var (
		moderate int
		high     int
		criteria []string
	)

	cmd := &cobra.Command{
		Use:   "mdm",
		Short: "Classify medical decision making complexity",
		Long: `Classify MDM complexity from tallies of satisfied moderate and high
criteria, or from checked worksheet criterion ids (see "emcalc mdm criteria").`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := opts.calculator(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			var verdict domain.ComplexityVerdict
			if len(criteria) > 0 {
				verdict, err = a.Calculator.ClassifyChecklist(cmd.Context(), criteria)
			} else {
				verdict, err = a.Calculator.ClassifyMDM(cmd.Context(), moderate, high)
			}
			if err != nil {
				return err
			}
			return printJSON(cmd, verdict)
		},
	}
	cmd.Flags().IntVar(&moderate, "moderate", 0, "number of satisfied moderate criteria")
	cmd.Flags().IntVar(&high, "high", 0, "number of satisfied high criteria")
	cmd.Flags().StringSliceVar(&criteria, "criteria", nil, "checked criterion ids (overrides the tallies)")

	cmd.AddCommand(&cobra.Command{
		Use:   "criteria",
		Short: "List the MDM worksheet criteria",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printJSON(cmd, service.CriteriaCatalog())
		},
	})
	return cmd
}

func revenueCmd(opts *rootOptions) *cobra.Command {
	var (
		patients   int
		file       string
		selections []string
	)

	cmd := &cobra.Command{
		Use:   "revenue",
		Short: "Aggregate projected revenue for a patient panel",
		Long: `Aggregate projected revenue from service selections.

Selections are given as CODE:PERCENT[:KIND[:BASIS]], for example
  --selection G0438:30:initial_visit --selection G0439:70:subsequent_visit
  --selection G0444:60:addon:subsequent
or loaded from a JSON file holding {"patient_count": N, "selections": [...]}.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req := service.AggregateRequest{PatientCount: patients}
			if file != "" {
				loaded, err := loadAggregateRequest(file)
				if err != nil {
					return err
				}
				req = *loaded
				if cmd.Flags().Changed("patients") {
					req.PatientCount = patients
				}
			}
			for _, arg := range selections {
				sel, err := parseSelection(arg)
				if err != nil {
					return err
				}
				req.Selections = append(req.Selections, sel)
			}

			a, err := opts.calculator(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			breakdown, err := a.Calculator.Aggregate(cmd.Context(), req)
			if err != nil {
				return err
			}
			return printJSON(cmd, breakdown)
		},
	}
	cmd.Flags().IntVar(&patients, "patients", 0, "patient panel size")
	cmd.Flags().StringVar(&file, "file", "", "JSON file with the aggregate request")
	cmd.Flags().StringArrayVar(&selections, "selection", nil, "service selection CODE:PERCENT[:KIND[:BASIS]]")
	return cmd
}

func wellnessCmd(opts *rootOptions) *cobra.Command {
	var (
		patients   int
		initialPct float64
		addOns     []string
	)

	cmd := &cobra.Command{
		Use:   "wellness",
		Short: "Project annual wellness visit revenue",
		Long: `Project G0438/G0439 annual wellness visit revenue. Enable the standard
add-ons with --addon CODE, optionally overriding the percentage with CODE:PERCENT.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			defaults := service.DefaultWellnessAddOns()
			if err := enableAddOns(defaults, addOns); err != nil {
				return err
			}

			a, err := opts.calculator(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			breakdown, err := a.Calculator.ProjectWellnessRevenue(cmd.Context(), service.WellnessProjection{
				PatientCount:      patients,
				InitialPercentage: initialPct,
				AddOns:            defaults,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd, breakdown)
		},
	}
	cmd.Flags().IntVar(&patients, "patients", 0, "eligible Medicare patients")
	cmd.Flags().Float64Var(&initialPct, "initial-pct", 0, "percentage receiving the initial visit (0-100)")
	cmd.Flags().StringSliceVar(&addOns, "addon", nil, "add-on codes to enable, CODE or CODE:PERCENT")
	return cmd
}

func modifierCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "modifier",
		Short: "Score modifier appropriateness checklists",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the built-in modifier checklists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printJSON(cmd, service.Checklists())
		},
	})

	var (
		answers   []string
		threshold int
	)
	score := &cobra.Command{
		Use:   "score [CHECKLIST]",
		Short: "Score answers against a checklist, or against --threshold",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := parseAnswers(answers)
			if err != nil {
				return err
			}

			a, err := opts.calculator(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			var result domain.AppropriatenessResult
			if len(args) == 1 {
				result, err = a.Calculator.ScoreModifier(cmd.Context(), args[0], parsed)
			} else {
				result, err = a.Calculator.Score(cmd.Context(), parsed, threshold)
			}
			if err != nil {
				return err
			}
			return printJSON(cmd, result)
		},
	}
	score.Flags().StringSliceVar(&answers, "answers", nil, "answers in checklist order (y/n, yes/no, true/false)")
	score.Flags().IntVar(&threshold, "threshold", 0, "required yes count when no checklist is named")
	cmd.AddCommand(score)

	return cmd
}

func loadAggregateRequest(path string) (*service.AggregateRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var req service.AggregateRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, domain.NewValidationError("file", err.Error(), path)
	}
	return &req, nil
}

// parseSelection parses CODE:PERCENT[:KIND[:BASIS]] into an enabled selection.
func parseSelection(arg string) (domain.ServiceSelection, error) {
	parts := strings.Split(arg, ":")
	if len(parts) < 2 || len(parts) > 4 {
		return domain.ServiceSelection{}, domain.NewValidationError("selection", "expected CODE:PERCENT[:KIND[:BASIS]]", arg)
	}

	pct, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return domain.ServiceSelection{}, domain.NewValidationError("selection", "percentage is not a number", arg)
	}

	sel := domain.ServiceSelection{
		CodeID:     strings.TrimSpace(parts[0]),
		Enabled:    true,
		Percentage: pct,
	}
	if len(parts) > 2 {
		sel.Kind = domain.SelectionKind(parts[2])
	}
	if len(parts) > 3 {
		sel.Basis = domain.VolumeBasis(parts[3])
	}
	return sel, nil
}

// enableAddOns turns on the named rows of addOns, overriding percentages
// given as CODE:PERCENT.
func enableAddOns(addOns []domain.ServiceSelection, args []string) error {
	for _, arg := range args {
		code, pctText, hasPct := strings.Cut(arg, ":")
		code = strings.TrimSpace(code)

		found := false
		for i := range addOns {
			if addOns[i].CodeID != code {
				continue
			}
			found = true
			addOns[i].Enabled = true
			if hasPct {
				pct, err := strconv.ParseFloat(pctText, 64)
				if err != nil {
					return domain.NewValidationError("addon", "percentage is not a number", arg)
				}
				addOns[i].Percentage = pct
			}
		}
		if !found {
			return domain.NewValidationError("addon", "not a wellness add-on", code)
		}
	}
	return nil
}

func parseAnswers(raw []string) ([]bool, error) {
	answers := make([]bool, 0, len(raw))
	for _, r := range raw {
		switch strings.ToLower(strings.TrimSpace(r)) {
		case "y", "yes", "true", "1":
			answers = append(answers, true)
		case "n", "no", "false", "0":
			answers = append(answers, false)
		default:
			return nil, domain.NewValidationError("answers", "expected yes or no", r)
		}
	}
	return answers, nil
}
