package cmd

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	opt "github.com/doe-optimizer/doe-optimizer/opt"
)

var (
	// CLI flags for the propose command
	problemFile string // Path to the problem.yaml definition
	logLevel    string // Log verbosity level
	eligibility string // Batch eligibility policy applied to feasibility flags
	seed        int64  // Seed override (0 = use problem file / default)
	batchSize   int    // Batch size override (0 = use problem file / default)
	acquisition string // Acquisition override (empty = use problem file / default)
	operator    string // Operator name stamped on acknowledgment records
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "doe-optimizer",
	Short: "Constrained batch optimizer for experiment design",
}

// eligibilityPredicate maps the --eligibility flag to a flag-record policy.
// Flags are surfaced either way; the policy only controls batch admission.
func eligibilityPredicate(name string) (opt.EligibilityPredicate, error) {
	switch name {
	case "", "all":
		return opt.AdmitAll, nil
	case "safe":
		return opt.RequireSafe, nil
	case "safe-novel":
		return opt.RequireSafeAndNovel, nil
	default:
		return nil, fmt.Errorf("unknown eligibility policy %q (valid: all, safe, safe-novel)", name)
	}
}

// proposeCmd runs one optimization run from a problem definition file.
var proposeCmd = &cobra.Command{
	Use:   "propose",
	Short: "Propose the next batch of experiments",
	Run: func(cmd *cobra.Command, args []string) {
		// Set up logging
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		if problemFile == "" {
			logrus.Fatalf("Problem file not provided. Use --problem.")
		}

		problem, err := LoadProblem(problemFile)
		if err != nil {
			logrus.Fatalf("Could not load problem: %v", err)
		}
		space, err := problem.BuildSpace()
		if err != nil {
			logrus.Fatalf("Could not build decision space: %v", err)
		}
		refs, err := problem.BuildTrainingReference(space)
		if err != nil {
			logrus.Fatalf("Could not build training reference: %v", err)
		}
		settings, err := problem.BuildSettings()
		if err != nil {
			logrus.Fatalf("Could not build settings: %v", err)
		}
		model, err := problem.BuildSurrogate()
		if err != nil {
			logrus.Fatalf("Could not build surrogate: %v", err)
		}

		// CLI overrides win over the problem file.
		if seed != 0 {
			settings.Seed = seed
		}
		if batchSize != 0 {
			settings.BatchSize = batchSize
		}
		if acquisition != "" {
			acq, err := opt.ParseAcquisition(acquisition)
			if err != nil {
				logrus.Fatalf("%v", err)
			}
			settings.Acquisition = acq
		}
		settings.Eligible, err = eligibilityPredicate(eligibility)
		if err != nil {
			logrus.Fatalf("%v", err)
		}

		startTime := time.Now()
		result, err := opt.Run(opt.RunInput{
			Space:         space,
			Model:         model,
			TrainingRef:   refs,
			IncumbentBest: problem.IncumbentBest,
			Settings:      settings,
		})
		if err != nil {
			logrus.Fatalf("Run failed: %v", err)
		}

		printResult(result, space, time.Since(startTime))

		if result.State.RequiresAck() {
			ack := opt.BuildAckRecord(result.State, operator)
			fmt.Printf("\nAcknowledgment required (%s):\n", ack.Level)
			for _, msg := range ack.Messages {
				fmt.Printf("  - %s\n", msg)
			}
			os.Exit(1)
		}
	},
}

// printResult renders the ranked batch and escalation outcome.
func printResult(result *opt.RunResult, space *opt.DecisionSpace, elapsed time.Duration) {
	fmt.Printf("Run %s finished at %s in %v\n", result.Trace.RunID, result.State.Level, elapsed.Round(time.Millisecond))
	fmt.Printf("Outcome: %s\n", result.State.Reason)

	names := make([]string, 0, len(space.Variables))
	for _, v := range space.Variables {
		names = append(names, v.Name)
	}

	fmt.Printf("\n%-5s %-10s %-10s %-10s %-18s %s\n", "rank", "score", "mean", "std", "flags", strings.Join(names, " "))
	for _, m := range result.Batch.Members {
		values := make([]string, 0, len(names))
		for _, name := range names {
			if v, ok := m.Candidate.NumericValue(name); ok {
				values = append(values, fmt.Sprintf("%.4g", v))
			} else if lv, ok := m.Candidate.Level(name); ok {
				values = append(values, lv)
			}
		}
		fmt.Printf("%-5d %-10.4g %-10.4g %-10.4g %-18s %s\n",
			m.Rank, m.Score, m.Mean, m.Std, flagString(m.Flags), strings.Join(values, " "))
	}

	if len(result.State.Suggestions) > 0 {
		fmt.Println("\nSuggested relaxations:")
		suggestions := append([]opt.Relaxation(nil), result.State.Suggestions...)
		sort.Slice(suggestions, func(i, j int) bool { return suggestions[i].Target < suggestions[j].Target })
		for _, s := range suggestions {
			fmt.Printf("  [%s] %s\n", s.Kind, s.Message)
		}
	}

	s := result.Summary
	fmt.Printf("\nSummary: attempts=%d sampled=%d dropped=%d flagged=%d selected=%d",
		s.Attempts, s.TotalSampled, s.TotalDropped, s.TotalFlagged, s.Selected)
	if s.HasDiversity {
		fmt.Printf(" diversity_min=%.4g", s.DiversityMin)
	}
	fmt.Printf(" uncertain_frac=%.2f\n", s.UncertainFrac)
}

func flagString(f opt.Flags) string {
	parts := make([]string, 0, 3)
	if f.SafetyOK {
		parts = append(parts, "safe")
	}
	if f.NoveltyOK {
		parts = append(parts, "novel")
	}
	if f.Diverse {
		parts = append(parts, "diverse")
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, ",")
}

func init() {
	proposeCmd.Flags().StringVar(&problemFile, "problem", "", "Path to the problem.yaml definition")
	proposeCmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	proposeCmd.Flags().StringVar(&eligibility, "eligibility", "all", "Batch eligibility policy: all, safe, safe-novel")
	proposeCmd.Flags().Int64Var(&seed, "seed", 0, "Seed override (0 = problem file / default)")
	proposeCmd.Flags().IntVar(&batchSize, "batch-size", 0, "Batch size override (0 = problem file / default)")
	proposeCmd.Flags().StringVar(&acquisition, "acquisition", "", "Acquisition override: ei, ucb, pi")
	proposeCmd.Flags().StringVar(&operator, "operator", "", "Operator name for acknowledgment records")
	rootCmd.AddCommand(proposeCmd)
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logrus.Fatalf("%v", err)
	}
}
