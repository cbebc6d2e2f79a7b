package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"robustbai/adapters/environment"
	"robustbai/adapters/instance"
	"robustbai/adapters/report"
	"robustbai/app"
	"robustbai/domain/bandit"
	"robustbai/domain/core"
	"robustbai/internal"
	"robustbai/internal/config"
	"robustbai/internal/errors"
	"robustbai/internal/identifier"
	"robustbai/internal/testkit"
	"robustbai/ports"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	// A missing .env is fine; real environment variables still apply
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error [%s]: %v\n", errors.GetCode(err), err)
		os.Exit(1)
	}
	logger := internal.NewLogger(internal.ParseLogLevel(cfg.LogLevel))

	rootCmd := &cobra.Command{
		Use:           "robustbai",
		Short:         "Identify the group with the best worst-case arm in a grouped bandit",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		newRunCmd(cfg, logger),
		newExperimentCmd(cfg, logger),
		newGenerateCmd(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error [%s]: %v\n", errors.GetCode(err), err)
		stop()
		os.Exit(1)
	}
}

// instanceFlags selects an instance file or describes one to generate
type instanceFlags struct {
	path string
	gen  testkit.InstanceGeneratorConfig
}

func (f *instanceFlags) register(cmd *cobra.Command) {
	def := testkit.DefaultInstanceConfig()
	cmd.Flags().StringVar(&f.path, "instance", "", "YAML instance file (generated when empty)")
	cmd.Flags().IntVar(&f.gen.NumGroups, "groups", def.NumGroups, "Number of groups to generate")
	cmd.Flags().IntVar(&f.gen.NumArms, "arms", def.NumArms, "Number of arms to generate")
	cmd.Flags().Float64Var(&f.gen.Gap, "gap", def.Gap, "Gap between the best and second-best worst-case means")
	cmd.Flags().BoolVar(&f.gen.Overlap, "overlap", def.Overlap, "Allow groups to share arms")
	cmd.Flags().Int64Var(&f.gen.Seed, "instance-seed", def.Seed, "Seed for instance generation")
}

func (f *instanceFlags) load() (instance.File, error) {
	if f.path != "" {
		file, err := instance.Load(f.path)
		if err != nil {
			return instance.File{}, errors.Wrap(err, "failed to load instance")
		}
		if file.Name == "" {
			file.Name = strings.TrimSuffix(filepath.Base(f.path), filepath.Ext(f.path))
		}
		return file, nil
	}
	in, err := testkit.NewInstanceGenerator(f.gen).Generate()
	if err != nil {
		return instance.File{}, errors.Wrap(err, "failed to generate instance")
	}
	name := fmt.Sprintf("generated-g%d-k%d-seed%d", f.gen.NumGroups, f.gen.NumArms, f.gen.Seed)
	return instance.File{Name: name, Instance: in}, nil
}

// algorithmFlags overrides the configured algorithm parameters
type algorithmFlags struct {
	c             float64
	eta           float64
	theoretical   bool
	maxIterations int
}

func (f *algorithmFlags) register(cmd *cobra.Command, cfg config.AlgorithmConfig) {
	cmd.Flags().Float64Var(&f.c, "c", cfg.C, "Confidence constant for group-wise UCB and StableOpt")
	cmd.Flags().Float64Var(&f.eta, "eta", cfg.Eta, "Termination tolerance")
	cmd.Flags().BoolVar(&f.theoretical, "theoretical", cfg.Theoretical, "Use the theoretical radius in successive elimination")
	cmd.Flags().IntVar(&f.maxIterations, "max-iterations", cfg.MaxIterations, "Sample counter cap (0: unlimited, successive elimination defaults to 1000000)")
}

func (f *algorithmFlags) params() identifier.Params {
	return identifier.Params{C: f.c, Eta: f.eta, Theoretical: f.theoretical}
}

func environmentConfig(cfg config.EnvironmentConfig, seed int64) environment.Config {
	return environment.Config{
		ConfidenceC:   cfg.ConfidenceC,
		Delta:         cfg.Delta,
		Reward:        cfg.Reward,
		Concentration: cfg.Concentration,
		Seed:          seed,
	}
}

func environmentFactory(cfg config.EnvironmentConfig) ports.EnvironmentFactory {
	return func(in bandit.Instance, seed int64) (ports.Environment, error) {
		return environment.NewGroupedBandit(in, environmentConfig(cfg, seed))
	}
}

func newRunCmd(cfg *config.Config, logger *internal.Logger) *cobra.Command {
	var inst instanceFlags
	var algo algorithmFlags
	var algorithm string
	var seed int64

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one identification on a simulated grouped bandit",
		Long: `Run one identification algorithm once and print the identified groups.

Algorithms: group_ucb, successive_elimination, stable_opt.

Example: robustbai run --algorithm stable_opt --instance two_group.yaml --eta 0.05 --seed 7`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(cmd.Context(), cfg, logger, &inst, &algo, algorithm, seed)
		},
	}

	inst.register(cmd)
	algo.register(cmd, cfg.Algorithm)
	cmd.Flags().StringVar(&algorithm, "algorithm", cfg.Algorithm.Name, "Identification algorithm")
	cmd.Flags().Int64Var(&seed, "seed", cfg.Experiment.Seed, "Seed for rewards and tie-breaks")

	return cmd
}

func runOnce(ctx context.Context, cfg *config.Config, logger *internal.Logger, inst *instanceFlags, algo *algorithmFlags, algorithm string, seed int64) error {
	file, err := inst.load()
	if err != nil {
		return err
	}

	id, err := identifier.New(algorithm, algo.params(),
		identifier.WithSeed(seed),
		identifier.WithLogger(logger),
		identifier.WithMaxIterations(algo.maxIterations),
	)
	if err != nil {
		return errors.Wrap(err, "invalid algorithm configuration")
	}

	env, err := environment.NewGroupedBandit(file.Instance, environmentConfig(cfg.Environment, seed))
	if err != nil {
		return errors.Wrap(err, "failed to build environment")
	}

	fmt.Printf("Instance %s (%s): %d groups, %d arms, best groups %v\n",
		file.Name, file.Instance.Fingerprint().Short(), file.Instance.NumGroups(), file.Instance.NumArms(), file.Instance.BestGroups())

	out, err := id.Identify(ctx, env)
	if err != nil {
		var nce *identifier.NonConvergenceError
		if errors.As(err, &nce) {
			printDiagnostics(nce.Diagnostics)
		}
		return errors.Wrapf(err, "%s did not finish", id.Name())
	}

	fmt.Printf("Algorithm: %s\n", out.Algorithm)
	fmt.Printf("Identified groups: %v\n", out.Groups)
	fmt.Printf("Correct: %t\n", bandit.IsCorrect(file.Instance, out))
	fmt.Printf("Samples: %d over %d rounds\n", out.Samples, out.Rounds)

	truth := env.TrueMeans()
	means := env.EmpiricalMeans()
	pulls := env.IndividualArmPulls()
	for g, arms := range env.Groups() {
		fmt.Printf("  %s:", core.GroupID(g))
		for _, a := range arms {
			fmt.Printf(" %d(μ=%.3f μ̂=%.3f n=%d)", int(a), truth[a], means[a], pulls[a])
		}
		fmt.Println()
	}
	return nil
}

func printDiagnostics(d bandit.Diagnostics) {
	fmt.Printf("Stopped after %d rounds\n", d.Rounds)
	fmt.Printf("Surviving groups: %v\n", d.Surviving)
	for _, g := range d.Surviving {
		fmt.Printf("  %s remaining: %v\n", g, d.Remaining[g])
	}
	fmt.Printf("Last sampled: %v\n", d.Sampled)
}

func newExperimentCmd(cfg *config.Config, logger *internal.Logger) *cobra.Command {
	var inst instanceFlags
	var algo algorithmFlags
	var algorithms []string
	var trials, workers int
	var seed int64
	var runID string
	var mdPath, htmlPath, xlsxPath string

	cmd := &cobra.Command{
		Use:   "experiment",
		Short: "Run repeated trials and report accuracy and sample complexity",
		Long: `Run each algorithm for a number of independently seeded trials on one instance.

Pass --algorithms all to compare every algorithm. Reports are written as
Markdown, HTML and XLSX when the matching output flag is set.

Example: robustbai experiment --algorithms all --trials 50 --workers 8 --xlsx results.xlsx`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := inst.load()
			if err != nil {
				return err
			}

			var id core.RunID
			if cmd.Flags().Changed("run-id") {
				if id, err = core.ParseRunID(runID); err != nil {
					return errors.ConfigInvalid("--run-id: " + err.Error())
				}
			}

			names := algorithms
			if len(names) == 1 && names[0] == "all" {
				names = names[:0]
				for _, a := range identifier.Algorithms() {
					names = append(names, string(a))
				}
			}

			svc := app.NewExperimentService(environmentFactory(cfg.Environment), testkit.NewTestKit().RNGAdapter(), logger)
			var experiments []*bandit.Experiment
			for _, name := range names {
				exp, err := svc.Run(cmd.Context(), app.ExperimentRequest{
					Name:          file.Name,
					Instance:      file.Instance,
					Algorithm:     name,
					Params:        algo.params(),
					MaxIterations: algo.maxIterations,
					Trials:        trials,
					Workers:       workers,
					Seed:          seed,
					RunID:         id,
				})
				if err != nil {
					return errors.Wrapf(err, "experiment %s failed", name)
				}
				experiments = append(experiments, exp)
			}

			fmt.Print(report.Markdown(experiments...))
			return writeReports(experiments, mdPath, htmlPath, xlsxPath)
		},
	}

	inst.register(cmd)
	algo.register(cmd, cfg.Algorithm)
	cmd.Flags().StringSliceVar(&algorithms, "algorithms", []string{cfg.Algorithm.Name}, "Algorithms to run, or \"all\"")
	cmd.Flags().IntVar(&trials, "trials", cfg.Experiment.Trials, "Trials per algorithm")
	cmd.Flags().IntVar(&workers, "workers", cfg.Experiment.Workers, "Concurrent trials")
	cmd.Flags().Int64Var(&seed, "seed", cfg.Experiment.Seed, "Base seed for trial streams")
	cmd.Flags().StringVar(&runID, "run-id", "", "Reuse a run ID to reproduce its trial streams (default: a fresh ID)")
	cmd.Flags().StringVar(&mdPath, "markdown", "", "Write the Markdown report to this file")
	cmd.Flags().StringVar(&htmlPath, "html", "", "Write the HTML report to this file")
	cmd.Flags().StringVar(&xlsxPath, "xlsx", "", "Write trial results to this XLSX workbook")

	return cmd
}

func writeReports(experiments []*bandit.Experiment, mdPath, htmlPath, xlsxPath string) error {
	if mdPath != "" {
		if err := os.WriteFile(mdPath, []byte(report.Markdown(experiments...)), 0644); err != nil {
			return errors.Wrap(err, "failed to write Markdown report")
		}
		fmt.Printf("\nMarkdown report saved to: %s\n", mdPath)
	}
	if htmlPath != "" {
		if err := os.WriteFile(htmlPath, report.HTML(experiments...), 0644); err != nil {
			return errors.Wrap(err, "failed to write HTML report")
		}
		fmt.Printf("HTML report saved to: %s\n", htmlPath)
	}
	if xlsxPath != "" {
		if err := report.SaveXLSX(xlsxPath, experiments...); err != nil {
			return errors.Wrap(err, "failed to write XLSX report")
		}
		fmt.Printf("XLSX results saved to: %s\n", xlsxPath)
	}
	return nil
}

func newGenerateCmd() *cobra.Command {
	var gen testkit.InstanceGeneratorConfig
	var out, name string

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a random grouped bandit instance",
		Long: `Generate an instance whose best group has worst-case mean 0.5 and whose
runner-up has worst-case mean 0.5 - gap. Written as YAML to --out, or stdout.

Example: robustbai generate --groups 10 --arms 50 --gap 0.05 --overlap=false --out inst.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := testkit.NewInstanceGenerator(gen).Generate()
			if err != nil {
				return errors.Wrap(err, "failed to generate instance")
			}
			file := instance.File{Name: name, Instance: in}
			if out == "" {
				return instance.Encode(os.Stdout, file)
			}
			if err := instance.Save(out, file); err != nil {
				return errors.Wrap(err, "failed to save instance")
			}
			fmt.Printf("Instance %s saved to: %s\n", in.Fingerprint().Short(), out)
			return nil
		},
	}

	def := testkit.DefaultInstanceConfig()
	cmd.Flags().IntVar(&gen.NumGroups, "groups", def.NumGroups, "Number of groups")
	cmd.Flags().IntVar(&gen.NumArms, "arms", def.NumArms, "Number of arms")
	cmd.Flags().Float64Var(&gen.Gap, "gap", def.Gap, "Gap between the best and second-best worst-case means")
	cmd.Flags().BoolVar(&gen.Overlap, "overlap", def.Overlap, "Allow groups to share arms")
	cmd.Flags().Int64Var(&gen.Seed, "seed", def.Seed, "Random seed")
	cmd.Flags().StringVar(&name, "name", "", "Instance name stored in the file")
	cmd.Flags().StringVar(&out, "out", "", "Output YAML path")

	return cmd
}
