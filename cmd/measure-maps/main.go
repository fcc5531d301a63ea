package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/ironsheep/measurement-maps/internal/config"
	"github.com/ironsheep/measurement-maps/internal/monitoring"
	"github.com/ironsheep/measurement-maps/internal/server"
	"github.com/ironsheep/measurement-maps/internal/workflow"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

const defaultConfigPath = "measure-maps.yaml"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		printUsage(stdout)
		return 2
	}

	switch args[0] {
	case "--version", "-v", "version":
		fmt.Fprintf(stdout, "measure-maps %s\n", Version)
		fmt.Fprintf(stdout, "  Build time: %s\n", BuildTime)
		fmt.Fprintf(stdout, "  Git commit: %s\n", GitCommit)
		return 0
	case "--help", "-h", "help":
		printUsage(stdout)
		return 0
	}

	// Configure logging to stderr (stdout is for MCP protocol)
	log.SetOutput(stderr)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	if monitoring.DebugFromEnv() {
		log.Printf("measure-maps v%s (built %s, commit %s)", Version, BuildTime, GitCommit)
	}

	var err error
	switch args[0] {
	case "run":
		err = runBatch(args[1:], stdout, stderr)
	case "serve":
		err = serve(args[1:], stderr)
	case "init-config":
		err = initConfig(args[1:], stdout, stderr)
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n", args[0])
		printUsage(stderr)
		return 2
	}

	if err == flag.ErrHelp {
		return 0
	}
	if err != nil {
		log.Printf("Error: %v", err)
		return 1
	}
	return 0
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "measure-maps - region measurement maps for microscopy images")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  measure-maps run [options] IMAGE...   Segment, measure and write maps for each image")
	fmt.Fprintln(w, "  measure-maps serve [options]          Run as an MCP server over stdin/stdout")
	fmt.Fprintln(w, "  measure-maps init-config [PATH]       Write the default configuration file")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Options:")
	fmt.Fprintln(w, "  --version, -v    Print version information")
	fmt.Fprintln(w, "  --help, -h       Print this help message")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run 'measure-maps run -h' for the options of the run command.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Environment variables:")
	fmt.Fprintf(w, "  %s=debug    Enable debug logging\n", monitoring.LogLevelEnv)
}

// loadConfig reads the configuration file. The default path may be absent;
// an explicitly named file must exist.
func loadConfig(path string, explicit bool) (*config.Config, error) {
	if explicit {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file: %w", err)
		}
	}
	return config.LoadConfig(path)
}

// isSet reports whether the named flag was given on the command line.
func isSet(fs *flag.FlagSet, name string) bool {
	set := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

// listFlag collects a comma-separated flag value.
type listFlag []string

func (l *listFlag) String() string { return strings.Join(*l, ",") }

func (l *listFlag) Set(v string) error {
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			*l = append(*l, s)
		}
	}
	return nil
}

func runBatch(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", defaultConfigPath, "YAML configuration file")
	ref := fs.Int("ref", 0, "1-based reference channel to segment (overrides config)")
	minArea := fs.Int("min-area", -1, "minimum region area in pixels (overrides config)")
	radius := fs.Int("median-radius", -1, "median filter radius (overrides config)")
	names := fs.String("names", "", "CSV file of label,name rows used to rename regions")
	out := fs.String("out", "", "output folder name created next to each image (overrides config)")
	workers := fs.Int("workers", 0, "images processed in parallel (overrides config)")
	preview := fs.Bool("preview", false, "also write colour PNG previews")
	labels := fs.Bool("labels", false, "also write a label image of the regions")
	outlines := fs.Bool("outlines", false, "also write the reference channel with region outlines")
	histograms := fs.Bool("histograms", false, "also write a distribution plot per statistic")
	var stats, channels listFlag
	fs.Var(&stats, "stats", "comma-separated statistics, e.g. Mean,Area,Circ. (overrides config)")
	fs.Var(&channels, "channels", "comma-separated 1-based channels to measure (default all)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("no input images given")
	}

	cfg, err := loadConfig(*configPath, isSet(fs, "config"))
	if err != nil {
		return err
	}

	if *ref > 0 {
		cfg.Segmentation.ReferenceChannel = *ref
	}
	if *minArea >= 0 {
		cfg.Segmentation.MinArea = *minArea
	}
	if *radius >= 0 {
		cfg.Segmentation.MedianRadius = *radius
	}
	if *names != "" {
		cfg.Measurement.NamesFile = *names
	}
	if *out != "" {
		cfg.Output.Folder = *out
	}
	if *workers > 0 {
		cfg.Processing.Workers = *workers
	}
	cfg.Output.Preview = cfg.Output.Preview || *preview
	cfg.Output.LabelMap = cfg.Output.LabelMap || *labels
	cfg.Output.Outlines = cfg.Output.Outlines || *outlines
	cfg.Output.Histograms = cfg.Output.Histograms || *histograms
	if len(stats) > 0 {
		cfg.Measurement.Statistics = stats
	}
	if len(channels) > 0 {
		cfg.Measurement.Channels = nil
		for _, c := range channels {
			id, err := strconv.Atoi(c)
			if err != nil {
				return fmt.Errorf("invalid channel %q", c)
			}
			cfg.Measurement.Channels = append(cfg.Measurement.Channels, id)
		}
	}

	runner, err := workflow.New(cfg, nil)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	reports, err := runner.RunBatch(ctx, fs.Args())
	failed := 0
	for _, rep := range reports {
		if rep == nil {
			continue
		}
		if rep.Error != "" {
			failed++
			fmt.Fprintf(stdout, "%s: FAILED: %s\n", rep.Path, rep.Error)
			continue
		}
		fmt.Fprintf(stdout, "%s: %d regions (%d before filtering), %d files in %s\n",
			rep.Path, rep.Regions, rep.RawRegions, len(rep.Outputs), rep.OutputDir)
		for _, c := range rep.Conditions {
			fmt.Fprintf(stdout, "  warning: %s\n", c)
		}
	}
	if err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d images failed", failed, len(reports))
	}
	return nil
}

func serve(args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", defaultConfigPath, "YAML configuration file used for tool defaults")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath, isSet(fs, "config"))
	if err != nil {
		return err
	}

	srv := server.NewWithConfig(cfg, Version)
	if err := srv.Run(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func initConfig(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("init-config", flag.ContinueOnError)
	fs.SetOutput(stderr)
	force := fs.Bool("force", false, "overwrite an existing file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	path := defaultConfigPath
	if fs.NArg() > 0 {
		path = fs.Arg(0)
	}
	if _, err := os.Stat(path); err == nil && !*force {
		return fmt.Errorf("%s already exists (use -force to overwrite)", path)
	}
	if err := config.CreateDefaultConfigFile(path); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "wrote %s\n", path)
	return nil
}
