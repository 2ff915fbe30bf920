package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mxprobe/mxprobe/internal/logging"
	"github.com/mxprobe/mxprobe/internal/scenario"
	"github.com/mxprobe/mxprobe/internal/session"
)

func runScenario(args []string) {
	fs := flag.NewFlagSet("scenario", flag.ExitOnError)
	cf := registerConnFlags(fs)
	list := fs.Bool("list", false, "list available scenarios")
	file := fs.String("file", "", "run a scenario from a TOML file")
	report := fs.String("report", "", "write the report as JSON to this path")
	drainMS := fs.Int("drain", 0, "drain window in ms (default from config)")

	orders := fs.Int("orders", 0, "sweep: number of orders")
	rate := fs.Int("rate", 0, "sweep: orders per second (0 = unthrottled)")
	seed := fs.Int64("seed", 0, "sweep: random seed")
	symbols := fs.String("symbols", "", "sweep: comma-separated symbol set")
	fs.Parse(args)

	reg := scenario.NewRegistry()

	if *list {
		for _, name := range reg.Names() {
			sc, _ := reg.Get(name)
			fmt.Printf("  %-12s %s\n", name, sc.Description)
		}
		return
	}

	sc, err := pickScenario(reg, fs, *file, *orders, *rate, *seed, *symbols)
	if err != nil {
		fatal(err)
	}

	cfg, err := cf.resolve(fs)
	if err != nil {
		fatal(err)
	}

	log, err := logging.New(cfg.Verbose)
	if err != nil {
		fatal(err)
	}
	defer log.Sync()

	opts, err := cfg.SessionOptions()
	if err != nil {
		fatal(err)
	}
	opts.Logger = log

	sess := session.New(opts)
	if err := sess.Connect(); err != nil {
		fatal(err)
	}
	defer sess.Disconnect()

	drain := cfg.DrainTimeout()
	if *drainMS > 0 {
		drain = time.Duration(*drainMS) * time.Millisecond
	}

	runner := scenario.NewRunner(sess, &scenario.RunnerOptions{Drain: drain, Logger: log})
	rep, err := runner.Run(sc)
	if err != nil {
		fatal(err)
	}

	rep.Render(os.Stdout)

	path := cfg.ReportPath
	if *report != "" {
		path = *report
	}
	if path != "" {
		if err := rep.WriteJSON(path); err != nil {
			fatal(err)
		}
		fmt.Printf("report written to %s\n", path)
	}

	if !rep.Passed {
		os.Exit(1)
	}
}

// pickScenario resolves what to run: a file, a regenerated sweep when any
// sweep flag is set, or a registry entry by name.
func pickScenario(reg *scenario.Registry, fs *flag.FlagSet, file string, orders, rate int, seed int64, symbols string) (*scenario.Scenario, error) {
	if file != "" {
		return scenario.LoadFile(file)
	}

	if fs.NArg() < 1 {
		return nil, fmt.Errorf("scenario name required (one of: %s)", strings.Join(reg.Names(), ", "))
	}
	name := fs.Arg(0)

	if name == "sweep" && (orders > 0 || rate > 0 || seed != 0 || symbols != "") {
		opts := scenario.DefaultSweepOptions()
		if orders > 0 {
			opts.Orders = orders
		}
		if rate > 0 {
			opts.Rate = rate
		}
		if seed != 0 {
			opts.Seed = seed
		}
		if symbols != "" {
			opts.Symbols = strings.Split(symbols, ",")
		}
		return scenario.Sweep(opts), nil
	}

	sc, ok := reg.Get(name)
	if !ok {
		return nil, fmt.Errorf("unknown scenario %q (one of: %s)", name, strings.Join(reg.Names(), ", "))
	}
	return sc, nil
}
