// Command mtafrmax runs a synthetic multi-task demo against an MTA-FRMAX
// core: it loads a task roster from config.yaml, drives every task
// concurrently against a shared toy environment, and optionally serves a
// read-only dashboard of each task's learned values and policy.
package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"mtafrmax/config"
	"mtafrmax/dashboard"
	"mtafrmax/demo"
	"mtafrmax/mta"
)

var (
	configPath *string
	dbg        *bool
	withDash   *bool
	speedup    *bool
	host       *string
	port       *string
	tickMs     *int
	addr       string
)

func init() {
	configPath = flag.String("config", "./config.yaml", "path to the task roster config")
	dbg = flag.Bool("debug", false, "debug mode")
	withDash = flag.Bool("dashboard", true, "serve the observability dashboard")
	speedup = flag.Bool("speedup", true, "use the under-exploration speedup heuristic for action selection")
	host = flag.String("host", "", "the dashboard host ip")
	port = flag.String("port", "8080", "the dashboard host port")
	tickMs = flag.Int("tick-ms", 50, "milliseconds between a task's turns")
	flag.Parse()
	addr = *host + ":" + *port
}

func buildContainer(cfg *config.Configuration) (*mta.Container, []mta.TaskSpec, error) {
	specs := make([]mta.TaskSpec, len(cfg.Tasks))
	for i, t := range cfg.Tasks {
		specs[i] = mta.TaskSpec{
			Name:        t.Name,
			FeatureMask: t.FeatureMask,
			ActionMask:  t.ActionMask,
		}
	}

	container, err := mta.New(
		cfg.FeatureSize,
		cfg.TotalActions,
		cfg.Rmax,
		cfg.Discount,
		cfg.VIPrecision,
		cfg.ExplorationThreshold,
		cfg.SpeedupPeriod,
		cfg.FSAMode,
		specs,
	)
	if err != nil {
		return nil, nil, err
	}
	return container, specs, nil
}

func runApp() (err error) {
	cfg, err := config.FromYaml(*configPath)
	if err != nil {
		return err
	}

	if *dbg {
		fmt.Printf("loaded config: %+v\n", cfg)
	}

	container, specs, err := buildContainer(cfg)
	if err != nil {
		return err
	}

	appCtx, appCancel := context.WithCancel(context.Background())
	defer appCancel()

	driver := demo.NewDriver(container, cfg.FeatureSize, specs, *speedup)

	group, groupCtx := errgroup.WithContext(appCtx)

	group.Go(func() error {
		return driver.Run(groupCtx, time.Duration(*tickMs)*time.Millisecond)
	})

	if *withDash {
		srv, err := dashboard.NewServer(groupCtx, addr, container, driver)
		if err != nil {
			return err
		}
		group.Go(srv.Serve)
	}

	return group.Wait()
}

func main() {
	if err := runApp(); err != nil {
		fmt.Println(err)
	}
}
