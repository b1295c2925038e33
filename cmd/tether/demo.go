package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/chazu/tether/bridge"
	"github.com/chazu/tether/config"
	"github.com/chazu/tether/host"
	"github.com/chazu/tether/journal"
	"github.com/chazu/tether/vm"
	"github.com/chazu/tether/wire"
)

type demoOptions struct {
	journalPath string
	statsPath   string
	vectors     int
}

func newDemoCommand(cfg func() *config.Config) *cobra.Command {
	var opts demoOptions
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run a scripted session against the in-memory host",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.journalPath == "" {
				opts.journalPath = cfg().JournalPath()
			}
			return runDemo(cmd.OutOrStdout(), cfg(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.journalPath, "journal", "", "record crossings in this SQLite file")
	cmd.Flags().StringVar(&opts.statsPath, "stats", "", "write the final CBOR stats snapshot to this file")
	cmd.Flags().IntVar(&opts.vectors, "vectors", 8, "number of throwaway vectors to allocate")
	return cmd
}

func runDemo(out io.Writer, cfg *config.Config, opts demoOptions) error {
	r := host.NewRuntime()
	engineOpts := cfg.EngineOptions()

	e := r.Start(engineOpts...)

	var j *journal.Journal
	if opts.journalPath != "" {
		var err error
		if j, err = journal.Open(opts.journalPath, e.ID()); err != nil {
			return err
		}
		defer j.Close()
		e.Dispatcher.SetObserver(j)
	}

	if cfg.Sweeper.Enabled {
		interval, err := cfg.SweepInterval()
		if err != nil {
			return err
		}
		s := bridge.NewSweeper(e, interval)
		s.Start()
		defer s.Stop()
	}

	d, err := host.InstallDemo(r, e)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "%s %s\n", bold("session"), e.ID())
	var scenarioErr error
	if err := bridge.Catch(func() { scenarioErr = scenario(out, e, d, opts.vectors) }); err != nil {
		return fmt.Errorf("bridge out of sync: %w", err)
	}
	if scenarioErr != nil {
		return scenarioErr
	}

	// Everything the scenario allocated is garbage now.
	for i := 0; i < 20 && r.Live() > 0; i++ {
		runtime.GC()
		time.Sleep(time.Millisecond)
		e.DrainFinalizations()
	}

	s := e.Stats()
	printStats(out, &s)
	fmt.Fprintf(out, "%s %d live, %d released\n", bold("host"), r.Live(), len(r.Destroyed()))
	for _, line := range d.Output {
		fmt.Fprintf(out, "%s %s\n", green("print"), line)
	}
	if j != nil {
		n, err := j.Count(journal.Query{Session: e.ID()})
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s %d crossings in %s\n", bold("journal"), n, opts.journalPath)
	}

	if opts.statsPath != "" {
		data, err := wire.MarshalStats(&s)
		if err != nil {
			return err
		}
		if err := os.WriteFile(opts.statsPath, data, 0o644); err != nil {
			return fmt.Errorf("writing stats: %w", err)
		}
	}
	return nil
}

// scenario drives the host library the way a script would.
func scenario(out io.Writer, e *bridge.Engine, d *host.Demo, vectors int) error {
	a, err := d.NewVector(3, 4)
	if err != nil {
		return err
	}
	b, err := d.NewVector(1, 2)
	if err != nil {
		return err
	}

	length, err := a.Send("length")
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s |a| = %v\n", yellow("call"), length)

	sum, err := a.Send("add", b)
	if err != nil {
		return err
	}
	if err := sum.(*vm.Object).Set("x", 10); err != nil {
		return err
	}
	x, _ := sum.(*vm.Object).Get("x")
	fmt.Fprintf(out, "%s (a + b).x = %v\n", yellow("call"), x)

	if err := b.Set("y", 0); err != nil {
		fmt.Fprintf(out, "%s %v\n", red("error"), err)
	}

	scale := vm.NewFunction("scale", func(_ vm.Value, args []vm.Value) (vm.Value, error) {
		f, ok := args[0].(float64)
		if !ok {
			return nil, errors.New("scale expects a number")
		}
		return f * 2, nil
	})
	scaled, err := e.Globals.Call("apply", e.ResolveCallable(scale), length)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s apply(scale, |a|) = %v\n", yellow("call"), scaled)
	if _, err := e.Globals.Call("apply", e.ResolveCallable(scale), "wide"); err != nil {
		fmt.Fprintf(out, "%s %v\n", red("error"), err)
	}

	e.Globals.Call("print", "typeof a:", e.TypeOf(a).String())

	for i := 0; i < vectors; i++ {
		if _, err := d.NewVector(float64(i), float64(i)); err != nil {
			return err
		}
	}

	if err := e.Dispose(sum.(*vm.Object)); err != nil {
		return err
	}
	runtime.KeepAlive(a)
	runtime.KeepAlive(b)
	return nil
}

func printStats(out io.Writer, s *bridge.Stats) {
	fmt.Fprintf(out, "%s frames %d live / %d slots (peak %d)\n", bold("stats"), s.LiveFrames, s.FrameCapacity, s.PeakFrames)
	fmt.Fprintf(out, "%s %d classes, %d callables, %d bound objects, %d revivals\n",
		bold("stats"), s.Classes, s.Callables, s.BoundObjects, s.Revivals)
	fmt.Fprintf(out, "%s %d pending finalizers, %d queued, %d released\n",
		bold("stats"), s.PendingFinalizers, s.QueuedFinalizations, s.Released)
}
