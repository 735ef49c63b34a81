package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/banshee-data/pathing/internal/api"
	"github.com/banshee-data/pathing/internal/httputil"
	"github.com/banshee-data/pathing/internal/store"
)

const defaultServer = "http://localhost:8080"

func newClient(server string) *api.Client {
	return api.NewClient(server, httputil.NewStandardClient(nil))
}

func requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

func handleStatus(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	server := fs.String("server", defaultServer, "Server base URL")
	fs.Parse(args)

	ctx, cancel := requestContext()
	defer cancel()
	st, err := newClient(*server).OptimizeState(ctx)
	if err != nil {
		return err
	}
	return writeJSON(stdout, st)
}

func handleStop(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("stop", flag.ExitOnError)
	server := fs.String("server", defaultServer, "Server base URL")
	fs.Parse(args)

	ctx, cancel := requestContext()
	defer cancel()
	if err := newClient(*server).StopOptimize(ctx); err != nil {
		return err
	}
	_, err := fmt.Fprintln(stdout, "stop requested")
	return err
}

func handleRuns(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("runs", flag.ExitOnError)
	server := fs.String("server", defaultServer, "Server base URL")
	limit := fs.Int("limit", 20, "Maximum number of runs to list")
	id := fs.String("id", "", "Show one run in full")
	fs.Parse(args)

	ctx, cancel := requestContext()
	defer cancel()
	c := newClient(*server)
	if *id != "" {
		run, err := c.GetRun(ctx, *id)
		if err != nil {
			return err
		}
		return writeJSON(stdout, run)
	}
	runs, err := c.ListRuns(ctx, *limit)
	if err != nil {
		return err
	}
	return printRuns(stdout, runs)
}

func printRuns(w io.Writer, runs []store.RunRecord) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, "no runs")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tSTATUS\tSTARTED\tGENERATIONS\tFITNESS")
	for _, r := range runs {
		fitness := "-"
		if r.Fitness != nil {
			fitness = fmt.Sprintf("%.3f", *r.Fitness)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n",
			r.RunID, r.Status, r.StartedAt.UTC().Format(time.RFC3339), r.Generations, fitness)
	}
	return tw.Flush()
}
