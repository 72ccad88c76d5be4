package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/playat/playat/cmd/common"
	"github.com/playat/playat/internal/job"
	"github.com/playat/playat/internal/registry"
	"github.com/playat/playat/pkg/playcli"
	"github.com/urfave/cli"
)

// jobsBackend is what the jobs subcommands need, served either by a
// running server or by the registry opened in this process.
type jobsBackend interface {
	List(ctx context.Context) ([]job.Record, error)
	Cancel(ctx context.Context, id string) (job.Record, error)
	Reconcile(ctx context.Context) ([]job.Record, error)
	Close() error
}

type remoteJobs struct{ c *playcli.Client }

func (r remoteJobs) List(ctx context.Context) ([]job.Record, error) { return r.c.ListJobs(ctx) }

func (r remoteJobs) Cancel(ctx context.Context, id string) (job.Record, error) {
	rec, err := r.c.CancelJob(ctx, id)
	if err != nil {
		return job.Record{}, err
	}
	return *rec, nil
}

func (r remoteJobs) Reconcile(ctx context.Context) ([]job.Record, error) { return r.c.Reconcile(ctx) }
func (r remoteJobs) Close() error                                        { return r.c.Close() }

var openJobs = func(ctx context.Context) (jobsBackend, error) {
	if playcli.IsRunning() {
		if c, err := playcli.NewClient(nil); err == nil {
			return remoteJobs{c}, nil
		}
	}
	env, err := loadEnv()
	if err != nil {
		return nil, err
	}
	// a missing scheduler still allows listing
	backend, _ := newBackend(env)
	return openRegistry(ctx, env, backend)
}

var _ jobsBackend = (*registry.Registry)(nil)

func jobsList(ctx *cli.Context) error {
	bg := context.Background()
	jobs, err := openJobs(bg)
	if err != nil {
		return common.RuntimeErr("jobs", "open", err)
	}
	defer jobs.Close()
	recs, err := jobs.List(bg)
	if err != nil {
		return common.RuntimeErr("jobs", "list", err)
	}
	if len(recs) == 0 {
		fmt.Println("playat: no jobs found")
		return nil
	}
	printJobs(recs)
	return nil
}

func jobsCancel(ctx *cli.Context) error {
	id := ctx.Args().First()
	if id == "" {
		return common.PrintErrWithCmdHelp(ctx, fmt.Errorf("a job id is required"))
	}
	bg := context.Background()
	jobs, err := openJobs(bg)
	if err != nil {
		return common.RuntimeErr("jobs", "open", err)
	}
	defer jobs.Close()
	rec, err := jobs.Cancel(bg, id)
	if err != nil {
		return common.RuntimeErr("jobs", "cancel", err)
	}
	fmt.Printf("Cancelled %s job %s.\n", rec.Backend, rec.ID)
	return nil
}

func jobsReconcile(ctx *cli.Context) error {
	bg := context.Background()
	jobs, err := openJobs(bg)
	if err != nil {
		return common.RuntimeErr("jobs", "open", err)
	}
	defer jobs.Close()
	changed, err := jobs.Reconcile(bg)
	if err != nil {
		return common.RuntimeErr("jobs", "reconcile", err)
	}
	if len(changed) == 0 {
		fmt.Println("playat: no job changed status")
		return nil
	}
	printJobs(changed)
	return nil
}

func printJobs(recs []job.Record) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tBACKEND\tWHEN\tMEDIA\tDEVICE\tSTATUS")
	for _, r := range recs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.Backend, r.Spec.Deadline.Format("2006-01-02 15:04:05"),
			r.Spec.Media.URI(), r.Spec.DeviceLabel(), r.Status)
	}
	w.Flush()
}
