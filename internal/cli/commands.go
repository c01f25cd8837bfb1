package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/tempmongo/tempmongo"
	"github.com/tempmongo/tempmongo/internal/engine"
)

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func runUp(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	flags := flag.NewFlagSet("up", flag.ContinueOnError)
	flags.SetOutput(stderr)
	var (
		image = flags.String("image", envOr("TEMPMONGO_IMAGE", tempmongo.DefaultImage), "MongoDB image")
		db    = flags.String("db", envOr("TEMPMONGO_DB", tempmongo.DefaultDatabase), "logical database name")
		fixed = flags.Bool("fixed", false, "use the shared fixed-name container")
		name  = flags.String("name", tempmongo.DefaultFixedName, "container name for -fixed")
		port  = flags.Int("port", tempmongo.DefaultFixedPort, "host port for -fixed")
		quiet = flags.Bool("quiet", false, "suppress image pull progress")
	)
	if err := flags.Parse(args); err != nil {
		return err
	}

	opts := []tempmongo.Option{
		tempmongo.WithImage(*image),
		tempmongo.WithDatabase(*db),
		tempmongo.WithLogger(slog.New(slog.NewTextHandler(stderr, nil))),
	}
	if !*quiet {
		opts = append(opts, tempmongo.WithPullProgress(stderr))
	}
	if *fixed {
		opts = append(opts,
			tempmongo.WithFixedName(*name),
			tempmongo.WithFixedPort(*port),
		)
	}

	m, err := tempmongo.New(opts...)
	if err != nil {
		return err
	}
	defer m.Close(context.WithoutCancel(ctx))

	if err := m.Create(ctx); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "container: %s\n", m.ContainerID())
	fmt.Fprintf(stdout, "uri: %s\n", m.URI())
	return nil
}

func runDown(ctx context.Context, args []string, stderr io.Writer) error {
	id, err := singleTarget("down", args)
	if err != nil {
		return err
	}
	eng, err := newEngine(stderr)
	if err != nil {
		return err
	}
	defer eng.Close()
	return eng.StopContainer(ctx, id)
}

func runClean(ctx context.Context, args []string, stderr io.Writer) error {
	id, err := singleTarget("clean", args)
	if err != nil {
		return err
	}
	eng, err := newEngine(stderr)
	if err != nil {
		return err
	}
	defer eng.Close()

	if err := eng.StopContainer(ctx, id); err != nil {
		return err
	}
	return eng.RemoveContainer(ctx, id)
}

func runStatus(ctx context.Context, stdout, stderr io.Writer) error {
	eng, err := newEngine(stderr)
	if err != nil {
		return err
	}
	defer eng.Close()

	summaries, err := eng.ListManaged(ctx)
	if err != nil {
		return err
	}
	if len(summaries) == 0 {
		fmt.Fprintln(stdout, "no fixture containers")
		return nil
	}
	w := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CONTAINER ID\tNAME\tIMAGE\tSTATUS")
	for _, s := range summaries {
		id := s.ID
		if len(id) > 12 {
			id = id[:12]
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", id, s.Name, s.Image, s.Status)
	}
	return w.Flush()
}

func singleTarget(command string, args []string) (string, error) {
	if len(args) != 1 || args[0] == "" {
		return "", fmt.Errorf("%s requires exactly one container ID or name", command)
	}
	return args[0], nil
}

func newEngine(stderr io.Writer) (*engine.Client, error) {
	return engine.New(slog.New(slog.NewTextHandler(stderr, nil)))
}
