// Command lakota is the illustrative CLI surface named in spec.md §6:
// create, write, read, ls, log, merge, defrag, squash, pack, gc, push,
// pull, each operating against a repository rooted at a filesystem
// directory. It is a thin wrapper over the repo/collection/series
// packages, not a load-bearing part of the storage engine itself — schema
// string-parsing and CLI argument parsing are named as external
// collaborators, so this command keeps its own parsing local rather than
// growing it into the schema package.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"

	"github.com/lakota-db/lakota/changelog"
	"github.com/lakota-db/lakota/frame"
	"github.com/lakota-db/lakota/lkerr"
	"github.com/lakota-db/lakota/pod"
	"github.com/lakota-db/lakota/repo"
	"github.com/lakota-db/lakota/series"
)

// Exit codes per spec.md §6.
const (
	exitOK        = 0
	exitUserError = 1
	exitDataError = 2
	exitRemoteIO  = 3
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(exitUserError)
	}
	ctx := context.Background()
	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	remoteFailure := false
	switch cmd {
	case "create":
		err = cmdCreate(ctx, args)
	case "write":
		err = cmdWrite(ctx, args)
	case "read":
		err = cmdRead(ctx, args)
	case "ls":
		err = cmdLs(ctx, args)
	case "log":
		err = cmdLog(ctx, args)
	case "merge":
		err = cmdMerge(ctx, args)
	case "defrag":
		err = cmdDefrag(ctx, args)
	case "squash":
		err = cmdSquash(ctx, args)
	case "pack":
		err = cmdPack(ctx, args)
	case "gc":
		err = cmdGC(ctx, args)
	case "push":
		err = cmdPush(ctx, args)
		remoteFailure = true
	case "pull":
		err = cmdPull(ctx, args)
		remoteFailure = true
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		usage()
		os.Exit(exitUserError)
	}

	if err == nil {
		os.Exit(exitOK)
	}
	fmt.Fprintf(os.Stderr, "lakota: %v\n", err)
	switch {
	case remoteFailure:
		os.Exit(exitRemoteIO)
	case errors.Is(err, lkerr.ErrPodNotFound), errors.Is(err, lkerr.ErrDataMissing):
		os.Exit(exitDataError)
	default:
		os.Exit(exitUserError)
	}
}

func usage() {
	fmt.Println("Usage: lakota <command> [arguments]")
	fmt.Println("Commands:")
	fmt.Println("Flags go before the positional arguments.")
	fmt.Println("  create [-schema \"name:type[:index],...\"] <repo> <collection> [series]")
	fmt.Println("  write  [-csv <file|->] [-author name] <repo> <collection> <series>")
	fmt.Println("  read   [-csv <file|->] [-range -start N -stop N] <repo> <collection> <series>")
	fmt.Println("  ls     <repo> [collection]")
	fmt.Println("  log    <repo> <collection> <series>")
	fmt.Println("  merge  [-author name] <repo> <collection> <series>")
	fmt.Println("  defrag [-author name] <repo> <collection> <series>")
	fmt.Println("  squash -cutoff N [-author name] <repo> <collection> <series>")
	fmt.Println("  pack   [-author name] <repo>")
	fmt.Println("  gc     [-horizon 60s] <repo>")
	fmt.Println("  push   [-workers N] <repo> <remote-repo>")
	fmt.Println("  pull   [-workers N] <repo> <remote-repo>")
}

func openRepo(path string) (*repo.Repo, error) {
	root, err := pod.NewFile(path)
	if err != nil {
		return nil, fmt.Errorf("open repo %q: %w", path, err)
	}
	return repo.Open(root.Sub("blobs"), root.Sub("registry"), root.Sub("changelog")), nil
}

func cmdCreate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("create", flag.ContinueOnError)
	schemaSpec := fs.String("schema", "", "column spec, e.g. \"timestamp:tss:index,value:float64\" (required when creating a series)")
	author := fs.String("author", "cli", "author recorded on the registry write")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 2 {
		return fmt.Errorf("create: want <repo> <collection> [series]")
	}
	r, err := openRepo(fs.Arg(0))
	if err != nil {
		return err
	}
	label := fs.Arg(1)
	c, err := r.Create(ctx, label, *author)
	if err != nil {
		return err
	}
	if fs.NArg() < 3 {
		return nil
	}
	if *schemaSpec == "" {
		return fmt.Errorf("create: -schema is required when a series name is given")
	}
	sc, err := parseSchema(*schemaSpec)
	if err != nil {
		return err
	}
	_, err = c.Create(ctx, fs.Arg(2), sc, *author)
	return err
}

func openSeries(ctx context.Context, repoPath, collection, label string) (*series.Series, error) {
	r, err := openRepo(repoPath)
	if err != nil {
		return nil, err
	}
	c, err := r.OpenCollection(ctx, collection)
	if err != nil {
		return nil, err
	}
	return c.OpenSeries(ctx, label)
}

func cmdWrite(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("write", flag.ContinueOnError)
	csvPath := fs.String("csv", "-", "CSV file to read rows from, - for stdin")
	author := fs.String("author", "cli", "author recorded on the commit")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 3 {
		return fmt.Errorf("write: want <repo> <collection> <series>")
	}
	s, err := openSeries(ctx, fs.Arg(0), fs.Arg(1), fs.Arg(2))
	if err != nil {
		return err
	}
	in, closeIn, err := openInput(*csvPath)
	if err != nil {
		return err
	}
	defer closeIn()
	_, err = repo.ImportCSV(ctx, in, s, *author)
	return err
}

func cmdRead(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("read", flag.ContinueOnError)
	csvPath := fs.String("csv", "-", "CSV file to write rows to, - for stdout")
	startFlag := fs.Int64("start", 0, "inclusive start index (int64-typed index columns only); used only with -range")
	stopFlag := fs.Int64("stop", 0, "inclusive stop index (int64-typed index columns only); used only with -range")
	hasRange := fs.Bool("range", false, "apply -start/-stop as an int64 index range")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 3 {
		return fmt.Errorf("read: want <repo> <collection> <series>")
	}
	s, err := openSeries(ctx, fs.Arg(0), fs.Arg(1), fs.Arg(2))
	if err != nil {
		return err
	}
	out, closeOut, err := openOutput(*csvPath)
	if err != nil {
		return err
	}
	defer closeOut()
	if !*hasRange {
		return repo.ExportCSV(ctx, out, s)
	}
	names := s.Schema.IndexNames()
	if len(names) != 1 {
		return fmt.Errorf("read: -range only supports a single-column index")
	}
	col, _ := s.Schema.Column(names[0])
	start := &frame.Index{Values: []frame.Value{frame.Int64Value(col.Type, *startFlag)}}
	stop := &frame.Index{Values: []frame.Value{frame.Int64Value(col.Type, *stopFlag)}}
	f, err := s.Read(ctx, start, stop, nil, series.ClosedBoth, nil)
	if err != nil {
		return err
	}
	return repo.WriteCSV(out, s.Schema, f)
}

func cmdLs(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("ls: want <repo> [collection]")
	}
	r, err := openRepo(args[0])
	if err != nil {
		return err
	}
	if len(args) == 1 {
		labels, err := r.List(ctx)
		if err != nil {
			return err
		}
		for _, l := range labels {
			fmt.Println(l)
		}
		return nil
	}
	c, err := r.OpenCollection(ctx, args[1])
	if err != nil {
		return err
	}
	labels, err := c.List(ctx)
	if err != nil {
		return err
	}
	for _, l := range labels {
		fmt.Println(l)
	}
	return nil
}

func cmdLog(ctx context.Context, args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("log: want <repo> <collection> <series>")
	}
	s, err := openSeries(ctx, args[0], args[1], args[2])
	if err != nil {
		return err
	}
	heads, err := changelog.Heads(ctx, s.Log)
	if err != nil {
		return err
	}
	if len(heads) > 1 {
		fmt.Fprintln(os.Stderr, "warning: divergent heads, run merge")
	}
	revs, err := changelog.Log(ctx, s.Log)
	if err != nil {
		return err
	}
	for _, r := range revs {
		fmt.Printf("%d\t%s\t%s\n", r.Epoch, r.CommitHash, r.Key())
	}
	return nil
}

func cmdMerge(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("merge", flag.ContinueOnError)
	author := fs.String("author", "cli", "author recorded on merge commits")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 3 {
		return fmt.Errorf("merge: want <repo> <collection> <series>")
	}
	s, err := openSeries(ctx, fs.Arg(0), fs.Arg(1), fs.Arg(2))
	if err != nil {
		return err
	}
	_, err = s.Merge(ctx, *author)
	return err
}

func cmdDefrag(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("defrag", flag.ContinueOnError)
	author := fs.String("author", "cli", "author recorded on the rewritten commit")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 3 {
		return fmt.Errorf("defrag: want <repo> <collection> <series>")
	}
	s, err := openSeries(ctx, fs.Arg(0), fs.Arg(1), fs.Arg(2))
	if err != nil {
		return err
	}
	_, err = s.Defrag(ctx, *author)
	return err
}

func cmdSquash(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("squash", flag.ContinueOnError)
	author := fs.String("author", "cli", "author recorded on the squashed base commit")
	cutoff := fs.Uint64("cutoff", 0, "epoch below which revisions are collapsed (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 3 {
		return fmt.Errorf("squash: want -cutoff N <repo> <collection> <series>")
	}
	if *cutoff == 0 {
		return fmt.Errorf("squash: -cutoff is required")
	}
	s, err := openSeries(ctx, fs.Arg(0), fs.Arg(1), fs.Arg(2))
	if err != nil {
		return err
	}
	_, err = s.Squash(ctx, *cutoff, *author)
	return err
}

func cmdPack(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("pack", flag.ContinueOnError)
	author := fs.String("author", "cli", "author recorded on the packed commits")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("pack: want <repo>")
	}
	r, err := openRepo(fs.Arg(0))
	if err != nil {
		return err
	}
	n, err := r.Pack(ctx, *author)
	if err != nil {
		return err
	}
	fmt.Printf("packed %s series\n", humanize.Comma(int64(n)))
	return nil
}

func cmdGC(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("gc", flag.ContinueOnError)
	horizon := fs.Duration("horizon", series.DefaultGCHorizon, "minimum age of an unreachable blob before it is collected")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("gc: want <repo>")
	}
	r, err := openRepo(fs.Arg(0))
	if err != nil {
		return err
	}
	n, err := r.GC(ctx, *horizon)
	if err != nil {
		return err
	}
	fmt.Printf("collected %s blobs\n", humanize.Comma(int64(n)))
	return nil
}

func cmdPush(ctx context.Context, args []string) error {
	return pushPull(ctx, args, "push")
}

func cmdPull(ctx context.Context, args []string) error {
	return pushPull(ctx, args, "pull")
}

func pushPull(ctx context.Context, args []string, dir string) error {
	fs := flag.NewFlagSet(dir, flag.ContinueOnError)
	workers := fs.Int("workers", 0, "bounded worker pool size, 0 for the default")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return fmt.Errorf("%s: want <repo> <remote-repo>", dir)
	}
	local, err := openRepo(fs.Arg(0))
	if err != nil {
		return err
	}
	remote, err := openRepo(fs.Arg(1))
	if err != nil {
		return err
	}
	if dir == "push" {
		return local.Push(ctx, remote, *workers)
	}
	return local.Pull(ctx, remote, *workers)
}

func openInput(path string) (*os.File, func(), error) {
	if path == "-" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open input %q: %w", path, err)
	}
	return f, func() { f.Close() }, nil
}

func openOutput(path string) (*os.File, func(), error) {
	if path == "-" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open output %q: %w", path, err)
	}
	return f, func() { f.Close() }, nil
}

