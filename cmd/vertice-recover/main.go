package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"

	"github.com/JuanCS-Dev/vertice-code-sub006/internal/checkpoint"
	"github.com/JuanCS-Dev/vertice-code-sub006/internal/recovery"
	"github.com/JuanCS-Dev/vertice-code-sub006/internal/rollback"
)

func main() {
	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      slog.LevelInfo,
		TimeFormat: time.RFC3339,
	})))

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}
	switch os.Args[1] {
	case "classify":
		classify(os.Args[2:])
	case "diagnose":
		diagnose(os.Args[2:])
	case "checkpoint":
		checkpointCmd(os.Args[2:])
	case "revert":
		revert(os.Args[2:])
	case "journal":
		journal(os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage:")
	fmt.Fprintln(os.Stderr, "  vertice-recover classify <error message>")
	fmt.Fprintln(os.Stderr, "  vertice-recover diagnose --config <file> --operation <op> [--intent <text>] <error message>")
	fmt.Fprintln(os.Stderr, "  vertice-recover checkpoint --repo <dir> [--config <file>] [--message <m>] [--exclude <glob>]...")
	fmt.Fprintln(os.Stderr, "  vertice-recover revert --repo <dir> --sha <commit>")
	fmt.Fprintln(os.Stderr, "  vertice-recover journal <file>")
}

func classify(args []string) {
	if len(args) == 0 {
		usage()
		os.Exit(1)
	}
	cat, permanent := recovery.Classify(strings.Join(args, " "))
	fmt.Printf("category=%s permanent=%v\n", cat, permanent)
}

func checkpointCmd(args []string) {
	var repo, message, configPath string
	var exclude []string
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--repo":
			i++
			if i >= len(args) {
				fmt.Fprintln(os.Stderr, "--repo requires a value")
				os.Exit(1)
			}
			repo = args[i]
		case "--config":
			i++
			if i >= len(args) {
				fmt.Fprintln(os.Stderr, "--config requires a value")
				os.Exit(1)
			}
			configPath = args[i]
		case "--message":
			i++
			if i >= len(args) {
				fmt.Fprintln(os.Stderr, "--message requires a value")
				os.Exit(1)
			}
			message = args[i]
		case "--exclude":
			i++
			if i >= len(args) {
				fmt.Fprintln(os.Stderr, "--exclude requires a value")
				os.Exit(1)
			}
			exclude = append(exclude, args[i])
		default:
			fmt.Fprintf(os.Stderr, "unknown arg: %s\n", args[i])
			os.Exit(1)
		}
	}
	if repo == "" {
		usage()
		os.Exit(1)
	}
	if configPath != "" {
		cfg, err := recovery.LoadConfigFile(configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "checkpoint: %v\n", err)
			os.Exit(1)
		}
		exclude = append(exclude, cfg.Checkpoint.Exclude...)
	}
	mgr := checkpoint.NewManager(repo, exclude, slog.Default())
	sha, ok, err := mgr.CreateCheckpoint(message)
	if err != nil {
		fmt.Fprintf(os.Stderr, "checkpoint: %v\n", err)
		os.Exit(1)
	}
	if !ok {
		fmt.Println("nothing to checkpoint")
		return
	}
	fmt.Println(sha)
}

func revert(args []string) {
	var repo, sha string
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--repo":
			i++
			if i >= len(args) {
				fmt.Fprintln(os.Stderr, "--repo requires a value")
				os.Exit(1)
			}
			repo = args[i]
		case "--sha":
			i++
			if i >= len(args) {
				fmt.Fprintln(os.Stderr, "--sha requires a value")
				os.Exit(1)
			}
			sha = args[i]
		default:
			fmt.Fprintf(os.Stderr, "unknown arg: %s\n", args[i])
			os.Exit(1)
		}
	}
	if repo == "" || sha == "" {
		usage()
		os.Exit(1)
	}
	mgr := checkpoint.NewManager(repo, nil, slog.Default())
	if err := mgr.RevertToCheckpoint(sha); err != nil {
		fmt.Fprintf(os.Stderr, "revert: %v\n", err)
		os.Exit(1)
	}
}

func journal(args []string) {
	if len(args) != 1 {
		usage()
		os.Exit(1)
	}
	entries, err := rollback.ReadJournal(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "journal: %v\n", err)
		os.Exit(1)
	}
	for _, e := range entries {
		fmt.Printf("%s  #%d  %-5s reversible=%-5v %s  %s\n",
			e.CreatedAt.Format(time.RFC3339), e.ID, e.Event, e.Reversible, e.Label, e.PayloadHash[:12])
	}
}
