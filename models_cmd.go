package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"dictate/config"
	"dictate/models"
	"dictate/shutdown"
)

const modelsUsage = "Usage: dictate models [list | download <name> | delete <name>]"

// runModels implements the models subcommand and returns the exit code.
func runModels(args []string) int {
	cfgPath, err := config.DefaultPath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	s, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading %s: %v\n", cfgPath, err)
		return 1
	}
	store, err := newModelStore(s)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer store.Close()

	cmd := "list"
	if len(args) > 0 {
		cmd = args[0]
	}
	switch {
	case cmd == "list":
		listModels(os.Stdout, store, s.LocalModel)
		return 0
	case cmd == "download" && len(args) == 2:
		return downloadModel(store, args[1])
	case cmd == "delete" && len(args) == 2:
		if _, ok := store.Lookup(args[1]); !ok {
			fmt.Fprintf(os.Stderr, "Error: %v: %s\n", models.ErrUnknownModel, args[1])
			return 1
		}
		if err := store.Delete(args[1]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		fmt.Printf("Deleted %s\n", args[1])
		return 0
	}
	fmt.Fprintln(os.Stderr, modelsUsage)
	return 2
}

func listModels(w io.Writer, store *models.Store, selected string) {
	for _, m := range store.Catalog() {
		mark := " "
		if m.Name == selected {
			mark = "*"
		}
		state := "-"
		if store.IsInstalled(m.Name) {
			state = "installed"
		}
		fmt.Fprintf(w, "%s %-6s %5d MB  %-9s  %s\n", mark, m.Name, m.SizeMB(), state, m.Description)
	}
}

func downloadModel(store *models.Store, name string) int {
	ctx, cancel := shutdown.Context(context.Background())
	defer cancel()

	type result struct {
		ok  bool
		msg string
	}
	done := make(chan result, 1)
	err := store.Download(name,
		func(_ string, downloaded, total int64) {
			printProgress(os.Stderr, name, downloaded, total)
		},
		func(_ string, ok bool, msg string) {
			done <- result{ok, msg}
		},
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	var res result
	select {
	case res = <-done:
	case <-ctx.Done():
		store.Cancel(name)
		res = <-done
	}
	fmt.Fprintln(os.Stderr)
	if !res.ok {
		fmt.Fprintf(os.Stderr, "Download failed: %s\n", res.msg)
		return 1
	}
	fmt.Fprintf(os.Stderr, "Installed %s\n", name)
	return 0
}

// printProgress rewrites one status line. total is 0 when the server sent
// no length.
func printProgress(w io.Writer, name string, downloaded, total int64) {
	mb := float64(downloaded) / 1e6
	if total <= 0 {
		fmt.Fprintf(w, "\r%s: %.1f MB", name, mb)
		return
	}
	fmt.Fprintf(w, "\r%s: %.1f / %.1f MB (%d%%)", name, mb, float64(total)/1e6, downloaded*100/total)
}
