package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/c360studio/flowplan/transform"
	"github.com/c360studio/flowplan/watcher"
	"github.com/c360studio/flowplan/workspace"
)

// planExtension is appended to the document base name for output files.
const planExtension = ".planspace.yaml"

func compileCmd(configPath, logLevel *string) *cobra.Command {
	var (
		workspaceID string
		outDir      string
		watch       bool
	)

	cmd := &cobra.Command{
		Use:   "compile [flags] <flow.yaml|dir|glob>...",
		Short: "Compile flow documents into PlanSpace output",
		Long: `Compile reads flow documents in compact block notation and writes
the PlanSpace rendering next to each input (or into --out).

Arguments may be files, directories or glob patterns such as
"flows/**". Without arguments, the configured flow paths are used.
With --watch, the resolved directories are watched and documents are
recompiled whenever they change.`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogger(*logLevel, "")
			cfg, err := loadConfig(*configPath, logger)
			if err != nil {
				return err
			}
			registry := buildRegistry(logger)

			t, ok := registry.Get(workspaceID)
			if !ok {
				return fmt.Errorf("unknown workspace %q (have: %s)",
					workspaceID, strings.Join(registry.IDs(), ", "))
			}

			if len(args) == 0 {
				args = cfg.Flows.Paths
			}
			if len(args) == 0 {
				return fmt.Errorf("no inputs given and no flow paths configured")
			}

			files, dirs, err := expandInputs(args)
			if err != nil {
				return err
			}
			if len(files) == 0 && !watch {
				return fmt.Errorf("no flow documents found")
			}

			failures := 0
			for _, path := range files {
				if err := compileFile(t, path, outDir, logger); err != nil {
					logger.Error("Compilation failed", "path", path, "error", err)
					failures++
				}
			}

			if watch {
				watchCfg := watcher.Config{
					DebounceDelay: cfg.Flows.DebounceDelay,
					Extensions:    cfg.Flows.Extensions,
				}
				return watchAndCompile(cmd.Context(), t, watchCfg, files, dirs, outDir, logger)
			}

			if failures > 0 {
				return fmt.Errorf("%d of %d documents failed to compile", failures, len(files))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&workspaceID, "workspace", "w", workspace.IDProtocols, "Workspace dialect to compile with")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Output directory (default: next to each input)")
	cmd.Flags().BoolVar(&watch, "watch", false, "Watch inputs and recompile on change")

	return cmd
}

// expandInputs splits arguments into individual documents and watch
// roots. Directory and glob arguments are resolved to directories and
// scanned for flow documents.
func expandInputs(args []string) (files, dirs []string, err error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, nil, err
	}

	for _, arg := range args {
		info, statErr := os.Stat(arg)
		if statErr == nil && !info.IsDir() {
			abs, err := filepath.Abs(arg)
			if err != nil {
				return nil, nil, err
			}
			files = append(files, abs)
			continue
		}

		resolved, err := watcher.ResolvePaths([]string{arg}, cwd)
		if err != nil {
			return nil, nil, err
		}
		if len(resolved) == 0 {
			return nil, nil, fmt.Errorf("no such file or directory: %s", arg)
		}

		for _, dir := range resolved {
			dirs = append(dirs, dir)
			found, err := flowDocuments(dir)
			if err != nil {
				return nil, nil, err
			}
			files = append(files, found...)
		}
	}

	return files, dirs, nil
}

// flowDocuments lists flow documents directly in dir.
func flowDocuments(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".yaml", ".yml":
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	return files, nil
}

// compileFile transforms one flow document and writes its PlanSpace
// output.
func compileFile(t transform.Transformer, path, outDir string, logger *slog.Logger) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	doc, err := t.Transform(data)
	if err != nil {
		return err
	}

	out, err := doc.Marshal()
	if err != nil {
		return err
	}

	outPath := planPath(path, outDir)
	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return err
	}
	if err := os.WriteFile(outPath, out, 0644); err != nil {
		return err
	}

	logger.Info("Compiled flow document",
		"input", path,
		"output", outPath,
		"actions", len(doc.Actions))
	return nil
}

// planPath derives the output file path for a compiled document.
func planPath(input, outDir string) string {
	base := filepath.Base(input)
	base = strings.TrimSuffix(base, filepath.Ext(base)) + planExtension
	if outDir == "" {
		return filepath.Join(filepath.Dir(input), base)
	}
	return filepath.Join(outDir, base)
}

// watchAndCompile recompiles documents whenever they change. Files
// named explicitly are tracked individually; directory roots accept
// any flow document under them, including new ones.
func watchAndCompile(ctx context.Context, t transform.Transformer, watchCfg watcher.Config, files, dirs []string, outDir string, logger *slog.Logger) error {
	wanted := make(map[string]bool, len(files))
	roots := make(map[string]bool)
	for _, f := range files {
		wanted[f] = true
		roots[filepath.Dir(f)] = true
	}
	dirRoots := make(map[string]bool, len(dirs))
	for _, d := range dirs {
		roots[d] = true
		dirRoots[d] = true
	}

	underDirRoot := func(path string) bool {
		for d := range dirRoots {
			if strings.HasPrefix(path, d+string(filepath.Separator)) {
				return true
			}
		}
		return false
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	events := make(chan watcher.Event)
	for root := range roots {
		w, err := watcher.New(watchCfg, root, logger)
		if err != nil {
			return err
		}
		if err := w.Start(ctx); err != nil {
			return err
		}
		defer w.Stop()

		go func(ch <-chan watcher.Event) {
			for ev := range ch {
				select {
				case events <- ev:
				case <-ctx.Done():
					return
				}
			}
		}(w.Events())
	}

	logger.Info("Watching for changes",
		"documents", len(wanted),
		"roots", len(roots))

	for {
		select {
		case <-sigCh:
			logger.Info("Stopping watch")
			return nil
		case <-ctx.Done():
			return nil
		case ev := <-events:
			if ev.Operation == watcher.OpDelete {
				continue
			}
			if !wanted[ev.AbsPath] && !underDirRoot(ev.AbsPath) {
				continue
			}
			if err := compileFile(t, ev.AbsPath, outDir, logger); err != nil {
				logger.Error("Compilation failed", "path", ev.Path, "error", err)
			}
		}
	}
}
