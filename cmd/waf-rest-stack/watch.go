package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/lex00/waf-rest-stack-go/internal/lint"
	"github.com/lex00/waf-rest-stack-go/internal/logging"
)

// newWatchCmd creates the "watch" subcommand for auto-rebuilding on file changes.
func newWatchCmd(opts *globalOptions) *cobra.Command {
	var wopts watchOptions

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Auto-rebuild on configuration or handler changes",
		Long: `Watch monitors the stack configuration file and the handler source file
and rebuilds the template whenever one of them changes.

The watch command:
- Runs lint on each change
- Rebuilds if lint passes (unless --lint-only)
- Debounces rapid changes to avoid excessive rebuilds

Examples:
    waf-rest-stack watch --config stack.yaml
    waf-rest-stack watch --config stack.yaml -o template.json
    waf-rest-stack watch --config stack.yaml --debounce 1s`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, cmd.OutOrStdout(), opts, wopts)
		},
	}

	cmd.Flags().BoolVar(&wopts.lintOnly, "lint-only", false, "Only run lint, skip build")
	cmd.Flags().DurationVar(&wopts.debounce, "debounce", 500*time.Millisecond, "Debounce duration for rapid changes")
	cmd.Flags().StringVarP(&wopts.outputFormat, "format", "f", "json", "Output format for build: json or yaml")
	cmd.Flags().StringVarP(&wopts.outputFile, "output", "o", "", "Output file for build (default: report only)")

	return cmd
}

type watchOptions struct {
	lintOnly     bool
	debounce     time.Duration
	outputFormat string
	outputFile   string
}

// watchedFiles returns the absolute paths whose changes trigger a rebuild.
func watchedFiles(opts *globalOptions) ([]string, error) {
	var files []string
	if opts.configPath != "" {
		files = append(files, opts.configPath)
	}
	cfg, err := opts.loadConfig()
	if err != nil {
		return nil, err
	}
	if cfg.Handler.SourceFile != "" {
		files = append(files, cfg.Handler.SourceFile)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("nothing to watch: pass --config or set handler.source_file")
	}

	for i, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return nil, err
		}
		files[i] = abs
	}
	return files, nil
}

// runWatch watches the directories of the input files and rebuilds on change.
// Directories are watched rather than files so editors that replace files on
// save are still seen.
func runWatch(ctx context.Context, w io.Writer, opts *globalOptions, wopts watchOptions) error {
	files, err := watchedFiles(opts)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() {
		_ = watcher.Close()
	}()

	wanted := make(map[string]bool, len(files))
	for _, f := range files {
		wanted[f] = true
		dir := filepath.Dir(f)
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
		fmt.Fprintf(w, "Watching: %s\n", f)
	}

	fmt.Fprintln(w, "Running initial lint/build...")
	runLintAndBuild(w, opts, wopts)

	var debounceTimer *time.Timer
	rebuildChan := make(chan struct{}, 1)

	fmt.Fprintln(w, "\nWatching for changes... (Ctrl+C to stop)")

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !wanted[filepath.Clean(event.Name)] {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(wopts.debounce, func() {
				select {
				case rebuildChan <- struct{}{}:
				default:
				}
			})

		case <-rebuildChan:
			fmt.Fprintf(w, "\n[%s] Change detected, rebuilding...\n", time.Now().Format("15:04:05"))
			runLintAndBuild(w, opts, wopts)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logging.Warn("watch error", "error", err)

		case <-ctx.Done():
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			fmt.Fprintln(w, "\nStopping watch...")
			return nil
		}
	}
}

// runLintAndBuild reassembles the stack, lints it and, when lint passes,
// synthesizes the template. It reports whether every step succeeded.
func runLintAndBuild(w io.Writer, opts *globalOptions, wopts watchOptions) bool {
	s, _, err := opts.loadStack()
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return false
	}

	result := runLint(s, lint.Options{})
	if !result.Success {
		_ = outputLintResult(w, result, "text")
		fmt.Fprintln(w, "Lint failed, skipping build")
		return false
	}
	fmt.Fprintln(w, "Lint passed")

	if wopts.lintOnly {
		return true
	}

	tmpl, err := s.Synth()
	if err != nil {
		fmt.Fprintf(w, "Build error: %v\n", err)
		return false
	}

	if wopts.outputFile == "" {
		fmt.Fprintln(w, "Build successful")
		fmt.Fprintf(w, "Generated %d resources\n", len(tmpl.Resources))
		return true
	}

	data, err := encodeTemplate(tmpl, wopts.outputFormat)
	if err != nil {
		fmt.Fprintf(w, "Output error: %v\n", err)
		return false
	}
	if err := os.WriteFile(wopts.outputFile, data, 0644); err != nil {
		fmt.Fprintf(w, "Failed to write output: %v\n", err)
		return false
	}
	fmt.Fprintf(w, "Build successful, wrote %s\n", wopts.outputFile)
	return true
}
