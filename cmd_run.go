package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/huh/spinner"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"imgtagger/batch"
	"imgtagger/config"
	"imgtagger/credential"
	"imgtagger/export"
	"imgtagger/gemini"
	"imgtagger/intake"
	"imgtagger/store"
)

// runOptions configure the headless batch
type runOptions struct {
	*globalOptions

	Zip       string
	Overwrite bool
	Recaption bool
}

func newRunCmd(global *globalOptions) *cobra.Command {
	o := &runOptions{globalOptions: global}
	cmd := &cobra.Command{
		Use:   "run [paths...]",
		Short: "Caption images without the gallery and export the results",
		Long: `Caption every image that has no caption yet, then write each image with
its .txt caption to the output directory (or a ZIP archive with --zip).

Ctrl+C stops the run; images already captioned are still exported.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := o.Complete(cmd)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return o.Run(ctx, cfg, args, cmd.OutOrStdout())
		},
	}
	o.Bind(cmd.Flags())
	return cmd
}

func (o *runOptions) Bind(fs *pflag.FlagSet) {
	fs.StringVar(&o.Zip, "zip", "", "Write an archive instead of a directory ('-' for the default name)")
	fs.BoolVar(&o.Overwrite, "overwrite", false, "Overwrite existing files in the output directory")
	fs.BoolVar(&o.Recaption, "recaption", false, "Also caption images that came with a .txt caption")
}

var errInterrupted = errors.New("interrupted before all images were captioned")

// runSummary is what a headless run did
type runSummary struct {
	Loaded   int
	Done     int
	Failed   int
	Reverted int
	Elapsed  time.Duration
	Stopped  bool
	Output   string
	Written  int
}

// Run loads sources, captions them and exports the captioned pairs
func (o *runOptions) Run(ctx context.Context, cfg *config.Config, sources []string, out io.Writer) error {
	logger, closer, err := setupLogging(cfg, true, nil)
	if err != nil {
		return err
	}
	defer closer.Close()

	creds, err := credential.New(cfg.CredentialsFile)
	if err != nil {
		return err
	}
	apiKey, source, err := creds.Resolve()
	if err != nil {
		return err
	}
	if apiKey == "" {
		fmt.Fprintln(out, infoStyle.Render(gemini.GetAPIKeyHelp()))
		return batch.ErrNoCredential
	}
	logger.Debug("Using API key", "source", string(source), "key", credential.Mask(apiKey))

	fmt.Fprintln(out, titleStyle.Render(logo))

	var items []store.NewItem
	var loadErr error
	if err := withSpinner("Loading images...", func() {
		items, loadErr = intake.Load(sources)
	}); err != nil {
		return err
	}
	if loadErr != nil {
		return fmt.Errorf("failed to load images: %w", loadErr)
	}

	s := store.New()
	added := s.Add(items...)
	var selected []string
	if o.Recaption {
		for _, it := range added {
			selected = append(selected, it.ID)
		}
	}
	counts := s.Counts()
	fmt.Fprintln(out, boxStyle.Render(fmt.Sprintf(
		"Found %d images (%d already captioned)\nModel: %s\nChunk size: %d",
		counts.Total, counts.Done, gemini.ModelDisplayName(cfg.Model), cfg.ChunkSize,
	)))

	orch := newOrchestrator(cfg, s, logger)
	sum, err := captionAll(ctx, orch, s, batch.StartRequest{
		Config:   batchConfig(cfg),
		APIKey:   apiKey,
		Selected: selected,
	})
	if err != nil {
		return err
	}
	sum.Loaded = len(added)

	if err := o.export(cfg, s, &sum); err != nil {
		return err
	}

	fmt.Fprintln(out, renderSummary(sum))
	switch {
	case sum.Stopped:
		return errInterrupted
	case sum.Failed > 0:
		return fmt.Errorf("%d of %d images failed", sum.Failed, sum.Loaded)
	}
	return nil
}

// captionAll runs the orchestrator to completion or until ctx is cancelled
func captionAll(ctx context.Context, orch *batch.Orchestrator, s *store.Store, req batch.StartRequest) (runSummary, error) {
	var sum runSummary
	finished := make(chan batch.Event, 1)
	unsubscribe := orch.Subscribe(func(ev batch.Event) {
		switch ev.Type {
		case batch.RunCompleted, batch.RunStopped:
			select {
			case finished <- ev:
			default:
			}
		}
	})
	defer unsubscribe()

	start := time.Now()
	err := orch.Start(ctx, req)
	switch {
	case errors.Is(err, batch.ErrNothingToProcess):
		sum.Done = s.Counts().Done
		return sum, nil
	case err != nil:
		return sum, err
	}

	orch.Wait()
	select {
	case ev := <-finished:
		sum.Stopped = ev.Type == batch.RunStopped
		sum.Reverted = ev.Reverted
	default:
	}

	c := s.Counts()
	sum.Done = c.Done
	sum.Failed = c.Error
	sum.Elapsed = time.Since(start)
	return sum, nil
}

// export writes the captioned pairs to a ZIP or the output directory
func (o *runOptions) export(cfg *config.Config, s *store.Store, sum *runSummary) error {
	pairs := export.Pairs(s.List())
	if len(pairs) == 0 {
		return nil
	}

	if o.Zip != "" {
		path := o.Zip
		if path == "-" {
			path = filepath.Join(cfg.OutputDir, export.ArchiveName(time.Now()))
		}
		var err error
		if spinErr := withSpinner("Writing archive...", func() {
			err = export.WriteZipFile(path, pairs)
		}); spinErr != nil {
			return spinErr
		}
		if err != nil {
			return err
		}
		sum.Output = path
		sum.Written = len(pairs)
		return nil
	}

	var result *export.WriteResult
	var err error
	if spinErr := withSpinner("Writing captions...", func() {
		result, err = export.WriteDir(cfg.OutputDir, pairs, o.Overwrite)
	}); spinErr != nil {
		return spinErr
	}
	if err != nil {
		return err
	}
	for _, e := range result.Errors {
		fmt.Fprintln(os.Stderr, warnStyle.Render("  "+e.Error()))
	}
	sum.Output = cfg.OutputDir
	sum.Written = len(result.FilesWritten)
	return nil
}

func renderSummary(sum runSummary) string {
	var lines []string
	switch {
	case sum.Stopped:
		lines = append(lines, warnStyle.Render(fmt.Sprintf("Stopped: %d images returned to pending", sum.Reverted)))
	case sum.Failed > 0:
		lines = append(lines, errorStyle.Render(fmt.Sprintf("Finished with %d failures", sum.Failed)))
	default:
		lines = append(lines, successStyle.Render("All images captioned"))
	}
	lines = append(lines, "")
	lines = append(lines, fmt.Sprintf("Captioned: %d / %d", sum.Done, sum.Loaded))
	if sum.Elapsed > 0 {
		lines = append(lines, fmt.Sprintf("Time:      %s", batch.FormatDuration(sum.Elapsed)))
	}
	if sum.Output != "" {
		lines = append(lines, fmt.Sprintf("Output:    %s (%d files)", sum.Output, sum.Written))
	} else {
		lines = append(lines, infoStyle.Render("Nothing to export"))
	}
	return boxStyle.Render(strings.Join(lines, "\n"))
}

// withSpinner runs fn under a spinner when stdout is a terminal
func withSpinner(title string, fn func()) error {
	if !isTerminal(os.Stdout) {
		fn()
		return nil
	}
	return spinner.New().
		Title(title).
		Action(fn).
		Run()
}

func isTerminal(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
