package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"imgtagger/batch"
	"imgtagger/config"
	"imgtagger/credential"
	"imgtagger/gemini"
	"imgtagger/logging"
	"imgtagger/notify"
	"imgtagger/store"
	"imgtagger/tui"
)

// Build info - set via ldflags
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#F472B6")).
			MarginBottom(1)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4ECDC4"))

	successStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#95E1A3"))

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF6B6B"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FBBF24"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A8A8A8"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#4ECDC4")).
			Padding(1, 2).
			MarginTop(1).
			MarginBottom(1)

	logo = `
    ╭─────────────────────────────────────╮
    │  ▣ imgtagger - bulk image captions  │
    ╰─────────────────────────────────────╯`
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+err.Error()))
		os.Exit(1)
	}
}

// globalOptions are flags shared by every command. Set flags override
// IMGTAGGER_* environment variables.
type globalOptions struct {
	EnvFile     string
	Model       string
	Prompt      string
	SystemFile  string
	Thinking    bool
	ChunkSize   int
	ChunkDelay  time.Duration
	OutputDir   string
	LogLevel    string
	LogFile     string
	Debug       bool
	Credentials string
}

func (o *globalOptions) Bind(fs *pflag.FlagSet) {
	fs.StringVar(&o.EnvFile, "env-file", ".env", "Load environment variables from this file")
	fs.StringVarP(&o.Model, "model", "m", "", "Gemini model id (see 'imgtagger models')")
	fs.StringVarP(&o.Prompt, "prompt", "p", "", "Per-image prompt")
	fs.StringVar(&o.SystemFile, "system-file", "", "Read system instructions from this file")
	fs.BoolVar(&o.Thinking, "thinking", false, "Let the model think before answering")
	fs.IntVarP(&o.ChunkSize, "chunk-size", "n", 0, fmt.Sprintf("Images captioned concurrently (%d-%d)", config.MinChunkSize, config.MaxChunkSize))
	fs.DurationVar(&o.ChunkDelay, "chunk-delay", 0, "Pause between chunks")
	fs.StringVarP(&o.OutputDir, "output", "o", "", "Directory for exports")
	fs.StringVar(&o.LogLevel, "log-level", "", "Log level: debug, info, success, warn, error")
	fs.StringVar(&o.LogFile, "log-file", "", "Append logs to this file")
	fs.BoolVar(&o.Debug, "debug", false, "Log API requests and responses")
	fs.StringVar(&o.Credentials, "credentials", "", "Path of the stored API key file")
}

// Complete loads the environment configuration and applies the flags that
// were set on the command line
func (o *globalOptions) Complete(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(o.EnvFile)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("model") {
		cfg.Model = o.Model
	}
	if flags.Changed("prompt") {
		cfg.Prompt = o.Prompt
	}
	if flags.Changed("system-file") {
		cfg.SystemFile = o.SystemFile
		if err := cfg.ResolveSystemFile(); err != nil {
			return nil, err
		}
	}
	if flags.Changed("thinking") {
		cfg.Thinking = o.Thinking
	}
	if flags.Changed("chunk-size") {
		cfg.ChunkSize = o.ChunkSize
	}
	if flags.Changed("chunk-delay") {
		cfg.ChunkDelay = o.ChunkDelay
	}
	if flags.Changed("output") {
		cfg.OutputDir = o.OutputDir
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = o.LogLevel
	}
	if flags.Changed("log-file") {
		cfg.LogFile = o.LogFile
	}
	if flags.Changed("debug") {
		cfg.Debug = o.Debug
	}
	if flags.Changed("credentials") {
		cfg.CredentialsFile = o.Credentials
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newRootCmd() *cobra.Command {
	o := &globalOptions{}
	cmd := &cobra.Command{
		Use:   "imgtagger [paths...]",
		Short: "Caption images in bulk with Google Gemini",
		Long: `imgtagger captions a collection of images with Google Gemini.

Without a subcommand it opens the interactive gallery, preloaded with any
files, folders, glob patterns or ZIP archives given as arguments. A .txt file
next to an image is imported as its caption.`,
		Args:          cobra.ArbitraryArgs,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := o.Complete(cmd)
			if err != nil {
				return err
			}
			return startGallery(cfg, args)
		},
	}
	cmd.SetVersionTemplate(versionText())
	o.Bind(cmd.PersistentFlags())

	cmd.AddCommand(
		newRunCmd(o),
		newKeyCmd(o),
		newModelsCmd(),
		newEnvCmd(),
	)
	return cmd
}

func versionText() string {
	return fmt.Sprintf("imgtagger %s\n  commit: %s\n  built:  %s\n  go:     %s\n  os/arch: %s/%s\n",
		version, commit, date, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// batchConfig copies the captioning settings out of cfg
func batchConfig(cfg *config.Config) batch.Config {
	return batch.Config{
		Model:              cfg.Model,
		SystemInstructions: cfg.SystemInstructions,
		Prompt:             cfg.Prompt,
		Thinking:           cfg.Thinking,
		ChunkSize:          cfg.ChunkSize,
		ChunkDelay:         cfg.ChunkDelay,
	}
}

// newOrchestrator wires a Gemini-backed orchestrator to s
func newOrchestrator(cfg *config.Config, s *store.Store, logger *slog.Logger) *batch.Orchestrator {
	factory := batch.GeminiFactory(
		gemini.WithBaseURL(cfg.BaseURL),
		gemini.WithTimeout(cfg.Timeout),
		gemini.WithDebug(cfg.Debug),
		gemini.WithLogger(logger),
	)
	return batch.New(s, factory,
		batch.WithLogger(logger),
		batch.WithRetry(cfg.RetryAttempts, cfg.RetryDelay),
	)
}

// setupLogging builds the logger for cfg. Stderr output is only used when no
// full-screen UI owns the terminal.
func setupLogging(cfg *config.Config, stderr bool, console *logging.Console) (*slog.Logger, io.Closer, error) {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Debug && level > slog.LevelDebug {
		level = slog.LevelDebug
	}
	logger, closer, err := logging.Setup(logging.Options{
		Level:   level,
		Stderr:  stderr,
		File:    cfg.LogFile,
		Console: console,
	})
	if err != nil {
		return nil, nil, err
	}
	slog.SetDefault(logger)
	return logger, closer, nil
}

// startGallery opens the gallery; tests replace it to stay off the terminal
var startGallery = runGallery

func runGallery(cfg *config.Config, sources []string) error {
	console := logging.NewConsole(logging.DefaultConsoleSize)
	logger, closer, err := setupLogging(cfg, false, console)
	if err != nil {
		return err
	}
	defer closer.Close()

	creds, err := credential.New(cfg.CredentialsFile)
	if err != nil {
		return err
	}

	s := store.New()
	orch := newOrchestrator(cfg, s, logger)

	logger.Info("imgtagger started", "version", version, "model", cfg.Model, "chunk_size", cfg.ChunkSize)

	return tui.RunGallery(tui.Options{
		Store:        s,
		Orchestrator: orch,
		Credentials:  creds,
		Console:      console,
		Bell:         notify.NewBell(os.Stdout),
		Logger:       logger,
		Config:       batchConfig(cfg),
		OutputDir:    cfg.OutputDir,
		Version:      version,
	}, sources)
}
