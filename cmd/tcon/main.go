package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/alecthomas/kong"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/mattn/go-runewidth"

	"github.com/smileynet/tcon"
	"github.com/smileynet/tcon/internal/config"
	"github.com/smileynet/tcon/internal/console"
	"github.com/smileynet/tcon/internal/logx"
	"github.com/smileynet/tcon/internal/manager"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// CLI is the top-level command structure for tcon.
type CLI struct {
	Version   kong.VersionFlag `help:"Show version." short:"V"`
	UI        UICmd            `cmd:"" default:"1" help:"Open the interactive toolchain console (default)."`
	List      ListCmd          `cmd:"" help:"Print installed toolchains."`
	Available AvailableCmd     `cmd:"" help:"Print toolchains offered by the catalog."`
}

// UICmd runs the interactive console.
type UICmd struct {
	Debug bool `help:"Write a debug log to the log directory."`
}

// ListCmd prints installed toolchains.
type ListCmd struct{}

// AvailableCmd prints catalog toolchains.
type AvailableCmd struct{}

// teaRunner abstracts Bubble Tea program execution for testing.
type teaRunner interface {
	Run() (tea.Model, error)
}

// Run executes the ui command.
func (u *UICmd) Run() error {
	isTTY := isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
	if !isTTY {
		return fmt.Errorf("ui: requires a terminal (TTY); use 'tcon list' for plain output")
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("ui: %w", err)
	}

	logger := logx.Discard()
	if u.Debug || cfg.Log.Debug {
		dir, err := cfg.LogPath()
		if err != nil {
			return fmt.Errorf("ui: %w", err)
		}
		l, closer, err := logx.New(dir)
		if err != nil {
			return fmt.Errorf("ui: %w", err)
		}
		defer closer.Close()
		logger = l
	}

	mgr, err := openManager(cfg, logger)
	if err != nil {
		return fmt.Errorf("ui: %w", err)
	}
	defer mgr.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	runner := console.NewRunner(ctx, mgr, console.WithLogger(logger))
	// Abandoned operations still hold the registry; let them finish
	// before it closes.
	defer func() {
		stop()
		runner.Wait()
	}()

	app := console.NewApp(runner, cfg.UI.ViewportRows, logger)

	opts := []tea.ProgramOption{tea.WithContext(ctx)}
	if cfg.UI.AltScreen {
		opts = append(opts, tea.WithAltScreen())
	}
	return u.run(isTTY, tea.NewProgram(app, opts...))
}

func (u *UICmd) run(isTTY bool, prog teaRunner) error {
	if !isTTY {
		return fmt.Errorf("ui: requires a terminal (TTY)")
	}
	_, err := prog.Run()
	return err
}

// Run executes the list command.
func (l *ListCmd) Run() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("list: %w", err)
	}
	mgr, err := openManager(cfg, logx.Discard())
	if err != nil {
		return fmt.Errorf("list: %w", err)
	}
	defer mgr.Close()

	records := mgr.List(context.Background())
	if len(records) == 0 {
		_, _ = fmt.Fprintln(os.Stdout, "No toolchains installed. Run 'tcon' and choose 2 to install one.")
		return nil
	}
	printTable(os.Stdout, console.SortToolchains(records))
	return nil
}

// Run executes the available command.
func (a *AvailableCmd) Run() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("available: %w", err)
	}
	mgr, err := openManager(cfg, logx.Discard())
	if err != nil {
		return fmt.Errorf("available: %w", err)
	}
	defer mgr.Close()

	records, problem := mgr.ListAvailable(context.Background())
	if problem != "" {
		_, _ = fmt.Fprintf(os.Stderr, "warning: %s\n", problem)
	}
	printTable(os.Stdout, records)
	return nil
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadLayered(
		os.ExpandEnv("$HOME/.config/tcon/config.yaml"),
		".tcon/config.yaml",
	)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func openManager(cfg *config.Config, logger *log.Logger) (*manager.Manager, error) {
	dataDir, err := cfg.DataPath()
	if err != nil {
		return nil, err
	}
	logDir, err := cfg.LogPath()
	if err != nil {
		return nil, err
	}
	catalog, name := tcon.CatalogSource(cfg.Catalog)
	return manager.New(manager.Options{
		DataDir:       dataDir,
		LogDir:        logDir,
		Catalog:       catalog,
		CatalogName:   name,
		VerifyCommand: cfg.Install.VerifyCommand,
		Timeout:       cfg.Install.Timeout,
		Logger:        logger,
	})
}

// printTable writes records as aligned plain-text columns.
func printTable(w io.Writer, records []console.ToolchainRecord) {
	rows := [][]string{{"ID", "VERSION", "CHANNEL", "STATUS", "SIZE"}}
	for _, r := range records {
		size := ""
		if r.Metadata != nil {
			size = r.Metadata.Size
		}
		rows = append(rows, []string{r.ID, r.Version, string(r.Channel), r.StatusLabel(), size})
	}

	widths := make([]int, len(rows[0]))
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
		}
	}
	for _, row := range rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			cells[i] = runewidth.FillRight(cell, widths[i])
		}
		_, _ = fmt.Fprintln(w, strings.TrimRight(strings.Join(cells, "  "), " "))
	}
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli, kong.Vars{"version": version + " " + commit + " " + date})
	if err := ctx.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(1)
	}
}
