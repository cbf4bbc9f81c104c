package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"termlaunch/internal/command"
	"termlaunch/internal/config"
	"termlaunch/internal/history"
	"termlaunch/internal/ipc"
	"termlaunch/internal/launch"
	"termlaunch/internal/shell"
	"termlaunch/internal/terminal"
)

var (
	sendIPCFn     = ipc.Send
	openHistoryFn = history.Open
)

const historyWriteTimeout = 5 * time.Second

// cli holds the state shared by all subcommands.
type cli struct {
	out    io.Writer
	errOut io.Writer

	configPath string
	debug      bool
	cfg        config.Config
}

type openFlags struct {
	options   []string
	text      string
	namespace string
	pod       string
	env       []string
	noCheck   bool
	remote    bool
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	c := &cli{out: out, errOut: errOut, cfg: config.DefaultConfig()}

	rootCmd := &cobra.Command{
		Use:           "termlaunch",
		Short:         "Open a terminal running a chosen command",
		Long:          `termlaunch [global options] <command> [command options] [terminal]`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			c.initialize()
		},
	}
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)
	rootCmd.PersistentFlags().StringVar(&c.configPath, "config", "", "Path to config file")
	rootCmd.PersistentFlags().BoolVar(&c.debug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "version",
			Short: "Show version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintln(c.out, version)
			},
		},
		&cobra.Command{
			Use:     "list",
			Short:   "List known terminals",
			Args:    cobra.NoArgs,
			Run:     c.handleList,
			Example: "termlaunch list",
		},
		&cobra.Command{
			Use:     "installed <terminal>",
			Short:   "Check whether a terminal is installed",
			Args:    cobra.ExactArgs(1),
			RunE:    c.handleInstalled,
			Example: "termlaunch installed Kitty",
		},
	)

	var of openFlags
	openCmd := &cobra.Command{
		Use:   "open [terminal]",
		Short: "Open a terminal and run the selected command",
		Long: `Open a terminal and run the command derived from the selected options.
The first selected option wins, in the order custom, shell, kubectl, printenv,
kubectl-exec. With nothing selected the terminal echoes a greeting.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.handleOpen(cmd.Context(), args, of)
		},
		Example: `termlaunch open Kitty --option kubectl
termlaunch open --option kubectl-exec --namespace ns1 --pod pod1
termlaunch open WezTerm --option custom --text "htop" --env TERM=xterm-256color`,
	}
	openCmd.Flags().StringArrayVar(&of.options, "option", nil, "Selected option (custom, shell, kubectl, printenv, kubectl-exec); repeatable")
	openCmd.Flags().StringVar(&of.text, "text", "", "Command text for the custom option")
	openCmd.Flags().StringVar(&of.namespace, "namespace", "", "Namespace for kubectl-exec")
	openCmd.Flags().StringVar(&of.pod, "pod", "", "Pod for kubectl-exec")
	openCmd.Flags().StringArrayVar(&of.env, "env", nil, "Environment variable KEY=VALUE; repeatable")
	openCmd.Flags().BoolVar(&of.noCheck, "no-check", false, "Skip the installed check")
	openCmd.Flags().BoolVar(&of.remote, "remote", false, "Send the launch to the running termlaunch window")
	rootCmd.AddCommand(openCmd)

	var limit int
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent launches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.handleHistory(cmd.Context(), limit)
		},
	}
	historyCmd.Flags().IntVar(&limit, "limit", 0, "Number of launches to show (0 uses history_limit)")
	rootCmd.AddCommand(historyCmd)

	return rootCmd
}

// initialize sets up logging and loads the config. A broken config file is
// reported and the defaults are used.
func (c *cli) initialize() {
	level := slog.LevelWarn
	if c.debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(c.errOut, &slog.HandlerOptions{Level: level})))

	if strings.TrimSpace(c.configPath) == "" {
		c.configPath = config.DefaultPath()
	}
	cfg, err := config.Load(c.configPath)
	if err != nil {
		slog.Warn("[WARN-CONFIG] failed to load config, using defaults", "path", c.configPath, "error", err)
		cfg = config.DefaultConfig()
	}
	c.cfg = cfg
}

type terminalRow struct {
	Name      string
	Supported bool
	Default   bool
}

func (c *cli) handleList(cmd *cobra.Command, args []string) {
	supported := map[terminal.Terminal]bool{}
	for _, t := range terminal.Supported() {
		supported[t] = true
	}
	var rows []terminalRow
	for _, t := range terminal.All() {
		rows = append(rows, terminalRow{
			Name:      t.String(),
			Supported: supported[t],
			Default:   t.String() == c.cfg.DefaultTerminal,
		})
	}
	renderTerminals(c.out, rows)
}

func (c *cli) handleInstalled(cmd *cobra.Command, args []string) error {
	installed, err := c.bridge().IsInstalled(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if !installed {
		fmt.Fprintln(c.out, errorStyle.Render(launch.NotInstalledMessage(args[0])))
		return exitStatus(1)
	}
	fmt.Fprintln(c.out, successStyle.Render(args[0]+" is installed"))
	return nil
}

func (c *cli) handleOpen(ctx context.Context, args []string, of openFlags) error {
	terminalName := c.cfg.DefaultTerminal
	if len(args) == 1 {
		terminalName = args[0]
	}
	env, err := parseEnvFlags(of.env)
	if err != nil {
		return err
	}
	sel := command.Selection{
		Checked:    of.options,
		CustomText: of.text,
		Namespace:  of.namespace,
		Pod:        of.pod,
	}

	if of.remote {
		return c.openRemote(terminalName, sel, env)
	}

	requester := launch.NewRequester(c.bridge(), writerDisplay{w: c.errOut}, launch.Options{
		Platform:           runtime.GOOS,
		SkipInstalledCheck: of.noCheck || !c.cfg.PrecheckInstalled,
		Kubeconfig:         c.cfg.Kubeconfig,
	})
	out := requester.Request(ctx, terminalName, sel, env)
	slog.Debug("[launch] request resolved", "id", out.ID, "terminal", out.Terminal, "choice", out.Choice, "status", out.Status, "source", history.SourceCLI)
	c.recordHistory(out)

	if out.Status != launch.StatusLaunched {
		return exitStatus(1)
	}
	fmt.Fprintln(c.out, successStyle.Render(fmt.Sprintf("launched %s (%s)", out.Terminal, out.Choice)))
	return nil
}

func (c *cli) openRemote(terminalName string, sel command.Selection, env map[string]string) error {
	resp, err := sendIPCFn("", ipc.Request{
		Command:   ipc.CommandLaunch,
		Terminal:  terminalName,
		Selection: sel,
		Env:       env,
	})
	if err != nil {
		if ipc.IsConnectionError(err) {
			return errors.New("termlaunch window is not running")
		}
		return fmt.Errorf("send launch request: %w", err)
	}
	if resp.Stdout != "" {
		fmt.Fprint(c.out, successStyle.Render(strings.TrimRight(resp.Stdout, "\n"))+"\n")
	}
	if resp.Stderr != "" {
		fmt.Fprint(c.errOut, errorStyle.Render(strings.TrimRight(resp.Stderr, "\n"))+"\n")
	}
	if resp.ExitCode != 0 {
		return exitStatus(resp.ExitCode)
	}
	return nil
}

// recordHistory stores out in the shared history database. Failures are
// logged only; the window may hold the database busy.
func (c *cli) recordHistory(out launch.Outcome) {
	ctx, cancel := context.WithTimeout(context.Background(), historyWriteTimeout)
	defer cancel()
	store, err := openHistoryFn(ctx, history.DefaultPath(c.configPath))
	if err != nil {
		slog.Debug("[DEBUG-HISTORY] launch not recorded", "id", out.ID, "error", err)
		return
	}
	defer store.Close()
	if err := store.Record(ctx, history.FromOutcome(out, history.SourceCLI, time.Now())); err != nil {
		slog.Warn("[WARN-HISTORY] failed to record launch", "id", out.ID, "error", err)
		return
	}
	if _, err := store.Prune(ctx, c.cfg.HistoryLimit); err != nil {
		slog.Warn("[WARN-HISTORY] failed to prune launch history", "error", err)
	}
}

func (c *cli) handleHistory(ctx context.Context, limit int) error {
	if limit <= 0 {
		limit = c.cfg.HistoryLimit
	}
	store, err := openHistoryFn(ctx, history.DefaultPath(c.configPath))
	if err != nil {
		return err
	}
	defer store.Close()
	entries, err := store.Recent(ctx, limit)
	if err != nil {
		return err
	}
	renderHistory(c.out, entries)
	fmt.Fprintln(c.out, mutedStyle.Render("history: "+store.Path()))
	return nil
}

// parseEnvFlags turns KEY=VALUE pairs into a map. Later pairs win.
func parseEnvFlags(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	env := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --env %q: want KEY=VALUE", pair)
		}
		if !shell.IsEnvVarName(key) {
			return nil, fmt.Errorf("invalid --env %q: bad variable name %q", pair, key)
		}
		env[key] = value
	}
	return env, nil
}
