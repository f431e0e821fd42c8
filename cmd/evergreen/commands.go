package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"evergreen/internal/app"
	"evergreen/internal/config"
	"evergreen/internal/logger"
	"evergreen/internal/persona"
	"evergreen/internal/service"
)

const defaultConfigPath = "configs/config.yaml"

// errReported marks a failure whose details were already written to stdout.
var errReported = errors.New("decision failed")

type cli struct {
	configPath string
	cfg        *config.Config
	files      []*os.File
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:           "evergreen",
		Short:         "Evergreen Capital multi-agent investment decisions",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.setup(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			c.teardown()
		},
	}
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default $EVERGREEN_CONFIG or "+defaultConfigPath+")")

	root.AddCommand(newDecideCmd(c), newServeCmd(c), newSelectCmd(c), newAgentsCmd(c))
	return root
}

// setup loads .env and config and points logs at the right stream. The
// one-shot commands keep stdout for JSON, so they log to stderr.
func (c *cli) setup(cmd *cobra.Command) error {
	if loaded := config.LoadDotEnv(); loaded != "" {
		logger.Debugf("loaded env file %s", loaded)
	}
	path, err := resolveConfigPath(c.configPath, os.Getenv("EVERGREEN_CONFIG"))
	if err != nil {
		return err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("读取配置失败: %w", err)
	}
	c.cfg = cfg

	console := io.Writer(os.Stdout)
	if cmd.Name() != "serve" {
		console = os.Stderr
	}
	if err := c.setupLogOutput(cfg.App.LogPath, console); err != nil {
		return fmt.Errorf("初始化日志文件失败: %w", err)
	}
	logger.SetLLMWriter(nil)
	if cfg.App.LLMDump {
		if err := c.setupLLMLogOutput(cfg.App.LLMLog); err != nil {
			return fmt.Errorf("初始化 LLM 日志失败: %w", err)
		}
	}
	logger.SetLevel(cfg.App.LogLevel)
	logger.EnableLLMPayloadDump(cfg.App.LLMDump)
	if path == "" {
		logger.Debugf("no config file, using defaults (env=%s)", cfg.App.Env)
	} else {
		logger.Debugf("config loaded from %s (env=%s)", path, cfg.App.Env)
	}
	return nil
}

func (c *cli) teardown() {
	for _, f := range c.files {
		_ = f.Close()
	}
	c.files = nil
}

// resolveConfigPath prefers the flag, then the env var. The default path is
// optional: when it does not exist the defaults-only config is used.
func resolveConfigPath(flag, env string) (string, error) {
	for _, p := range []string{flag, env} {
		if p = strings.TrimSpace(p); p == "" {
			continue
		}
		if _, err := os.Stat(p); err != nil {
			return "", fmt.Errorf("config file %s: %w", p, err)
		}
		return p, nil
	}
	if _, err := os.Stat(defaultConfigPath); err == nil {
		return defaultConfigPath, nil
	}
	return "", nil
}

func (c *cli) setupLogOutput(path string, console io.Writer) error {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		logger.SetOutput(console)
		return nil
	}
	f, err := openAppend(trimmed)
	if err != nil {
		return err
	}
	c.files = append(c.files, f)
	logger.SetOutput(io.MultiWriter(console, f))
	return nil
}

func (c *cli) setupLLMLogOutput(path string) error {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil
	}
	f, err := openAppend(trimmed)
	if err != nil {
		return err
	}
	c.files = append(c.files, f)
	logger.SetLLMWriter(f)
	return nil
}

func openAppend(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
}

func newDecideCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "decide",
		Short: "Read {market, data} JSON from stdin and print the consensus decision",
		Long: `Runs the five agents, one debate round and the consensus vote.
When market or data is missing the market is picked from Polymarket first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.cfg.AI.RequireAPIKeys(); err != nil {
				return err
			}
			body, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("read stdin: %w", err)
			}
			a, err := app.NewApp(cmd.Context(), c.cfg, app.WithoutServer())
			if err != nil {
				return fmt.Errorf("初始化应用失败: %w", err)
			}
			defer a.Close()

			resp, runErr := a.Service().Handle(cmd.Context(), body)
			if err := writeJSON(cmd.OutOrStdout(), resp); err != nil {
				return err
			}
			if runErr != nil || resp.Status != service.StatusOK {
				return errReported
			}
			return nil
		},
	}
}

func newServeCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and the live decision feed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.cfg.AI.RequireAPIKeys(); err != nil {
				return err
			}
			a, err := app.NewApp(cmd.Context(), c.cfg)
			if err != nil {
				return fmt.Errorf("初始化应用失败: %w", err)
			}
			defer a.Close()
			return a.Run(cmd.Context())
		},
	}
}

func newSelectCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "select",
		Short: "Pick and enrich a Polymarket market without running the agents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.cfg.AI.RequireAPIKeys(); err != nil {
				return err
			}
			a, err := app.NewApp(cmd.Context(), c.cfg, app.WithoutServer())
			if err != nil {
				return fmt.Errorf("初始化应用失败: %w", err)
			}
			defer a.Close()

			res, err := a.Service().Select(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), res)
		},
	}
}

func newAgentsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "agents",
		Short: "List the agents, their consensus weights and models",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			set, err := persona.Load(c.cfg.Agents.InstructionsPath)
			if err != nil {
				return err
			}
			return printAgents(cmd.OutOrStdout(), set, c.cfg.AI)
		},
	}
}

func printAgents(w io.Writer, set persona.Set, ai config.AIConfig) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "AGENT\tROLE\tWEIGHT\tMODEL")
	for _, p := range set.All() {
		fmt.Fprintf(tw, "%s\t%s\t%.2f\t%s\n", p.Name(), p.Title(), p.Weight(), ai.ModelFor(p.Name()))
	}
	return tw.Flush()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
