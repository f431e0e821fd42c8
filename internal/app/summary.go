package app

import (
	"fmt"
	"io"
	"os"
	"strings"

	"evergreen/internal/config"
	"evergreen/internal/persona"
)

type StartupSummary struct {
	Env       string
	HTTPAddr  string
	Personas  []PersonaSummary
	Models    []string
	Debate    string
	Selection string
	Store     string
	Sinks     []string
}

type PersonaSummary struct {
	Name   string
	Title  string
	Weight float64
	Model  string
}

func (s *StartupSummary) Print() {
	s.Fprint(os.Stdout)
}

func (s *StartupSummary) Fprint(w io.Writer) {
	title := "启动配置摘要 (STARTUP SUMMARY)"
	fmt.Fprintln(w, strings.Repeat("=", 80))
	fmt.Fprintf(w, "%*s\n", 40+len(title)/2, title)
	fmt.Fprintln(w, strings.Repeat("=", 80))

	fmt.Fprintf(w, "  环境: %s\n", valueOrDash(s.Env))
	fmt.Fprintf(w, "  HTTP: %s\n", valueOrDash(s.HTTPAddr))
	fmt.Fprintln(w)

	fmt.Fprintln(w, "[Agent 配置 (AGENTS)]")
	if len(s.Personas) == 0 {
		fmt.Fprintln(w, "  (无配置)")
	}
	for _, p := range s.Personas {
		fmt.Fprintf(w, "  > %-16s %-22s weight=%.2f model=%s\n", p.Name, p.Title, p.Weight, p.Model)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "[模型 (MODELS)]")
	fmt.Fprintf(w, "  已启用: %s\n", formatList(s.Models))
	fmt.Fprintf(w, "  辩论: %s\n", valueOrDash(s.Debate))
	fmt.Fprintf(w, "  选市场: %s\n", valueOrDash(s.Selection))
	fmt.Fprintln(w)

	fmt.Fprintln(w, "[持久化与发布 (STORAGE & SINKS)]")
	fmt.Fprintf(w, "  存储: %s\n", valueOrDash(s.Store))
	fmt.Fprintf(w, "  发布: %s\n", formatList(s.Sinks))
	fmt.Fprintln(w, strings.Repeat("=", 80))
}

func personaSummaries(set persona.Set, ai config.AIConfig) []PersonaSummary {
	all := set.All()
	out := make([]PersonaSummary, 0, len(all))
	for _, p := range all {
		out = append(out, PersonaSummary{
			Name:   p.Name(),
			Title:  p.Title(),
			Weight: p.Weight(),
			Model:  ai.ModelFor(p.Name()),
		})
	}
	return out
}

func storeSummary(cfg config.StoreConfig) string {
	switch strings.ToLower(cfg.Driver) {
	case "sqlite":
		return "sqlite " + cfg.SqlitePath
	case "postgres":
		return fmt.Sprintf("postgres (max_conns=%d)", cfg.MaxConns)
	default:
		return "none"
	}
}

func formatList(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}

func valueOrDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
