package decision

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"evergreen/internal/gateway/provider"
	"evergreen/internal/logger"
	"evergreen/internal/persona"
	"evergreen/internal/pkg/jsonutil"

	"github.com/tidwall/gjson"
)

const debateSource = "debate"

// Debater runs the single best-effort revision round.
type Debater struct {
	model   Completer
	timeout time.Duration
}

func NewDebater(model Completer, timeout time.Duration) *Debater {
	return &Debater{model: model, timeout: timeout}
}

// Revise asks the model for one revised decision per agent. Any failure is
// returned as a *DebateError; callers decide whether to fall back.
func (d *Debater) Revise(ctx context.Context, initial []AgentOutput) ([]AgentOutput, error) {
	if len(initial) != persona.Count {
		return nil, &DebateError{Err: &ContractError{Stage: debateSource, Reason: fmt.Sprintf("expected %d outputs, got %d", persona.Count, len(initial))}}
	}
	if d == nil || d.model == nil {
		return nil, &DebateError{Err: errors.New("no debate model configured")}
	}
	system, user := BuildDebatePrompt(initial)

	callCtx := ctx
	if d.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}
	raw, err := d.model.Call(callCtx, provider.ChatPayload{
		System:     system,
		User:       user,
		ExpectJSON: true,
		Purpose:    debateSource,
	})
	if err != nil {
		return nil, &DebateError{Err: &CompletionError{Model: d.model.ID(), Purpose: debateSource, Err: err}}
	}
	revised, err := parseDebate(raw, initial)
	if err != nil {
		return nil, &DebateError{Err: err}
	}
	return revised, nil
}

// Round runs Revise and falls back to the originals on failure. The bool
// reports whether the revision was applied.
func (d *Debater) Round(ctx context.Context, initial []AgentOutput) ([]AgentOutput, bool) {
	revised, err := d.Revise(ctx, initial)
	if err != nil {
		logger.Warnf("debate round skipped, keeping initial decisions: %v", err)
	}
	return WithFallback(revised, err, initial), err == nil
}

// WithFallback returns revised when err is nil, otherwise a copy of original.
func WithFallback(revised []AgentOutput, err error, original []AgentOutput) []AgentOutput {
	if err != nil {
		return cloneOutputs(original)
	}
	return revised
}

// parseDebate accepts a bare array or an object wrapping one, since JSON mode
// forces an object at the top level.
func parseDebate(raw string, initial []AgentOutput) ([]AgentOutput, error) {
	text := strings.TrimSpace(raw)
	if !gjson.Valid(text) {
		extracted, ok := jsonutil.ExtractJSON(text)
		if !ok || !gjson.Valid(extracted) {
			return nil, &ParseError{Source: debateSource, Raw: raw, Reason: "not valid JSON"}
		}
		text = extracted
	}
	arr, ok := debateArray(gjson.Parse(text))
	if !ok {
		return nil, &ParseError{Source: debateSource, Raw: raw, Reason: "no array of agent outputs"}
	}
	items := arr.Array()
	if len(items) != len(initial) {
		return nil, &ValidationError{Source: debateSource, Field: "length", Reason: fmt.Sprintf("expected %d agent outputs, got %d", len(initial), len(items))}
	}

	slots := make(map[persona.ID]int, len(initial))
	for i, o := range initial {
		id, ok := persona.ParseID(o.Agent)
		if !ok {
			return nil, &ContractError{Stage: debateSource, Reason: "unknown initial agent " + o.Agent}
		}
		slots[id] = i
	}
	out := make([]AgentOutput, len(initial))
	seen := make(map[persona.ID]bool, len(initial))
	for idx, item := range items {
		src := fmt.Sprintf("%s[%d]", debateSource, idx)
		agent := item.Get("agent")
		if agent.Type != gjson.String || strings.TrimSpace(agent.Str) == "" {
			return nil, &ValidationError{Source: src, Field: "agent", Reason: "missing agent name"}
		}
		id, ok := persona.ParseID(agent.Str)
		slot, known := slots[id]
		if !ok || !known {
			return nil, &ValidationError{Source: src, Field: "agent", Reason: "unrecognized agent " + agent.Str}
		}
		if seen[id] {
			return nil, &ValidationError{Source: src, Field: "agent", Reason: "duplicate agent " + agent.Str}
		}
		seen[id] = true
		dec := item.Get("decision")
		if !dec.IsObject() {
			return nil, &ParseError{Source: src, Raw: item.Raw, Reason: "missing decision object"}
		}
		parsed, err := decodeDecision(src, dec)
		if err != nil {
			return nil, err
		}
		out[slot] = AgentOutput{Agent: initial[slot].Agent, Decision: parsed}
	}
	return out, nil
}

func debateArray(res gjson.Result) (gjson.Result, bool) {
	if res.IsArray() {
		return res, true
	}
	if !res.IsObject() {
		return gjson.Result{}, false
	}
	for _, key := range []string{"decisions", "agents", "results"} {
		if v := res.Get(key); v.IsArray() {
			return v, true
		}
	}
	var found gjson.Result
	res.ForEach(func(_, v gjson.Result) bool {
		if v.IsArray() {
			found = v
			return false
		}
		return true
	})
	return found, found.IsArray()
}
