package logger

import (
	"io"
	"log"
	"strings"
	"sync"
)

var (
	llmMu          sync.Mutex
	llmLog         *log.Logger
	llmDumpPayload bool
)

// SetLLMWriter installs the destination for prompt/response dumps. nil disables them.
func SetLLMWriter(w io.Writer) {
	llmMu.Lock()
	defer llmMu.Unlock()
	if w == nil {
		llmLog = nil
		return
	}
	llmLog = log.New(w, "", log.LstdFlags)
}

func EnableLLMPayloadDump(enabled bool) {
	llmMu.Lock()
	llmDumpPayload = enabled
	llmMu.Unlock()
}

type llmSection struct {
	Title string
	Body  string
}

func logLLM(kind, model, purpose string, sections []llmSection) {
	llmMu.Lock()
	out := llmLog
	llmMu.Unlock()
	if out == nil {
		return
	}
	var b strings.Builder
	b.WriteString("[LLM]")
	for _, tag := range []string{kind, model, purpose} {
		if tag == "" {
			continue
		}
		b.WriteString("[")
		b.WriteString(tag)
		b.WriteString("]")
	}
	b.WriteString("\n")
	for _, sec := range sections {
		t := strings.TrimSpace(sec.Title)
		if t == "" {
			t = "CONTENT"
		}
		b.WriteString("--- ")
		b.WriteString(t)
		b.WriteString(" ---\n")
		b.WriteString(sec.Body)
		if !strings.HasSuffix(sec.Body, "\n") {
			b.WriteString("\n")
		}
	}
	b.WriteString("=====\n")
	out.Print(b.String())
}

// LogLLMRequest dumps the prompt sent for one purpose (agent name, debate, selector...).
func LogLLMRequest(model, purpose, systemPrompt, userPrompt string) {
	sections := make([]llmSection, 0, 2)
	if strings.TrimSpace(systemPrompt) != "" {
		sections = append(sections, llmSection{Title: "SYSTEM", Body: systemPrompt})
	}
	sections = append(sections, llmSection{Title: "USER", Body: userPrompt})
	logLLM("request", model, purpose, sections)
}

func LogLLMResponse(model, purpose, raw string) {
	logLLM("response", model, purpose, []llmSection{{Title: "RAW", Body: raw}})
}

// LogLLMPayload writes the raw HTTP body, only when payload dumping is on.
func LogLLMPayload(model, payload string) {
	llmMu.Lock()
	enabled := llmDumpPayload
	llmMu.Unlock()
	if !enabled {
		return
	}
	text := strings.TrimSpace(payload)
	if text == "" {
		return
	}
	logLLM("payload", model, "request", []llmSection{{Title: "PAYLOAD", Body: text}})
}
