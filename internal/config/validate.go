package config

import (
	"strings"

	"github.com/rotisserie/eris"
)

// Validate checks that the configuration required for the given run mode
// is present. Modes: "process", "search", "serve", "chat".
func (c *Config) Validate(mode string) error {
	var problems []string

	needLLM := func() {
		if c.LLM.Key == "" {
			problems = append(problems, "llm.key is required")
		}
	}
	needMonday := func() {
		if c.Monday.Key == "" {
			problems = append(problems, "monday.key is required")
		}
		if c.Monday.BoardID == "" {
			problems = append(problems, "monday.board_id is required")
		}
	}

	switch mode {
	case "process", "chat":
		needLLM()
	case "search":
		needMonday()
	case "serve":
		needLLM()
		needMonday()
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.Intake.PDFConcurrency < 1 || c.Intake.PDFConcurrency > 20 {
		problems = append(problems, "intake.pdf_concurrency must be between 1 and 20")
	}

	if len(problems) > 0 {
		return eris.Errorf("config: invalid for mode %s: %s", mode, strings.Join(problems, "; "))
	}
	return nil
}
