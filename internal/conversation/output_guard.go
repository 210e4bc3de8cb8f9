package conversation

import (
	"regexp"
	"strings"

	"github.com/mediconnect/assistant-platform/pkg/logging"
)

var dosagePattern = regexp.MustCompile(`(?i)\b\d+(\.\d+)?\s?(mg|mcg|ml|milligrams|micrograms)\b`)

const dosageCaution = "Please confirm any medication details with your pharmacist or doctor " +
	"before acting on them."

// OutputGuard is the last deterministic pass over a synthesized reply before
// it reaches the patient. It cannot rewrite meaning; it normalizes whitespace
// and appends cautions when the model slipped past its instructions.
type OutputGuard struct {
	logger *logging.Logger
}

func NewOutputGuard(logger *logging.Logger) *OutputGuard {
	if logger == nil {
		logger = logging.Default()
	}
	return &OutputGuard{logger: logger}
}

// Review returns the cleaned reply.
func (g *OutputGuard) Review(reply string) string {
	cleaned := normalizeWhitespace(reply)

	if dosagePattern.MatchString(cleaned) && !strings.Contains(cleaned, dosageCaution) {
		g.logger.Warn("reply contained a dosage figure, appending caution")
		cleaned = cleaned + "\n\n" + dosageCaution
	}
	return cleaned
}

func normalizeWhitespace(text string) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		if line == "" {
			if blank {
				continue
			}
			blank = true
		} else {
			blank = false
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}
