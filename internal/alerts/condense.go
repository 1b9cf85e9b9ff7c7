package alerts

import (
	"regexp"
	"strings"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// Condense renders rec as a short bulletin:
//
//	**headline**
//	Severity / Urgency / Certainty
//	Instruction: text
//
// ok is false when the record carries no parameters.
func Condense(rec Record) (text string, ok bool) {
	if rec.Parameters == nil {
		return "", false
	}

	headlines := rec.Parameters.NWSHeadline
	if len(headlines) == 0 {
		headlines = []string{rec.Headline}
	}
	lines := make([]string, len(headlines))
	for i, h := range headlines {
		lines[i] = "**" + h + "**"
	}

	instruction := rec.Instruction
	if strings.TrimSpace(instruction) == "" {
		instruction = rec.Response
	}
	instruction = strings.TrimSpace(whitespaceRun.ReplaceAllString(instruction, " "))

	var flags []string
	for _, f := range []string{rec.Severity, rec.Urgency, rec.Certainty} {
		f = strings.TrimSpace(f)
		if f == "" || f == "Unknown" || f == "Past" {
			continue
		}
		flags = append(flags, f)
	}

	return strings.Join(lines, "\n") + "\n" + strings.Join(flags, " / ") + "\nInstruction: " + instruction, true
}

// CondenseAll condenses every record in env in order, dropping unreportable and
// blank results, and separates bulletins with a blank line.
func CondenseAll(env *Envelope) string {
	if env == nil {
		return ""
	}
	var blocks []string
	for _, rec := range env.Graph {
		text, ok := Condense(rec)
		if !ok {
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			blocks = append(blocks, text)
		}
	}
	return strings.Join(blocks, "\n\n")
}
