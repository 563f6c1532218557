package conversation

import (
	"errors"
	"fmt"
	"strings"
)

const (
	blockedAdvisory    = "⚠️ Response blocked by the safety filters. Try rephrasing your message."
	safetyAdvisory     = "⚠️ Response blocked for safety reasons. Try a different question."
	truncatedAdvisory  = "⚠️ Response truncated: token limit reached."
	anomalousAdvisory  = "⚠️ Response ended unexpectedly."
	missingPartialNote = "(no partial text was returned)"
)

// Interpret turns the outcome of a ChatClient call into assistant turn
// content. Only the first candidate is considered.
func Interpret(res *Result, err error, verbose bool) (string, TurnKind) {
	if err != nil {
		return errorContent(err, verbose), KindError
	}

	if res == nil || len(res.Candidates) == 0 {
		if !verbose {
			return blockedAdvisory, KindBlocked
		}
		return blockedAdvisory + "\n\nFinish reason codes:\n" + FinishCodeTable(), KindBlocked
	}

	c := res.Candidates[0]
	switch c.FinishStatus {
	case FinishSafety:
		return safetyContent(c, verbose), KindBlocked

	case FinishMaxTokens:
		if c.Text == "" {
			return truncatedAdvisory + "\n\n" + missingPartialNote, KindTruncated
		}
		return truncatedAdvisory + "\n\n" + c.Text, KindTruncated

	case FinishStop:
		return c.Text, KindNormal

	default:
		advisory := anomalousAdvisory + "\n\n" + codeLine(c.FinishStatus, verbose)
		if c.Text == "" {
			return advisory, KindAnomalous
		}
		return advisory + "\n\n" + c.Text, KindAnomalous
	}
}

func codeLine(s FinishStatus, verbose bool) string {
	if !verbose {
		return fmt.Sprintf("Finish reason: %s", s)
	}
	return fmt.Sprintf("Finish reason code: %d = %s - %s", int(s), s, s.Description())
}

func safetyContent(c Candidate, verbose bool) string {
	if !verbose {
		return safetyAdvisory
	}

	var b strings.Builder
	b.WriteString(safetyAdvisory)
	b.WriteString("\n\n")
	b.WriteString(codeLine(c.FinishStatus, true))
	b.WriteString("\n")

	if len(c.SafetyRatings) > 0 {
		b.WriteString("\nSafety ratings:\n")
		for _, r := range c.SafetyRatings {
			fmt.Fprintf(&b, "- %s: %s\n", r.Category, r.Severity)
		}
	}
	return b.String()
}

func errorContent(err error, verbose bool) string {
	if !verbose {
		return "❌ Error: " + err.Error()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "❌ Error: %s\n\n", err.Error())
	fmt.Fprintf(&b, "Error category: %s\n\n", errorCategory(err))
	b.WriteString("Possible finish reason codes:\n")
	b.WriteString(FinishCodeTable())
	return b.String()
}

func errorCategory(err error) string {
	var c Categorized
	if errors.As(err, &c) {
		return c.Category()
	}
	return "transport"
}
