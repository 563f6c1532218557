package conversation

import (
	"fmt"
	"strings"
)

// FinishStatus is the provider's reason for ending a candidate.
type FinishStatus int

const (
	FinishUnspecified FinishStatus = 0
	FinishStop        FinishStatus = 1
	FinishMaxTokens   FinishStatus = 2
	FinishSafety      FinishStatus = 3
	FinishRecitation  FinishStatus = 4
	FinishOther       FinishStatus = 5
)

var finishNames = map[FinishStatus]string{
	FinishUnspecified: "FINISH_REASON_UNSPECIFIED",
	FinishStop:        "STOP",
	FinishMaxTokens:   "MAX_TOKENS",
	FinishSafety:      "SAFETY",
	FinishRecitation:  "RECITATION",
	FinishOther:       "OTHER",
}

var finishDescriptions = map[FinishStatus]string{
	FinishUnspecified: "reason not specified",
	FinishStop:        "normal completion",
	FinishMaxTokens:   "token limit reached",
	FinishSafety:      "blocked for safety reasons",
	FinishRecitation:  "potentially recited content",
	FinishOther:       "other reason",
}

// FinishStatuses lists every known status in code order.
var FinishStatuses = []FinishStatus{
	FinishUnspecified,
	FinishStop,
	FinishMaxTokens,
	FinishSafety,
	FinishRecitation,
	FinishOther,
}

// Known reports whether s is one of the six defined codes.
func (s FinishStatus) Known() bool {
	_, ok := finishNames[s]
	return ok
}

func (s FinishStatus) String() string {
	if name, ok := finishNames[s]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(%d)", int(s))
}

// Description returns a short human description of the status.
func (s FinishStatus) Description() string {
	if d, ok := finishDescriptions[s]; ok {
		return d
	}
	return "unknown"
}

// FinishCodeTable renders the reference table of all finish codes,
// one "- <code> = <NAME> - <description>" line per status.
func FinishCodeTable() string {
	var b strings.Builder
	for _, s := range FinishStatuses {
		fmt.Fprintf(&b, "- %d = %s - %s\n", int(s), s, s.Description())
	}
	return b.String()
}
