package recovery

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// buildDiagnosticPrompt renders one failed attempt into the diagnostic
// request. The prior-operation window is bounded so long sessions cannot blow
// up the prompt.
func buildDiagnosticPrompt(rc RecoveryContext, historyWindow int) string {
	var b strings.Builder

	b.WriteString("A tool invocation made by an autonomous coding agent failed. ")
	b.WriteString("Diagnose the failure and, when possible, propose a corrected invocation.\n\n")

	fmt.Fprintf(&b, "ERROR (%s, attempt %d/%d):\n%s\n\n",
		rc.Category, rc.Attempt, rc.MaxAttempts, strings.TrimSpace(rc.RawError))
	fmt.Fprintf(&b, "FAILED OPERATION: %s\n", rc.Operation)

	if len(rc.Arguments) > 0 {
		b.WriteString("ARGUMENTS:\n")
		keys := make([]string, 0, len(rc.Arguments))
		for k := range rc.Arguments {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			v, err := json.Marshal(rc.Arguments[k])
			if err != nil {
				v = []byte(fmt.Sprintf("%q", fmt.Sprint(rc.Arguments[k])))
			}
			fmt.Fprintf(&b, "  %s: %s\n", k, v)
		}
	}
	if strings.TrimSpace(rc.PriorResult) != "" {
		fmt.Fprintf(&b, "PRIOR RESULT:\n%s\n", strings.TrimSpace(rc.PriorResult))
	}
	if strings.TrimSpace(rc.UserIntent) != "" {
		fmt.Fprintf(&b, "USER INTENT: %s\n", strings.TrimSpace(rc.UserIntent))
	}

	if len(rc.History) > 0 {
		window := rc.History
		if historyWindow > 0 && len(window) > historyWindow {
			window = window[len(window)-historyWindow:]
		}
		b.WriteString("RECENT OPERATIONS (oldest first):\n")
		for _, op := range window {
			fmt.Fprintf(&b, "  - %s\n", op)
		}
	}

	b.WriteString("\nRespond with up to three sections, in any order:\n")
	b.WriteString("DIAGNOSIS: short explanation of the root cause.\n")
	b.WriteString("CORRECTION: what to change, in prose.\n")
	b.WriteString(`TOOL_CALL: {"tool": "<operation>", "args": {<corrected arguments>}}` + "\n")
	b.WriteString("Omit TOOL_CALL if no corrected invocation is likely to succeed.\n")
	return b.String()
}
