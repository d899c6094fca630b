package chat

import (
	"strconv"
	"strings"
)

// Callback-data schema (§4.9): perm:{allow|always|accept_edits|reject},
// q:<q_idx>:<opt_idx|"other">, mode:<mode_id>, model:<model_id>.

func questionCallbackData(qIdx, optIdx int) string {
	return "q:" + strconv.Itoa(qIdx) + ":" + strconv.Itoa(optIdx)
}

func questionOtherCallbackData(qIdx int) string {
	return "q:" + strconv.Itoa(qIdx) + ":other"
}

type callbackKind int

const (
	callbackUnknown callbackKind = iota
	callbackPermission
	callbackQuestion
	callbackMode
	callbackModel
)

// parsedCallback is the decoded form of one button press.
type parsedCallback struct {
	kind   callbackKind
	perm   string // allow | always | accept_edits | reject
	qIdx   int
	optIdx int    // -1 when "other"
	mode   string
	model  string
}

// parseCallbackData decodes a callback_data payload per the §4.9
// schema. Invalid payloads decode to callbackUnknown, which callers
// treat as "acknowledge and silently ignore" (§7).
func parseCallbackData(data string) parsedCallback {
	parts := strings.SplitN(data, ":", 3)
	if len(parts) == 0 {
		return parsedCallback{kind: callbackUnknown}
	}

	switch parts[0] {
	case "perm":
		if len(parts) != 2 {
			return parsedCallback{kind: callbackUnknown}
		}
		switch parts[1] {
		case "allow", "always", "accept_edits", "reject":
			return parsedCallback{kind: callbackPermission, perm: parts[1]}
		}
		return parsedCallback{kind: callbackUnknown}

	case "q":
		if len(parts) != 3 {
			return parsedCallback{kind: callbackUnknown}
		}
		qIdx, err := strconv.Atoi(parts[1])
		if err != nil {
			return parsedCallback{kind: callbackUnknown}
		}
		if parts[2] == "other" {
			return parsedCallback{kind: callbackQuestion, qIdx: qIdx, optIdx: -1}
		}
		optIdx, err := strconv.Atoi(parts[2])
		if err != nil {
			return parsedCallback{kind: callbackUnknown}
		}
		return parsedCallback{kind: callbackQuestion, qIdx: qIdx, optIdx: optIdx}

	case "mode":
		if len(parts) != 2 {
			return parsedCallback{kind: callbackUnknown}
		}
		return parsedCallback{kind: callbackMode, mode: parts[1]}

	case "model":
		if len(parts) != 2 {
			return parsedCallback{kind: callbackUnknown}
		}
		return parsedCallback{kind: callbackModel, model: parts[1]}

	default:
		return parsedCallback{kind: callbackUnknown}
	}
}
