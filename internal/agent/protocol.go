package agent

import "encoding/json"

// outputLine is one line of the agent subprocess's NDJSON stdout stream
// (§4.2 expansion). The type discriminator selects which payload fields
// are populated; a line that fails to unmarshal at all is logged and
// skipped rather than treated as fatal.
type outputLine struct {
	Type string `json:"type"`

	// text
	Content string `json:"content,omitempty"`
	Final   bool   `json:"final,omitempty"`

	// tool_use
	ToolID   string          `json:"tool_id,omitempty"`
	ToolName string          `json:"tool_name,omitempty"`
	Input    json.RawMessage `json:"input,omitempty"`

	// tool_result
	IsError bool `json:"is_error,omitempty"`

	// ask_user_question
	QuestionID string           `json:"question_id,omitempty"`
	Questions  []questionInput  `json:"questions,omitempty"`

	// result
	SessionID    string  `json:"session_id,omitempty"`
	CostUSD      float64 `json:"cost_usd,omitempty"`
	InputTokens  int     `json:"input_tokens,omitempty"`
	OutputTokens int     `json:"output_tokens,omitempty"`
	NumTurns     int     `json:"num_turns,omitempty"`

	// error
	Message string `json:"message,omitempty"`
}

// questionInput mirrors one entry of an AskUserQuestion tool's input.
type questionInput struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

// command is a single-line JSON object written to the agent's stdin.
type command struct {
	Type string `json:"type"`

	// query
	Text string `json:"text,omitempty"`

	// set_mode / set_model
	Mode  string `json:"mode,omitempty"`
	Model string `json:"model,omitempty"`

	// permission_decision
	RequestID string `json:"request_id,omitempty"`
	Action    string `json:"action,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

func encodeCommand(c command) ([]byte, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
