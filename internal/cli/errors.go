package cli

import (
	"encoding/json"
	"errors"
	"fmt"
)

// cliError is the machine-readable error shape emitted in json format
type cliError struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Hint    string `json:"hint,omitempty"`
}

// outputErrorCommon normalizes error emission across commands, respecting
// json vs text formats so automated callers always get machine-readable
// failures. An optional hint is appended for humans.
func outputErrorCommon(globals *Globals, code, message string, hints ...string) error {
	hint := ""
	if len(hints) > 0 {
		hint = hints[0]
	}

	if globals != nil && globals.Format == "json" {
		_ = json.NewEncoder(globals.Stdout).Encode(cliError{
			Type:    "error",
			Code:    code,
			Message: message,
			Hint:    hint,
		})
	} else if globals != nil {
		fmt.Fprintf(globals.Stderr, "Error [%s]: %s\n", code, message)
		if hint != "" {
			fmt.Fprintf(globals.Stderr, "  help: %s\n", hint)
		}
	}
	return errors.New(message)
}
