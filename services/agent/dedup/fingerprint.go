package dedup

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/iulianpascalau/telemetry-monitoring/services/agent/common"
)

const maxStackLength = 500

var fingerprintNamespace = uuid.MustParse("4b7cf5a2-1f0e-5d6b-9c3a-8e2d7f41a6b0")

type fingerprintKey struct {
	Message   string `json:"message"`
	Name      string `json:"name"`
	Stack     string `json:"stack"`
	Component string `json:"component"`
	Action    string `json:"action"`
}

// Fingerprint returns the grouping key of an error occurrence: a name based (SHA-1) UUID over the
// canonical JSON form of the message, the name, the first 500 characters of the stack, the component and the action
func Fingerprint(info common.ErrorInfo, ctx common.ErrorContext) string {
	key := fingerprintKey{
		Message:   info.Message,
		Name:      info.Name,
		Stack:     truncate(info.Stack, maxStackLength),
		Component: ctx.Component,
		Action:    ctx.Action,
	}

	// marshaling a struct of strings can not fail
	data, _ := json.Marshal(key)

	return uuid.NewSHA1(fingerprintNamespace, data).String()
}

func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}

	return string(runes[:maxLen])
}
