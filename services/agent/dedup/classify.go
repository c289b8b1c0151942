package dedup

import (
	"strings"

	"github.com/iulianpascalau/telemetry-monitoring/services/agent/common"
)

var criticalMessageMarkers = []string{
	"Cannot read property",
	"Cannot access",
	"Network Error",
	"nil pointer dereference",
}

func isProgrammingError(name string) bool {
	return name == "TypeError" ||
		name == "ReferenceError" ||
		strings.HasPrefix(name, "runtime.")
}

// ClassifyType infers the error category from the error name and the originating component
func ClassifyType(info common.ErrorInfo, ctx common.ErrorContext) common.ErrorType {
	if isProgrammingError(info.Name) {
		return common.ErrorTypeJavascript
	}

	switch ctx.Component {
	case "api", "network":
		return common.ErrorTypeAPI
	case "database":
		return common.ErrorTypeDatabase
	case "business":
		return common.ErrorTypeBusiness
	default:
		return common.ErrorTypeJavascript
	}
}

// ClassifySeverity infers the error severity from message markers, the error name and the originating component
func ClassifySeverity(info common.ErrorInfo, ctx common.ErrorContext) common.Severity {
	for _, marker := range criticalMessageMarkers {
		if strings.Contains(info.Message, marker) {
			return common.SeverityCritical
		}
	}
	if ctx.Component == "database" {
		return common.SeverityCritical
	}
	if isProgrammingError(info.Name) || ctx.Component == "api" {
		return common.SeverityHigh
	}
	if ctx.Component == "business" {
		return common.SeverityMedium
	}

	return common.SeverityLow
}
