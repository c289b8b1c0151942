package common

import logger "github.com/multiversx/mx-chain-logger-go"

// DiagnosticsLog receives the internal aggregator failures that are never returned to callers
var DiagnosticsLog = logger.GetOrCreate("agent/diagnostics")
