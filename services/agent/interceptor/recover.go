package interceptor

import (
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/iulianpascalau/telemetry-monitoring/services/agent/common"
	"github.com/multiversx/mx-chain-core-go/core/check"
	logger "github.com/multiversx/mx-chain-logger-go"
)

const panicAction = "panic"

var log = logger.GetOrCreate("agent/interceptor")

// Recover captures a panic of the calling goroutine and records it. It must be called directly with defer:
//
//	defer interceptor.Recover(recorder, common.ErrorContext{Component: "billing"})
//
// The panic is swallowed after being recorded.
func Recover(recorder ErrorRecorder, ctx common.ErrorContext) {
	value := recover()
	if value == nil {
		return
	}

	recordPanic(recorder, value, debug.Stack(), ctx)
}

func recordPanic(recorder ErrorRecorder, value interface{}, stack []byte, ctx common.ErrorContext) {
	info := panicInfo(value, stack)
	if len(ctx.Action) == 0 {
		ctx.Action = panicAction
	}

	log.Error("recovered panic", "component", ctx.Component, "message", info.Message)
	if check.IfNil(recorder) {
		return
	}

	recorder.TrackError(info, ctx, "", common.SeverityCritical)
}

func panicInfo(value interface{}, stack []byte) common.ErrorInfo {
	var info common.ErrorInfo
	err, isError := value.(error)
	if isError {
		info = common.NewErrorInfo(err)
	} else {
		info = common.ErrorInfo{
			Name:    "panic",
			Message: fmt.Sprint(value),
		}
	}
	info.Stack = NormalizeStack(string(stack))

	return info
}

// NormalizeStack drops the goroutine header and the frames of the runtime and of this package,
// so the same panic site produces the same stack text
func NormalizeStack(stack string) string {
	lines := strings.Split(strings.TrimSpace(stack), "\n")
	if len(lines) > 0 && strings.HasPrefix(lines[0], "goroutine ") {
		lines = lines[1:]
	}

	kept := make([]string, 0, len(lines))
	skipNext := false
	for _, line := range lines {
		if skipNext {
			skipNext = false
			continue
		}

		isFunctionLine := !strings.HasPrefix(line, "\t")
		if isFunctionLine && isInternalFrame(line) {
			skipNext = true
			continue
		}

		if !isFunctionLine {
			line = stripOffset(line)
		}
		kept = append(kept, strings.TrimSpace(line))
	}

	return strings.Join(kept, "\n")
}

func isInternalFrame(function string) bool {
	return strings.HasPrefix(function, "runtime/debug.") ||
		strings.HasPrefix(function, "panic(") ||
		strings.HasPrefix(function, "runtime.") ||
		strings.Contains(function, "/agent/interceptor.Recover(") ||
		strings.Contains(function, "/agent/interceptor.GinMiddleware.")
}

// stripOffset removes the " +0x1d" program counter suffix of a file line
func stripOffset(line string) string {
	idx := strings.LastIndex(line, " +0x")
	if idx < 0 {
		return line
	}

	return line[:idx]
}
