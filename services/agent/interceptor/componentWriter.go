package interceptor

import (
	"bytes"
	"io"
	"strings"
	"sync"

	"github.com/iulianpascalau/telemetry-monitoring/services/agent/common"
)

const consoleAction = "console_error"

// componentWriter forwards everything to the wrapped output and records the lines mentioning the component
type componentWriter struct {
	recorder  ErrorRecorder
	component string
	out       io.Writer

	mut     sync.Mutex
	pending []byte
}

// NewComponentWriter wraps the provided output. The returned writer is registered explicitly by the caller,
// for example as the output of a standard library logger or as gin.DefaultErrorWriter.
func NewComponentWriter(recorder ErrorRecorder, component string, out io.Writer) (*componentWriter, error) {
	if recorder == nil || recorder.IsInterfaceNil() {
		return nil, ErrNilRecorder
	}
	if out == nil {
		return nil, ErrNilWriter
	}
	if len(component) == 0 {
		return nil, ErrEmptyComponent
	}

	return &componentWriter{
		recorder:  recorder,
		component: component,
		out:       out,
	}, nil
}

// Write forwards the bytes unchanged, then inspects every completed line
func (cw *componentWriter) Write(p []byte) (int, error) {
	n, err := cw.out.Write(p)

	cw.mut.Lock()
	cw.pending = append(cw.pending, p...)
	lines := make([]string, 0)
	for {
		idx := bytes.IndexByte(cw.pending, '\n')
		if idx < 0 {
			break
		}
		lines = append(lines, string(cw.pending[:idx]))
		cw.pending = cw.pending[idx+1:]
	}
	cw.mut.Unlock()

	for _, line := range lines {
		cw.inspect(line)
	}

	return n, err
}

func (cw *componentWriter) inspect(line string) {
	line = strings.TrimSpace(line)
	if !strings.Contains(line, cw.component) {
		return
	}

	cw.recorder.TrackError(common.ErrorInfo{Name: "Error", Message: line}, common.ErrorContext{
		Component: cw.component,
		Action:    consoleAction,
	}, "", "")
}
