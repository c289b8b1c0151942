package interceptor

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/iulianpascalau/telemetry-monitoring/services/agent/common"
	"github.com/iulianpascalau/telemetry-monitoring/services/agent/testsCommon"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type trackedError struct {
	info     common.ErrorInfo
	ctx      common.ErrorContext
	errType  common.ErrorType
	severity common.Severity
}

type trackedCall struct {
	endpoint   string
	method     string
	statusCode int
}

func newRecordingStub() (*testsCommon.APIRecorderStub, func() []trackedError, func() []trackedCall) {
	mut := sync.Mutex{}
	trackedErrors := make([]trackedError, 0)
	trackedCalls := make([]trackedCall, 0)

	stub := &testsCommon.APIRecorderStub{
		TrackErrorHandler: func(info common.ErrorInfo, ctx common.ErrorContext, errType common.ErrorType, severity common.Severity) (common.ErrorRecord, bool) {
			mut.Lock()
			trackedErrors = append(trackedErrors, trackedError{info: info, ctx: ctx, errType: errType, severity: severity})
			mut.Unlock()

			return common.ErrorRecord{}, true
		},
		TrackAPIPerformanceHandler: func(endpoint string, method string, statusCode int, duration time.Duration) {
			mut.Lock()
			trackedCalls = append(trackedCalls, trackedCall{endpoint: endpoint, method: method, statusCode: statusCode})
			mut.Unlock()
		},
	}

	getErrors := func() []trackedError {
		mut.Lock()
		defer mut.Unlock()

		return append([]trackedError(nil), trackedErrors...)
	}
	getCalls := func() []trackedCall {
		mut.Lock()
		defer mut.Unlock()

		return append([]trackedCall(nil), trackedCalls...)
	}

	return stub, getErrors, getCalls
}

func TestRecover(t *testing.T) {
	t.Parallel()

	t.Run("no panic should not record", func(t *testing.T) {
		t.Parallel()

		stub, getErrors, _ := newRecordingStub()
		func() {
			defer Recover(stub, common.ErrorContext{Component: "billing"})
		}()

		assert.Empty(t, getErrors())
	})
	t.Run("panic with a string value should be recorded as critical", func(t *testing.T) {
		t.Parallel()

		stub, getErrors, _ := newRecordingStub()
		func() {
			defer Recover(stub, common.ErrorContext{Component: "billing"})
			panic("invoice total overflow")
		}()

		recorded := getErrors()
		require.Len(t, recorded, 1)
		assert.Equal(t, "panic", recorded[0].info.Name)
		assert.Equal(t, "invoice total overflow", recorded[0].info.Message)
		assert.Equal(t, "billing", recorded[0].ctx.Component)
		assert.Equal(t, panicAction, recorded[0].ctx.Action)
		assert.Equal(t, common.SeverityCritical, recorded[0].severity)
		assert.Contains(t, recorded[0].info.Stack, "TestRecover")
		assert.NotContains(t, recorded[0].info.Stack, "runtime/debug.Stack")
	})
	t.Run("panic with an error value should keep the error message", func(t *testing.T) {
		t.Parallel()

		stub, getErrors, _ := newRecordingStub()
		func() {
			defer Recover(stub, common.ErrorContext{Component: "billing", Action: "charge"})
			panic(errors.New("card declined"))
		}()

		recorded := getErrors()
		require.Len(t, recorded, 1)
		assert.Equal(t, "card declined", recorded[0].info.Message)
		assert.Equal(t, "charge", recorded[0].ctx.Action)
	})
	t.Run("nil recorder should still swallow the panic", func(t *testing.T) {
		t.Parallel()

		assert.NotPanics(t, func() {
			defer Recover(nil, common.ErrorContext{})
			panic("unrecorded")
		})
	})
}

func TestNormalizeStack(t *testing.T) {
	t.Parallel()

	stack := `goroutine 7 [running]:
runtime/debug.Stack()
	/usr/local/go/src/runtime/debug/stack.go:24 +0x5e
github.com/iulianpascalau/telemetry-monitoring/services/agent/interceptor.Recover({0x0, 0x0}, {...})
	/src/services/agent/interceptor/recover.go:25 +0x3c
panic({0x1029c60?, 0x12c8f10?})
	/usr/local/go/src/runtime/panic.go:770 +0x132
main.charge(...)
	/src/cmd/billing/main.go:42 +0x1d
main.main()
	/src/cmd/billing/main.go:12 +0x25`

	expected := `main.charge(...)
/src/cmd/billing/main.go:42
main.main()
/src/cmd/billing/main.go:12`

	assert.Equal(t, expected, NormalizeStack(stack))
	assert.Equal(t, "", NormalizeStack(""))
}

func createTestRouter(recorder APIRecorder) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(GinMiddleware(recorder))
	router.GET("/items/:id", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": c.Param("id")})
	})
	router.GET("/broken", func(c *gin.Context) {
		panic("nil inventory")
	})
	router.POST("/validate", func(c *gin.Context) {
		_ = c.Error(errors.New("invalid payload"))
		c.Status(http.StatusBadRequest)
	})

	return router
}

func TestGinMiddleware(t *testing.T) {
	t.Parallel()

	t.Run("successful request should record the route template", func(t *testing.T) {
		t.Parallel()

		stub, getErrors, getCalls := newRecordingStub()
		router := createTestRouter(stub)

		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/items/42", nil))

		assert.Equal(t, http.StatusOK, resp.Code)
		assert.Empty(t, getErrors())
		assert.Equal(t, []trackedCall{{endpoint: "/items/:id", method: http.MethodGet, statusCode: http.StatusOK}}, getCalls())
	})
	t.Run("unknown route should record the raw path", func(t *testing.T) {
		t.Parallel()

		stub, _, getCalls := newRecordingStub()
		router := createTestRouter(stub)

		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/missing", nil))

		assert.Equal(t, http.StatusNotFound, resp.Code)
		assert.Equal(t, []trackedCall{{endpoint: "/missing", method: http.MethodGet, statusCode: http.StatusNotFound}}, getCalls())
	})
	t.Run("panicking handler should answer 500 and record the panic", func(t *testing.T) {
		t.Parallel()

		stub, getErrors, getCalls := newRecordingStub()
		router := createTestRouter(stub)

		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/broken", nil))

		assert.Equal(t, http.StatusInternalServerError, resp.Code)
		recorded := getErrors()
		require.Len(t, recorded, 1)
		assert.Equal(t, "nil inventory", recorded[0].info.Message)
		assert.Equal(t, apiComponent, recorded[0].ctx.Component)
		assert.Equal(t, panicAction, recorded[0].ctx.Action)
		assert.Equal(t, "/broken", recorded[0].ctx.URL)
		assert.Equal(t, []trackedCall{{endpoint: "/broken", method: http.MethodGet, statusCode: http.StatusInternalServerError}}, getCalls())
	})
	t.Run("handler errors should be recorded as api errors", func(t *testing.T) {
		t.Parallel()

		stub, getErrors, getCalls := newRecordingStub()
		router := createTestRouter(stub)

		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/validate", nil))

		assert.Equal(t, http.StatusBadRequest, resp.Code)
		recorded := getErrors()
		require.Len(t, recorded, 1)
		assert.Equal(t, "invalid payload", recorded[0].info.Message)
		assert.Equal(t, common.ErrorTypeAPI, recorded[0].errType)
		assert.Equal(t, "handler_error", recorded[0].ctx.Action)
		assert.Len(t, getCalls(), 1)
	})
}

func TestNewComponentWriter(t *testing.T) {
	t.Parallel()

	stub, _, _ := newRecordingStub()

	cw, err := NewComponentWriter(nil, "checkout", &bytes.Buffer{})
	assert.Nil(t, cw)
	assert.Equal(t, ErrNilRecorder, err)

	cw, err = NewComponentWriter(stub, "checkout", nil)
	assert.Nil(t, cw)
	assert.Equal(t, ErrNilWriter, err)

	cw, err = NewComponentWriter(stub, "", &bytes.Buffer{})
	assert.Nil(t, cw)
	assert.Equal(t, ErrEmptyComponent, err)

	cw, err = NewComponentWriter(stub, "checkout", &bytes.Buffer{})
	assert.NotNil(t, cw)
	assert.Nil(t, err)
}

func TestComponentWriter_Write(t *testing.T) {
	t.Parallel()

	stub, getErrors, _ := newRecordingStub()
	out := &bytes.Buffer{}
	cw, _ := NewComponentWriter(stub, "checkout", out)

	input := "checkout: payment form failed to load\nunrelated line\ncheckout: cart "
	n, err := cw.Write([]byte(input))
	assert.Nil(t, err)
	assert.Equal(t, len(input), n)
	assert.Equal(t, input, out.String())

	recorded := getErrors()
	require.Len(t, recorded, 1)
	assert.Equal(t, "checkout: payment form failed to load", recorded[0].info.Message)
	assert.Equal(t, "checkout", recorded[0].ctx.Component)
	assert.Equal(t, consoleAction, recorded[0].ctx.Action)

	_, _ = cw.Write([]byte("is empty\n"))
	recorded = getErrors()
	require.Len(t, recorded, 2)
	assert.Equal(t, "checkout: cart is empty", recorded[1].info.Message)
	assert.True(t, strings.HasSuffix(out.String(), "cart is empty\n"))
}
