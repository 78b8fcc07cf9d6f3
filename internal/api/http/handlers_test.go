package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/GriffinCanCode/webide/backend/internal/infrastructure/config"
	"github.com/GriffinCanCode/webide/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/webide/backend/internal/preview/dispatch"
	"github.com/GriffinCanCode/webide/backend/internal/preview/monitor"
	"github.com/GriffinCanCode/webide/backend/internal/preview/render"
	"github.com/GriffinCanCode/webide/backend/internal/preview/sanitize"
	"github.com/GriffinCanCode/webide/backend/internal/preview/sandbox"
)

type fixture struct {
	router  *gin.Engine
	handler *Handlers
	monitor *monitor.Monitor
	logs    *observer.ObservedLogs
}

func setup(t *testing.T, mutate ...func(*Deps)) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	core, logs := observer.New(zap.DebugLevel)
	logger := zap.New(core)

	mon := monitor.New()
	metrics := monitoring.NewMetrics(prometheus.NewRegistry())
	d := dispatch.New(
		sandbox.NewExecutor(sandbox.DefaultConfig()),
		render.NewHTMLRenderer(sanitize.PolicyDenylist, nil),
		render.NewCSSPreviewer(nil),
		mon,
		dispatch.WithObserver(metrics),
	)

	deps := Deps{
		Dispatcher: d,
		Renderer:   render.NewHTMLRenderer(sanitize.PolicyDenylist, nil),
		Styles:     render.NewCSSPreviewer(nil),
		Metrics:    metrics,
		Preview:    config.Default().Preview,
		Logger:     logger,
	}
	for _, m := range mutate {
		m(&deps)
	}

	h := NewHandlers(deps)
	router := gin.New()
	h.Register(router)
	return &fixture{router: router, handler: h, monitor: mon, logs: logs}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	f := setup(t)
	w := f.do(t, "GET", "/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", decode(t, w)["status"])
}

func TestExecuteJavaScript(t *testing.T) {
	f := setup(t)
	w := f.do(t, "POST", "/preview/execute", ExecuteRequest{
		SourceCode: "console.log('hi'); 7",
		FileName:   "main.js",
	})

	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "javascript", body["kind"])

	exec, ok := body["execution"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, exec["output"], `"hi"`)
	assert.Contains(t, exec["output"], "Result: 7")
	assert.Len(t, f.monitor.History(0), 1)
}

func TestExecuteNonFiniteResults(t *testing.T) {
	f := setup(t)
	for code, want := range map[string]string{"0/0": "NaN", "1/0": "Infinity", "-1/0": "-Infinity"} {
		t.Run(code, func(t *testing.T) {
			w := f.do(t, "POST", "/preview/execute", ExecuteRequest{SourceCode: code, FileName: "a.js"})

			require.Equal(t, http.StatusOK, w.Code)
			body := decode(t, w)
			assert.Equal(t, true, body["success"])

			exec := body["execution"].(map[string]any)
			assert.Equal(t, want, exec["returnValue"])
			assert.Contains(t, exec["output"], "Result: "+want)
		})
	}
}

func TestExecuteFailuresStillAnswer200(t *testing.T) {
	tests := []struct {
		name      string
		req       ExecuteRequest
		errorKind string
	}{
		{
			name:      "runtime exception",
			req:       ExecuteRequest{SourceCode: "throw new Error('boom')", FileName: "a.js"},
			errorKind: "runtime_exception",
		},
		{
			name:      "timeout",
			req:       ExecuteRequest{SourceCode: "while(true){}", FileName: "a.js", TimeoutMs: 100},
			errorKind: "timeout_exceeded",
		},
		{
			name:      "unsupported file",
			req:       ExecuteRequest{SourceCode: "print(1)", FileName: "a.py"},
			errorKind: "unsupported_file_type",
		},
	}

	f := setup(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(t, "POST", "/preview/execute", tt.req)

			require.Equal(t, http.StatusOK, w.Code)
			body := decode(t, w)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, tt.errorKind, body["errorKind"])
			assert.NotEmpty(t, body["errors"])
		})
	}
}

func TestExecuteClampsTimeout(t *testing.T) {
	f := setup(t, func(d *Deps) { d.Preview.MaxTimeoutMs = 150 })
	w := f.do(t, "POST", "/preview/execute", ExecuteRequest{
		SourceCode: "while(true){}",
		FileName:   "a.js",
		TimeoutMs:  60000,
	})

	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, []any{"Execution timeout after 150ms"}, body["errors"])
}

func TestExecuteRejections(t *testing.T) {
	f := setup(t, func(d *Deps) { d.Preview.MaxSourceBytes = 64 })

	t.Run("malformed body", func(t *testing.T) {
		w := f.do(t, "POST", "/preview/execute", "{not json")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("missing file name", func(t *testing.T) {
		w := f.do(t, "POST", "/preview/execute", map[string]string{"sourceCode": "1"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("oversized source", func(t *testing.T) {
		w := f.do(t, "POST", "/preview/execute", ExecuteRequest{
			SourceCode: strings.Repeat("x", 65),
			FileName:   "a.js",
		})
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	})

	t.Run("binary payload", func(t *testing.T) {
		w := f.do(t, "POST", "/preview/execute", ExecuteRequest{
			SourceCode: "\x00\x01\x02\x03\x04\x05",
			FileName:   "a.js",
		})
		assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
	})

	assert.Empty(t, f.monitor.History(0))
}

func TestRenderHTML(t *testing.T) {
	f := setup(t)
	w := f.do(t, "POST", "/preview/html", RenderHTMLRequest{
		HTML: `<p onclick="steal()">hi</p><script>alert(1)</script>`,
	})

	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, render.SandboxAttributes, body["sandboxAttributes"])

	content := body["content"].(string)
	assert.Contains(t, content, "hi")
	assert.NotContains(t, content, "<script>alert")
	assert.NotContains(t, content, "onclick")

	info := body["securityInfo"].(map[string]any)
	assert.Equal(t, true, info["isolated"])
}

func TestPreviewCSS(t *testing.T) {
	f := setup(t)
	w := f.do(t, "POST", "/preview/css", PreviewCSSRequest{
		CSS: "body { background: url(javascript:alert(1)); color: red }",
	})

	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	assert.NotContains(t, body["sanitizedCSS"], "javascript:")
	assert.Contains(t, body["content"], "color: red")
	assert.Contains(t, body["content"], "CSS Preview")
}

func TestPreviewCSSCustomContext(t *testing.T) {
	f := setup(t)
	w := f.do(t, "POST", "/preview/css", PreviewCSSRequest{
		CSS:         "p { color: blue }",
		HTMLContext: "<p>custom sample</p>",
	})

	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Contains(t, body["content"], "custom sample")
	assert.NotContains(t, body["content"], "CSS Preview")
}

func TestSanitize(t *testing.T) {
	f := setup(t)

	w := f.do(t, "POST", "/preview/sanitize", SanitizeRequest{
		Content: `<a href="javascript:alert(1)">x</a>`,
		Kind:    "html",
	})
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.NotContains(t, body["sanitized"], "javascript:")
	assert.Equal(t, true, body["changed"])

	w = f.do(t, "POST", "/preview/sanitize", SanitizeRequest{Content: "a{}", Kind: "xml"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFileType(t *testing.T) {
	f := setup(t)

	w := f.do(t, "GET", "/preview/filetype?fileName=index.html", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "html", body["fileType"])
	assert.Equal(t, string(dispatch.KindHTML), body["kind"])
	assert.Equal(t, true, body["supportsLivePreview"])

	w = f.do(t, "GET", "/preview/filetype?fileName=notes.xyz", nil)
	body = decode(t, w)
	assert.Equal(t, "text", body["fileType"])
	assert.Equal(t, false, body["supportsLivePreview"])

	w = f.do(t, "GET", "/preview/filetype", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStatsAndHistory(t *testing.T) {
	f := setup(t, func(d *Deps) { d.Pool = staticPool{size: 2} })
	for i := 0; i < 3; i++ {
		f.do(t, "POST", "/preview/execute", ExecuteRequest{SourceCode: "1", FileName: "a.js"})
	}

	w := f.do(t, "GET", "/preview/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.EqualValues(t, 3, body["totalExecutions"])
	assert.EqualValues(t, 100, body["successRatePercent"])
	assert.EqualValues(t, 3, body["server"].(map[string]any)["totalExecutions"])
	assert.EqualValues(t, 2, body["pool"].(map[string]any)["size"])

	w = f.do(t, "GET", "/preview/history?limit=2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 2, decode(t, w)["count"])

	w = f.do(t, "GET", "/preview/history?limit=-1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, "DELETE", "/preview/history", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, f.monitor.History(0))
}

func TestRelayConsole(t *testing.T) {
	f := setup(t)
	w := f.do(t, "POST", "/preview/logs", ConsoleRelayRequest{
		PreviewID: "exec_1",
		FileName:  "index.html",
		Entries: []ConsoleEntry{
			{Level: "log", Message: "loaded"},
			{Level: "error", Message: "broke", Context: map[string]any{"line": 3.0}},
		},
	})

	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 2, decode(t, w)["entries_received"])

	frame := f.logs.FilterField(zap.String("source", "preview_frame"))
	require.Equal(t, 2, frame.Len())
	assert.Equal(t, zap.ErrorLevel, frame.All()[1].Level)

	w = f.do(t, "POST", "/preview/logs", ConsoleRelayRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

type staticPool struct{ size int }

func (p staticPool) Stats() sandbox.PoolStats {
	return sandbox.PoolStats{Size: p.size, Available: p.size}
}
