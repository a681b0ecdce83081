package echoapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo/training/core"
	"github.com/trezcool/masomo/training/core/training"
	"github.com/trezcool/masomo/training/storage/database/inmem"
)

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	wantCode int
}

type nopLogger struct {
	errors []string
}

func (l *nopLogger) Debug(string, ...interface{})       {}
func (l *nopLogger) Info(string, ...interface{})        {}
func (l *nopLogger) Warn(string, ...interface{})        {}
func (l *nopLogger) Error(msg string, _ ...interface{}) { l.errors = append(l.errors, msg) }
func (l *nopLogger) Fatal(string, ...interface{})       {}

func testConf() *core.Config {
	return &core.Config{
		AppName:  "Masomo Training",
		Env:      "TEST",
		TestMode: true,
		Scoring:  core.ScoringConfig{ApprovalThreshold: 80},
	}
}

func setup(t *testing.T) (Server, *nopLogger) {
	t.Helper()
	db, err := inmemdb.Open()
	require.NoError(t, err)

	logger := &nopLogger{}
	conf := testConf()
	svc := training.NewService(inmemdb.NewTrainingRepository(db), logger, conf.Scoring)
	return NewServer(ServerDeps{
		Conf:           conf,
		Logger:         logger,
		TrainingSvc:    svc,
		DisableReqLogs: true,
	}), logger
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return req, rec
}

func do(t *testing.T, srv Server, method, path string, data ...[]byte) *httptest.ResponseRecorder {
	t.Helper()
	req, rec := newRequest(method, path, data...)
	srv.ServeHTTP(rec, req)
	return rec
}

func mustMarshal(t *testing.T, v interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}
