package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	mrtdDoc "go-mrz-verifier/document"
	"go-mrz-verifier/models"
	"go-mrz-verifier/mrz"

	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, raw string) *mrz.Record {
	t.Helper()
	rec, err := mrz.Parse(raw)
	require.NoError(t, err)
	return rec
}

var testConfig = ServerConfig{
	Host:           "localhost",
	Port:           8081,
	UseTls:         false,
	TlsCertPath:    "",
	TlsPrivKeyPath: "",
}

func startTestServer(t *testing.T, storage TokenStorage) *Server {
	t.Helper()

	return startTestServerWithState(t, &ServerState{
		tokenStorage: storage,
		jwtCreator:   fakeJwtCreator{jwt: "test-jwt"},
		chipParser:   fakeChipParser{},
	})
}

func startTestServerWithState(t *testing.T, testState *ServerState) *Server {
	t.Helper()

	srv, err := NewServer(testState, testConfig)
	require.NoError(t, err)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			t.Errorf("server error: %v", err)
		}
	}()

	waitUntilHealthy(t, "http://localhost:8081/api/health")
	t.Cleanup(func() {
		if err := srv.Stop(); err != nil {
			t.Logf("error shutting down server: %v", err)
		}
	})
	return srv
}

func waitUntilHealthy(t *testing.T, url string) {
	t.Helper()
	const maxAttempts = 50
	for i := 0; i < maxAttempts; i++ {
		if resp, err := http.Get(url); err == nil {
			_ = resp.Body.Close()
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatalf("server did not start in time")
}

func postJSON[T any](t *testing.T, url string, payload any) (*http.Response, []byte, *T) {
	t.Helper()

	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewBuffer(b)
	}
	resp, err := http.Post(url, "application/json", body)
	require.NoError(t, err)
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var decoded *T
	var v T
	_ = json.Unmarshal(respBody, &v)
	decoded = &v

	return resp, respBody, decoded
}

func mustStatus(t *testing.T, resp *http.Response, want int, body []byte) {
	t.Helper()
	require.Equalf(t, want, resp.StatusCode, "body: %s", body)
}

// start-scan bootstrap
func startScan(t *testing.T) (sessionID, nonce string) {
	t.Helper()
	type startResp struct {
		SessionID string `json:"session_id"`
		Nonce     string `json:"nonce"`
	}
	resp, body, sr := postJSON[startResp](t, "http://localhost:8081/api/start-scan", nil)
	mustStatus(t, resp, http.StatusOK, body)
	require.NotEmpty(t, sr.SessionID)
	require.NotEmpty(t, sr.Nonce)
	return sr.SessionID, sr.Nonce
}

// Request builders
type reqOpt func(*models.ScanVerificationRequest)

func withMRZ(raw string) reqOpt {
	return func(r *models.ScanVerificationRequest) { r.MRZ = raw }
}

func withDG(name, hexVal string) reqOpt {
	return func(r *models.ScanVerificationRequest) {
		if r.DataGroups == nil {
			r.DataGroups = map[string]string{}
		}
		r.DataGroups[name] = hexVal
	}
}

func newReq(sessionId, nonce string, opts ...reqOpt) models.ScanVerificationRequest {
	r := models.ScanVerificationRequest{
		SessionId: sessionId,
		Nonce:     nonce,
		MRZ:       testMRZ,
	}
	for _, o := range opts {
		o(&r)
	}
	return r
}

// ICAO 9303 specimen passport MRZ
const testMRZ = "P<UTOERIKSSON<<ANNA<MARIA<<<<<<<<<<<<<<<<<<<\n" +
	"L898902C36UTO7408122F1204159ZE184226B<<<<<10"

// test doubles

type fakeJwtCreator struct{ jwt string }

func (f fakeJwtCreator) CreateScanJwt(_ models.ScanResult) (string, error) {
	return f.jwt, nil
}

// fakeChipParser returns a chip readout matching testMRZ for the payload
// "DG1OK" and fails on anything else.
type fakeChipParser struct{}

func (fakeChipParser) ParseDG1(dg1Hex string) (*mrtdDoc.ChipMRZ, error) {
	if dg1Hex != "DG1OK" {
		return nil, errors.New("failed to parse DG1")
	}
	return &mrtdDoc.ChipMRZ{
		DocumentNumber: "L898902C3",
		DateOfBirth:    "740812",
		DateOfExpiry:   "120415",
		Nationality:    "UTO",
		Sex:            "F",
	}, nil
}

type recordingNotifier struct {
	mu      sync.Mutex
	results []models.ScanResult
	// delay simulates a slow webhook receiver.
	delay time.Duration
}

func (n *recordingNotifier) NotifyResult(_ context.Context, result models.ScanResult) error {
	if n.delay > 0 {
		time.Sleep(n.delay)
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.results = append(n.results, result)
	return nil
}

func (n *recordingNotifier) all() []models.ScanResult {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]models.ScanResult(nil), n.results...)
}
