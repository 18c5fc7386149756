package main

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestVerifyMRZ_Success_RemovesSessionID(t *testing.T) {
	storage := NewInMemoryTokenStorage()
	startTestServer(t, storage)

	session, nonce := startScan(t)
	req := newReq(session, nonce)

	resp, body, vr := postJSON[VerificationResponse](t, "http://localhost:8081/api/verify-mrz", req)
	mustStatus(t, resp, http.StatusOK, body)
	require.True(t, vr.Valid)
	require.Equal(t, "TD3", vr.Format)
	require.Equal(t, "L898902C3", vr.DocumentNumber)
	require.Equal(t, "test-jwt", vr.Jwt)
	require.Nil(t, vr.ChipMatch)

	got, err := storage.RetrieveToken(session)
	require.Error(t, err)     // removed
	require.Equal(t, "", got) // no token left
}

func TestVerifyMRZ_InvalidScan_KeepsSession(t *testing.T) {
	storage := NewInMemoryTokenStorage()
	startTestServer(t, storage)

	session, nonce := startScan(t)
	corrupted := strings.Replace(testMRZ, "L898902C36", "L898902C37", 1)
	req := newReq(session, nonce, withMRZ(corrupted))

	resp, body, vr := postJSON[VerificationResponse](t, "http://localhost:8081/api/verify-mrz", req)
	mustStatus(t, resp, http.StatusOK, body)
	require.False(t, vr.Valid)
	require.Empty(t, vr.Jwt)

	// The session survives a rejected scan so the user can rescan.
	got, err := storage.RetrieveToken(session)
	require.NoError(t, err)
	require.Equal(t, nonce, got)

	resp2, body2, vr2 := postJSON[VerificationResponse](t, "http://localhost:8081/api/verify-mrz", newReq(session, nonce))
	mustStatus(t, resp2, http.StatusOK, body2)
	require.True(t, vr2.Valid)
}

func TestVerifyMRZ_Fail_BadNonce(t *testing.T) {
	storage := NewInMemoryTokenStorage()
	startTestServer(t, storage)

	session := GenerateSessionId()
	nonce, _ := GenerateNonce(8)
	require.NoError(t, storage.StoreToken(session, nonce))

	req := newReq(session, "bad-nonce")
	resp, body, _ := postJSON[map[string]any](t, "http://localhost:8081/api/verify-mrz", req)
	mustStatus(t, resp, http.StatusBadRequest, body)
}

func TestVerifyMRZ_Fail_SessionReuse(t *testing.T) {
	storage := NewInMemoryTokenStorage()
	startTestServer(t, storage)

	session, nonce := startScan(t)
	req := newReq(session, nonce)

	resp1, body1, _ := postJSON[map[string]any](t, "http://localhost:8081/api/verify-mrz", req)
	mustStatus(t, resp1, http.StatusOK, body1)

	resp2, body2, _ := postJSON[map[string]any](t, "http://localhost:8081/api/verify-mrz", req)
	mustStatus(t, resp2, http.StatusBadRequest, body2)
}

func TestVerifyMRZ_Fail_UnknownSession(t *testing.T) {
	startTestServer(t, NewInMemoryTokenStorage())

	req := newReq("no-such-session", "n")
	resp, body, _ := postJSON[map[string]any](t, "http://localhost:8081/api/verify-mrz", req)
	mustStatus(t, resp, http.StatusBadRequest, body)
}

func TestVerifyMRZ_Fail_GarbageBody(t *testing.T) {
	startTestServer(t, NewInMemoryTokenStorage())

	resp, err := http.Post("http://localhost:8081/api/verify-mrz", "application/json", strings.NewReader("{"))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestVerifyMRZ_Fail_GETRejected(t *testing.T) {
	startTestServer(t, NewInMemoryTokenStorage())

	resp, err := http.Get("http://localhost:8081/api/verify-mrz")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestVerifyChip_Match(t *testing.T) {
	storage := NewInMemoryTokenStorage()
	startTestServer(t, storage)

	session, nonce := startScan(t)
	req := newReq(session, nonce, withDG("DG1", "DG1OK"))

	resp, body, vr := postJSON[VerificationResponse](t, "http://localhost:8081/api/verify-chip", req)
	mustStatus(t, resp, http.StatusOK, body)
	require.True(t, vr.Valid)
	require.NotNil(t, vr.ChipMatch)
	require.True(t, *vr.ChipMatch)
}

func TestVerifyChip_BadDG1(t *testing.T) {
	storage := NewInMemoryTokenStorage()
	startTestServer(t, storage)

	session, nonce := startScan(t)
	req := newReq(session, nonce, withDG("DG1", "00"))

	resp, body, _ := postJSON[map[string]any](t, "http://localhost:8081/api/verify-chip", req)
	mustStatus(t, resp, http.StatusBadRequest, body)
}

func TestVerifyChip_ScanChipDisagreement(t *testing.T) {
	storage := NewInMemoryTokenStorage()
	startTestServer(t, storage)

	session, nonce := startScan(t)
	// A consistent MRZ for a different document than the chip reports:
	// recompute the specimen with another document number.
	disagreeing := func() string {
		rec := mustParse(t, testMRZ)
		rec.DocumentNumber = "X1234567"
		rec = rec.RecomputeCheckDigits()
		return rec.String()
	}()
	req := newReq(session, nonce, withMRZ(disagreeing), withDG("DG1", "DG1OK"))

	resp, body, vr := postJSON[VerificationResponse](t, "http://localhost:8081/api/verify-chip", req)
	mustStatus(t, resp, http.StatusOK, body)
	require.True(t, vr.Valid)
	require.NotNil(t, vr.ChipMatch)
	require.False(t, *vr.ChipMatch)
}

func TestVerifyMRZ_NotifierReceivesResult(t *testing.T) {
	storage := NewInMemoryTokenStorage()
	notifier := &recordingNotifier{}
	startTestServerWithState(t, &ServerState{
		tokenStorage: storage,
		notifier:     notifier,
	})

	session, nonce := startScan(t)
	resp, body, _ := postJSON[VerificationResponse](t, "http://localhost:8081/api/verify-mrz", newReq(session, nonce))
	mustStatus(t, resp, http.StatusOK, body)

	// Delivery happens off the request goroutine.
	require.Eventually(t, func() bool {
		return len(notifier.all()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	results := notifier.all()
	require.True(t, results[0].Valid)
	require.Equal(t, session, results[0].SessionId)
}

func TestVerifyMRZ_SlowNotifierDoesNotDelayResponse(t *testing.T) {
	storage := NewInMemoryTokenStorage()
	notifier := &recordingNotifier{delay: 2 * time.Second}
	startTestServerWithState(t, &ServerState{
		tokenStorage: storage,
		notifier:     notifier,
	})

	session, nonce := startScan(t)

	start := time.Now()
	resp, body, vr := postJSON[VerificationResponse](t, "http://localhost:8081/api/verify-mrz", newReq(session, nonce))
	elapsed := time.Since(start)

	mustStatus(t, resp, http.StatusOK, body)
	require.True(t, vr.Valid)
	require.Less(t, elapsed, time.Second, "response must not wait on webhook delivery")

	require.Eventually(t, func() bool {
		return len(notifier.all()) == 1
	}, 5*time.Second, 50*time.Millisecond)
}

func TestHealthEndpoint(t *testing.T) {
	startTestServer(t, NewInMemoryTokenStorage())

	resp, err := http.Get("http://localhost:8081/api/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, resp.Header.Get("X-Request-Id"))
}
