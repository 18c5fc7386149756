package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	mrtdDoc "go-mrz-verifier/document"
	"go-mrz-verifier/models"
	"go-mrz-verifier/mrz"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

const ErrorInternal = "error:internal"
const ERR_MARSHAL = "failed to marshal response message"
const ERR_JWT_CREATION = "failed to create jwt"
const ERR_TOKEN_REMOVAL = "failed to remove token from storage"
const ERR_TOKEN_RETRIEVAL = "failed to get nonce from storage"
const ERR_INVALID_NONCE_SESSION = "invalid session or nonce"

type ServerConfig struct {
	Host           string `json:"host"`
	Port           int    `json:"port"`
	UseTls         bool   `json:"use_tls,omitempty"`
	TlsPrivKeyPath string `json:"tls_priv_key_path,omitempty"`
	TlsCertPath    string `json:"tls_cert_path,omitempty"`
}

type ServerState struct {
	tokenStorage TokenStorage
	// jwtCreator and notifier are optional; the server runs as a plain
	// accept/reject gate without them.
	jwtCreator ScanJwtCreator
	notifier   ResultNotifier
	chipParser ChipParser
}

// ChipParser abstracts DG1 decoding so tests can skip real LDS payloads.
type ChipParser interface {
	ParseDG1(dg1Hex string) (*mrtdDoc.ChipMRZ, error)
}

type gmrtdChipParser struct{}

func (gmrtdChipParser) ParseDG1(dg1Hex string) (*mrtdDoc.ChipMRZ, error) {
	return mrtdDoc.ParseDG1(dg1Hex)
}

type Server struct {
	server *http.Server
	config ServerConfig
}

func (s *Server) ListenAndServe() error {
	if s.config.UseTls {
		slog.Info("Starting server with TLS", "host", s.config.Host, "port", s.config.Port, "cert", s.config.TlsCertPath, "key", s.config.TlsPrivKeyPath)
		return s.server.ListenAndServeTLS(s.config.TlsCertPath, s.config.TlsPrivKeyPath)
	} else {
		slog.Info("Starting server without TLS", "host", s.config.Host, "port", s.config.Port)
		return s.server.ListenAndServe()
	}
}

func (s *Server) Stop() error {
	slog.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	err := s.server.Shutdown(ctx)
	if err != nil {
		slog.Error("Error during server shutdown", "error", err)
	} else {
		slog.Info("Server shut down successfully")
	}
	return err
}

// requestIDMiddleware tags every request with an id so log lines from one
// scan can be correlated.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-Id")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", requestID)
		slog.Debug("Handling request", "request_id", requestID, "method", r.Method, "path", r.URL.Path)
		next.ServeHTTP(w, r)
	})
}

func NewServer(state *ServerState, config ServerConfig) (*Server, error) {
	slog.Info("Creating new server", "host", config.Host, "port", config.Port, "tls", config.UseTls)
	if state.chipParser == nil {
		state.chipParser = gmrtdChipParser{}
	}
	router := mux.NewRouter()
	router.Use(requestIDMiddleware)

	router.HandleFunc("/api/health", func(w http.ResponseWriter, r *http.Request) {
		slog.Debug("Health check request received")
		err := json.NewEncoder(w).Encode(map[string]bool{"ok": true})
		if err != nil {
			slog.Error("failed to write body to http response", "error", err)
		}
	})

	router.HandleFunc("/api/start-scan", func(w http.ResponseWriter, r *http.Request) {
		handleStartScan(state, w, r)
	})
	router.HandleFunc("/api/verify-mrz", func(w http.ResponseWriter, r *http.Request) {
		handleVerifyMRZ(state, w, r)
	})
	router.HandleFunc("/api/verify-chip", func(w http.ResponseWriter, r *http.Request) {
		handleVerifyChip(state, w, r)
	})

	slog.Debug("Registered all API routes")

	addr := fmt.Sprintf("%v:%v", config.Host, config.Port)
	srv := &http.Server{
		Handler: router,
		Addr:    addr,
		// Good practice: enforce timeouts for servers you create!
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
	}

	slog.Info("Server created successfully", "address", addr)
	return &Server{
		server: srv,
		config: config,
	}, nil
}

type StartScanResponse struct {
	SessionId string `json:"session_id"`
	Nonce     string `json:"nonce"`
}

type VerificationResponse struct {
	Valid          bool   `json:"valid"`
	Format         string `json:"format,omitempty"`
	DocumentNumber string `json:"document_number,omitempty"`
	ChipMatch      *bool  `json:"chip_match,omitempty"`
	Jwt            string `json:"jwt,omitempty"`
}

func handleStartScan(state *ServerState, w http.ResponseWriter, r *http.Request) {
	defer closeRequestBody(r)

	if !requirePOST(w, r) {
		return
	}

	slog.Info("Received request to start a scan session")

	sessionId := GenerateSessionId()
	if sessionId == "" {
		respondWithErr(w, http.StatusInternalServerError, ErrorInternal, "failed to generate session ID", fmt.Errorf("failed to generate session ID"))
		return
	}

	nonce, err := GenerateNonce(8)
	if err != nil {
		respondWithErr(w, http.StatusInternalServerError, ErrorInternal, "failed to generate nonce", err)
		return
	}

	// The nonce is removed again once a scan for this session is accepted
	err = state.tokenStorage.StoreToken(sessionId, nonce)
	if err != nil {
		respondWithErr(w, http.StatusInternalServerError, ErrorInternal, "failed to store nonce", err)
		return
	}

	response := StartScanResponse{
		SessionId: sessionId,
		Nonce:     nonce,
	}

	if err := writeJSON(w, http.StatusOK, response); err != nil {
		respondWithErr(w, http.StatusInternalServerError, ErrorInternal, ERR_MARSHAL, err)
		return
	}

	slog.Info("Scan session started", "session_id", sessionId)
}

func handleVerifyMRZ(state *ServerState, w http.ResponseWriter, r *http.Request) {
	defer closeRequestBody(r)

	if !requirePOST(w, r) {
		return
	}

	slog.Info("Received request to verify an MRZ scan")

	request, err := decodeVerificationRequest(r)
	if err != nil {
		respondWithErr(w, http.StatusBadRequest, "invalid request", "failed to decode verification request", err)
		return
	}

	if err := validateSession(state.tokenStorage, request.SessionId, request.Nonce); err != nil {
		respondWithErr(w, http.StatusBadRequest, "invalid request", ERR_INVALID_NONCE_SESSION, err)
		return
	}

	result, rec := verifyScan(request)
	finishVerification(state, w, request, result, rec, nil)
}

func handleVerifyChip(state *ServerState, w http.ResponseWriter, r *http.Request) {
	defer closeRequestBody(r)

	if !requirePOST(w, r) {
		return
	}

	slog.Info("Received request to verify an MRZ scan against a chip readout")

	request, err := decodeVerificationRequest(r)
	if err != nil {
		respondWithErr(w, http.StatusBadRequest, "invalid request", "failed to decode verification request", err)
		return
	}

	if err := validateSession(state.tokenStorage, request.SessionId, request.Nonce); err != nil {
		respondWithErr(w, http.StatusBadRequest, "invalid request", ERR_INVALID_NONCE_SESSION, err)
		return
	}

	chip, err := state.chipParser.ParseDG1(request.DataGroups["DG1"])
	if err != nil {
		respondWithErr(w, http.StatusBadRequest, "invalid request", "failed to parse DG1", err)
		return
	}

	result, rec := verifyScan(request)
	chipMatch := result.Valid && mrtdDoc.CrossCheck(rec, chip)
	result.ChipMatch = &chipMatch

	finishVerification(state, w, request, result, rec, chip)
}

// verifyScan runs the checksum validation and assembles the scan result. The
// parsed record is only returned for checksum-consistent scans.
func verifyScan(request models.ScanVerificationRequest) (models.ScanResult, *mrz.Record) {
	normalized := mrz.Normalize(request.MRZ)
	valid := mrz.Check(normalized)

	result := models.ScanResult{
		SessionId: request.SessionId,
		Valid:     valid,
		CheckedAt: time.Now(),
	}

	if !valid {
		slog.Info("MRZ scan rejected", "session_id", request.SessionId)
		return result, nil
	}

	// Check succeeded, so this parse cannot fail.
	rec, err := mrz.Parse(normalized)
	if err != nil {
		slog.Error("parse failed after successful check", "error", err)
		result.Valid = false
		return result, nil
	}

	result.Format = rec.Format.String()
	result.DocumentNumber = rec.DocumentNumber
	slog.Info("MRZ scan accepted", "session_id", request.SessionId, "format", result.Format)
	return result, rec
}

func finishVerification(state *ServerState, w http.ResponseWriter, request models.ScanVerificationRequest, result models.ScanResult, rec *mrz.Record, chip *mrtdDoc.ChipMRZ) {
	response := VerificationResponse{
		Valid:          result.Valid,
		Format:         result.Format,
		DocumentNumber: result.DocumentNumber,
		ChipMatch:      result.ChipMatch,
	}

	if result.Valid && state.jwtCreator != nil {
		jwt, err := state.jwtCreator.CreateScanJwt(result)
		if err != nil {
			respondWithErr(w, http.StatusInternalServerError, ERR_JWT_CREATION, ERR_JWT_CREATION, err)
			return
		}
		response.Jwt = jwt
	}

	if err := writeJSON(w, http.StatusOK, response); err != nil {
		respondWithErr(w, http.StatusInternalServerError, ErrorInternal, ERR_MARSHAL, err)
		return
	}

	if state.notifier != nil {
		// Delivery failures must not fail or delay the scan, so the webhook
		// is dispatched after the response, off the request goroutine.
		go func() {
			if err := state.notifier.NotifyResult(context.Background(), result); err != nil {
				slog.Warn("Failed to deliver result webhook", "session_id", request.SessionId, "error", err)
			}
		}()
	}

	// Accepted scans are one-shot; rejected ones keep their session so the
	// user can rescan.
	if result.Valid {
		slog.Info("Verification completed successfully", "session_id", request.SessionId)
		removeSessionToken(w, state.tokenStorage, request.SessionId)
	}
}

// -----------------------------------------------------------------------------------

// validateSession validates session and nonce
func validateSession(storage TokenStorage, sessionId, nonce string) error {
	slog.Debug("Validating session and nonce", "session_id", sessionId)
	storedNonce, err := storage.RetrieveToken(sessionId)
	if err != nil {
		slog.Warn("Failed to retrieve token from storage", "session_id", sessionId, "error", err)
		return fmt.Errorf("%s: %w", ERR_TOKEN_RETRIEVAL, err)
	}

	if storedNonce == "" || storedNonce != nonce {
		slog.Warn("Invalid nonce or session", "session_id", sessionId, "nonce_empty", storedNonce == "", "nonce_match", storedNonce == nonce)
		return fmt.Errorf("%s", ERR_INVALID_NONCE_SESSION)
	}

	slog.Debug("Session validation successful", "session_id", sessionId)
	return nil
}

// removeSessionToken removes token and logs error if failed
func removeSessionToken(w http.ResponseWriter, storage TokenStorage, sessionId string) {
	slog.Debug("Removing session token", "session_id", sessionId)
	if err := storage.RemoveToken(sessionId); err != nil {
		slog.Error(ERR_TOKEN_REMOVAL, "session_id", sessionId, "error", err)
	} else {
		slog.Debug("Session token removed successfully", "session_id", sessionId)
	}
}

// decodeVerificationRequest decodes the request body
func decodeVerificationRequest(r *http.Request) (models.ScanVerificationRequest, error) {
	slog.Debug("Decoding verification request body")
	var request models.ScanVerificationRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		slog.Warn("Failed to decode verification request", "error", err)
		return request, fmt.Errorf("decode request body: %w", err)
	}
	slog.Debug("Verification request decoded successfully", "session_id", request.SessionId)
	return request, nil
}

func GenerateSessionId() string {
	sessionId := make([]byte, 16)
	if _, err := rand.Read(sessionId); err != nil {
		slog.Error("failed to generate session ID", "error", err)
		return ""
	}
	hexId := fmt.Sprintf("%x", sessionId)
	slog.Debug("Session ID generated successfully", "session_id", hexId)
	return hexId
}

// GenerateNonce Generates a random nonce
func GenerateNonce(i int) (string, error) {
	nonce := make([]byte, i)
	if _, err := rand.Read(nonce); err != nil {
		slog.Error("failed to generate nonce", "error", err)
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	hexString := hex.EncodeToString(nonce)
	slog.Debug("Nonce generated successfully", "length", i)
	return hexString, nil
}

func respondWithErr(w http.ResponseWriter, code int, responseBody string, logMsg string, e error) {
	slog.Error(logMsg, "error", e, "status_code", code, "response_body", responseBody)
	w.WriteHeader(code)
	if _, err := w.Write([]byte(responseBody)); err != nil {
		slog.Error("failed to write body to http response", "error", err)
	}
}

// helpers ------------

func closeRequestBody(r *http.Request) {
	if err := r.Body.Close(); err != nil {
		slog.Error("failed to close request body", "error", err)
	}
}

func requirePOST(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		slog.Debug("Non-POST request rejected", "method", r.Method, "path", r.URL.Path)
		respondWithErr(w, http.StatusMethodNotAllowed, "method not allowed", "invalid method", nil)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	slog.Debug("Writing JSON response", "status_code", status)
	payload, err := json.Marshal(v)
	if err != nil {
		slog.Error("Failed to marshal JSON payload", "error", err)
		return err
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(payload)
	if err != nil {
		slog.Error("failed to write body to http response", "error", err)
	} else {
		slog.Debug("JSON response written successfully", "status_code", status, "payload_size", len(payload))
	}
	return nil
}
