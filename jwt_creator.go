package main

import (
	"crypto/rsa"
	"fmt"
	"os"
	"time"

	"go-mrz-verifier/models"

	"github.com/golang-jwt/jwt/v4"
)

// ScanJwtCreator signs an attestation of a verified scan that the capture
// app can hand to downstream services.
type ScanJwtCreator interface {
	CreateScanJwt(result models.ScanResult) (jwt string, err error)
}

type DefaultJwtCreator struct {
	privateKey *rsa.PrivateKey
	issuerId   string
	validity   time.Duration
}

func NewScanJwtCreator(privateKeyPath string, issuerId string, validity time.Duration) (*DefaultJwtCreator, error) {
	keyBytes, err := os.ReadFile(privateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read jwt private key: %w", err)
	}

	privateKey, err := jwt.ParseRSAPrivateKeyFromPEM(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse jwt private key: %w", err)
	}

	return &DefaultJwtCreator{
		privateKey: privateKey,
		issuerId:   issuerId,
		validity:   validity,
	}, nil
}

func (jc *DefaultJwtCreator) CreateScanJwt(result models.ScanResult) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"iss":       jc.issuerId,
		"sub":       result.SessionId,
		"iat":       now.Unix(),
		"exp":       now.Add(jc.validity).Unix(),
		"mrz_valid": result.Valid,
	}
	if result.Format != "" {
		claims["mrz_format"] = result.Format
	}
	if result.DocumentNumber != "" {
		claims["document_number"] = result.DocumentNumber
	}
	if result.ChipMatch != nil {
		claims["chip_match"] = *result.ChipMatch
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	return token.SignedString(jc.privateKey)
}
