package http_api

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/core-coin/go-core/v2/crypto"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"github.com/spf13/cast"

	"github.com/core-coin/walletx/pkg/validation"
)

const (
	// CallerHeader carries the address of the identity making the call
	CallerHeader = "X-Wallet-Address"
	// TimestampHeader carries the signing time in unix milliseconds
	TimestampHeader = "X-Wallet-Timestamp"
	// SignatureHeader carries the hex ed448 signature of the request
	SignatureHeader = "X-Wallet-Signature"

	// MaxClockSkew bounds the distance between the signing time and the
	// server clock. A signature is accepted once within that window.
	MaxClockSkew = 5 * time.Minute

	maxSignedBody = 1 << 20
)

var (
	errMissingSignature = errors.New("missing request signature")
	errBadSignature     = errors.New("signature does not verify")
	errSignerMismatch   = errors.New("signature does not match " + CallerHeader)
	errStaleRequest     = errors.New("request timestamp outside the accepted window")
	errReplayedRequest  = errors.New("request signature already used")
)

// SigningHash is the digest a caller signs. It covers the method, the path
// with its query, the SHA3 of the body and the timestamp header value.
func SigningHash(method, requestURI string, body []byte, timestamp string) []byte {
	return crypto.SHA3(
		[]byte(method), []byte("\n"),
		[]byte(requestURI), []byte("\n"),
		crypto.SHA3(body), []byte("\n"),
		[]byte(timestamp),
	)
}

// SignRequest sets the caller, timestamp and signature headers on req for the
// identity of key. body must be what req sends.
func SignRequest(req *http.Request, body []byte, key *crypto.PrivateKey, now time.Time) error {
	timestamp := strconv.FormatInt(now.UnixMilli(), 10)
	sig, err := crypto.Sign(SigningHash(req.Method, req.URL.RequestURI(), body, timestamp), key)
	if err != nil {
		return fmt.Errorf("failed to sign request: %w", err)
	}
	req.Header.Set(CallerHeader, key.Address().Hex())
	req.Header.Set(TimestampHeader, timestamp)
	req.Header.Set(SignatureHeader, hex.EncodeToString(sig))
	return nil
}

// requireCaller authenticates the request signature and stores the signer as
// the caller. Only the recovered address is trusted.
func (s *HTTPServer) requireCaller() gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, err := s.authenticate(c)
		if err != nil {
			s.logger.Debug("Request authentication failed", "path", c.FullPath(), "error", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "Unauthorized: " + err.Error(),
			})
			return
		}
		c.Set(callerKey, caller)
		c.Next()
	}
}

func (s *HTTPServer) authenticate(c *gin.Context) (string, error) {
	claimed, err := validation.ValidateAndNormalizeAddress(c.GetHeader(CallerHeader))
	if err != nil {
		return "", fmt.Errorf("invalid %s header: %w", CallerHeader, err)
	}
	timestamp := c.GetHeader(TimestampHeader)
	rawSig := c.GetHeader(SignatureHeader)
	if timestamp == "" || rawSig == "" {
		return "", errMissingSignature
	}

	signedAt, err := cast.ToInt64E(timestamp)
	if err != nil {
		return "", fmt.Errorf("invalid %s header: %w", TimestampHeader, err)
	}
	skew := s.now().Sub(time.UnixMilli(signedAt))
	if skew > MaxClockSkew || skew < -MaxClockSkew {
		return "", errStaleRequest
	}

	sig, err := hex.DecodeString(strings.TrimPrefix(rawSig, "0x"))
	if err != nil || len(sig) != crypto.ExtendedSignatureLength {
		return "", errBadSignature
	}

	var body []byte
	if c.Request.Body != nil {
		body, err = io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxSignedBody))
		if err != nil {
			return "", fmt.Errorf("failed to read request body: %w", err)
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))
	}

	pub, err := crypto.SigToPub(SigningHash(c.Request.Method, c.Request.URL.RequestURI(), body, timestamp), sig)
	if err != nil {
		return "", errBadSignature
	}
	signer := validation.NormalizeAddress(crypto.PubkeyToAddress(pub).Hex())
	if signer != claimed {
		return "", errSignerMismatch
	}

	// Only verified signatures reach the replay cache.
	if err := s.seen.Add(hex.EncodeToString(sig[:crypto.SignatureLength]), struct{}{}, cache.DefaultExpiration); err != nil {
		return "", errReplayedRequest
	}
	return signer, nil
}
