package gateway

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
)

// maxAuthAttempts is the number of failed signatures allowed before the
// connection is dropped.
const maxAuthAttempts = 3

// challengeBytes is the entropy of one auth challenge.
const challengeBytes = 32

// AuthHandler runs the challenge-response handshake: the server hands each
// new connection a random challenge, the client answers with an HMAC of it
// under the shared secret. The secret never crosses the wire.
type AuthHandler struct {
	sharedSecret []byte
}

// NewAuthHandler creates an auth handler bound to the shared secret.
func NewAuthHandler(sharedSecret string) *AuthHandler {
	return &AuthHandler{sharedSecret: []byte(sharedSecret)}
}

// GenerateChallenge mints a random hex-encoded challenge.
func (a *AuthHandler) GenerateChallenge() (string, error) {
	buf := make([]byte, challengeBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate challenge: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// VerifySignature reports whether signature is the HMAC-SHA256 of challenge
// under the shared secret. Comparison is constant-time.
func (a *AuthHandler) VerifySignature(challenge, signature string) bool {
	mac := hmac.New(sha256.New, a.sharedSecret)
	mac.Write([]byte(challenge))
	want := hex.EncodeToString(mac.Sum(nil))
	return subtle.ConstantTimeCompare([]byte(want), []byte(signature)) == 1
}

// HandleAuthResponse checks a client's signature against its outstanding
// challenge and moves the client to the authenticated state on success. The
// challenge is single-use either way.
func (a *AuthHandler) HandleAuthResponse(client *Client, signature string) AuthResult {
	if client.Challenge == "" {
		return AuthResult{Event: "auth.failure", Message: "No challenge found"}
	}

	if !a.VerifySignature(client.Challenge, signature) {
		client.AuthAttempts++
		msg := "Invalid signature"
		if client.AuthAttempts >= maxAuthAttempts {
			msg = "Too many failed attempts"
		}
		return AuthResult{Event: "auth.failure", Message: msg}
	}

	client.Authenticated = true
	client.State = StateAuthenticated
	client.AuthAttempts = 0
	client.Challenge = ""

	return AuthResult{Event: "auth.success", Success: true}
}
