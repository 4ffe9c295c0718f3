package attendance

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"strconv"
	"strings"
	"time"
)

// Signer issues submission receipts: short HMAC-SHA256 tokens over
// session code, matric number, and submission time. The receipt is opaque to
// students but lets staff verify a claimed submission later.
type Signer struct {
	secret []byte
}

// NewSigner creates a signer from the configured secret.
func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret)}
}

// Sign returns the receipt for a submission.
func (s *Signer) Sign(sessionCode, matricNo string, at time.Time) string {
	mac := hmac.New(sha256.New, s.secret)
	io.WriteString(mac, sessionCode+"|"+matricNo+"|"+strconv.FormatInt(at.Unix(), 10))
	return strings.ToUpper(hex.EncodeToString(mac.Sum(nil)[:8]))
}

// Verify reports whether a receipt matches a submission's fields.
func (s *Signer) Verify(receipt, sessionCode, matricNo string, at time.Time) bool {
	return hmac.Equal([]byte(receipt), []byte(s.Sign(sessionCode, matricNo, at)))
}
