package blob

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrLinkExpired is returned by Verify for a structurally valid link whose
	// expiry window has passed.
	ErrLinkExpired = errors.New("blob: signed link expired")
	// ErrBadSignature is returned by Verify when the signature does not match.
	ErrBadSignature = errors.New("blob: signed link signature mismatch")
)

// LinkSigner mints and verifies HMAC-authenticated media links for the file
// store. A link binds exactly one object path to an expiry instant; it grants
// read-only access and nothing else.
type LinkSigner struct {
	secret  []byte
	baseURL string
}

// NewLinkSigner creates a signer. baseURL is the externally reachable prefix
// (e.g. "https://api.example.com") the /media/ handler is mounted under.
func NewLinkSigner(secret []byte, baseURL string) *LinkSigner {
	return &LinkSigner{secret: secret, baseURL: strings.TrimSuffix(baseURL, "/")}
}

// Sign returns a link of the form
// {base}/media/{path}?exp={unix}&sig={hex(hmac-sha256(path "\n" unix))}.
func (s *LinkSigner) Sign(path string, expiry time.Duration) string {
	exp := time.Now().Add(expiry).Unix()
	q := url.Values{}
	q.Set("exp", strconv.FormatInt(exp, 10))
	q.Set("sig", s.signature(path, exp))
	return fmt.Sprintf("%s/media/%s?%s", s.baseURL, path, q.Encode())
}

// Verify checks a presented path/exp/sig triple. The signature is compared in
// constant time before the expiry check so both failure modes cost the same.
func (s *LinkSigner) Verify(path, expStr, sig string) error {
	exp, err := strconv.ParseInt(expStr, 10, 64)
	if err != nil {
		return ErrBadSignature
	}
	expected := s.signature(path, exp)
	if !hmac.Equal([]byte(expected), []byte(sig)) {
		return ErrBadSignature
	}
	if time.Now().Unix() > exp {
		return ErrLinkExpired
	}
	return nil
}

func (s *LinkSigner) signature(path string, exp int64) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(path))
	mac.Write([]byte("\n"))
	mac.Write([]byte(strconv.FormatInt(exp, 10)))
	return hex.EncodeToString(mac.Sum(nil))
}
