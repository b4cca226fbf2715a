package webhook

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/syncwire/clerk-sync/internal/model"
)

// Svix signing convention used by Clerk: the signature is an HMAC-SHA256
// over "{id}.{timestamp}.{body}" using the decoded whsec_ key, sent
// base64-encoded with a "v1," prefix. Several candidates may be present
// during secret rotation; any one match accepts.
const (
	HeaderID        = "svix-id"
	HeaderTimestamp = "svix-timestamp"
	HeaderSignature = "svix-signature"

	secretPrefix     = "whsec_"
	signatureVersion = "v1,"

	DefaultTolerance = 5 * time.Minute
)

var (
	ErrMissingSecret    = errors.New("webhook secret is not configured")
	ErrMissingHeaders   = errors.New("missing webhook headers")
	ErrInvalidTimestamp = errors.New("invalid webhook timestamp")
	ErrTimestampExpired = errors.New("webhook timestamp outside tolerance")
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrInvalidPayload   = errors.New("invalid webhook payload")
)

// Verifier authenticates inbound webhook payloads against the shared
// signing secret. Verification is a pure function of the wire bytes, the
// headers, the secret, and the clock.
type Verifier struct {
	key       []byte
	tolerance time.Duration
	now       func() time.Time
}

// NewVerifier decodes the whsec_ secret and fixes the replay tolerance.
// An empty secret is a configuration error, not a verification failure.
func NewVerifier(secret string, tolerance time.Duration) (*Verifier, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, ErrMissingSecret
	}
	key, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(secret, secretPrefix))
	if err != nil {
		return nil, fmt.Errorf("decode webhook secret: %w", err)
	}
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	return &Verifier{key: key, tolerance: tolerance, now: time.Now}, nil
}

// Verify checks the svix headers and signature against the exact body
// bytes as transmitted. The body must never be re-serialized upstream;
// any whitespace difference invalidates the MAC.
func (v *Verifier) Verify(headers http.Header, body []byte) (*model.Event, error) {
	msgID := strings.TrimSpace(headers.Get(HeaderID))
	timestamp := strings.TrimSpace(headers.Get(HeaderTimestamp))
	signatures := strings.TrimSpace(headers.Get(HeaderSignature))
	if msgID == "" || timestamp == "" || signatures == "" {
		return nil, ErrMissingHeaders
	}

	unix, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return nil, ErrInvalidTimestamp
	}
	drift := v.now().Sub(time.Unix(unix, 0))
	if drift < 0 {
		drift = -drift
	}
	if drift > v.tolerance {
		return nil, ErrTimestampExpired
	}

	expected := v.sign(msgID, timestamp, body)
	if !matchAny(signatures, expected) {
		return nil, ErrInvalidSignature
	}

	return parseEvent(msgID, body)
}

func (v *Verifier) sign(msgID, timestamp string, body []byte) []byte {
	mac := hmac.New(sha256.New, v.key)
	mac.Write([]byte(msgID))
	mac.Write([]byte("."))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(body)
	return mac.Sum(nil)
}

// matchAny compares every v1 candidate in the header against the expected
// MAC in constant time.
func matchAny(header string, expected []byte) bool {
	for _, candidate := range strings.Fields(header) {
		if !strings.HasPrefix(candidate, signatureVersion) {
			continue
		}
		sig, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(candidate, signatureVersion))
		if err != nil {
			continue
		}
		if hmac.Equal(sig, expected) {
			return true
		}
	}
	return false
}

type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type userData struct {
	ID             string `json:"id"`
	EmailAddresses []struct {
		EmailAddress string `json:"email_address"`
	} `json:"email_addresses"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
	ImageURL  string `json:"image_url"`
}

// parseEvent decodes the authenticated payload. The decode fails closed:
// a user.* event whose data is not a JSON object is rejected rather than
// defaulted (the subject shape itself is checked by the reconciler).
func parseEvent(msgID string, body []byte) (*model.Event, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if env.Type == "" {
		return nil, fmt.Errorf("%w: missing event type", ErrInvalidPayload)
	}

	evt := &model.Event{ID: msgID, Type: model.EventType(env.Type)}
	if !evt.Type.IsUserEvent() {
		// forward compatibility: accepted and discarded downstream
		return evt, nil
	}

	data := bytes.TrimSpace(env.Data)
	if len(data) == 0 || data[0] != '{' {
		return nil, fmt.Errorf("%w: user event without user data", ErrInvalidPayload)
	}
	var u userData
	if err := json.Unmarshal(data, &u); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	evt.User = model.UserPayload{
		ClerkID:   u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Username:  u.Username,
		Avatar:    u.ImageURL,
	}
	if len(u.EmailAddresses) > 0 {
		evt.User.Email = u.EmailAddresses[0].EmailAddress
	}
	evt.User.Username = evt.User.DisplayName()

	return evt, nil
}
