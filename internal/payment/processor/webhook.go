package processor

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	dErrors "pampermomma/pkg/domain-errors"
)

// Event is a webhook notification from the processor.
type Event struct {
	ID      string    `json:"id"`
	Type    string    `json:"type"`
	Data    EventData `json:"data"`
	Created int64     `json:"created"`
}

// EventData wraps the object the event describes.
type EventData struct {
	Object json.RawMessage `json:"object"`
}

// Intent decodes the event object as a payment intent.
func (e *Event) Intent() (*Intent, error) {
	var intent Intent
	if err := json.Unmarshal(e.Data.Object, &intent); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "decode event intent")
	}
	return &intent, nil
}

// DefaultTolerance bounds how old a signed webhook payload may be.
const DefaultTolerance = 5 * time.Minute

// ParseEvent verifies the webhook signature header and decodes the event.
// The header carries a timestamp and one or more v1 signatures over
// "<timestamp>.<payload>" keyed with the endpoint secret.
func ParseEvent(payload []byte, sigHeader, secret string, now time.Time) (*Event, error) {
	timestamp, signatures, err := parseSigHeader(sigHeader)
	if err != nil {
		return nil, err
	}

	if now.Sub(time.Unix(timestamp, 0)) > DefaultTolerance {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "webhook timestamp outside tolerance")
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := mac.Sum(nil)

	verified := false
	for _, sig := range signatures {
		decoded, err := hex.DecodeString(sig)
		if err != nil {
			continue
		}
		if hmac.Equal(decoded, expected) {
			verified = true
			break
		}
	}
	if !verified {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "webhook signature mismatch")
	}

	var event Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "decode webhook event")
	}
	return &event, nil
}

// SignPayload produces a signature header for a payload, used by tests and
// the local processor stub.
func SignPayload(payload []byte, secret string, at time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(at.Unix(), 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	return fmt.Sprintf("t=%d,v1=%s", at.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func parseSigHeader(header string) (int64, []string, error) {
	if header == "" {
		return 0, nil, dErrors.New(dErrors.CodeUnauthorized, "missing webhook signature")
	}
	var (
		timestamp  int64
		signatures []string
	)
	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch key {
		case "t":
			ts, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return 0, nil, dErrors.New(dErrors.CodeUnauthorized, "malformed webhook timestamp")
			}
			timestamp = ts
		case "v1":
			signatures = append(signatures, value)
		}
	}
	if timestamp == 0 || len(signatures) == 0 {
		return 0, nil, dErrors.New(dErrors.CodeUnauthorized, "malformed webhook signature")
	}
	return timestamp, signatures, nil
}
