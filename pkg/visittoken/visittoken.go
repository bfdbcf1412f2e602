// Package visittoken issues signed one-shot tokens for public profile
// visits. A token is handed out with the public profile and redeemed when
// the visitor passes the entrance gate, so a visit counts once.
package visittoken

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/persona/backend/pkg/logger"
)

const DefaultExpiry = 30 * time.Minute

var (
	ErrMalformed   = errors.New("invalid token format")
	ErrSignature   = errors.New("invalid token signature")
	ErrExpired     = errors.New("token expired")
	ErrAlreadyUsed = errors.New("token already used")
)

type Visit struct {
	Username  string `json:"usr"`
	Visitor   string `json:"vid,omitempty"`
	ExpiresAt int64  `json:"exp"`
	Nonce     string `json:"nce"`
}

// Ledger remembers redeemed tokens. Claim reports false when token was
// already claimed.
type Ledger interface {
	Claim(ctx context.Context, token string, ttl time.Duration) (bool, error)
}

type Issuer struct {
	secret []byte
	expiry time.Duration
	ledger Ledger
	now    func() time.Time
}

func NewIssuer(secret string, expiry time.Duration, ledger Ledger) *Issuer {
	if expiry <= 0 {
		expiry = DefaultExpiry
	}
	if ledger == nil {
		ledger = NewMemoryLedger()
	}
	if secret == "" {
		secret = "persona-visit-token-fallback"
	}
	return &Issuer{secret: []byte(secret), expiry: expiry, ledger: ledger, now: time.Now}
}

func (i *Issuer) Generate(username, visitor string) (string, error) {
	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	data, err := json.Marshal(Visit{
		Username:  username,
		Visitor:   visitor,
		ExpiresAt: i.now().Add(i.expiry).Unix(),
		Nonce:     hex.EncodeToString(nonce),
	})
	if err != nil {
		return "", err
	}

	return base64.RawURLEncoding.EncodeToString(data) + "." + i.sign(data), nil
}

func (i *Issuer) Validate(token string) (*Visit, error) {
	dataPart, sigPart, ok := strings.Cut(token, ".")
	if !ok || dataPart == "" || sigPart == "" {
		return nil, ErrMalformed
	}

	decoded, err := base64.RawURLEncoding.DecodeString(dataPart)
	if err != nil {
		return nil, ErrMalformed
	}
	if !hmac.Equal([]byte(i.sign(decoded)), []byte(sigPart)) {
		return nil, ErrSignature
	}

	var visit Visit
	if err := json.Unmarshal(decoded, &visit); err != nil {
		return nil, ErrMalformed
	}
	if i.now().Unix() > visit.ExpiresAt {
		return nil, ErrExpired
	}
	return &visit, nil
}

// Redeem validates token and claims it. Only the first redemption succeeds.
func (i *Issuer) Redeem(ctx context.Context, token string) (*Visit, error) {
	visit, err := i.Validate(token)
	if err != nil {
		return nil, err
	}

	claimed, err := i.ledger.Claim(ctx, token, i.expiry)
	if err != nil {
		return nil, err
	}
	if !claimed {
		logger.Info("visit_token_reused", map[string]interface{}{
			"username":      visit.Username,
			"token_last_20": token[max(0, len(token)-20):],
		})
		return nil, ErrAlreadyUsed
	}
	return visit, nil
}

// StartCleanup prunes the in-memory ledger every interval until ctx is
// done. Other ledgers expire entries on their own.
func (i *Issuer) StartCleanup(ctx context.Context, interval time.Duration) {
	memory, ok := i.ledger.(*MemoryLedger)
	if !ok {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				memory.Prune()
			}
		}
	}()
}

func (i *Issuer) sign(data []byte) string {
	mac := hmac.New(sha256.New, i.secret)
	mac.Write(data)
	return hex.EncodeToString(mac.Sum(nil))
}
