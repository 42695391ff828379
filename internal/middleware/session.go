package middleware

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

const (
	sessionCookieName = "CAFE_WEB_SESSION"
	sessionMaxAge     = 30 * 24 * time.Hour
)

// SessionData is the signed cookie payload.
type SessionData struct {
	ID        string    `json:"id"`
	Locale    string    `json:"locale,omitempty"`
	CSRFToken string    `json:"csrf,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	// internal dirty flag; not serialized
	dirty bool
}

// SessionConfig configures the session middleware.
type SessionConfig struct {
	// SigningKey signs the cookie. An empty key yields a process-ephemeral one.
	SigningKey string
	// Secure marks cookies Secure (prod).
	Secure bool
	Logger *zap.Logger
}

type sessionCodec struct {
	key    []byte
	secure bool
}

// Session loads or initializes the visitor session and stores it in the request context.
func Session(cfg SessionConfig) func(http.Handler) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	codec := sessionCodec{key: []byte(cfg.SigningKey), secure: cfg.Secure}
	if len(codec.key) == 0 {
		codec.key = make([]byte, 32)
		if _, err := rand.Read(codec.key); err != nil {
			logger.Error("session: failed to generate signing key", zap.Error(err))
			codec.key = []byte("insecure-dev-key-please-set-CAFE_WEB_SESSION_SIGNING_KEY")
		}
		logger.Warn("session: using ephemeral signing key; set CAFE_WEB_SESSION_SIGNING_KEY for production")
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sd, fromCookie := codec.read(r)
			if sd.ID == "" {
				now := time.Now().UTC()
				sd = &SessionData{
					ID:        newSessionID(),
					CSRFToken: newCSRFToken(),
					CreatedAt: now,
					UpdatedAt: now,
					dirty:     true,
				}
			}
			sw := &sessionWriter{ResponseWriter: w}
			sw.before = func() {
				if sd.dirty || !fromCookie {
					codec.write(w, sd)
				}
			}
			next.ServeHTTP(sw, r.WithContext(WithSession(r.Context(), sd)))
			// nothing written (e.g. HEAD): persist now
			sw.flushCookie()
		})
	}
}

// GetSession returns session data from context, or an empty session.
func GetSession(r *http.Request) *SessionData {
	if sd, ok := r.Context().Value(ctxKeySession).(*SessionData); ok && sd != nil {
		return sd
	}
	return &SessionData{}
}

// MarkDirty flags the session for writing at end of request.
func (s *SessionData) MarkDirty() { s.dirty = true; s.UpdatedAt = time.Now().UTC() }

func (c sessionCodec) read(r *http.Request) (*SessionData, bool) {
	ck, err := r.Cookie(sessionCookieName)
	if err != nil || ck.Value == "" {
		return &SessionData{}, false
	}
	payloadPart, sigPart, ok := strings.Cut(ck.Value, ".")
	if !ok {
		return &SessionData{}, false
	}
	payload, err := base64.RawURLEncoding.DecodeString(payloadPart)
	if err != nil {
		return &SessionData{}, false
	}
	sig, err := base64.RawURLEncoding.DecodeString(sigPart)
	if err != nil {
		return &SessionData{}, false
	}
	if !hmac.Equal(sig, c.sign(payload)) {
		return &SessionData{}, false
	}
	var sd SessionData
	if err := json.Unmarshal(payload, &sd); err != nil {
		return &SessionData{}, false
	}
	if _, err := ulid.ParseStrict(sd.ID); err != nil {
		return &SessionData{}, false
	}
	return &sd, true
}

func (c sessionCodec) write(w http.ResponseWriter, sd *SessionData) {
	b, _ := json.Marshal(sd)
	val := base64.RawURLEncoding.EncodeToString(b) + "." + base64.RawURLEncoding.EncodeToString(c.sign(b))
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    val,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(sessionMaxAge),
	})
}

func (c sessionCodec) sign(payload []byte) []byte {
	mac := hmac.New(sha256.New, c.key)
	mac.Write(payload)
	return mac.Sum(nil)
}

func newSessionID() string {
	return ulid.Make().String()
}

// sessionWriter sets the session cookie right before the first byte goes out.
type sessionWriter struct {
	http.ResponseWriter
	once   sync.Once
	before func()
}

func (w *sessionWriter) flushCookie() { w.once.Do(w.before) }

func (w *sessionWriter) WriteHeader(code int) {
	w.flushCookie()
	w.ResponseWriter.WriteHeader(code)
}

func (w *sessionWriter) Write(b []byte) (int, error) {
	w.flushCookie()
	return w.ResponseWriter.Write(b)
}

func (w *sessionWriter) Flush() {
	w.flushCookie()
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
