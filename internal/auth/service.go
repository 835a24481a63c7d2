package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/meng-clb/paste/internal/storage"
)

// sessionKey is the fixed KV key the session token is stored under
const sessionKey = "session_token"

// Service implements SignInOut over a KV-backed session.
// The token is parsed without signature verification: claims extraction
// only, verification belongs to the external auth protocol.
type Service struct {
	kv     storage.KVStore
	logger *slog.Logger
	now    func() time.Time

	mu      sync.Mutex
	current *Identity
	subs    map[int]func(*Identity)
	nextSub int
}

// Compile-time check that Service implements SignInOut
var _ SignInOut = (*Service)(nil)

// NewService creates the identity provider and restores any persisted
// session. A broken or expired stored token degrades to signed-out.
func NewService(ctx context.Context, kv storage.KVStore, logger *slog.Logger) *Service {
	s := &Service{
		kv:     kv,
		logger: logger,
		now:    time.Now,
		subs:   make(map[int]func(*Identity)),
	}
	s.restore(ctx)
	return s
}

// restore загружает сохранённую сессию, если она есть и не истекла
func (s *Service) restore(ctx context.Context) {
	token, err := s.kv.Get(ctx, sessionKey)
	if err != nil {
		if !errors.Is(err, storage.ErrKeyNotFound) {
			s.logger.Warn("failed to read stored session", "error", err)
		}
		return
	}

	identity, err := s.parseToken(token)
	if err != nil {
		s.logger.Warn("stored session is not usable, signing out", "error", err)
		if err := s.kv.Delete(ctx, sessionKey); err != nil {
			s.logger.Warn("failed to drop stale session", "error", err)
		}
		return
	}

	s.current = identity
	s.logger.Info("restored session", "uid", identity.UID)
}

// Current returns the identity at this moment, or nil when signed out
func (s *Service) Current() *Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneIdentity(s.current)
}

// Subscribe registers fn and replays the current value immediately
func (s *Service) Subscribe(fn func(*Identity)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	current := cloneIdentity(s.current)
	s.mu.Unlock()

	fn(current)

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

// SignIn installs a session from a bearer token
func (s *Service) SignIn(ctx context.Context, token string) (*Identity, error) {
	identity, err := s.parseToken(token)
	if err != nil {
		return nil, err
	}

	if err := s.kv.Put(ctx, sessionKey, token); err != nil {
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}

	s.setCurrent(identity)
	s.logger.Info("signed in", "uid", identity.UID)
	return cloneIdentity(identity), nil
}

// SignOut clears the session
func (s *Service) SignOut(ctx context.Context) error {
	if err := s.kv.Delete(ctx, sessionKey); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}

	s.setCurrent(nil)
	s.logger.Info("signed out")
	return nil
}

// setCurrent заменяет текущую identity и уведомляет подписчиков
// ровно один раз на изменение
func (s *Service) setCurrent(identity *Identity) {
	s.mu.Lock()
	s.current = identity
	subs := make([]func(*Identity), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	// колбэки вызываются без удержания мьютекса
	for _, fn := range subs {
		fn(cloneIdentity(identity))
	}
}

// parseToken extracts uid and email claims without verifying the signature
func (s *Service) parseToken(token string) (*Identity, error) {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("unexpected claims type %T", parsed.Claims)
	}

	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil && exp.Before(s.now()) {
		return nil, fmt.Errorf("token expired at %s", exp.Format(time.RFC3339))
	}

	uid, _ := claims.GetSubject()
	if uid == "" {
		if v, ok := claims["user_id"].(string); ok {
			uid = v
		}
	}
	if uid == "" {
		return nil, fmt.Errorf("token has no subject claim")
	}

	email, _ := claims["email"].(string)

	return &Identity{UID: uid, Email: email}, nil
}

func cloneIdentity(id *Identity) *Identity {
	if id == nil {
		return nil
	}
	c := *id
	return &c
}
