package auth

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meng-clb/paste/internal/storage"
)

type memKV struct {
	values map[string]string
}

func newMemKV() *memKV {
	return &memKV{values: make(map[string]string)}
}

func (m *memKV) Get(ctx context.Context, key string) (string, error) {
	v, ok := m.values[key]
	if !ok {
		return "", storage.ErrKeyNotFound
	}
	return v, nil
}

func (m *memKV) Put(ctx context.Context, key, value string) error {
	m.values[key] = value
	return nil
}

func (m *memKV) Delete(ctx context.Context, key string) error {
	delete(m.values, key)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func makeToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-key"))
	require.NoError(t, err)
	return token
}

func TestSignIn_ExtractsClaims(t *testing.T) {
	s := NewService(context.Background(), newMemKV(), testLogger())

	token := makeToken(t, jwt.MapClaims{"sub": "uid-1", "email": "a@b.c"})
	id, err := s.SignIn(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "uid-1", id.UID)
	assert.Equal(t, "a@b.c", id.Email)

	current := s.Current()
	require.NotNil(t, current)
	assert.Equal(t, "uid-1", current.UID)
}

func TestSignIn_UserIDClaimFallback(t *testing.T) {
	s := NewService(context.Background(), newMemKV(), testLogger())

	token := makeToken(t, jwt.MapClaims{"user_id": "uid-2"})
	id, err := s.SignIn(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "uid-2", id.UID)
	assert.Empty(t, id.Email)
}

func TestSignIn_Rejects(t *testing.T) {
	s := NewService(context.Background(), newMemKV(), testLogger())
	ctx := context.Background()

	_, err := s.SignIn(ctx, "not a token")
	assert.Error(t, err)

	// токен без subject
	_, err = s.SignIn(ctx, makeToken(t, jwt.MapClaims{"email": "a@b.c"}))
	assert.Error(t, err)

	// истёкший токен
	expired := makeToken(t, jwt.MapClaims{
		"sub": "uid-1",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
	_, err = s.SignIn(ctx, expired)
	assert.Error(t, err)

	assert.Nil(t, s.Current())
}

func TestRestore_FromStoredSession(t *testing.T) {
	kv := newMemKV()
	ctx := context.Background()

	first := NewService(ctx, kv, testLogger())
	_, err := first.SignIn(ctx, makeToken(t, jwt.MapClaims{"sub": "uid-1", "email": "a@b.c"}))
	require.NoError(t, err)

	// Новый сервис над тем же хранилищем восстанавливает сессию
	second := NewService(ctx, kv, testLogger())
	current := second.Current()
	require.NotNil(t, current)
	assert.Equal(t, "uid-1", current.UID)
}

func TestRestore_DropsExpiredSession(t *testing.T) {
	kv := newMemKV()
	kv.values[sessionKey] = makeToken(t, jwt.MapClaims{
		"sub": "uid-1",
		"exp": time.Now().Add(-time.Minute).Unix(),
	})

	s := NewService(context.Background(), kv, testLogger())
	assert.Nil(t, s.Current())
	// испорченная сессия удаляется из хранилища
	_, ok := kv.values[sessionKey]
	assert.False(t, ok)
}

func TestSubscribe_ReplayAndChanges(t *testing.T) {
	s := NewService(context.Background(), newMemKV(), testLogger())
	ctx := context.Background()

	var seen []*Identity
	cancel := s.Subscribe(func(id *Identity) {
		seen = append(seen, id)
	})

	// немедленный повтор текущего значения
	require.Len(t, seen, 1)
	assert.Nil(t, seen[0])

	_, err := s.SignIn(ctx, makeToken(t, jwt.MapClaims{"sub": "uid-1"}))
	require.NoError(t, err)
	require.Len(t, seen, 2)
	assert.Equal(t, "uid-1", seen[1].UID)

	require.NoError(t, s.SignOut(ctx))
	require.Len(t, seen, 3)
	assert.Nil(t, seen[2])

	// после отписки изменения не доставляются
	cancel()
	cancel() // повторная отписка безопасна
	_, err = s.SignIn(ctx, makeToken(t, jwt.MapClaims{"sub": "uid-2"}))
	require.NoError(t, err)
	assert.Len(t, seen, 3)
}

func TestSignOut_ClearsSession(t *testing.T) {
	kv := newMemKV()
	ctx := context.Background()

	s := NewService(ctx, kv, testLogger())
	_, err := s.SignIn(ctx, makeToken(t, jwt.MapClaims{"sub": "uid-1"}))
	require.NoError(t, err)

	require.NoError(t, s.SignOut(ctx))
	assert.Nil(t, s.Current())
	_, ok := kv.values[sessionKey]
	assert.False(t, ok)
}
