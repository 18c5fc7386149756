package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenStorage keeps the one-shot nonce handed out when a scan session
// starts. Implementations must be safe for concurrent use.
type TokenStorage interface {
	// StoreToken stores the nonce for the given session id. Storing over an
	// existing session just updates it.
	StoreToken(sessionId string, nonce string) error

	// RetrieveToken returns the nonce for the given session id, or an error
	// when there is none.
	RetrieveToken(sessionId string) (string, error)

	// RemoveToken removes the nonce. A missing value is an error too, so a
	// replayed session surfaces as a failure.
	RemoveToken(sessionId string) error
}

type InMemoryTokenStorage struct {
	TokenMap map[string]string
	mutex    sync.Mutex
}

func NewInMemoryTokenStorage() *InMemoryTokenStorage {
	return &InMemoryTokenStorage{
		TokenMap: make(map[string]string),
	}
}

type RedisTokenStorage struct {
	client    *redis.Client
	namespace string
}

func NewRedisTokenStorage(client *redis.Client, namespace string) *RedisTokenStorage {
	return &RedisTokenStorage{client: client, namespace: namespace}
}

// ------------------------------------------------------------------------------

func createKey(namespace, sessionId string) string {
	return fmt.Sprintf("%s:token:%s", namespace, sessionId)
}

// Sessions that were never completed expire on their own.
const Timeout time.Duration = 24 * time.Hour

func (s *RedisTokenStorage) StoreToken(sessionId string, nonce string) error {
	ctx := context.Background()
	return s.client.Set(ctx, createKey(s.namespace, sessionId), nonce, Timeout).Err()
}

func (s *RedisTokenStorage) RetrieveToken(sessionId string) (string, error) {
	ctx := context.Background()
	return s.client.Get(ctx, createKey(s.namespace, sessionId)).Result()
}

func (s *RedisTokenStorage) RemoveToken(sessionId string) error {
	ctx := context.Background()
	removed, err := s.client.Del(ctx, createKey(s.namespace, sessionId)).Result()
	if err != nil {
		return err
	}
	if removed == 0 {
		return fmt.Errorf("no token stored for session %s", sessionId)
	}
	return nil
}

// ------------------------------------------------------------------------------

func (s *InMemoryTokenStorage) StoreToken(sessionId, nonce string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.TokenMap[sessionId] = nonce
	return nil
}

func (s *InMemoryTokenStorage) RetrieveToken(sessionId string) (string, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if nonce, ok := s.TokenMap[sessionId]; ok {
		return nonce, nil
	}
	return "", fmt.Errorf("failed to find token for %s", sessionId)
}

func (s *InMemoryTokenStorage) RemoveToken(sessionId string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, ok := s.TokenMap[sessionId]; !ok {
		return fmt.Errorf("failed to remove token for %s, because it wasn't there", sessionId)
	}
	delete(s.TokenMap, sessionId)
	return nil
}
