package apiclient

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"wishlist-service/internal/dto"
)

// TokenStore хранит access-токен между запусками.
type TokenStore interface {
	Load() (string, error)
	Save(token string) error
	Clear() error
}

// FileTokenStore хранит токен в файле с правами 0600.
type FileTokenStore struct {
	Path string
}

func (s FileTokenStore) Load() (string, error) {
	raw, err := os.ReadFile(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(raw)), nil
}

func (s FileTokenStore) Save(token string) error {
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(s.Path, []byte(token), 0o600)
}

func (s FileTokenStore) Clear() error {
	err := os.Remove(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// Session: явная сессия пользователя поверх Client.
type Session struct {
	client *Client
	store  TokenStore

	mu   sync.RWMutex
	user *dto.UserResponse
}

func NewSession(client *Client, store TokenStore) *Session {
	return &Session{client: client, store: store}
}

// Bootstrap поднимает сохранённый токен и проверяет его через /api/auth/me.
// Отвергнутый сервером токен удаляется; (nil, nil) означает гостя.
func (s *Session) Bootstrap(ctx context.Context) (*dto.UserResponse, error) {
	token, err := s.store.Load()
	if err != nil {
		return nil, err
	}
	if token == "" {
		return nil, nil
	}

	s.client.SetToken(token)
	me, err := s.client.Me(ctx)
	if err != nil {
		if IsStatus(err, http.StatusUnauthorized) {
			s.client.SetToken("")
			return nil, s.store.Clear()
		}
		return nil, err
	}
	s.setUser(me)
	return me, nil
}

func (s *Session) Login(ctx context.Context, email, password string) (*dto.UserResponse, error) {
	res, err := s.client.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return s.persist(res)
}

func (s *Session) Register(ctx context.Context, email, username, password string) (*dto.UserResponse, error) {
	res, err := s.client.Register(ctx, dto.RegisterRequest{Email: email, Username: username, Password: password})
	if err != nil {
		return nil, err
	}
	return s.persist(res)
}

func (s *Session) Logout() error {
	s.client.SetToken("")
	s.setUser(nil)
	return s.store.Clear()
}

func (s *Session) User() *dto.UserResponse {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

func (s *Session) IsAuthenticated() bool {
	return s.User() != nil
}

func (s *Session) persist(res *dto.TokenResponse) (*dto.UserResponse, error) {
	if err := s.store.Save(res.AccessToken); err != nil {
		return nil, err
	}
	s.client.SetToken(res.AccessToken)
	user := res.User
	s.setUser(&user)
	return &user, nil
}

func (s *Session) setUser(u *dto.UserResponse) {
	s.mu.Lock()
	s.user = u
	s.mu.Unlock()
}
