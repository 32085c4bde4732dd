package rest

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/lumachat/chatcore/internal/domain"
	"github.com/lumachat/chatcore/internal/protocol"
	"github.com/lumachat/chatcore/internal/repository"
	"github.com/lumachat/chatcore/internal/state"
)

// ErrValidation marks requests rejected locally before any network call.
var ErrValidation = errors.New("validation failed")

// AuthService wraps the auth endpoints and keeps the state store and the
// persisted session snapshot in step with login, logout and restore.
type AuthService struct {
	client   *Client
	store    *state.Store
	sessions repository.SessionRepository
	log      zerolog.Logger
}

func NewAuthService(client *Client, store *state.Store, sessions repository.SessionRepository, log zerolog.Logger) *AuthService {
	return &AuthService{
		client:   client,
		store:    store,
		sessions: sessions,
		log:      log,
	}
}

func (s *AuthService) Register(ctx context.Context, username, password, phone string) error {
	if username == "" || password == "" {
		return fmt.Errorf("%w: username and password are required", ErrValidation)
	}
	return s.client.post(ctx, "auth/register", protocol.RegisterRequest{
		Username: username,
		Password: password,
		Phone:    phone,
	}, nil)
}

func (s *AuthService) Login(ctx context.Context, username, password string) (*domain.User, error) {
	if username == "" || password == "" {
		return nil, fmt.Errorf("%w: username and password are required", ErrValidation)
	}

	var payload protocol.LoginPayload
	if err := s.client.post(ctx, "auth/login", protocol.LoginRequest{
		Username: username,
		Password: password,
	}, &payload); err != nil {
		return nil, err
	}

	user := domain.NewUser(payload.User)
	s.store.SetCurrentUser(user)
	s.store.SetToken(payload.AccessToken)
	s.saveSnapshot(ctx)
	return user, nil
}

// Logout posts to the server best-effort, then always clears local session
// state and the persisted snapshot.
func (s *AuthService) Logout(ctx context.Context) {
	if err := s.client.post(ctx, "auth/logout", nil, nil); err != nil {
		s.log.Warn().Err(err).Msg("logout request failed")
	}
	s.store.Clear()
	if err := s.sessions.Clear(ctx); err != nil {
		s.log.Warn().Err(err).Msg("failed to clear session snapshot")
	}
}

func (s *AuthService) Me(ctx context.Context) (*domain.User, error) {
	var payload protocol.UserPayload
	if err := s.client.get(ctx, "auth/me", &payload); err != nil {
		return nil, err
	}
	user := domain.NewUser(payload)
	s.store.SetCurrentUser(user)
	s.saveSnapshot(ctx)
	return user, nil
}

// RestoreSession attempts a silent restore from the persisted snapshot. A
// missing snapshot or a rejected token yields (nil, nil) with local state
// cleared; the caller falls through to interactive login.
func (s *AuthService) RestoreSession(ctx context.Context) (*domain.User, error) {
	sess, err := s.sessions.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load session snapshot: %w", err)
	}
	if !sess.Authenticated() {
		return nil, nil
	}

	s.store.SetToken(sess.Token)
	s.store.SetCurrentUser(sess.User)

	user, err := s.Me(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("session restore rejected")
		s.store.Clear()
		if clearErr := s.sessions.Clear(ctx); clearErr != nil {
			s.log.Warn().Err(clearErr).Msg("failed to clear session snapshot")
		}
		return nil, nil
	}
	return user, nil
}

func (s *AuthService) saveSnapshot(ctx context.Context) {
	sess := s.store.Session()
	if !sess.Authenticated() {
		return
	}
	if err := s.sessions.Save(ctx, sess); err != nil {
		s.log.Warn().Err(err).Msg("failed to persist session snapshot")
	}
}
