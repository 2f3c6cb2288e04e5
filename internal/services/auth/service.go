package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	jwt "github.com/form3tech-oss/jwt-go"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/partyroom/internal/dependencies/clock"
	"github.com/mcoot/partyroom/internal/model"
	"github.com/mcoot/partyroom/internal/storage"
)

// Session is an issued credential together with the player it identifies
type Session struct {
	Token     string
	PlayerID  model.ParticipantID
	Player    model.Player
	ExpiresAt time.Time
}

// Credentials identify a registered player
type Credentials struct {
	Username string
	Password string
}

func (c Credentials) normalize() (Credentials, error) {
	c.Username = strings.TrimSpace(c.Username)
	if c.Username == "" || c.Password == "" {
		return c, model.ErrCredentialsEmpty
	}
	return c, nil
}

// displayName trims name, falling back to fallback when it is blank
func displayName(name, fallback string) (string, error) {
	if name = strings.TrimSpace(name); name == "" {
		name = fallback
	}
	if name == "" {
		return "", model.ErrDisplayNameEmpty
	}
	return name, nil
}

// Config holds configuration for the auth service
type Config struct {
	// Secret signs issued tokens. A random secret is generated when empty,
	// which invalidates tokens on restart.
	Secret   []byte
	Issuer   string
	TokenTTL time.Duration
}

// DefaultConfig returns default auth configuration
func DefaultConfig() Config {
	return Config{
		Issuer:   "partyroom",
		TokenTTL: 24 * time.Hour,
	}
}

// Service issues and verifies signed participant tokens
type Service struct {
	storage storage.Storage
	clock   clock.Clock
	cfg     Config
	logger  *slog.Logger
}

// New creates a new auth service
func New(storage storage.Storage, clock clock.Clock, cfg Config, logger *slog.Logger) *Service {
	defaults := DefaultConfig()
	if cfg.TokenTTL == 0 {
		cfg.TokenTTL = defaults.TokenTTL
	}
	if cfg.Issuer == "" {
		cfg.Issuer = defaults.Issuer
	}
	if len(cfg.Secret) == 0 {
		cfg.Secret = make([]byte, 32)
		_, _ = rand.Read(cfg.Secret)
	}
	return &Service{
		storage: storage,
		clock:   clock,
		cfg:     cfg,
		logger:  logger.With(slog.String("component", "auth")),
	}
}

// CreateGuestPlayer creates an anonymous player and issues a token
func (s *Service) CreateGuestPlayer(ctx context.Context, name string) (*Session, error) {
	name, err := displayName(name, "")
	if err != nil {
		return nil, err
	}
	player := &model.Player{
		ID:          model.ParticipantID(uuid.NewString()),
		DisplayName: name,
		IsGuest:     true,
		CreatedAt:   s.clock.Now(),
	}

	if err := s.storage.SavePlayer(ctx, player); err != nil {
		return nil, fmt.Errorf("save guest player: %w", err)
	}

	s.logger.Info("guest player created", slog.String("player_id", string(player.ID)))
	return s.issue(player)
}

// RegisterPlayer creates a registered player account and issues a token.
// A blank name defaults to the username.
func (s *Service) RegisterPlayer(ctx context.Context, creds Credentials, name string) (*Session, error) {
	creds, err := creds.normalize()
	if err != nil {
		return nil, err
	}
	if name, err = displayName(name, creds.Username); err != nil {
		return nil, err
	}

	_, err = s.storage.GetRegisteredPlayerByUsername(ctx, creds.Username)
	if err == nil {
		return nil, model.ErrUsernameTaken
	}
	if !errors.Is(err, model.ErrPlayerNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(creds.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.clock.Now()
	player := &model.Player{
		ID:          model.ParticipantID(uuid.NewString()),
		DisplayName: name,
		CreatedAt:   now,
	}

	registered := &model.RegisteredPlayer{
		PlayerID:     player.ID,
		Username:     creds.Username,
		PasswordHash: string(hash),
		CreatedAt:    now,
	}

	if err := s.storage.SaveRegisteredPlayer(ctx, registered); err != nil {
		return nil, err
	}
	if err := s.storage.SavePlayer(ctx, player); err != nil {
		return nil, fmt.Errorf("save player: %w", err)
	}

	s.logger.Info("player registered",
		slog.String("player_id", string(player.ID)),
		slog.String("username", creds.Username),
	)
	return s.issue(player)
}

// Login authenticates a registered player and issues a token
func (s *Service) Login(ctx context.Context, creds Credentials) (*Session, error) {
	creds, err := creds.normalize()
	if err != nil {
		return nil, err
	}
	rp, err := s.storage.GetRegisteredPlayerByUsername(ctx, creds.Username)
	if err != nil {
		if errors.Is(err, model.ErrPlayerNotFound) {
			return nil, model.ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(rp.PasswordHash), []byte(creds.Password)); err != nil {
		return nil, model.ErrInvalidCredentials
	}

	player, err := s.storage.GetPlayer(ctx, rp.PlayerID)
	if err != nil {
		return nil, err
	}

	return s.issue(player)
}

// Verify checks a token's signature and expiry and returns the participant it names
func (s *Service) Verify(ctx context.Context, token string) (model.ParticipantID, error) {
	if token == "" {
		return "", model.ErrInvalidToken
	}

	// Expiry is checked against the injected clock rather than by the parser
	parser := &jwt.Parser{SkipClaimsValidation: true}
	parsed, err := parser.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.cfg.Secret, nil
	})
	if err != nil || !parsed.Valid {
		return "", model.ErrInvalidToken
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", model.ErrInvalidToken
	}
	if !claims.VerifyExpiresAt(s.clock.Now().Unix(), true) {
		return "", model.ErrInvalidToken
	}
	if !claims.VerifyIssuer(s.cfg.Issuer, true) {
		return "", model.ErrInvalidToken
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", model.ErrInvalidToken
	}
	return model.ParticipantID(sub), nil
}

// GetPlayer returns the player named by a token
func (s *Service) GetPlayer(ctx context.Context, token string) (*model.Player, error) {
	id, err := s.Verify(ctx, token)
	if err != nil {
		return nil, err
	}
	player, err := s.storage.GetPlayer(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrPlayerNotFound) {
			return nil, model.ErrInvalidToken
		}
		return nil, err
	}
	return player, nil
}

// issue signs a token for player
func (s *Service) issue(player *model.Player) (*Session, error) {
	now := s.clock.Now()
	expiresAt := now.Add(s.cfg.TokenTTL)

	claims := jwt.MapClaims{
		"iss":  s.cfg.Issuer,
		"sub":  string(player.ID),
		"name": player.DisplayName,
		"iat":  now.Unix(),
		"exp":  expiresAt.Unix(),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.cfg.Secret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	return &Session{
		Token:     token,
		PlayerID:  player.ID,
		Player:    *player,
		ExpiresAt: expiresAt,
	}, nil
}
