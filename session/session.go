// Package session is the one place sessions and magic links live. Tokens
// are HS256 JWTs; magic-link keys are one-time values stored in Redis with
// a TTL. Components read the current identity through a typed accessor
// instead of pulling tokens out of ad-hoc storage keys.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/golang-jwt/jwt"
	"github.com/google/uuid"
)

const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"

	magicKeyPrefix = "magiclink:"
	localsKey      = "identity"
)

var (
	ErrBadMagicKey  = errors.New("your secure link expired, please request a new one")
	ErrInvalidToken = errors.New("invalid or expired session token")
)

// Identity is the typed view of "who is calling".
type Identity struct {
	Subject string // user uuid for customers, email for admins
	Role    string
}

type Session struct {
	Token     string    `json:"customer_token"`
	UserUUID  string    `json:"user_uuid"`
	ExpiresAt time.Time `json:"expires_at"`
}

type Store struct {
	rdb         *redis.Client
	secret      []byte
	customerTTL time.Duration
	adminTTL    time.Duration
	linkBase    string
	keyTTL      time.Duration
}

func NewStore(rdb *redis.Client, secret, linkBase string, customerTTL, adminTTL, keyTTL time.Duration) *Store {
	return &Store{
		rdb:         rdb,
		secret:      []byte(secret),
		customerTTL: customerTTL,
		adminTTL:    adminTTL,
		linkBase:    strings.TrimRight(linkBase, "/"),
		keyTTL:      keyTTL,
	}
}

// GenerateMagicLink mints a fresh one-time key for a customer and returns
// the shareable URL. Any previously issued key for the same customer stays
// valid until used or expired.
func (s *Store) GenerateMagicLink(ctx context.Context, userUUID string) (string, error) {
	if userUUID == "" {
		return "", errors.New("user_uuid is required")
	}
	key := uuid.NewString()
	if err := s.rdb.Set(ctx, magicKeyPrefix+key, userUUID, s.keyTTL).Err(); err != nil {
		return "", fmt.Errorf("store magic key: %w", err)
	}
	return fmt.Sprintf("%s/meal/%s?key=%s", s.linkBase, userUUID, key), nil
}

// RedeemMagicKey exchanges a link key for a customer session. The key is
// consumed on first use; the uuid in the link must match the stored one.
func (s *Store) RedeemMagicKey(ctx context.Context, userUUID, key string) (Session, error) {
	if key == "" {
		return Session{}, ErrBadMagicKey
	}
	stored, err := s.rdb.GetDel(ctx, magicKeyPrefix+key).Result()
	if err == redis.Nil {
		return Session{}, ErrBadMagicKey
	}
	if err != nil {
		return Session{}, fmt.Errorf("redeem magic key: %w", err)
	}
	if userUUID != "" && stored != userUUID {
		return Session{}, ErrBadMagicKey
	}

	expires := time.Now().Add(s.customerTTL)
	token, err := s.mint(stored, RoleCustomer, expires)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: token, UserUUID: stored, ExpiresAt: expires}, nil
}

// IssueAdminToken mints an admin session after the backend accepted the
// credentials.
func (s *Store) IssueAdminToken(email string) (string, time.Time, error) {
	expires := time.Now().Add(s.adminTTL)
	token, err := s.mint(email, RoleAdmin, expires)
	return token, expires, err
}

func (s *Store) mint(subject, role string, expires time.Time) (string, error) {
	claims := jwt.MapClaims{
		"sub":  subject,
		"role": role,
		"exp":  expires.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ParseToken validates a token and returns the identity inside it.
func (s *Store) ParseToken(tokenString string) (Identity, error) {
	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return Identity{}, ErrInvalidToken
	}
	sub, _ := claims["sub"].(string)
	role, _ := claims["role"].(string)
	if sub == "" || role == "" {
		return Identity{}, ErrInvalidToken
	}
	return Identity{Subject: sub, Role: role}, nil
}

// bearerToken reads the token from the Authorization header, falling back
// to ?token= for websocket upgrades.
func bearerToken(c *fiber.Ctx) string {
	header := c.Get(fiber.HeaderAuthorization)
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return c.Query("token")
}

func (s *Store) require(role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearerToken(c)
		if token == "" {
			return fiber.ErrUnauthorized
		}
		id, err := s.ParseToken(token)
		if err != nil {
			return fiber.ErrUnauthorized
		}
		if role != "" && id.Role != role {
			return fiber.ErrForbidden
		}
		c.Locals(localsKey, id)
		return c.Next()
	}
}

func (s *Store) RequireCustomer() fiber.Handler { return s.require(RoleCustomer) }
func (s *Store) RequireAdmin() fiber.Handler    { return s.require(RoleAdmin) }

// RequireAny admits both roles; admins may view customer pages.
func (s *Store) RequireAny() fiber.Handler { return s.require("") }

// From returns the identity the middleware stored on the request.
func From(c *fiber.Ctx) (Identity, bool) {
	id, ok := c.Locals(localsKey).(Identity)
	return id, ok
}

// FromConn returns the identity carried over onto an upgraded websocket
// connection.
func FromConn(c *websocket.Conn) (Identity, bool) {
	id, ok := c.Locals(localsKey).(Identity)
	return id, ok
}
