// Package access resolves who a chat request acts for and applies the
// request rate guard before any retrieval happens.
package access

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/notebookrag/internal/model"
	appErr "github.com/xxxsen/notebookrag/internal/pkg/errors"
	"github.com/xxxsen/notebookrag/internal/ratelimit"
)

// Scope is the resolved identity of one request. Retrieval uses OwnerID and
// CollectionID; persisted rows are authored by ActorID.
type Scope struct {
	OwnerID      string
	CollectionID string
	ActorID      string
	Anonymous    bool
	ShareID      string
	ClientHash   string
}

type CollectionLookup interface {
	GetAccessible(ctx context.Context, userID, collectionID string) (*model.Collection, error)
}

type ShareValidator interface {
	ValidateShareToken(ctx context.Context, token string) (*model.ShareValidation, error)
}

type Limit struct {
	Requests int
	Window   time.Duration
}

type Config struct {
	Owner       Limit
	Share       Limit
	MinTokenLen int
	MaxTokenLen int
	AuditSalt   string
}

type RateLimitError struct {
	Scope      string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s rate limit exceeded, retry after %s", e.Scope, e.RetryAfter)
}

func (e *RateLimitError) Unwrap() error {
	return appErr.ErrTooMany
}

// RetryAfterSeconds rounds the hint up to whole seconds, at least one.
func (e *RateLimitError) RetryAfterSeconds() int {
	secs := int(math.Ceil(e.RetryAfter.Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}

type Gate struct {
	limiter     *ratelimit.Limiter
	collections CollectionLookup
	shares      ShareValidator
	cfg         Config
	hasher      *AddrHasher
}

func NewGate(limiter *ratelimit.Limiter, collections CollectionLookup, shares ShareValidator, cfg Config) *Gate {
	return &Gate{
		limiter:     limiter,
		collections: collections,
		shares:      shares,
		cfg:         cfg,
		hasher:      NewAddrHasher(cfg.AuditSalt),
	}
}

func OwnerKey(userID, op string) string {
	return "owner:" + userID + ":" + op
}

func ShareKey(clientHash, op string) string {
	return "share:" + clientHash + ":" + op
}

// ResolveOwner confirms that userID owns or is a member of collectionID.
// Unknown and foreign collections both report not found.
func (g *Gate) ResolveOwner(ctx context.Context, userID, collectionID, op string) (*Scope, error) {
	if userID == "" {
		return nil, appErr.ErrUnauthorized
	}
	key := OwnerKey(userID, op)
	if !g.limiter.Allow(key, g.cfg.Owner.Requests, g.cfg.Owner.Window) {
		logutil.GetLogger(ctx).Warn("owner rate limit hit", zap.String("user_id", userID), zap.String("op", op))
		retry := g.limiter.RetryAfter(key)
		if retry <= 0 {
			retry = g.cfg.Owner.Window
		}
		return nil, &RateLimitError{Scope: "owner", RetryAfter: retry}
	}
	if _, err := uuid.Parse(collectionID); err != nil {
		return nil, fmt.Errorf("collection id: %w", appErr.ErrInvalid)
	}
	coll, err := g.collections.GetAccessible(ctx, userID, collectionID)
	if err != nil {
		if appErr.IsNotFound(err) {
			return nil, appErr.ErrNotFound
		}
		return nil, fmt.Errorf("lookup collection: %w", err)
	}
	return &Scope{
		OwnerID:      coll.OwnerID,
		CollectionID: coll.ID,
		ActorID:      userID,
	}, nil
}

// ResolveShare validates an anonymous share token. Tokens that are malformed,
// unknown, revoked or expired all report not found. Only tokens carrying the
// chat permission consume rate limit quota.
func (g *Gate) ResolveShare(ctx context.Context, token, clientAddr, op string) (*Scope, error) {
	if len(token) < g.cfg.MinTokenLen || len(token) > g.cfg.MaxTokenLen {
		return nil, appErr.ErrNotFound
	}
	v, err := g.shares.ValidateShareToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("validate share token: %w", err)
	}
	if v == nil || !v.IsValid {
		return nil, appErr.ErrNotFound
	}
	if v.Permission != model.SharePermissionChat {
		return nil, appErr.ErrForbidden
	}
	clientHash := g.hasher.Hash(clientAddr)
	if !g.limiter.Allow(ShareKey(clientHash, op), g.cfg.Share.Requests, g.cfg.Share.Window) {
		logutil.GetLogger(ctx).Warn("share rate limit hit", zap.String("client_hash", clientHash), zap.String("op", op))
		return nil, &RateLimitError{Scope: "share", RetryAfter: g.cfg.Share.Window}
	}
	return &Scope{
		OwnerID:      v.OwnerID,
		CollectionID: v.CollectionID,
		ActorID:      v.OwnerID,
		Anonymous:    true,
		ShareID:      v.ShareID,
		ClientHash:   clientHash,
	}, nil
}
