package auth

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/mcoot/wsgate/internal/model"
	"github.com/mcoot/wsgate/internal/router"
)

// ErrBridgeClosed is returned for requests made after Close
var ErrBridgeClosed = errors.New("authentication bridge closed")

// Denial reasons sent to clients
const (
	ReasonInvalidCredentials = "invalid credentials"
	ReasonUnavailable        = "authentication unavailable"
)

// Bridge runs credential checks off the socket's read loop and reports the
// outcome back to the router
type Bridge struct {
	service *Service
	timeout time.Duration
	logger  *slog.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// Ensure Bridge implements router.Authenticator
var _ router.Authenticator = (*Bridge)(nil)

// NewBridge creates a Bridge around the auth service
func NewBridge(service *Service, cfg Config, logger *slog.Logger) *Bridge {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	return &Bridge{
		service: service,
		timeout: cfg.Timeout,
		logger:  logger.With(slog.String("component", "auth")),
	}
}

// RequestAuthentication starts verifying req and returns immediately
func (b *Bridge) RequestAuthentication(ctx context.Context, req model.AuthRequest, to router.GrantReceiver) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrBridgeClosed
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		// The login outlives the read that carried it
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), b.timeout)
		defer cancel()
		b.authenticate(ctx, req, to)
	}()
	return nil
}

func (b *Bridge) authenticate(ctx context.Context, req model.AuthRequest, to router.GrantReceiver) {
	identity, err := b.service.Authenticate(ctx, req.Username, req.Password, req.RequestedClientID)
	if err != nil {
		reason := ReasonUnavailable
		if errors.Is(err, ErrInvalidCredentials) {
			reason = ReasonInvalidCredentials
			b.logger.Info("authentication failed",
				slog.String("username", req.Username),
				slog.String("client_id", string(req.ClientID)))
		} else {
			b.logger.Error("authentication error",
				slog.String("username", req.Username),
				slog.Any("error", err))
		}
		to.Deny(ctx, &model.Denial{
			OriginatingClientID: req.ClientID,
			Socket:              req.Socket,
			Reason:              reason,
		})
		return
	}

	to.Grant(ctx, &model.Grant{
		Account:             identity.Account,
		Profile:             identity.Profile,
		ClientConfig:        identity.ClientConfig,
		UserID:              identity.Account.UUID,
		OriginatingClientID: req.ClientID,
		Socket:              req.Socket,
	})
}

// Close rejects new requests and waits for in-flight ones to finish
func (b *Bridge) Close() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	b.wg.Wait()
}
