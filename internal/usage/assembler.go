// Package usage runs the credential-to-snapshot pipeline for one refresh
// cycle.
package usage

import (
	"context"
	"log/slog"

	"github.com/coder/quartz"

	"github.com/zsprackett/cursor-usage/internal/cursorapi"
	"github.com/zsprackett/cursor-usage/internal/cursorauth"
)

// Messages shown to the user when a cycle stops early.
const (
	MsgNoToken    = "no access token: ensure Cursor is installed and you are signed in"
	MsgNoIdentity = "cannot extract user identity from token"
	MsgNoUsage    = "cannot retrieve usage data: check network connection"
	msgStoreError = "cannot read credential store: "
)

// TokenSource yields the raw access token. ok=false with a nil error means
// nobody is signed in.
type TokenSource interface {
	AccessToken(ctx context.Context) (token string, ok bool, err error)
}

// API is the remote side of the pipeline. Both calls return nil, nil when the
// server has no data for the session.
type API interface {
	Profile(ctx context.Context, s cursorauth.Session) (*cursorapi.Profile, error)
	Usage(ctx context.Context, s cursorauth.Session) (*cursorapi.ModelUsage, error)
}

// Assembler turns the stored token into a Snapshot. It never returns an
// error: every failure becomes Snapshot.Error.
type Assembler struct {
	tokens TokenSource
	api    API
	clock  quartz.Clock
	logger *slog.Logger
}

func NewAssembler(tokens TokenSource, api API, clock quartz.Clock, logger *slog.Logger) *Assembler {
	if clock == nil {
		clock = quartz.NewReal()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Assembler{tokens: tokens, api: api, clock: clock, logger: logger}
}

func (a *Assembler) Assemble(ctx context.Context) Snapshot {
	token, ok, err := a.tokens.AccessToken(ctx)
	if err != nil {
		a.logger.Warn("usage: credential store unreadable", "err", err)
		return a.fail(msgStoreError + err.Error())
	}
	if !ok {
		a.logger.Debug("usage: no access token")
		return a.fail(MsgNoToken)
	}

	userID, err := cursorauth.UserID(token)
	if err != nil {
		a.logger.Debug("usage: token decode failed", "err", err)
		return a.fail(MsgNoIdentity)
	}
	sess, ok := cursorauth.NewSession(token, userID)
	if !ok {
		return a.fail(MsgNoIdentity)
	}

	var snap Snapshot

	// Best-effort: the email is decoration.
	if profile, err := a.api.Profile(ctx, sess); err != nil {
		a.logger.Debug("usage: profile fetch failed", "err", err)
	} else if profile != nil {
		snap.Email = profile.Email
	}

	mu, err := a.api.Usage(ctx, sess)
	if err != nil {
		a.logger.Warn("usage: usage fetch failed", "err", err)
		return a.fail(MsgNoUsage)
	}
	if mu == nil {
		a.logger.Debug("usage: no usage data returned")
		return a.fail(MsgNoUsage)
	}

	snap.Used = mu.Requests()
	snap.Total = mu.RequestCap()
	snap.Percentage = Percent(snap.Used, snap.Total)
	snap.UpdatedAt = a.clock.Now("usage", "snapshot")
	return snap
}

func (a *Assembler) fail(msg string) Snapshot {
	return Failure(a.clock.Now("usage", "snapshot"), msg)
}
