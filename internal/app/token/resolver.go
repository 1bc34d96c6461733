// Package token resolves tags to tokens and tracks the token lifecycle.
package token

import (
	"context"
	"strings"

	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/tagbox/internal/app/reader"
	"github.com/osa030/tagbox/internal/domain/tag"
)

// Poller is the tag reader used by the resolver.
type Poller interface {
	PollOnce(previous tag.UID) reader.Outcome
}

// Validator decides whether a token names a playlist. ctx bounds any
// lookup work the validator does on a miss.
type Validator interface {
	IsValid(ctx context.Context, token string) bool
}

// EnableSource reports the state of the optional enable input.
type EnableSource interface {
	Enabled() bool
}

// Override maps a UID to a token and playback parameters.
type Override struct {
	Name    string // Empty keeps the text stored on the tag
	Volume  int    // 0-100
	Shuffle bool
}

// Config holds resolver configuration.
type Config struct {
	ToleratedFailures int                 // Consecutive failed reads ignored while a tag is present
	Overrides         map[string]Override // Keyed by tag.UID.Key()
}

// Resolver owns the current UID/token state. It performs exactly one poll
// per Update call.
type Resolver struct {
	poller    Poller
	validator Validator
	enable    EnableSource
	config    Config

	uid    tag.UID
	token  string
	params Params
	valid  bool
	budget int
}

// New creates a new Resolver. enable may be nil.
func New(poller Poller, validator Validator, enable EnableSource, config Config) *Resolver {
	if config.ToleratedFailures < 0 {
		config.ToleratedFailures = 0
	}
	return &Resolver{
		poller:    poller,
		validator: validator,
		enable:    enable,
		config:    config,
		params:    DefaultParams(),
		budget:    config.ToleratedFailures,
	}
}

// Update polls the reader once and returns the resulting token event.
// ctx bounds the validity check of a newly presented token.
func (r *Resolver) Update(ctx context.Context) Event {
	lastUID := r.uid
	lastToken := r.token
	lastValid := r.valid

	if r.enable != nil && !r.enable.Enabled() {
		if lastUID.IsZero() {
			return Event{Type: EventUnchanged}
		}
		zlog.Info().Msg("token: enable input went low")
		r.clear()
		return Event{Type: EventDisabled, WasValid: lastValid, PrevToken: lastToken}
	}

	out := r.poller.PollOnce(lastUID)

	if !out.Succeeded() {
		if !lastUID.IsZero() && r.budget > 0 {
			r.budget--
			zlog.Debug().Msgf("token: read failure tolerated: remaining=%d kind=%s", r.budget, out.Kind)
			return Event{Type: EventUnchanged}
		}
		r.clear()
		if lastUID.IsZero() {
			return Event{Type: EventUnchanged}
		}
		zlog.Info().Msgf("token: removed: token=%q uid=%s", lastToken, lastUID)
		return Event{Type: EventRemoved, WasValid: lastValid, PrevToken: lastToken}
	}

	r.budget = r.config.ToleratedFailures

	if out.Kind == reader.OutcomeSameTag || out.UID.Equal(lastUID) {
		return Event{Type: EventUnchanged}
	}

	r.uid = out.UID.Clone()
	r.token = out.Text
	r.params = DefaultParams()
	r.applyOverride()
	r.valid = r.isValid(ctx, r.token)

	ev := Event{
		Token:     r.token,
		UID:       r.uid,
		Params:    r.params,
		Valid:     r.valid,
		WasValid:  lastValid,
		PrevToken: lastToken,
	}
	if lastUID.IsZero() {
		ev.Type = EventArrived
	} else {
		ev.Type = EventSwapped
	}

	zlog.Info().Msgf("token: %s: token=%q uid=%s valid=%t", ev.Type, r.token, r.uid, r.valid)
	return ev
}

// Current returns the active UID, token and parameters.
func (r *Resolver) Current() (tag.UID, string, Params) {
	return r.uid, r.token, r.params
}

// applyOverride replaces the token and parameters when the UID is configured.
func (r *Resolver) applyOverride() {
	ov, ok := r.config.Overrides[r.uid.Key()]
	if !ok {
		return
	}
	if ov.Name != "" {
		r.token = ov.Name
	}
	r.params = Params{Volume: ov.Volume, Shuffle: ov.Shuffle}
	zlog.Debug().Msgf("token: override applied: key=%s token=%q volume=%d shuffle=%t",
		r.uid.Key(), r.token, ov.Volume, ov.Shuffle)
}

func (r *Resolver) isValid(ctx context.Context, token string) bool {
	if strings.TrimSpace(token) == "" || r.validator == nil {
		return false
	}
	return r.validator.IsValid(ctx, token)
}

func (r *Resolver) clear() {
	r.uid = nil
	r.token = ""
	r.params = DefaultParams()
	r.valid = false
}
