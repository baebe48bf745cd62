package api

import (
	"context"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/akvo/agriconnect-sub001/internal/domain/user"
	"github.com/akvo/agriconnect-sub001/internal/shared/logger"
)

// tokenExchanger is the slice of the API client the refresher needs.
type tokenExchanger interface {
	RefreshToken(ctx context.Context, refreshToken string) (*TokenPairDTO, error)
}

// Refresher hands out the device credential and rotates it proactively when
// it is close to expiry, so calls rarely hit a 401 in the first place.
type Refresher struct {
	exchanger tokenExchanger
	profiles  user.ProfileRepository
	leeway    time.Duration
	log       logger.Interface

	// mu serializes refreshes so concurrent callers cannot burn the same
	// refresh credential twice.
	mu sync.Mutex
}

func NewRefresher(exchanger tokenExchanger, profiles user.ProfileRepository, log logger.Interface) *Refresher {
	return &Refresher{
		exchanger: exchanger,
		profiles:  profiles,
		leeway:    time.Minute,
		log:       log.Named("api.refresher"),
	}
}

// AccessToken implements CredentialSource.
func (r *Refresher) AccessToken(ctx context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	profile, err := r.profiles.Get(ctx)
	if err != nil {
		return "", err
	}

	if !expiringSoon(profile.Token(), r.leeway) {
		return profile.Token(), nil
	}

	return r.rotate(ctx, profile)
}

// ForceRefresh rotates the credential regardless of expiry. The realtime
// client uses it after an auth rejection on the channel.
func (r *Refresher) ForceRefresh(ctx context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	profile, err := r.profiles.Get(ctx)
	if err != nil {
		return "", err
	}

	return r.rotate(ctx, profile)
}

func (r *Refresher) rotate(ctx context.Context, profile *user.Profile) (string, error) {
	r.log.Infow("rotating session credential", "user_id", profile.UserID())

	pair, err := r.exchanger.RefreshToken(ctx, profile.RefreshToken())
	if err != nil {
		r.log.Errorw("credential rotation failed", "error", err)
		return "", err
	}

	if err := profile.RotateToken(pair.Token, pair.RefreshToken); err != nil {
		return "", err
	}
	if err := r.profiles.Save(ctx, profile); err != nil {
		return "", err
	}

	return pair.Token, nil
}

// expiringSoon inspects the credential's exp claim without verifying the
// signature; verification belongs to the server.
func expiringSoon(token string, leeway time.Duration) bool {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		// Opaque tokens carry no expiry we can read; let the server decide.
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return time.Until(claims.ExpiresAt.Time) < leeway
}
