package user

import (
	"fmt"
	"time"
)

// SyncPrefs are per-device synchronization preferences.
type SyncPrefs struct {
	AutoCatchUp    bool `json:"auto_catch_up"`
	WifiOnlyImages bool `json:"wifi_only_images"`
}

// Profile binds the logged-in user to the session token on this device.
// Exactly one profile row exists per logged-in device.
type Profile struct {
	userID       uint
	token        string
	refreshToken string
	prefs        SyncPrefs
	updatedAt    time.Time
}

func NewProfile(userID uint, token, refreshToken string) (*Profile, error) {
	if userID == 0 {
		return nil, fmt.Errorf("user ID is required")
	}
	if len(token) == 0 {
		return nil, fmt.Errorf("token is required")
	}

	return &Profile{
		userID:       userID,
		token:        token,
		refreshToken: refreshToken,
		prefs:        SyncPrefs{AutoCatchUp: true},
		updatedAt:    time.Now(),
	}, nil
}

func ReconstructProfile(userID uint, token, refreshToken string, prefs SyncPrefs, updatedAt time.Time) (*Profile, error) {
	if userID == 0 {
		return nil, fmt.Errorf("user ID cannot be zero")
	}

	return &Profile{
		userID:       userID,
		token:        token,
		refreshToken: refreshToken,
		prefs:        prefs,
		updatedAt:    updatedAt,
	}, nil
}

func (p *Profile) UserID() uint {
	return p.userID
}

func (p *Profile) Token() string {
	return p.token
}

func (p *Profile) RefreshToken() string {
	return p.refreshToken
}

func (p *Profile) Prefs() SyncPrefs {
	return p.prefs
}

func (p *Profile) UpdatedAt() time.Time {
	return p.updatedAt
}

// RotateToken stores a freshly issued credential pair.
func (p *Profile) RotateToken(token, refreshToken string) error {
	if len(token) == 0 {
		return fmt.Errorf("token cannot be empty")
	}
	p.token = token
	if len(refreshToken) > 0 {
		p.refreshToken = refreshToken
	}
	p.updatedAt = time.Now()
	return nil
}

func (p *Profile) SetPrefs(prefs SyncPrefs) {
	p.prefs = prefs
	p.updatedAt = time.Now()
}
