// Package sessionstore persists the signed-in identity and bearer token
// between process runs.
package sessionstore

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/lapmarkt/lapcli/internal/model"
)

const (
	sessionFile = "session.json"
	// Legacy file names written by earlier client versions. Clear removes
	// them too so a stale token cannot survive a logout.
	legacyTokenFile = "token.json"
	legacyUserFile  = "user.json"
	legacyFlagFile  = "logged_in"
)

type sessionRecord struct {
	User      *model.User `json:"user"`
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// Store reads and writes the session file under a config directory.
type Store struct {
	dir    string
	logger *zap.Logger
}

// New constructs a Store rooted at dir.
func New(dir string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{dir: dir, logger: logger}
}

// Save persists user and token together. The write goes through a temp file
// and rename so no reader observes user-without-token or a torn record.
func (s *Store) Save(user *model.User, token string) error {
	if user == nil || token == "" {
		return errors.New("sessionstore: user and token are both required")
	}
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return err
	}
	rec := sessionRecord{User: user, Token: token, ExpiresAt: tokenExpiry(token)}
	b, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.dir, sessionFile+".*")
	if err != nil {
		return err
	}
	name := tmp.Name()
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(name)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return err
	}
	if err := os.Chmod(name, 0o600); err != nil {
		os.Remove(name)
		return err
	}
	return os.Rename(name, filepath.Join(s.dir, sessionFile))
}

// Load returns the persisted session, or an empty session when nothing is
// stored. Corrupt data is logged and treated as logged-out; Load never
// returns an error for bad content, only for I/O problems other than
// missing files.
func (s *Store) Load() (model.Session, error) {
	b, err := os.ReadFile(filepath.Join(s.dir, sessionFile))
	switch {
	case err == nil:
		var rec sessionRecord
		if jerr := json.Unmarshal(b, &rec); jerr != nil {
			s.logger.Warn("corrupt session file, treating as logged out", zap.Error(jerr))
			return model.Session{}, nil
		}
		if rec.User == nil || rec.Token == "" {
			return model.Session{}, nil
		}
		if !rec.ExpiresAt.IsZero() && time.Now().After(rec.ExpiresAt) {
			s.logger.Warn("persisted token is past its expiry",
				zap.Time("expires_at", rec.ExpiresAt))
		}
		return model.Session{User: rec.User, Token: rec.Token, ExpiresAt: rec.ExpiresAt}, nil
	case os.IsNotExist(err):
		return s.loadLegacy()
	default:
		return model.Session{}, err
	}
}

// loadLegacy reads the split user/token files written by earlier versions.
func (s *Store) loadLegacy() (model.Session, error) {
	tb, err := os.ReadFile(filepath.Join(s.dir, legacyTokenFile))
	if err != nil {
		return model.Session{}, nil
	}
	var tf struct {
		AccessToken string    `json:"access_token"`
		ExpiresAt   time.Time `json:"expires_at"`
	}
	if err := json.Unmarshal(tb, &tf); err != nil || tf.AccessToken == "" {
		s.logger.Warn("corrupt legacy token file, treating as logged out", zap.Error(err))
		return model.Session{}, nil
	}
	ub, err := os.ReadFile(filepath.Join(s.dir, legacyUserFile))
	if err != nil {
		return model.Session{}, nil
	}
	var u model.User
	if err := json.Unmarshal(ub, &u); err != nil {
		s.logger.Warn("corrupt legacy user file, treating as logged out", zap.Error(err))
		return model.Session{}, nil
	}
	return model.Session{User: &u, Token: tf.AccessToken, ExpiresAt: tf.ExpiresAt}, nil
}

// Clear removes every session-related file, current and legacy. Missing
// files are not an error, so Clear is idempotent.
func (s *Store) Clear() error {
	var firstErr error
	for _, name := range []string{sessionFile, legacyTokenFile, legacyUserFile, legacyFlagFile} {
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !os.IsNotExist(err) {
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// tokenExpiry extracts the exp claim without validating the signature; the
// client has no verification key and only needs the timestamp for
// diagnostics.
func tokenExpiry(token string) time.Time {
	var claims jwt.RegisteredClaims
	_, _ = jwt.ParseWithClaims(token, &claims,
		func(*jwt.Token) (any, error) { return nil, nil },
		jwt.WithoutClaimsValidation(),
	)
	if claims.ExpiresAt != nil {
		return claims.ExpiresAt.Time
	}
	return time.Time{}
}
