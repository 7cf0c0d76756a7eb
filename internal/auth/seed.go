package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
)

// seedPasswordBytes is the number of random bytes for a generated seed password.
const seedPasswordBytes = 16

// SeedAdmin creates the initial admin account on first boot if no users exist.
// If password is empty a random one is generated and logged once so the
// operator can log in; a configured password is never logged.
// Returns the generated password (empty string if seeding was skipped or the
// password came from configuration).
func SeedAdmin(ctx context.Context, userRepo UserRepository, username, password string, logger *slog.Logger) (string, error) {
	count, err := userRepo.Count(ctx)
	if err != nil {
		return "", fmt.Errorf("checking user count: %w", err)
	}

	if count > 0 {
		logger.Debug("users exist, skipping admin seed")
		return "", nil
	}

	if username == "" {
		username = "admin"
	}

	generated := ""
	if password == "" {
		passwordBytes := make([]byte, seedPasswordBytes)
		if _, err := rand.Read(passwordBytes); err != nil { //nolint:govet // shadow: err re-declared in nested scope
			return "", fmt.Errorf("generating seed password: %w", err)
		}
		generated = hex.EncodeToString(passwordBytes)
		password = generated
	}

	hash, err := HashPassword(password)
	if err != nil {
		return "", fmt.Errorf("hashing seed password: %w", err)
	}

	admin := &User{
		Username:     username,
		PasswordHash: hash,
		Role:         RoleAdmin,
	}

	if err := userRepo.Create(ctx, admin); err != nil {
		return "", fmt.Errorf("creating seed admin: %w", err)
	}

	if generated != "" {
		logger.Warn("seed admin account created",
			"username", username,
			"password", generated,
			"action_required", "change this password immediately",
		)
	} else {
		logger.Info("seed admin account created", "username", username)
	}

	return generated, nil
}

// Authenticate verifies a username and password against the user store.
// It returns ErrInvalidCredentials for both unknown users and wrong
// passwords so callers cannot distinguish the two.
func Authenticate(ctx context.Context, userRepo UserRepository, username, password string) (*User, error) {
	user, err := userRepo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("looking up user: %w", err)
	}

	ok, err := VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verifying password: %w", err)
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	if err := userRepo.UpdateLastLogin(ctx, user.ID); err != nil {
		return nil, fmt.Errorf("recording login: %w", err)
	}

	return user, nil
}
