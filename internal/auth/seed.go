package auth

import (
	"context"
	"fmt"
	"log/slog"
)

// SeedAdminUsername is the account created on first boot.
const SeedAdminUsername = "admin"

// SeedAdmin creates the initial administrator on first boot if no users
// exist. When password is empty a random one is generated and logged; it
// should be changed immediately.
// Returns the password used (empty string if seeding was skipped).
func SeedAdmin(ctx context.Context, users *Users, password string, logger *slog.Logger) (string, error) {
	count, err := users.Count(ctx)
	if err != nil {
		return "", fmt.Errorf("checking user count: %w", err)
	}

	if count > 0 {
		logger.Info("users exist, skipping admin seed")
		return "", nil
	}

	generated := password == ""
	if generated {
		if password, err = GeneratePassword(); err != nil {
			return "", fmt.Errorf("generating seed password: %w", err)
		}
	}

	admin, err := users.AddUser(ctx, SeedAdminUsername, password)
	if err != nil {
		return "", fmt.Errorf("creating seed admin: %w", err)
	}
	if _, err := users.SetPermission(ctx, admin.ID, PermissionAdmin); err != nil {
		return "", fmt.Errorf("granting seed admin: %w", err)
	}

	if generated {
		logger.Warn("seed admin account created",
			"username", SeedAdminUsername,
			"password", password,
			"action_required", "change this password immediately",
		)
	} else {
		logger.Info("seed admin account created", "username", SeedAdminUsername)
	}

	return password, nil
}
