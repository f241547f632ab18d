package internal

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/lychee-technology/classifieds"
	"go.uber.org/zap"
)

const maxPhoneNumberLength = 32

type userManager struct {
	repo    *PostgresRepository
	metrics *Metrics
}

// NewUserManager creates the account administration service.
func NewUserManager(repo *PostgresRepository, metrics *Metrics) classifieds.UserManager {
	return &userManager{repo: repo, metrics: metrics}
}

func requireAdmin(actor classifieds.Actor) error {
	if actor.Role != classifieds.RoleAdmin {
		return classifieds.NewForbiddenError("only administrators may delete users").
			WithDetail("required_role", []classifieds.Role{classifieds.RoleAdmin})
	}
	return nil
}

// normalizePhoneNumber trims the number; blank clears it.
func normalizePhoneNumber(phone *string) (*string, error) {
	if phone == nil {
		return nil, nil
	}
	trimmed := strings.TrimSpace(*phone)
	if trimmed == "" {
		return nil, nil
	}
	if utf8.RuneCountInString(trimmed) > maxPhoneNumberLength {
		return nil, classifieds.NewValidationError("phone_number", "phone number is too long").
			WithDetail("max_length", maxPhoneNumberLength)
	}
	return &trimmed, nil
}

func (m *userManager) GetUser(ctx context.Context, userID uuid.UUID) (*classifieds.User, error) {
	user, err := m.repo.findUserByID(ctx, m.repo.pool, userID)
	if err != nil {
		return nil, storageFailure("get user", err)
	}
	if user == nil {
		return nil, classifieds.NewUserNotFoundError(userID)
	}
	return user, nil
}

// ListUsers returns every account ordered by name. Contact details are
// private, so the caller needs an elevated role.
func (m *userManager) ListUsers(ctx context.Context, actor classifieds.Actor) ([]classifieds.User, error) {
	if !actor.Role.Elevated() {
		return nil, classifieds.NewForbiddenError("listing users requires an elevated role")
	}
	users, err := m.repo.listUsers(ctx, m.repo.pool)
	if err != nil {
		return nil, storageFailure("list users", err)
	}
	return users, nil
}

// UpdateProfile edits the actor's own account. Without a phone number in
// the patch the stored profile is returned unchanged.
func (m *userManager) UpdateProfile(ctx context.Context, actor classifieds.Actor, patch *classifieds.UserProfilePatch) (user *classifieds.User, err error) {
	start := time.Now()
	defer func() { m.metrics.observeMutation("update_profile", start, err) }()

	if patch == nil || patch.PhoneNumber == nil {
		return m.GetUser(ctx, actor.UserID)
	}
	phone, err := normalizePhoneNumber(patch.PhoneNumber)
	if err != nil {
		return nil, err
	}

	user, err = m.repo.updatePhoneNumber(ctx, m.repo.pool, actor.UserID, phone)
	if err != nil {
		return nil, storageFailure("update profile", err)
	}
	if user == nil {
		return nil, classifieds.NewUserNotFoundError(actor.UserID)
	}
	return user, nil
}

// DeleteUser removes an account. Administrators cannot delete themselves,
// and an account that still owns listings or comments is a conflict.
func (m *userManager) DeleteUser(ctx context.Context, actor classifieds.Actor, userID uuid.UUID) (err error) {
	start := time.Now()
	defer func() { m.metrics.observeMutation("delete_user", start, err) }()

	if err := requireAdmin(actor); err != nil {
		return err
	}

	err = m.repo.withTx(ctx, func(tx pgx.Tx) error {
		user, err := m.repo.findUserByID(ctx, tx, userID)
		if err != nil {
			return err
		}
		if user == nil {
			return classifieds.NewUserNotFoundError(userID)
		}
		if userID == actor.UserID {
			return classifieds.NewValidationError("user_id", "administrators cannot delete their own account")
		}
		_, err = m.repo.deleteUser(ctx, tx, userID)
		return err
	})
	if isForeignKeyViolation(err) {
		return classifieds.NewConflictError("user_id", "user still owns listings or comments").WithCause(err)
	}
	if err != nil {
		return storageFailure("delete user", err)
	}

	zap.S().Infow("user deleted", "userID", userID, "by", actor.UserID)
	return nil
}
