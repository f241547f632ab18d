package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lychee-technology/classifieds"
	"github.com/lychee-technology/classifieds/internal"
)

// runIssueToken prints a signed bearer token for local testing against a
// server using the jwt session provider.
func runIssueToken(args []string) error {
	flags := newFlagSet("issue-token", "-user <uuid> [options]")
	user := flags.String("user", "", "User id the token authenticates")
	role := flags.String("role", string(classifieds.RoleUser), "USER, MODERATOR or ADMIN")
	secret := flags.String("secret", getenvDefault("SESSION_JWT_SECRET", ""), "HMAC secret shared with the server")
	ttl := flags.Duration("ttl", 24*time.Hour, "Token lifetime")
	if done, err := parseFlags(flags, args); done {
		return err
	}

	token, err := issueToken(*secret, *user, *role, *ttl)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

func issueToken(secret, user, role string, ttl time.Duration) (string, error) {
	userID, err := uuid.Parse(user)
	if err != nil {
		return "", fmt.Errorf("invalid -user: %w", err)
	}
	r := classifieds.Role(strings.ToUpper(role))
	switch r {
	case classifieds.RoleUser, classifieds.RoleModerator, classifieds.RoleAdmin:
	default:
		return "", fmt.Errorf("invalid -role %q", role)
	}
	resolver, err := internal.NewJWTActorResolver(secret)
	if err != nil {
		return "", err
	}
	return resolver.Issue(classifieds.Actor{UserID: userID, Role: r}, ttl)
}
