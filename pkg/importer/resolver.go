package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/tendant/ldap-sync/pkg/directory"
	"github.com/tendant/ldap-sync/pkg/users"
)

// resolver maps a directory object to at most one existing local record.
// The directory-assigned unique identifier is the primary key; a username
// match is accepted only as a weaker fallback and conflicts between the two
// are surfaced as AmbiguityError rather than guessed at.
type resolver struct {
	repo users.UserRepository

	// syncExisting permits linking records that have no directory identifier
	// yet by username match
	syncExisting bool
}

// resolve returns the matched record and whether one was found. username is
// the object's value of the attribute mapped to the local username field;
// empty when the object does not carry it.
func (r *resolver) resolve(ctx context.Context, obj *directory.Object, username string) (users.User, bool, error) {
	if obj.HasGUID() {
		return r.resolveByGUID(ctx, obj, username)
	}
	return r.resolveByUsername(ctx, obj, username)
}

func (r *resolver) resolveByGUID(ctx context.Context, obj *directory.Object, username string) (users.User, bool, error) {
	guidUser, err := r.repo.FindByObjectGUID(ctx, obj.ObjectGUID)
	if err != nil && !errors.Is(err, users.ErrUserNotFound) {
		return users.User{}, false, fmt.Errorf("failed to resolve by directory identifier: %w", err)
	}

	if err == nil {
		// Identifier match wins. A different record holding the same
		// username means two local records claim this identity.
		if username != "" {
			nameUser, nameErr := r.repo.FindByUsername(ctx, username)
			if nameErr == nil && nameUser.ID != guidUser.ID {
				return users.User{}, false, &AmbiguityError{
					DN:            obj.DN,
					GUIDMatch:     guidUser.ID,
					UsernameMatch: nameUser.ID,
				}
			}
		}
		return guidUser, true, nil
	}

	// No identifier match. A username match may be adopted when the record is
	// not yet linked to a directory identity and the run permits it;
	// anything else is a conflict.
	if username != "" {
		nameUser, nameErr := r.repo.FindByUsername(ctx, username)
		if nameErr == nil {
			if nameUser.ObjectGUID == uuid.Nil && r.syncExisting {
				slog.Info("linking unattached local record to directory identity",
					"dn", obj.DN, "username", username, "userId", nameUser.ID)
				return nameUser, true, nil
			}
			return users.User{}, false, &AmbiguityError{
				DN:            obj.DN,
				GUIDMatch:     uuid.Nil,
				UsernameMatch: nameUser.ID,
			}
		}
		if !errors.Is(nameErr, users.ErrUserNotFound) {
			return users.User{}, false, fmt.Errorf("failed to resolve by username: %w", nameErr)
		}
	}

	return users.User{}, false, nil
}

func (r *resolver) resolveByUsername(ctx context.Context, obj *directory.Object, username string) (users.User, bool, error) {
	if username == "" {
		return users.User{}, false, fmt.Errorf("object %s carries neither a directory identifier nor a username", obj.DN)
	}

	nameUser, err := r.repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			return users.User{}, false, nil
		}
		return users.User{}, false, fmt.Errorf("failed to resolve by username: %w", err)
	}

	// Matching on a mutable attribute can misattach records; flag it.
	slog.Warn("resolved object by username only, no directory identifier present",
		"dn", obj.DN, "username", username, "userId", nameUser.ID)

	return nameUser, true, nil
}
