package importer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/ldap-sync/pkg/directory"
	"github.com/tendant/ldap-sync/pkg/events"
	"github.com/tendant/ldap-sync/pkg/users"
)

// Service reconciles directory objects against the local user store. One
// service instance drives strictly sequential runs: identity resolution must
// observe the writes of earlier objects in the same pass.
type Service struct {
	directory    directory.Directory
	repo         users.UserRepository
	sink         events.Sink
	synchronizer *Synchronizer
	resolver     *resolver
	policy       Policy
	options      Options
}

// NewService creates an import service. A nil sink discards events.
func NewService(dir directory.Directory, repo users.UserRepository, options Options, sink events.Sink) *Service {
	if sink == nil {
		sink = events.NopSink{}
	}

	return &Service{
		directory:    dir,
		repo:         repo,
		sink:         sink,
		synchronizer: NewSynchronizer(options.Attributes),
		resolver:     &resolver{repo: repo, syncExisting: options.SyncExisting},
		policy: Policy{
			SoftDeleteDisabled: options.SoftDeleteDisabled,
			RestoreEnabled:     options.RestoreEnabled,
		},
		options: options,
	}
}

// Options returns the run configuration, for display by callers.
func (s *Service) Options() Options {
	return s.options
}

// Candidates fetches the object set a full run would iterate, without
// importing anything. The console command uses it for dry-run display.
func (s *Service) Candidates(ctx context.Context) ([]directory.Object, error) {
	return s.directory.Search(ctx, s.options.filter(), s.synchronizer.DirectoryAttributes())
}

// ImportAll runs the batch pipeline over every object matching the
// configured filter. Per-object failures are isolated and counted; only a
// failed directory query aborts the run.
func (s *Service) ImportAll(ctx context.Context) (*Result, error) {
	objects, err := s.Candidates(ctx)
	if err != nil {
		return nil, err
	}

	result := &Result{Candidates: len(objects)}
	s.emit(events.Event{Kind: events.BulkImportStarted, Summary: result.Summary()})

	slog.Info("starting directory import",
		"provider", s.options.Provider, "candidates", len(objects))

	touched := make(map[uuid.UUID]struct{}, len(objects))
	for i := range objects {
		obj := &objects[i]

		user, action, err := s.importObject(ctx, obj)
		if err != nil {
			slog.Error("failed to import directory object", "dn", obj.DN, "err", err)
			result.Failures = append(result.Failures, Failure{
				DN:         obj.DN,
				Identifier: obj.ObjectGUID.String(),
				Err:        err,
			})
			s.emit(events.Event{Kind: events.ImportFailed, Object: obj, Err: err})
			continue
		}

		touched[user.ID] = struct{}{}
		result.tally(action)
	}

	if s.options.DeleteMissing {
		s.deleteMissing(ctx, touched, result)
	}

	s.emit(events.Event{Kind: events.BulkImportCompleted, Summary: result.Summary()})

	slog.Info("directory import completed",
		"provider", s.options.Provider,
		"succeeded", result.Succeeded(),
		"failed", result.Failed(),
		"deletedMissing", len(result.DeletedMissing))

	return result, nil
}

// ImportOne imports a single user by identifier. The delete-missing policy
// never applies to single-user selections and is rejected up front.
func (s *Service) ImportOne(ctx context.Context, identifier string) (users.User, error) {
	if s.options.DeleteMissing {
		return users.User{}, ErrDeleteMissingSingleUser
	}

	obj, err := s.directory.FindByIdentifier(ctx, identifier)
	if err != nil {
		return users.User{}, err
	}

	user, _, err := s.importObject(ctx, obj)
	if err != nil {
		s.emit(events.Event{Kind: events.ImportFailed, Object: obj, Err: err})
		return users.User{}, err
	}
	return user, nil
}

// importObject runs one object through resolve -> synchronize -> policy ->
// persist and returns the persisted record.
func (s *Service) importObject(ctx context.Context, obj *directory.Object) (users.User, Action, error) {
	s.emit(events.Event{Kind: events.Importing, Object: obj})

	username, _ := obj.GetAttribute(s.synchronizer.UsernameAttribute())

	existing, found, err := s.resolver.resolve(ctx, obj, username)
	if err != nil {
		return users.User{}, 0, err
	}

	var user users.User
	var existingPtr *users.User
	if found {
		user = existing
		existingPtr = &existing
	}

	s.emit(events.Event{Kind: events.Synchronizing, Object: obj, User: &user})
	s.synchronizer.Apply(obj, &user)
	if obj.HasGUID() {
		user.ObjectGUID = obj.ObjectGUID
	}
	s.emit(events.Event{Kind: events.Synchronized, Object: obj, User: &user})

	action := s.policy.Decide(obj, existingPtr)

	persisted, err := s.persist(ctx, action, user)
	if err != nil {
		return users.User{}, 0, err
	}

	s.emit(events.Event{Kind: events.Saved, Object: obj, User: &persisted})
	if action == ActionCreate {
		s.emit(events.Event{Kind: events.Imported, Object: obj, User: &persisted})
	}

	return persisted, action, nil
}

func (s *Service) persist(ctx context.Context, action Action, user users.User) (users.User, error) {
	switch action {
	case ActionCreate:
		if user.Domain == "" {
			user.Domain = s.options.domain()
		}
		if user.PasswordHash == "" {
			hash, err := users.GenerateInitialPasswordHash()
			if err != nil {
				return users.User{}, err
			}
			user.PasswordHash = hash
		}
		created, err := s.repo.Create(ctx, user)
		if err != nil {
			return users.User{}, fmt.Errorf("failed to create user: %w", err)
		}
		return created, nil

	case ActionUpdate:
		updated, err := s.repo.Update(ctx, user)
		if err != nil {
			return users.User{}, fmt.Errorf("failed to update user: %w", err)
		}
		return updated, nil

	case ActionSoftDelete:
		if _, err := s.repo.Update(ctx, user); err != nil {
			return users.User{}, fmt.Errorf("failed to update user before soft-delete: %w", err)
		}
		deleted, err := s.repo.SoftDelete(ctx, user.ID)
		if err != nil {
			return users.User{}, fmt.Errorf("failed to soft-delete user: %w", err)
		}
		return deleted, nil

	case ActionRestore:
		if _, err := s.repo.Update(ctx, user); err != nil {
			return users.User{}, fmt.Errorf("failed to update user before restore: %w", err)
		}
		restored, err := s.repo.Restore(ctx, user.ID)
		if err != nil {
			return users.User{}, fmt.Errorf("failed to restore user: %w", err)
		}
		return restored, nil
	}

	return users.User{}, fmt.Errorf("unknown lifecycle action %d", action)
}

// deleteMissing soft-deletes every directory-linked record the pass did not
// touch. Purely local records (no directory identifier) are never affected.
func (s *Service) deleteMissing(ctx context.Context, touched map[uuid.UUID]struct{}, result *Result) {
	all, err := s.repo.FindAll(ctx)
	if err != nil {
		slog.Error("delete-missing pass failed to list users", "err", err)
		result.Failures = append(result.Failures, Failure{Err: fmt.Errorf("failed to list users for delete-missing: %w", err)})
		return
	}

	var deleted []users.User
	for _, user := range all {
		if user.ObjectGUID == uuid.Nil || user.IsDeleted() {
			continue
		}
		if _, ok := touched[user.ID]; ok {
			continue
		}

		removed, err := s.repo.SoftDelete(ctx, user.ID)
		if err != nil {
			slog.Error("failed to soft-delete missing user", "userId", user.ID, "err", err)
			result.Failures = append(result.Failures, Failure{
				Identifier: user.ObjectGUID.String(),
				Err:        fmt.Errorf("failed to soft-delete missing user %s: %w", user.Username, err),
			})
			continue
		}
		deleted = append(deleted, removed)
	}

	result.DeletedMissing = deleted
	if len(deleted) > 0 {
		s.emit(events.Event{Kind: events.BulkImportDeletedMissing, Deleted: deleted, Summary: result.Summary()})
	}
}

func (s *Service) emit(event events.Event) {
	event.At = time.Now().UTC()
	s.sink.Notify(event)
}
