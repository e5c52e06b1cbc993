package importer

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/ldap-sync/pkg/directory"
	"github.com/tendant/ldap-sync/pkg/events"
	"github.com/tendant/ldap-sync/pkg/users"
)

var (
	guidJdoe = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	guidJroe = uuid.MustParse("22222222-2222-2222-2222-222222222222")
)

func addUserEntry(dir *directory.InMemoryDirectory, dn string, guid uuid.UUID, username, mail string, enabled bool) {
	dir.AddEntry(dn, guid, map[string][]string{
		"objectClass":    {"top", "person", "user"},
		"sAMAccountName": {username},
		"mail":           {mail},
		"cn":             {username},
	}, enabled)
}

func newTestService(opts Options) (*Service, *directory.InMemoryDirectory, *users.InMemoryUserRepository, *events.RecorderSink) {
	dir := directory.NewInMemoryDirectory()
	repo := users.NewInMemoryUserRepository()
	recorder := events.NewRecorderSink()
	if opts.Provider == "" {
		opts.Provider = "corp"
	}
	return NewService(dir, repo, opts, recorder), dir, repo, recorder
}

func TestImportAllCreatesUsers(t *testing.T) {
	svc, dir, repo, _ := newTestService(Options{})
	addUserEntry(dir, "CN=jdoe,OU=People,DC=example,DC=com", guidJdoe, "jdoe", "jdoe@example.com", true)
	addUserEntry(dir, "CN=jroe,OU=People,DC=example,DC=com", guidJroe, "jroe", "jroe@example.com", true)

	result, err := svc.ImportAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, result.Candidates)
	assert.Equal(t, 2, result.Created)
	assert.Equal(t, 0, result.Failed())

	user, err := repo.FindByObjectGUID(context.Background(), guidJdoe)
	require.NoError(t, err)
	assert.Equal(t, "jdoe", user.Username)
	assert.Equal(t, "jdoe@example.com", user.Email)
	assert.Equal(t, "corp", user.Domain)
	assert.NotEmpty(t, user.PasswordHash, "created users must get an initial credential")
	assert.False(t, user.IsDeleted())
}

func TestImportAllIsIdempotent(t *testing.T) {
	svc, dir, repo, _ := newTestService(Options{})
	addUserEntry(dir, "CN=jdoe,OU=People,DC=example,DC=com", guidJdoe, "jdoe", "jdoe@example.com", true)

	first, err := svc.ImportAll(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, first.Created)

	created, err := repo.FindByObjectGUID(context.Background(), guidJdoe)
	require.NoError(t, err)

	second, err := svc.ImportAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, second.Created)
	assert.Equal(t, 1, second.Updated)
	assert.Equal(t, 0, second.Failed())

	again, err := repo.FindByObjectGUID(context.Background(), guidJdoe)
	require.NoError(t, err)
	assert.Equal(t, created.ID, again.ID)
	assert.Equal(t, created.Username, again.Username)
	assert.Equal(t, created.PasswordHash, again.PasswordHash, "re-import must not reset credentials")

	all, err := repo.FindAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestImportAllEventOrderForNewUser(t *testing.T) {
	svc, dir, _, recorder := newTestService(Options{})
	addUserEntry(dir, "CN=jdoe,OU=People,DC=example,DC=com", guidJdoe, "jdoe", "jdoe@example.com", true)

	_, err := svc.ImportAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []events.Kind{
		events.BulkImportStarted,
		events.Importing,
		events.Synchronizing,
		events.Synchronized,
		events.Saved,
		events.Imported,
		events.BulkImportCompleted,
	}, recorder.Kinds())

	recorder.Reset()

	_, err = svc.ImportAll(context.Background())
	require.NoError(t, err)

	// No Imported event on updates of existing records.
	assert.Equal(t, []events.Kind{
		events.BulkImportStarted,
		events.Importing,
		events.Synchronizing,
		events.Synchronized,
		events.Saved,
		events.BulkImportCompleted,
	}, recorder.Kinds())
}

func TestImportAllSoftDeletesDisabledAccounts(t *testing.T) {
	svc, dir, repo, _ := newTestService(Options{SoftDeleteDisabled: true})
	addUserEntry(dir, "CN=jdoe,OU=People,DC=example,DC=com", guidJdoe, "jdoe", "jdoe@example.com", true)

	_, err := svc.ImportAll(context.Background())
	require.NoError(t, err)

	dir.SetEnabled("CN=jdoe,OU=People,DC=example,DC=com", false)

	result, err := svc.ImportAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.SoftDeleted)

	user, err := repo.FindByObjectGUID(context.Background(), guidJdoe)
	require.NoError(t, err)
	assert.True(t, user.IsDeleted())

	// A still-disabled account on the next run is a plain update, not a
	// second soft-delete.
	result, err = svc.ImportAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.SoftDeleted)
	assert.Equal(t, 1, result.Updated)
}

func TestImportAllRestoresReenabledAccounts(t *testing.T) {
	svc, dir, repo, _ := newTestService(Options{SoftDeleteDisabled: true, RestoreEnabled: true})
	addUserEntry(dir, "CN=jdoe,OU=People,DC=example,DC=com", guidJdoe, "jdoe", "jdoe@example.com", true)

	_, err := svc.ImportAll(context.Background())
	require.NoError(t, err)

	dir.SetEnabled("CN=jdoe,OU=People,DC=example,DC=com", false)
	_, err = svc.ImportAll(context.Background())
	require.NoError(t, err)

	dir.SetEnabled("CN=jdoe,OU=People,DC=example,DC=com", true)
	result, err := svc.ImportAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Restored)

	user, err := repo.FindByObjectGUID(context.Background(), guidJdoe)
	require.NoError(t, err)
	assert.False(t, user.IsDeleted())
}

func TestImportAllWithoutRestorePolicyKeepsDeleted(t *testing.T) {
	svc, dir, repo, _ := newTestService(Options{SoftDeleteDisabled: true})
	addUserEntry(dir, "CN=jdoe,OU=People,DC=example,DC=com", guidJdoe, "jdoe", "jdoe@example.com", true)

	_, err := svc.ImportAll(context.Background())
	require.NoError(t, err)

	dir.SetEnabled("CN=jdoe,OU=People,DC=example,DC=com", false)
	_, err = svc.ImportAll(context.Background())
	require.NoError(t, err)

	dir.SetEnabled("CN=jdoe,OU=People,DC=example,DC=com", true)
	result, err := svc.ImportAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.Restored)

	user, err := repo.FindByObjectGUID(context.Background(), guidJdoe)
	require.NoError(t, err)
	assert.True(t, user.IsDeleted())
}

func TestImportAllIsolatesPerObjectFailures(t *testing.T) {
	svc, dir, repo, recorder := newTestService(Options{})
	addUserEntry(dir, "CN=jdoe,OU=People,DC=example,DC=com", guidJdoe, "jdoe", "jdoe@example.com", true)
	addUserEntry(dir, "CN=jroe,OU=People,DC=example,DC=com", guidJroe, "jroe", "jroe@example.com", true)

	// Stage a conflict: a record already linked to a different directory
	// identity claims jroe's username.
	_, err := repo.Create(context.Background(), users.User{
		Username:   "jroe",
		ObjectGUID: uuid.MustParse("33333333-3333-3333-3333-333333333333"),
	})
	require.NoError(t, err)

	result, err := svc.ImportAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, result.Candidates)
	assert.Equal(t, 1, result.Created)
	require.Equal(t, 1, result.Failed())

	var ambiguity *AmbiguityError
	require.ErrorAs(t, result.Failures[0].Err, &ambiguity)
	assert.Equal(t, "CN=jroe,OU=People,DC=example,DC=com", result.Failures[0].DN)

	assert.Contains(t, recorder.Kinds(), events.ImportFailed)

	// The healthy object still landed.
	_, err = repo.FindByObjectGUID(context.Background(), guidJdoe)
	assert.NoError(t, err)
}

func TestImportAllDeleteMissing(t *testing.T) {
	svc, dir, repo, recorder := newTestService(Options{DeleteMissing: true})
	addUserEntry(dir, "CN=jdoe,OU=People,DC=example,DC=com", guidJdoe, "jdoe", "jdoe@example.com", true)
	addUserEntry(dir, "CN=jroe,OU=People,DC=example,DC=com", guidJroe, "jroe", "jroe@example.com", true)

	_, err := svc.ImportAll(context.Background())
	require.NoError(t, err)

	// A purely local record never gets swept.
	local, err := repo.Create(context.Background(), users.User{Username: "localadmin"})
	require.NoError(t, err)

	dir.RemoveEntry("CN=jroe,OU=People,DC=example,DC=com")
	recorder.Reset()

	result, err := svc.ImportAll(context.Background())
	require.NoError(t, err)

	require.Len(t, result.DeletedMissing, 1)
	assert.Equal(t, "jroe", result.DeletedMissing[0].Username)
	assert.Contains(t, recorder.Kinds(), events.BulkImportDeletedMissing)

	swept, err := repo.FindByObjectGUID(context.Background(), guidJroe)
	require.NoError(t, err)
	assert.True(t, swept.IsDeleted())

	kept, err := repo.FindByUsername(context.Background(), local.Username)
	require.NoError(t, err)
	assert.False(t, kept.IsDeleted())

	// Nothing newly missing: no deletions and no deleted-missing event.
	recorder.Reset()
	result, err = svc.ImportAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, result.DeletedMissing)
	assert.NotContains(t, recorder.Kinds(), events.BulkImportDeletedMissing)
}

func TestImportAllDeleteMissingWithEmptyDirectory(t *testing.T) {
	svc, dir, repo, recorder := newTestService(Options{DeleteMissing: true})
	addUserEntry(dir, "CN=jdoe,OU=People,DC=example,DC=com", guidJdoe, "jdoe", "jdoe@example.com", true)

	_, err := svc.ImportAll(context.Background())
	require.NoError(t, err)

	dir.RemoveEntry("CN=jdoe,OU=People,DC=example,DC=com")
	recorder.Reset()

	result, err := svc.ImportAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, result.Candidates)
	require.Len(t, result.DeletedMissing, 1)
	assert.Equal(t, "jdoe", result.DeletedMissing[0].Username)

	var deletedEvent *events.Event
	for _, event := range recorder.Events() {
		if event.Kind == events.BulkImportDeletedMissing {
			e := event
			deletedEvent = &e
		}
	}
	require.NotNil(t, deletedEvent)
	require.Len(t, deletedEvent.Deleted, 1)
	assert.Equal(t, "jdoe", deletedEvent.Deleted[0].Username)

	user, err := repo.FindByObjectGUID(context.Background(), guidJdoe)
	require.NoError(t, err)
	assert.True(t, user.IsDeleted())
}

func TestImportAllEmptyDirectory(t *testing.T) {
	svc, _, _, recorder := newTestService(Options{})

	result, err := svc.ImportAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, result.Candidates)
	assert.Equal(t, 0, result.Succeeded())
	assert.Equal(t, []events.Kind{events.BulkImportStarted, events.BulkImportCompleted}, recorder.Kinds())
}

func TestImportOne(t *testing.T) {
	svc, dir, repo, _ := newTestService(Options{})
	addUserEntry(dir, "CN=jdoe,OU=People,DC=example,DC=com", guidJdoe, "jdoe", "jdoe@example.com", true)
	addUserEntry(dir, "CN=jroe,OU=People,DC=example,DC=com", guidJroe, "jroe", "jroe@example.com", true)

	user, err := svc.ImportOne(context.Background(), "jdoe")
	require.NoError(t, err)
	assert.Equal(t, "jdoe", user.Username)

	// Only the selected user was imported.
	all, err := repo.FindAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 1)

	_, err = svc.ImportOne(context.Background(), "nobody")
	assert.ErrorIs(t, err, directory.ErrObjectNotFound)
}

func TestImportOneRejectsDeleteMissing(t *testing.T) {
	svc, dir, _, _ := newTestService(Options{DeleteMissing: true})
	addUserEntry(dir, "CN=jdoe,OU=People,DC=example,DC=com", guidJdoe, "jdoe", "jdoe@example.com", true)

	_, err := svc.ImportOne(context.Background(), "jdoe")
	assert.ErrorIs(t, err, ErrDeleteMissingSingleUser)
}

func TestImportAdoptsUnlinkedLocalRecord(t *testing.T) {
	svc, dir, repo, _ := newTestService(Options{SyncExisting: true})
	addUserEntry(dir, "CN=jdoe,OU=People,DC=example,DC=com", guidJdoe, "jdoe", "old@example.com", true)

	existing, err := repo.Create(context.Background(), users.User{Username: "jdoe", Email: "seeded@example.com"})
	require.NoError(t, err)

	result, err := svc.ImportAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, 0, result.Created)

	linked, err := repo.FindByObjectGUID(context.Background(), guidJdoe)
	require.NoError(t, err)
	assert.Equal(t, existing.ID, linked.ID)
	assert.Equal(t, "old@example.com", linked.Email)
}

func TestImportAllCustomAttributeMapping(t *testing.T) {
	svc, dir, repo, _ := newTestService(Options{
		Attributes: map[string]string{
			"uid":  "username",
			"mail": "email",
		},
	})
	dir.AddEntry("uid=jdoe,ou=people,dc=example,dc=com", guidJdoe, map[string][]string{
		"objectClass": {"inetOrgPerson", "user"},
		"uid":         {"jdoe"},
		"mail":        {"jdoe@example.com"},
		"cn":          {"John Doe"},
	}, true)

	_, err := svc.ImportAll(context.Background())
	require.NoError(t, err)

	user, err := repo.FindByObjectGUID(context.Background(), guidJdoe)
	require.NoError(t, err)
	assert.Equal(t, "jdoe", user.Username)
	assert.Equal(t, "jdoe@example.com", user.Email)
	assert.Empty(t, user.DisplayName, "unmapped attributes stay untouched")
}

func TestImportAllFatalOnDirectoryError(t *testing.T) {
	repo := users.NewInMemoryUserRepository()
	svc := NewService(failingDirectory{}, repo, Options{Provider: "corp"}, nil)

	_, err := svc.ImportAll(context.Background())
	require.Error(t, err)

	var queryErr *directory.QueryError
	assert.ErrorAs(t, err, &queryErr)
}

type failingDirectory struct{}

func (failingDirectory) FindByIdentifier(ctx context.Context, value string) (*directory.Object, error) {
	return nil, &directory.QueryError{Op: "search", Err: errors.New("connection refused")}
}

func (failingDirectory) Search(ctx context.Context, filter string, attributes []string) ([]directory.Object, error) {
	return nil, &directory.QueryError{Op: "search", Filter: filter, Err: errors.New("connection refused")}
}
