package importer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/tendant/ldap-sync/pkg/directory"
	"github.com/tendant/ldap-sync/pkg/users"
)

func TestPolicyDecide(t *testing.T) {
	now := time.Now().UTC()
	active := &users.User{}
	deleted := &users.User{DeletedAt: &now}

	tests := []struct {
		name     string
		policy   Policy
		enabled  bool
		existing *users.User
		want     Action
	}{
		{
			name:    "no existing record",
			enabled: true,
			want:    ActionCreate,
		},
		{
			name:     "no existing record, disabled account",
			enabled:  false,
			policy:   Policy{SoftDeleteDisabled: true},
			want:     ActionCreate,
			existing: nil,
		},
		{
			name:     "enabled account, active record",
			enabled:  true,
			existing: active,
			want:     ActionUpdate,
		},
		{
			name:     "disabled account without policy",
			enabled:  false,
			existing: active,
			want:     ActionUpdate,
		},
		{
			name:     "disabled account with policy",
			enabled:  false,
			policy:   Policy{SoftDeleteDisabled: true},
			existing: active,
			want:     ActionSoftDelete,
		},
		{
			name:     "disabled account, already deleted record",
			enabled:  false,
			policy:   Policy{SoftDeleteDisabled: true},
			existing: deleted,
			want:     ActionUpdate,
		},
		{
			name:     "enabled account, deleted record, restore policy",
			enabled:  true,
			policy:   Policy{RestoreEnabled: true},
			existing: deleted,
			want:     ActionRestore,
		},
		{
			name:     "enabled account, deleted record, no restore policy",
			enabled:  true,
			existing: deleted,
			want:     ActionUpdate,
		},
		{
			name:     "disabled account, deleted record, restore policy",
			enabled:  false,
			policy:   Policy{SoftDeleteDisabled: true, RestoreEnabled: true},
			existing: deleted,
			want:     ActionUpdate,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			obj := &directory.Object{DN: "CN=test", Enabled: tc.enabled}
			assert.Equal(t, tc.want, tc.policy.Decide(obj, tc.existing))
		})
	}
}

func TestActionString(t *testing.T) {
	assert.Equal(t, "create", ActionCreate.String())
	assert.Equal(t, "update", ActionUpdate.String())
	assert.Equal(t, "soft-delete", ActionSoftDelete.String())
	assert.Equal(t, "restore", ActionRestore.String())
}
