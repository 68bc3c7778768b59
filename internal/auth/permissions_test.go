package auth

import "testing"

func TestPermission_Allows(t *testing.T) {
	tests := []struct {
		have     Permission
		required Permission
		want     bool
	}{
		{PermissionAdmin, PermissionAdmin, true},
		{PermissionAdmin, PermissionUser, true},
		{PermissionUser, PermissionUser, true},
		{PermissionUser, PermissionAdmin, false},
		{PermissionNone, PermissionUser, false},
		{PermissionNone, PermissionNone, true},
		{"ROOT", PermissionNone, false},
		{PermissionAdmin, "ROOT", false},
	}

	for _, tt := range tests {
		if got := tt.have.Allows(tt.required); got != tt.want {
			t.Errorf("%q.Allows(%q) = %v, want %v", tt.have, tt.required, got, tt.want)
		}
	}
}

func TestPermission_IsValid(t *testing.T) {
	for _, p := range []Permission{PermissionNone, PermissionUser, PermissionAdmin} {
		if !p.IsValid() {
			t.Errorf("%q.IsValid() = false", p)
		}
	}
	for _, p := range []Permission{"", "admin", "OWNER"} {
		if p.IsValid() {
			t.Errorf("%q.IsValid() = true", p)
		}
	}
}
