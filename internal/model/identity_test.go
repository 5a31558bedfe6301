package model

import "testing"

func TestParseRole(t *testing.T) {
	tests := []struct {
		raw     string
		want    Role
		wantErr bool
	}{
		{raw: "ADMIN", want: RoleAdmin},
		{raw: "admin", want: RoleAdmin},
		{raw: "  Manager  ", want: RoleManager},
		{raw: "ROLE_WORKER", want: RoleWorker},
		{raw: "role_collaborator", want: RoleCollaborator},
		{raw: "SUPERUSER", wantErr: true},
		{raw: "ROLE_", wantErr: true},
		{raw: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseRole(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseRole(%q) = %q, want error", tt.raw, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseRole(%q): %v", tt.raw, err)
			}
			if got != tt.want {
				t.Errorf("ParseRole(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}
