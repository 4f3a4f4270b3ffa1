package conversation

import (
	"errors"
	"strings"
	"testing"
)

func TestFromSource(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		sourceType string
		userID     string
		groupID    string
		roomID     string
		want       Identity
		wantErr    bool
	}{
		{name: "user", sourceType: "user", userID: "U1", want: Individual("U1")},
		{name: "group member", sourceType: "group", userID: "U2", groupID: "C1", want: Group("C1")},
		{name: "room member", sourceType: "room", userID: "U3", roomID: "R1", want: Group("R1")},
		{name: "missing user id", sourceType: "user", wantErr: true},
		{name: "group without id", sourceType: "group", userID: "U2", wantErr: true},
		{name: "unknown type", sourceType: "channel", userID: "U1", wantErr: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := FromSource(tt.sourceType, tt.userID, tt.groupID, tt.roomID)
			if tt.wantErr {
				if !errors.Is(err, ErrNoIdentity) {
					t.Fatalf("expected ErrNoIdentity, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestGroupMembersShareIdentity(t *testing.T) {
	t.Parallel()

	a, _ := FromSource("group", "U-alice", "C-team", "")
	b, _ := FromSource("group", "U-bob", "C-team", "")
	if a.Key() != b.Key() || a.StoreDisplayName() != b.StoreDisplayName() {
		t.Fatalf("group members should share identity: %v vs %v", a, b)
	}
}

func TestStoreDisplayNameIsStableAndDistinct(t *testing.T) {
	t.Parallel()

	u := Individual("U1")
	if u.StoreDisplayName() != Individual("U1").StoreDisplayName() {
		t.Fatal("display name is not deterministic")
	}
	if u.StoreDisplayName() == Group("U1").StoreDisplayName() {
		t.Fatal("individual and group with same id must not collide")
	}
	if !strings.HasPrefix(u.StoreDisplayName(), "linerag-user-") {
		t.Fatalf("unexpected display name: %s", u.StoreDisplayName())
	}
}

func TestParseKeyRoundTrip(t *testing.T) {
	t.Parallel()

	for _, id := range []Identity{Individual("U1"), Group("C9")} {
		got, err := ParseKey(id.Key())
		if err != nil {
			t.Fatalf("ParseKey(%q): %v", id.Key(), err)
		}
		if got != id {
			t.Fatalf("got %+v, want %+v", got, id)
		}
	}
	if _, err := ParseKey("bot:X"); err == nil {
		t.Fatal("expected error for unknown kind")
	}
	if _, err := ParseKey("user:"); err == nil {
		t.Fatal("expected error for empty id")
	}
}
