package authz

import (
	"testing"

	"github.com/louisbranch/parkline/internal/services/game/domain/command"
	"github.com/louisbranch/parkline/internal/services/game/domain/world"
)

func TestDefaultPolicyGroups(t *testing.T) {
	p := DefaultPolicy()
	if p.DefaultGroup != GroupGuest {
		t.Fatalf("default group = %d, want %d", p.DefaultGroup, GroupGuest)
	}
	if !p.Capabilities(GroupAdmin).Has(command.CapCheat) {
		t.Fatal("expected admin to hold every capability")
	}
	if p.Capabilities(GroupGuest).Has(command.CapKickPlayer) {
		t.Fatal("expected guest not to kick players")
	}
	if !p.Capabilities(GroupModerator).Has(command.CapKickPlayer) {
		t.Fatal("expected moderator to kick players")
	}
}

func TestCapabilitiesOfUnknownRole(t *testing.T) {
	if got := DefaultPolicy().Capabilities(world.GroupID(99)); got.Len() != 0 {
		t.Fatalf("capabilities = %v, want none", got.Names())
	}
}

func TestGroupNames(t *testing.T) {
	names := DefaultPolicy().GroupNames()
	want := map[world.GroupID]string{GroupAdmin: "Admin", GroupModerator: "Moderator", GroupGuest: "Guest"}
	if len(names) != len(want) {
		t.Fatalf("names = %v, want %v", names, want)
	}
	for id, name := range want {
		if names[id] != name {
			t.Fatalf("group %d = %q, want %q", id, names[id], name)
		}
	}
}

func TestParsePolicyDefaultsToLowestPrivilege(t *testing.T) {
	data := []byte(`groups:
  - id: 0
    name: Admin
    capabilities: ["*"]
  - id: 4
    name: Visitor
    capabilities: [chat]
  - id: 3
    name: Builder
    capabilities: [chat, path, scenery]
`)
	p, err := ParsePolicy(data)
	if err != nil {
		t.Fatalf("parse policy: %v", err)
	}
	if p.DefaultGroup != 4 {
		t.Fatalf("default group = %d, want 4", p.DefaultGroup)
	}
}
