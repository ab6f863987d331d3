package tablepush

import "testing"

func TestRouterMatchTargets(t *testing.T) {
	targets := []PushTarget{
		{Platform: "discord", Endpoint: "a", Enabled: true},
		{Platform: "discord", Endpoint: "b", TableID: 2, Enabled: true},
		{Platform: "feishu", Endpoint: "c", EventAllowlist: []string{EventHandOver}, Enabled: true},
		{Platform: "feishu", Endpoint: "d", Enabled: false},
	}
	var r Router

	got := r.MatchTargets(targets, TableEvent{TableID: 1, Type: EventAction})
	if len(got) != 1 || got[0].Endpoint != "a" {
		t.Fatalf("action on table 1: %+v", got)
	}
	got = r.MatchTargets(targets, TableEvent{TableID: 2, Type: EventHandOver})
	if len(got) != 3 {
		t.Fatalf("hand result on table 2: %+v", got)
	}
	if got := r.MatchTargets(nil, TableEvent{TableID: 1}); got != nil {
		t.Fatalf("expected nil for no targets, got %+v", got)
	}
}
