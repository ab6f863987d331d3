package tablepush

import "strings"

type Router struct{}

func (r Router) MatchTargets(targets []PushTarget, ev TableEvent) []PushTarget {
	if len(targets) == 0 {
		return nil
	}
	out := make([]PushTarget, 0, len(targets))
	for _, target := range targets {
		if !target.Enabled {
			continue
		}
		if target.TableID != 0 && target.TableID != ev.TableID {
			continue
		}
		if !eventAllowed(target.EventAllowlist, ev.Type) {
			continue
		}
		out = append(out, target)
	}
	return out
}

func eventAllowed(allowlist []string, evType string) bool {
	if len(allowlist) == 0 {
		return true
	}
	evType = strings.ToLower(evType)
	for _, v := range allowlist {
		if v == evType {
			return true
		}
	}
	return false
}
