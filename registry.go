package listenpg

import "sort"

// registry tracks which scopes are bound to which upstream channels.
// Because every scope owns exactly one database connection, membership
// of scope S in channel C is equivalent to "LISTEN C is active on S's
// connection". The registry is confined to the serialized task loop.
type registry struct {
	membership map[string]map[string]struct{}
}

func newRegistry() *registry {
	return &registry{membership: make(map[string]map[string]struct{})}
}

func (r *registry) contains(channel, scopeID string) bool {
	_, ok := r.membership[channel][scopeID]
	return ok
}

func (r *registry) add(channel, scopeID string) {
	set, ok := r.membership[channel]
	if !ok {
		set = make(map[string]struct{})
		r.membership[channel] = set
	}
	set[scopeID] = struct{}{}
}

func (r *registry) remove(channel, scopeID string) {
	set, ok := r.membership[channel]
	if !ok {
		return
	}
	delete(set, scopeID)
	if len(set) == 0 {
		delete(r.membership, channel)
	}
}

// channelsFor returns the channels scopeID is currently bound to, in
// stable order.
func (r *registry) channelsFor(scopeID string) []string {
	var channels []string
	for channel, set := range r.membership {
		if _, ok := set[scopeID]; ok {
			channels = append(channels, channel)
		}
	}
	sort.Strings(channels)
	return channels
}

// dropScope removes scopeID from every membership set.
func (r *registry) dropScope(scopeID string) {
	for channel, set := range r.membership {
		delete(set, scopeID)
		if len(set) == 0 {
			delete(r.membership, channel)
		}
	}
}

// vhostInUse reports whether any scope in the vhost retains a binding.
// It scans live membership, never cached scope lists, so broker teardown
// decisions cannot go stale.
func (r *registry) vhostInUse(vhost string) bool {
	for _, set := range r.membership {
		for scopeID := range set {
			if scopeVHost(scopeID) == vhost {
				return true
			}
		}
	}
	return false
}
