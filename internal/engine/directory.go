package engine

import (
	"sort"

	"github.com/verdantchat/verdant/internal/model"
	"github.com/verdantchat/verdant/internal/normalize"
)

// directory is the ordered, deduplicated conversation list. Remote state
// enters through setAll/setGroups (paged fetches) and upsert (live events and
// refetches); every path re-sorts, so the list is always in activity order.
type directory struct {
	convs    []model.Conversation
	globalID string
}

func newDirectory() *directory {
	return &directory{}
}

// setAll replaces the whole list: the global conversation first, then the
// fetched group page with the global duplicate removed, then all private
// chats. Used on initial load.
func (d *directory) setAll(global *model.Group, groups []*model.Group, privates []*model.Private) {
	d.globalID = global.GroupID
	convs := make([]model.Conversation, 0, 1+len(groups)+len(privates))
	convs = append(convs, global)
	for _, g := range groups {
		if g.GroupID == global.GroupID {
			continue
		}
		convs = append(convs, g)
	}
	for _, p := range privates {
		convs = append(convs, p)
	}
	d.convs = convs
	d.sort()
}

// setGroups replaces the global and group entries with a freshly fetched page
// while keeping the private chats already known. Used when the user pages
// through the group listing.
func (d *directory) setGroups(global *model.Group, groups []*model.Group) {
	var privates []*model.Private
	for _, c := range d.convs {
		if p, ok := c.(*model.Private); ok {
			privates = append(privates, p)
		}
	}
	d.setAll(global, groups, privates)
}

// upsert merges one conversation into the list: replace by id when present,
// otherwise prepend. The list is re-sorted either way.
func (d *directory) upsert(c model.Conversation) {
	for i, existing := range d.convs {
		if existing.ID() == c.ID() {
			d.convs[i] = c
			d.sort()
			return
		}
	}
	d.convs = append([]model.Conversation{c}, d.convs...)
	d.sort()
}

func (d *directory) remove(id string) {
	for i, c := range d.convs {
		if c.ID() == id {
			d.convs = append(d.convs[:i], d.convs[i+1:]...)
			return
		}
	}
}

func (d *directory) byID(id string) (model.Conversation, bool) {
	for _, c := range d.convs {
		if c.ID() == id {
			return c, true
		}
	}
	return nil, false
}

func (d *directory) list() []model.Conversation {
	out := make([]model.Conversation, len(d.convs))
	copy(out, d.convs)
	return out
}

// myGroups is the "my conversations" view: everything the user is a member
// of, with the global conversation forced to the front regardless of its
// activity timestamp.
func (d *directory) myGroups(selfID string) []model.Conversation {
	var global model.Conversation
	out := make([]model.Conversation, 0, len(d.convs))
	for _, c := range d.convs {
		if d.isGlobal(c) {
			if global == nil {
				global = c
			}
			continue
		}
		if model.HasMember(c, selfID) {
			out = append(out, c)
		}
	}
	if global != nil {
		out = append([]model.Conversation{global}, out...)
	}
	return out
}

// discoverable lists group conversations the user could join: groups the
// user is not a member of, excluding the global conversation both by id and
// by name.
func (d *directory) discoverable(selfID string) []*model.Group {
	var out []*model.Group
	for _, c := range d.convs {
		g, ok := c.(*model.Group)
		if !ok || d.isGlobal(g) {
			continue
		}
		if !g.HasMember(selfID) {
			out = append(out, g)
		}
	}
	return out
}

func (d *directory) isGlobal(c model.Conversation) bool {
	if d.globalID != "" && c.ID() == d.globalID {
		return true
	}
	g, ok := c.(*model.Group)
	return ok && normalize.IsGlobalName(g.Name)
}

func (d *directory) reset() {
	d.convs = nil
	d.globalID = ""
}

// sort orders by descending activity timestamp. Stable, so equal timestamps
// keep their merge order.
func (d *directory) sort() {
	sort.SliceStable(d.convs, func(i, j int) bool {
		return d.convs[i].Activity().After(d.convs[j].Activity())
	})
}
