package engine

import (
	"time"

	"github.com/verdantchat/verdant/internal/model"
)

// applyPresence rewrites a user's online state wherever that user currently
// appears: the sidebar user list and the members of every loaded
// conversation. Conversations are updated copy-on-write through the
// directory's upsert path, so snapshots handed out earlier are never touched.
// This is the single writer for Online/LastSeen; lastSeen is recorded only on
// the offline transition, it is meaningless while the user is online.
func applyPresence(userID string, online bool, lastSeen *time.Time, users []model.User, dir *directory) {
	for i := range users {
		if users[i].ID != userID {
			continue
		}
		users[i].Online = online
		if !online {
			users[i].LastSeen = lastSeen
		}
	}

	for _, c := range dir.list() {
		for _, m := range c.MemberUsers() {
			if m.ID != userID {
				continue
			}
			m.Online = online
			if !online {
				m.LastSeen = lastSeen
			}
			if updated, ok := model.WithMember(c, m); ok {
				dir.upsert(updated)
			}
			break
		}
	}
}
