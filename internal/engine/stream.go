package engine

import "github.com/verdantchat/verdant/internal/model"

// stream is the message list for the active conversation: one page of history
// plus whatever live messages arrived since. Loading a page replaces the list
// (page browsing, not infinite scroll); live messages always append, whatever
// page is showing — history pages and live delivery are independent views
// over the same backing log.
type stream struct {
	msgs []model.Message
	page model.Page
}

func (s *stream) setPage(msgs []model.Message, page model.Page) {
	s.msgs = msgs
	s.page = page
}

func (s *stream) append(m model.Message) {
	s.msgs = append(s.msgs, m)
}

func (s *stream) byID(id string) (model.Message, bool) {
	for _, m := range s.msgs {
		if m.ID == id {
			return m, true
		}
	}
	return model.Message{}, false
}

func (s *stream) clear() {
	s.msgs = nil
	s.page = model.Page{}
}

func (s *stream) list() []model.Message {
	out := make([]model.Message, len(s.msgs))
	copy(out, s.msgs)
	return out
}
