package review

import "listingpilot/header"

// Proposal is one candidate edit for one extracted row.
type Proposal struct {
	ID      int            `json:"id"`
	Row     int            `json:"row"`
	Updates header.Updates `json:"updates"`
	Tips    string         `json:"tips,omitempty"`
}

// Store holds the proposals of the current batch and the approved IDs. The
// approved set only ever contains IDs of stored proposals.
//
// Store is not safe for concurrent use.
type Store struct {
	proposals []Proposal
	approved  map[int]struct{}
}

func NewStore() *Store {
	return &Store{approved: make(map[int]struct{})}
}

// ReplaceAll installs a new batch with every proposal approved.
func (s *Store) ReplaceAll(proposals []Proposal) {
	s.proposals = append([]Proposal(nil), proposals...)
	s.approved = make(map[int]struct{}, len(proposals))
	for _, p := range s.proposals {
		s.approved[p.ID] = struct{}{}
	}
}

// Toggle flips the approval of id. Unknown IDs are ignored.
func (s *Store) Toggle(id int) {
	if !s.has(id) {
		return
	}
	if _, ok := s.approved[id]; ok {
		delete(s.approved, id)
		return
	}
	s.approved[id] = struct{}{}
}

func (s *Store) SelectAll() {
	for _, p := range s.proposals {
		s.approved[p.ID] = struct{}{}
	}
}

func (s *Store) SelectNone() {
	s.approved = make(map[int]struct{}, len(s.proposals))
}

// Approved returns the approved proposals in stored order.
func (s *Store) Approved() []Proposal {
	out := make([]Proposal, 0, len(s.approved))
	for _, p := range s.proposals {
		if _, ok := s.approved[p.ID]; ok {
			out = append(out, p)
		}
	}
	return out
}

func (s *Store) Proposals() []Proposal {
	return append([]Proposal(nil), s.proposals...)
}

func (s *Store) IsApproved(id int) bool {
	_, ok := s.approved[id]
	return ok
}

func (s *Store) ApprovedCount() int {
	return len(s.approved)
}

func (s *Store) Len() int {
	return len(s.proposals)
}

// Clear drops every proposal and approval.
func (s *Store) Clear() {
	s.proposals = nil
	s.approved = make(map[int]struct{})
}

func (s *Store) has(id int) bool {
	for _, p := range s.proposals {
		if p.ID == id {
			return true
		}
	}
	return false
}
