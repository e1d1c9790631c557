package app

import "studyhub/internal/domain"

// SessionView is a snapshot of a session for presentation. Option
// correctness is only visible through Result once the session is completed.
type SessionView struct {
	SessionID      string             `json:"sessionId"`
	QuizID         string             `json:"quizId"`
	Title          string             `json:"title"`
	State          State              `json:"state"`
	Dialog         Dialog             `json:"dialog,omitempty"`
	Cursor         int                `json:"cursor"`
	Visible        int                `json:"visible"`
	Total          int                `json:"total"`
	Answered       int                `json:"answered"`
	BookmarkedOnly bool               `json:"bookmarkedOnly"`
	Timed          bool               `json:"timed"`
	TimeRemaining  int                `json:"timeRemaining"`
	Current        *QuestionView      `json:"current,omitempty"`
	Palette        []PaletteEntry     `json:"palette"`
	Result         *domain.QuizResult `json:"result,omitempty"`
}

// QuestionView is the current question without correctness flags.
type QuestionView struct {
	ID         string       `json:"id"`
	Text       string       `json:"text"`
	ImageLink  string       `json:"imageLink,omitempty"`
	Marks      float64      `json:"marks"`
	Options    []OptionView `json:"options"`
	Selected   string       `json:"selected,omitempty"`
	Bookmarked bool         `json:"bookmarked"`
}

type OptionView struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// PaletteEntry describes one question of the visible list.
type PaletteEntry struct {
	QuestionID string `json:"questionId"`
	Answered   bool   `json:"answered"`
	Bookmarked bool   `json:"bookmarked"`
}

// Snapshot returns the current view of the session.
func (s *Session) Snapshot() SessionView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Subscribe returns a channel receiving a view after every transition,
// starting with the current one. Slow readers only see the latest view.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *Session) Subscribe() (<-chan SessionView, func()) {
	ch := make(chan SessionView, 8)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	s.subscribers[ch] = struct{}{}
	initial := s.snapshotLocked()
	s.mu.Unlock()

	ch <- initial

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Session) broadcastLocked() {
	if len(s.subscribers) == 0 {
		return
	}
	view := s.snapshotLocked()
	for ch := range s.subscribers {
		select {
		case ch <- view:
		default:
			// drop the stale view so a slow reader never blocks a transition
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- view:
			default:
			}
		}
	}
}

func (s *Session) snapshotLocked() SessionView {
	visible := s.visibleLocked()
	view := SessionView{
		SessionID:      s.id,
		QuizID:         s.quiz.ID,
		Title:          s.quiz.Title,
		State:          s.state,
		Dialog:         s.dialog,
		Cursor:         s.cursor,
		Visible:        len(visible),
		Total:          len(s.quiz.Questions),
		Answered:       len(s.answers),
		BookmarkedOnly: s.bookmarkedOnly,
		Timed:          s.timed(),
		TimeRemaining:  s.remaining,
		Palette:        make([]PaletteEntry, 0, len(visible)),
	}
	if s.state == StateNotStarted && s.timed() {
		view.TimeRemaining = s.quiz.TimeLimit * 60
	}
	for _, idx := range visible {
		q := s.quiz.Questions[idx]
		_, answered := s.answers[q.ID]
		_, bookmarked := s.bookmarks[q.ID]
		view.Palette = append(view.Palette, PaletteEntry{QuestionID: q.ID, Answered: answered, Bookmarked: bookmarked})
	}
	if s.state != StateNotStarted {
		if q, ok := s.currentLocked(); ok {
			_, bookmarked := s.bookmarks[q.ID]
			current := &QuestionView{
				ID:         q.ID,
				Text:       q.QuestionText,
				ImageLink:  q.ImageLink,
				Marks:      q.Marks,
				Selected:   s.answers[q.ID],
				Bookmarked: bookmarked,
				Options:    make([]OptionView, 0, len(q.Options)),
			}
			for _, opt := range q.Options {
				current.Options = append(current.Options, OptionView{ID: opt.ID, Text: opt.Text})
			}
			view.Current = current
		}
	}
	if s.result != nil {
		result := *s.result
		view.Result = &result
	}
	return view
}
