package app

import (
	"context"
	"sync"
	"time"

	"studyhub/internal/domain"
)

// State is the lifecycle state of a quiz-taking session.
type State string

const (
	StateNotStarted State = "not_started"
	StateInProgress State = "in_progress"
	StateCompleted  State = "completed"
)

// Dialog is the confirmation currently awaiting the user.
type Dialog string

const (
	DialogNone   Dialog = ""
	DialogStart  Dialog = "confirm_start"
	DialogSubmit Dialog = "confirm_submit"
)

const defaultTickInterval = time.Second

// Keys understood by HandleKey. Digits "1" to "9" select options.
const (
	KeyPrev     = "ArrowLeft"
	KeyUp       = "ArrowUp"
	KeyNext     = "ArrowRight"
	KeyDown     = "ArrowDown"
	KeyBookmark = "b"
)

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithIdentity sets the caller the session is started for. Nil means anonymous.
func WithIdentity(id *domain.Identity) SessionOption {
	return func(s *Session) { s.identity = id }
}

// WithClock replaces time.Now, for deterministic timestamps in tests.
func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) { s.now = now }
}

// WithTickInterval sets the countdown cadence.
func WithTickInterval(d time.Duration) SessionOption {
	return func(s *Session) {
		if d > 0 {
			s.tickInterval = d
		}
	}
}

// WithCompletionHook registers a callback invoked once with the result. It
// runs outside the session lock and must not block.
func WithCompletionHook(fn func(domain.QuizResult)) SessionOption {
	return func(s *Session) { s.onComplete = fn }
}

// WithExplanations seeds the explanations already generated for this user,
// keyed by ExplanationKey.
func WithExplanations(cached map[string]string) SessionOption {
	return func(s *Session) {
		for k, v := range cached {
			s.explanations[k] = v
		}
	}
}

func (s *Session) explanationKey(questionID string) string {
	return ExplanationKey(s.quiz.ID, questionID)
}

// Session is the state of one user taking one quiz.
type Session struct {
	id           string
	quiz         domain.Quiz
	identity     *domain.Identity
	now          func() time.Time
	tickInterval time.Duration
	onComplete   func(domain.QuizResult)

	mu             sync.RWMutex
	state          State
	dialog         Dialog
	cursor         int
	bookmarkedOnly bool
	filterAnchor   string
	answers        map[string]string
	bookmarks      map[string]struct{}
	remaining      int
	startedAt      time.Time
	result         *domain.QuizResult
	stopTimer      context.CancelFunc
	closed         bool
	subscribers    map[chan SessionView]struct{}
	explanations   map[string]string
}

// NewSession creates a session in the NotStarted state.
func NewSession(id string, quiz domain.Quiz, opts ...SessionOption) *Session {
	s := &Session{
		id:           id,
		quiz:         quiz,
		now:          time.Now,
		tickInterval: defaultTickInterval,
		state:        StateNotStarted,
		answers:      make(map[string]string),
		bookmarks:    make(map[string]struct{}),
		subscribers:  make(map[chan SessionView]struct{}),
		explanations: make(map[string]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) ID() string                 { return s.id }
func (s *Session) Quiz() domain.Quiz          { return s.quiz }
func (s *Session) Identity() *domain.Identity { return s.identity }

// RequestStart checks the quiz audience against the caller and opens the
// start confirmation.
func (s *Session) RequestStart() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateInProgress:
		return domain.ErrAlreadyStarted
	case StateCompleted:
		return domain.ErrSessionCompleted
	}
	if !s.quiz.TargetAudience.Admits(s.identity) {
		return domain.ErrAudienceDenied
	}
	s.dialog = DialogStart
	s.broadcastLocked()
	return nil
}

// CancelStart closes the start confirmation.
func (s *Session) CancelStart() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dialog == DialogStart {
		s.dialog = DialogNone
		s.broadcastLocked()
	}
}

// ConfirmStart moves the session to InProgress and starts the countdown of a
// timed quiz.
func (s *Session) ConfirmStart() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateNotStarted {
		return domain.ErrAlreadyStarted
	}
	if s.dialog != DialogStart {
		return domain.ErrNoPendingDialog
	}
	s.dialog = DialogNone
	s.state = StateInProgress
	s.startedAt = s.now()
	s.remaining = s.quiz.TimeLimit * 60
	s.cursor = 0
	if s.timed() && !s.closed {
		ctx, cancel := context.WithCancel(context.Background())
		s.stopTimer = cancel
		go s.runTimer(ctx)
	}
	s.broadcastLocked()
	return nil
}

func (s *Session) timed() bool {
	return s.quiz.TimeLimit > 0
}

func (s *Session) runTimer(ctx context.Context) {
	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if done := s.Tick(); done {
				return
			}
		}
	}
}

// Tick counts down one second and submits the session when time runs out.
// It reports whether the countdown is over. Untimed sessions never expire.
func (s *Session) Tick() bool {
	s.mu.Lock()
	if s.state != StateInProgress {
		s.mu.Unlock()
		return true
	}
	if !s.timed() {
		s.mu.Unlock()
		return false
	}
	if s.remaining > 0 {
		s.remaining--
	}
	if s.remaining > 0 {
		s.broadcastLocked()
		s.mu.Unlock()
		return false
	}
	result := s.completeLocked(domain.CompletionTimeout)
	s.mu.Unlock()
	s.fireComplete(result)
	return true
}

// SelectAnswer records optionID as the answer to questionID, replacing any
// earlier answer.
func (s *Session) SelectAnswer(questionID, optionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireInProgressLocked(); err != nil {
		return err
	}
	if _, ok := s.quiz.Question(questionID); !ok {
		return domain.ErrQuestionNotFound
	}
	s.answers[questionID] = optionID
	s.broadcastLocked()
	return nil
}

// ToggleBookmark flips the bookmark of questionID.
func (s *Session) ToggleBookmark(questionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireInProgressLocked(); err != nil {
		return err
	}
	if _, ok := s.quiz.Question(questionID); !ok {
		return domain.ErrQuestionNotFound
	}
	s.toggleBookmarkLocked(questionID)
	s.broadcastLocked()
	return nil
}

func (s *Session) toggleBookmarkLocked(questionID string) {
	if _, ok := s.bookmarks[questionID]; ok {
		delete(s.bookmarks, questionID)
	} else {
		s.bookmarks[questionID] = struct{}{}
	}
	if s.bookmarkedOnly {
		s.clampLocked(len(s.visibleLocked()))
	}
}

// SetBookmarkedOnly switches between all questions and bookmarked ones. The
// cursor stays on the current question when the new list contains it, and is
// clamped into the new list otherwise.
func (s *Session) SetBookmarkedOnly(on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireInProgressLocked(); err != nil {
		return err
	}
	s.setBookmarkedOnlyLocked(on)
	s.broadcastLocked()
	return nil
}

// ToggleBookmarkedOnly flips the bookmarked-only filter.
func (s *Session) ToggleBookmarkedOnly() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireInProgressLocked(); err != nil {
		return err
	}
	s.setBookmarkedOnlyLocked(!s.bookmarkedOnly)
	s.broadcastLocked()
	return nil
}

func (s *Session) setBookmarkedOnlyLocked(on bool) {
	if s.bookmarkedOnly == on {
		return
	}
	target := ""
	if current, ok := s.currentLocked(); ok {
		target = current.ID
	}
	// Leaving the filter without having navigated returns to the question
	// that was current when the filter was switched on.
	if !on && s.filterAnchor != "" {
		target = s.filterAnchor
	}
	s.filterAnchor = ""
	if on {
		s.filterAnchor = target
	}

	s.bookmarkedOnly = on
	visible := s.visibleLocked()
	s.clampLocked(len(visible))
	for i, idx := range visible {
		if s.quiz.Questions[idx].ID == target {
			s.cursor = i
			break
		}
	}
}

// Next moves the cursor forward; at the end of the list it stays put.
func (s *Session) Next() error { return s.move(1) }

// Prev moves the cursor back; at the start of the list it stays put.
func (s *Session) Prev() error { return s.move(-1) }

func (s *Session) move(delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireInProgressLocked(); err != nil {
		return err
	}
	s.moveLocked(delta)
	s.broadcastLocked()
	return nil
}

func (s *Session) moveLocked(delta int) {
	target := s.cursor + delta
	if target >= 0 && target < len(s.visibleLocked()) {
		s.cursor = target
		s.filterAnchor = ""
	}
}

// GoTo moves the cursor to index in the visible list. Out-of-range indexes
// are ignored.
func (s *Session) GoTo(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireInProgressLocked(); err != nil {
		return err
	}
	if index >= 0 && index < len(s.visibleLocked()) && index != s.cursor {
		s.cursor = index
		s.filterAnchor = ""
	}
	s.broadcastLocked()
	return nil
}

// HandleKey applies a keyboard shortcut. Keys are ignored while a dialog is
// open; unknown keys and digits beyond the option count are no-ops.
func (s *Session) HandleKey(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireInProgressLocked(); err != nil {
		return err
	}
	if s.dialog != DialogNone {
		return domain.ErrDialogOpen
	}
	switch key {
	case KeyPrev, KeyUp:
		s.moveLocked(-1)
	case KeyNext, KeyDown:
		s.moveLocked(1)
	case KeyBookmark, "B":
		if q, ok := s.currentLocked(); ok {
			s.toggleBookmarkLocked(q.ID)
		}
	default:
		if len(key) != 1 || key[0] < '1' || key[0] > '9' {
			return nil
		}
		q, ok := s.currentLocked()
		if !ok {
			return nil
		}
		n := int(key[0] - '0')
		if n > len(q.Options) {
			return nil
		}
		s.answers[q.ID] = q.Options[n-1].ID
	}
	s.broadcastLocked()
	return nil
}

// RequestSubmit opens the submit confirmation.
func (s *Session) RequestSubmit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireInProgressLocked(); err != nil {
		return err
	}
	s.dialog = DialogSubmit
	s.broadcastLocked()
	return nil
}

// CancelSubmit closes the submit confirmation.
func (s *Session) CancelSubmit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dialog == DialogSubmit {
		s.dialog = DialogNone
		s.broadcastLocked()
	}
}

// ConfirmSubmit submits after a RequestSubmit. Once completed it returns the
// existing result.
func (s *Session) ConfirmSubmit() (domain.QuizResult, error) {
	s.mu.RLock()
	state, dialog := s.state, s.dialog
	s.mu.RUnlock()
	if state == StateInProgress && dialog != DialogSubmit {
		return domain.QuizResult{}, domain.ErrNoPendingDialog
	}
	return s.Submit()
}

// Submit completes the session and scores every question of the quiz.
// Whichever of Submit and the countdown runs first produces the result;
// later calls return that same result without side effects.
func (s *Session) Submit() (domain.QuizResult, error) {
	s.mu.Lock()
	if s.state == StateCompleted {
		result := *s.result
		s.mu.Unlock()
		return result, nil
	}
	if s.state != StateInProgress {
		s.mu.Unlock()
		return domain.QuizResult{}, domain.ErrNotStarted
	}
	result := s.completeLocked(domain.CompletionSubmitted)
	s.mu.Unlock()
	s.fireComplete(result)
	return result, nil
}

func (s *Session) completeLocked(reason domain.CompletionReason) domain.QuizResult {
	if s.stopTimer != nil {
		s.stopTimer()
		s.stopTimer = nil
	}
	result := scoreAttempt(s.quiz, s.answers, s.startedAt, s.now())
	result.SessionID = s.id
	result.Reason = reason
	if s.identity != nil {
		result.UserID = s.identity.UserID
	}
	s.result = &result
	s.state = StateCompleted
	s.dialog = DialogNone
	s.broadcastLocked()
	return result
}

func (s *Session) fireComplete(result domain.QuizResult) {
	if s.onComplete != nil {
		s.onComplete(result)
	}
}

// Result returns the result once the session is completed.
func (s *Session) Result() (domain.QuizResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.result == nil {
		return domain.QuizResult{}, false
	}
	return *s.result, true
}

// Exit abandons an unfinished session: answers, bookmarks, cursor and timer
// are discarded and no result is produced. A completed session keeps its result.
func (s *Session) Exit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopTimer != nil {
		s.stopTimer()
		s.stopTimer = nil
	}
	if s.state == StateCompleted {
		return
	}
	s.state = StateNotStarted
	s.dialog = DialogNone
	s.cursor = 0
	s.bookmarkedOnly = false
	s.filterAnchor = ""
	s.remaining = 0
	s.startedAt = time.Time{}
	s.answers = make(map[string]string)
	s.bookmarks = make(map[string]struct{})
	s.broadcastLocked()
}

// Close releases the timer and all subscribers. The session accepts no new
// countdown afterwards.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopTimer != nil {
		s.stopTimer()
		s.stopTimer = nil
	}
	s.closed = true
	for ch := range s.subscribers {
		delete(s.subscribers, ch)
		close(ch)
	}
}

func (s *Session) requireInProgressLocked() error {
	switch s.state {
	case StateNotStarted:
		return domain.ErrNotStarted
	case StateCompleted:
		return domain.ErrSessionCompleted
	}
	return nil
}

// visibleLocked returns indexes into quiz.Questions, in quiz order.
func (s *Session) visibleLocked() []int {
	out := make([]int, 0, len(s.quiz.Questions))
	for i, q := range s.quiz.Questions {
		if s.bookmarkedOnly {
			if _, ok := s.bookmarks[q.ID]; !ok {
				continue
			}
		}
		out = append(out, i)
	}
	return out
}

func (s *Session) clampLocked(n int) {
	switch {
	case n == 0, s.cursor < 0:
		s.cursor = 0
	case s.cursor >= n:
		s.cursor = n - 1
	}
}

func (s *Session) currentLocked() (domain.Question, bool) {
	visible := s.visibleLocked()
	if s.cursor < 0 || s.cursor >= len(visible) {
		return domain.Question{}, false
	}
	return s.quiz.Questions[visible[s.cursor]], true
}

func (s *Session) isBookmarked(questionID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.bookmarks[questionID]
	return ok
}

func (s *Session) cachedExplanation(questionID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	text, ok := s.explanations[s.explanationKey(questionID)]
	return text, ok
}

func (s *Session) storeExplanation(questionID, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.explanations[s.explanationKey(questionID)] = text
}
