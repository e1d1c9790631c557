package domain

import "errors"

var (
	// ErrSessionNotFound is returned when a quiz session has not been initialized.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrQuestionNotFound indicates a question ID is not part of the quiz.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrInvalidQuiz is returned when authored quiz content fails validation.
	ErrInvalidQuiz = errors.New("invalid quiz")

	// ErrAudienceDenied blocks a session whose quiz targets a different authentication state.
	ErrAudienceDenied = errors.New("quiz is not available for this audience")
	// ErrNotStarted is returned for in-progress operations before the start is confirmed.
	ErrNotStarted = errors.New("quiz session not started")
	// ErrAlreadyStarted is returned when a start is requested twice.
	ErrAlreadyStarted = errors.New("quiz session already started")
	// ErrSessionCompleted is returned for mutations after submission.
	ErrSessionCompleted = errors.New("quiz session already completed")
	// ErrNoPendingDialog is returned when confirming a dialog that is not open.
	ErrNoPendingDialog = errors.New("no confirmation pending")
	// ErrDialogOpen is returned when an action requires no open dialog.
	ErrDialogOpen = errors.New("a confirmation dialog is open")
	// ErrNotBookmarked is returned when an explanation is requested for an unbookmarked question.
	ErrNotBookmarked = errors.New("question is not bookmarked")

	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("forbidden")

	// ErrUnknownLevel is returned for a grade level missing from the catalog.
	ErrUnknownLevel = errors.New("unknown grade level")
	// ErrUnknownStream is returned for a stream or group missing from the catalog.
	ErrUnknownStream = errors.New("unknown stream or group")
	// ErrUnknownSubject is returned for a subject code missing from the catalog.
	ErrUnknownSubject = errors.New("unknown subject")
	// ErrCompulsorySubject is returned when removing a compulsory subject.
	ErrCompulsorySubject = errors.New("compulsory subject cannot be removed")
)
