package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"studyhub/internal/content"
	"studyhub/internal/domain"
	"studyhub/internal/metrics"
)

// SessionRepository abstracts how live quiz sessions are kept (in-memory, Redis, etc).
type SessionRepository interface {
	Save(session *Session)
	Get(sessionID string) (*Session, bool)
	Delete(sessionID string)
}

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
	ListQuizzes(ctx context.Context, filter domain.QuizFilter) ([]domain.Quiz, error)
	SaveQuiz(ctx context.Context, quiz domain.Quiz) error
}

// ResultStore persists completed quiz results.
type ResultStore interface {
	SaveResult(ctx context.Context, result domain.QuizResult) error
	ListResults(ctx context.Context, userID string) ([]domain.QuizResult, error)
}

// ExplanationCache keeps generated explanations per user. Keys are built by
// ExplanationKey.
type ExplanationCache interface {
	Load(ctx context.Context, userID string) (map[string]string, error)
	Store(ctx context.Context, userID, key, text string) error
}

// ExplanationKey identifies a question across quizzes.
func ExplanationKey(quizID, questionID string) string {
	return quizID + "/" + questionID
}

// ServiceOption configures a QuizService.
type ServiceOption func(*QuizService)

func WithLogger(logger *zap.Logger) ServiceOption {
	return func(s *QuizService) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) ServiceOption {
	return func(s *QuizService) { s.metrics = m }
}

// WithExplainer enables explanations for bookmarked questions.
func WithExplainer(cache ExplanationCache, generator content.Generator) ServiceOption {
	return func(s *QuizService) {
		s.explanations = cache
		s.generator = generator
	}
}

// WithSessionClock sets the clock and countdown cadence of new sessions.
func WithSessionClock(now func() time.Time, tick time.Duration) ServiceOption {
	return func(s *QuizService) {
		if now != nil {
			s.now = now
		}
		s.tickInterval = tick
	}
}

// WithPersistTimeout bounds each result write.
func WithPersistTimeout(d time.Duration) ServiceOption {
	return func(s *QuizService) { s.persistTimeout = d }
}

// QuizService contains the quiz-taking use cases.
type QuizService struct {
	sessions       SessionRepository
	quizzes        QuizRepository
	results        ResultStore
	explanations   ExplanationCache
	generator      content.Generator
	logger         *zap.Logger
	metrics        *metrics.Metrics
	now            func() time.Time
	tickInterval   time.Duration
	persistTimeout time.Duration
	inflight       sync.WaitGroup
}

func NewQuizService(sessions SessionRepository, quizzes QuizRepository, results ResultStore, opts ...ServiceOption) *QuizService {
	s := &QuizService{
		sessions:       sessions,
		quizzes:        quizzes,
		results:        results,
		logger:         zap.NewNop(),
		now:            time.Now,
		tickInterval:   defaultTickInterval,
		persistTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StartSession creates a session for quizID. The audience check runs here
// too so a caller never gets a session it cannot start.
func (s *QuizService) StartSession(ctx context.Context, quizID string, identity *domain.Identity) (*Session, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if !quiz.TargetAudience.Admits(identity) {
		return nil, domain.ErrAudienceDenied
	}

	cached := map[string]string{}
	if identity != nil && s.explanations != nil {
		loaded, err := s.explanations.Load(ctx, identity.UserID)
		if err != nil {
			s.logger.Warn("load explanation cache", zap.String("user_id", identity.UserID), zap.Error(err))
		} else {
			cached = loaded
		}
	}

	session := NewSession(uuid.NewString(), quiz,
		WithIdentity(identity),
		WithClock(s.now),
		WithTickInterval(s.tickInterval),
		WithExplanations(cached),
		WithCompletionHook(s.persist),
	)
	s.sessions.Save(session)
	s.metrics.SessionStarted()
	s.logger.Info("quiz session created",
		zap.String("session_id", session.ID()),
		zap.String("quiz_id", quiz.ID),
		zap.Bool("authenticated", identity != nil))
	return session, nil
}

// Session returns a live session.
func (s *QuizService) Session(sessionID string) (*Session, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

// EndSession tears a session down, cancelling its countdown.
func (s *QuizService) EndSession(sessionID string) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return
	}
	session.Close()
	s.sessions.Delete(sessionID)
}

// persist hands a result to the store without blocking the session. Failures
// are logged and counted; the result itself stays authoritative.
func (s *QuizService) persist(result domain.QuizResult) {
	s.metrics.ResultRecorded(string(result.Reason), result.Percentage)
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.persistTimeout)
		defer cancel()

		fields := []zap.Field{
			zap.String("result_id", result.ID),
			zap.String("session_id", result.SessionID),
			zap.String("quiz_id", result.Quiz.ID),
			zap.String("user_id", result.UserID),
		}
		if err := s.results.SaveResult(ctx, result); err != nil {
			s.metrics.PersistFailed()
			s.logger.Error("persist quiz result", append(fields, zap.Error(err))...)
			return
		}
		s.logger.Info("quiz result persisted", append(fields, zap.Float64("score", result.Score))...)
	}()
}

// Close waits for in-flight result writes.
func (s *QuizService) Close() {
	s.inflight.Wait()
}

// ListQuizzes returns the quizzes the caller may start. Administrators see
// every quiz.
func (s *QuizService) ListQuizzes(ctx context.Context, identity *domain.Identity) ([]domain.Quiz, error) {
	return s.quizzes.ListQuizzes(ctx, domain.QuizFilter{Identity: identity, All: identity.IsAdmin()})
}

// GetQuiz returns one quiz.
func (s *QuizService) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	return s.quizzes.GetQuiz(ctx, quizID)
}

// SaveQuiz stores authored quiz content. Only administrators may author.
func (s *QuizService) SaveQuiz(ctx context.Context, identity *domain.Identity, quiz domain.Quiz) error {
	if identity == nil {
		return domain.ErrUnauthenticated
	}
	if !identity.IsAdmin() {
		return domain.ErrForbidden
	}
	if quiz.TargetAudience == "" {
		quiz.TargetAudience = domain.AudienceAll
	}
	if err := domain.ValidateQuiz(quiz); err != nil {
		return err
	}
	if err := s.quizzes.SaveQuiz(ctx, quiz); err != nil {
		return fmt.Errorf("save quiz: %w", err)
	}
	s.logger.Info("quiz saved", zap.String("quiz_id", quiz.ID), zap.String("author", identity.UserID))
	return nil
}

// Results lists the persisted results of the signed-in caller.
func (s *QuizService) Results(ctx context.Context, identity *domain.Identity) ([]domain.QuizResult, error) {
	if identity == nil {
		return nil, domain.ErrUnauthenticated
	}
	return s.results.ListResults(ctx, identity.UserID)
}

// Explain returns an explanation of a bookmarked question, generating it on
// first request. Generated text is cached for the session and written through
// to the user's explanation cache.
func (s *QuizService) Explain(ctx context.Context, sessionID, questionID string) (string, error) {
	session, err := s.Session(sessionID)
	if err != nil {
		return "", err
	}
	question, ok := session.Quiz().Question(questionID)
	if !ok {
		return "", domain.ErrQuestionNotFound
	}
	if !session.isBookmarked(questionID) {
		return "", domain.ErrNotBookmarked
	}
	if text, ok := session.cachedExplanation(questionID); ok {
		s.metrics.Explanation("cache")
		return text, nil
	}
	if s.generator == nil {
		return "", fmt.Errorf("explanations are not configured")
	}

	text, err := s.generator.Generate(ctx, content.ExplanationPrompt(question))
	if err != nil {
		s.metrics.Explanation("error")
		s.logger.Warn("generate explanation",
			zap.String("session_id", sessionID),
			zap.String("question_id", questionID),
			zap.Error(err))
		return "", fmt.Errorf("generate explanation: %w", err)
	}
	s.metrics.Explanation("generated")
	session.storeExplanation(questionID, text)

	if identity := session.Identity(); identity != nil && s.explanations != nil {
		if err := s.explanations.Store(ctx, identity.UserID, ExplanationKey(session.Quiz().ID, questionID), text); err != nil {
			s.logger.Warn("store explanation", zap.String("user_id", identity.UserID), zap.Error(err))
		}
	}
	return text, nil
}
