package wizard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"MealVibe/internal/models"
)

// Recommender produces a suggestion set for a compiled request.
type Recommender interface {
	Recommend(ctx context.Context, req Request) (models.SuggestionSet, error)
}

// DefaultScanWait bounds how long generation waits for a pending photo scan.
const DefaultScanWait = 5 * time.Second

// State is a read-only snapshot of a session.
type State struct {
	Step         Step                  `json:"step"`
	Steps        []Step                `json:"steps"`
	Answers      AnswerRecord          `json:"answers"`
	Suggestions  *models.SuggestionSet `json:"suggestions,omitempty"`
	Error        string                `json:"error,omitempty"`
	Generating   bool                  `json:"generating"`
	Scanning     bool                  `json:"scanning"`
	PhotoSkipped bool                  `json:"photoSkipped"`
	CanAdvance   bool                  `json:"canAdvance"`
	CanRetreat   bool                  `json:"canRetreat"`
}

// Session owns one user's walk through the wizard. All methods are safe for
// concurrent use.
type Session struct {
	recommender Recommender
	scanner     Scanner
	catalog     *Catalog
	withCamera  bool
	scanWait    time.Duration
	scanTimeout time.Duration
	onScan      func(ScanResult)

	mu          sync.Mutex
	seq         *Sequencer
	record      AnswerRecord
	resolver    *Resolver
	profile     *models.UserProfile
	suggestions *models.SuggestionSet
	errMsg      string
	generating  bool
	epoch       uint64 // bumped by Restart to orphan in-flight generation
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithCamera includes the photo step.
func WithCamera(enabled bool) SessionOption {
	return func(s *Session) { s.withCamera = enabled }
}

// WithProfile seeds the session from a signed-in user.
func WithProfile(p *models.UserProfile) SessionOption {
	return func(s *Session) { s.profile = p }
}

// WithScanner sets the photo scanner. Without one CapturePhoto fails.
func WithScanner(sc Scanner) SessionOption {
	return func(s *Session) { s.scanner = sc }
}

// WithScanWait sets how long generation waits for a pending scan. Zero
// compiles immediately with whatever has been detected so far.
func WithScanWait(d time.Duration) SessionOption {
	return func(s *Session) { s.scanWait = d }
}

// WithScanTimeout bounds a single photo scan.
func WithScanTimeout(d time.Duration) SessionOption {
	return func(s *Session) { s.scanTimeout = d }
}

// WithCatalog replaces the embedded option catalogue.
func WithCatalog(c *Catalog) SessionOption {
	return func(s *Session) {
		if c != nil {
			s.catalog = c
		}
	}
}

// WithScanListener registers fn to be called when a photo scan resolves.
func WithScanListener(fn func(ScanResult)) SessionOption {
	return func(s *Session) { s.onScan = fn }
}

// NewSession starts a session at the welcome step.
func NewSession(rec Recommender, opts ...SessionOption) *Session {
	s := &Session{
		recommender: rec,
		catalog:     DefaultCatalog(),
		scanWait:    DefaultScanWait,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.seq = NewSequencer(s.withCamera)
	s.resolver = NewResolver(s.scanner, s.scanTimeout, s.onScan)
	s.record = Seed(s.profile)
	return s
}

// Catalog returns the options offered by this session.
func (s *Session) Catalog() *Catalog {
	return s.catalog
}

// Profile returns the profile the session was seeded from, if any.
func (s *Session) Profile() *models.UserProfile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profile
}

// Step returns the current step.
func (s *Session) Step() Step {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq.Current()
}

// Toggle flips value in f and reports whether it is selected afterwards.
func (s *Session) Toggle(f Field, value string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.seq.Terminal() {
		return false, fmt.Errorf("%w: answers are closed at %s", ErrInvalidTransition, s.seq.Current())
	}
	if !s.catalog.Accepts(f, value) {
		return false, fmt.Errorf("%w: %q for %s", ErrUnknownOption, value, f)
	}
	return s.record.Toggle(f, value), nil
}

// SetText stores a free-text answer.
func (s *Session) SetText(f TextField, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.seq.Terminal() {
		return fmt.Errorf("%w: answers are closed at %s", ErrInvalidTransition, s.seq.Current())
	}
	s.record.SetText(f, value)
	return nil
}

// Advance moves to the next step. On the last question it compiles the
// answers, calls the recommender and lands on the recommendations step,
// falling back to canned suggestions when the call fails.
func (s *Session) Advance(ctx context.Context) error {
	s.mu.Lock()
	if s.generating {
		s.mu.Unlock()
		return ErrGenerating
	}
	if f, ok := RequiredField(s.seq.Current()); ok && len(s.record.Values(f)) == 0 {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrSelectionRequired, f)
	}
	if !s.seq.AtLastQuestion() {
		_, err := s.seq.Fire(EventAdvance)
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	return s.generate(ctx, KindInitial)
}

// Retreat moves to the previous step.
func (s *Session) Retreat() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.generating {
		return ErrGenerating
	}
	_, err := s.seq.Fire(EventRetreat)
	return err
}

// Skip bypasses the photo step.
func (s *Session) Skip() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.seq.Fire(EventSkip); err != nil {
		return err
	}
	s.resolver.Skip()
	return nil
}

// CapturePhoto starts scanning image and advances past the photo step
// without waiting for the result.
func (s *Session) CapturePhoto(image []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.seq.Current() != StepCamera {
		return fmt.Errorf("%w: photo from %s", ErrInvalidTransition, s.seq.Current())
	}
	if err := s.resolver.Begin(image); err != nil {
		return err
	}
	_, err := s.seq.Fire(EventCapture)
	return err
}

// MoreSuggestions asks for three different ideas. Only the suggestions are
// replaced on success; a failure falls back to the full canned set.
func (s *Session) MoreSuggestions(ctx context.Context) error {
	s.mu.Lock()
	if s.generating {
		s.mu.Unlock()
		return ErrGenerating
	}
	if !s.seq.Terminal() {
		step := s.seq.Current()
		s.mu.Unlock()
		return fmt.Errorf("%w: more suggestions from %s", ErrInvalidTransition, step)
	}
	s.mu.Unlock()

	return s.generate(ctx, KindMore)
}

func (s *Session) generate(ctx context.Context, kind RequestKind) error {
	s.mu.Lock()
	if s.generating {
		s.mu.Unlock()
		return ErrGenerating
	}
	s.generating = true
	epoch := s.epoch
	s.mu.Unlock()

	if !s.resolver.Await(ctx, s.scanWait) {
		log.Debug().Msg("compiling recommendations while photo scan is pending")
	}

	s.mu.Lock()
	rec := s.record.Clone()
	rec.DetectedIngredients = s.resolver.Detected()
	s.mu.Unlock()

	req := Compile(rec, kind)
	set, err := s.recommend(ctx, req)

	s.mu.Lock()
	defer s.mu.Unlock()

	if epoch != s.epoch {
		log.Debug().Str("kind", kind.Value).Msg("discarding recommendations for restarted session")
		return nil
	}
	s.generating = false

	if err != nil {
		log.Error().Err(err).Str("kind", kind.Value).Msg("recommendation call failed, using fallback")
		fb := Fallback(rec.Mood, rec.Protocols)
		s.suggestions = &fb
		s.errMsg = AdvisoryMessage
	} else if kind == KindMore && s.suggestions != nil {
		s.suggestions.Suggestions = set.Suggestions
		s.errMsg = ""
	} else {
		s.suggestions = &set
		s.errMsg = ""
	}

	if !s.seq.Terminal() {
		if _, err := s.seq.Fire(EventComplete); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) recommend(ctx context.Context, req Request) (models.SuggestionSet, error) {
	if s.recommender == nil {
		return models.SuggestionSet{}, errors.New("no recommender configured")
	}
	set, err := s.recommender.Recommend(ctx, req)
	if err != nil {
		return models.SuggestionSet{}, err
	}
	if err := ValidateSuggestions(set); err != nil {
		return models.SuggestionSet{}, err
	}
	return set, nil
}

// Restart returns to the welcome step with answers re-seeded from the
// retained profile. Suggestions, errors and scans in flight are dropped.
func (s *Session) Restart() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.epoch++
	s.generating = false
	s.seq.Reset()
	s.resolver.Reset()
	s.record = Seed(s.profile)
	s.suggestions = nil
	s.errMsg = ""
}

// AttachProfile retains p for later restarts. Answers are only re-seeded
// while the user has not started answering.
func (s *Session) AttachProfile(p *models.UserProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.profile = p
	if s.seq.Current() == StepWelcome && !s.generating {
		s.record = Seed(p)
	}
}

// Snapshot returns the current state.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.record.Clone()
	rec.DetectedIngredients = s.resolver.Detected()

	st := State{
		Step:         s.seq.Current(),
		Steps:        s.seq.Steps(),
		Answers:      rec,
		Error:        s.errMsg,
		Generating:   s.generating,
		Scanning:     s.resolver.Scanning(),
		PhotoSkipped: s.resolver.Skipped(),
		CanRetreat:   !s.generating && s.seq.Can(EventRetreat),
	}
	if s.suggestions != nil {
		set := *s.suggestions
		set.Suggestions = append([]models.Suggestion(nil), set.Suggestions...)
		st.Suggestions = &set
	}
	if !s.generating && (s.seq.Can(EventAdvance) || s.seq.AtLastQuestion()) {
		st.CanAdvance = true
		if f, ok := RequiredField(s.seq.Current()); ok {
			st.CanAdvance = len(rec.Values(f)) > 0
		}
	}
	return st
}
