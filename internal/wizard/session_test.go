package wizard

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MealVibe/internal/models"
)

type fakeRecommender struct {
	mu       sync.Mutex
	requests []Request
	set      models.SuggestionSet
	err      error
	block    chan struct{}
}

func (f *fakeRecommender) Recommend(ctx context.Context, req Request) (models.SuggestionSet, error) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	return f.set, f.err
}

func (f *fakeRecommender) last() Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

type fakeScanner struct {
	text    string
	err     error
	release chan struct{}
}

func (f *fakeScanner) Scan(ctx context.Context, image []byte) (string, error) {
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.text, f.err
}

func goodSet() models.SuggestionSet {
	return models.SuggestionSet{
		Message: "Something warm for a slow day.",
		Suggestions: []models.Suggestion{
			{Title: "Miso Soup", Prep: "Whisk miso into hot broth.", Vibe: "Warm"},
			{Title: "Congee", Prep: "Simmer rice until silky.", Vibe: "Soft"},
			{Title: "Shakshuka", Prep: "Poach eggs in tomato sauce.", Vibe: "Hearty"},
		},
	}
}

// answerAll fills the gated steps and walks to the last question.
func answerAll(t *testing.T, s *Session) {
	t.Helper()
	ctx := context.Background()
	for s.Step() != StepIngredients {
		switch s.Step() {
		case StepCamera:
			require.NoError(t, s.Skip())
			continue
		case StepMood:
			_, err := s.Toggle(FieldMood, "tired")
			require.NoError(t, err)
		case StepFlavor:
			_, err := s.Toggle(FieldFlavor, "savory")
			require.NoError(t, err)
		case StepTemperature:
			_, err := s.Toggle(FieldTemperature, "hot")
			require.NoError(t, err)
		case StepTexture:
			_, err := s.Toggle(FieldTexture, "soft")
			require.NoError(t, err)
		}
		require.NoError(t, s.Advance(ctx))
	}
}

func TestAdvanceRequiresSelection(t *testing.T) {
	s := NewSession(&fakeRecommender{set: goodSet()})
	ctx := context.Background()

	require.NoError(t, s.Advance(ctx))
	assert.Equal(t, StepMood, s.Step())
	assert.False(t, s.Snapshot().CanAdvance)

	err := s.Advance(ctx)
	require.ErrorIs(t, err, ErrSelectionRequired)
	assert.Equal(t, StepMood, s.Step())

	_, err = s.Toggle(FieldMood, "calm")
	require.NoError(t, err)
	assert.True(t, s.Snapshot().CanAdvance)
	require.NoError(t, s.Advance(ctx))
	assert.Equal(t, StepFlavor, s.Step())

	_, err = s.Toggle(FieldFlavor, "bitter")
	require.ErrorIs(t, err, ErrUnknownOption)
}

func TestUngatedStepsAdvanceEmpty(t *testing.T) {
	s := NewSession(&fakeRecommender{set: goodSet()})
	answerAll(t, s)

	require.NoError(t, s.Retreat())
	require.NoError(t, s.Retreat())
	assert.Equal(t, StepProtocols, s.Step())
	require.NoError(t, s.Advance(context.Background()))
	require.NoError(t, s.Advance(context.Background()))
	assert.Equal(t, StepIngredients, s.Step())
}

func TestGenerateSuccess(t *testing.T) {
	rec := &fakeRecommender{set: goodSet()}
	s := NewSession(rec)
	answerAll(t, s)
	require.NoError(t, s.SetText(TextIngredients, "rice"))

	require.NoError(t, s.Advance(context.Background()))

	st := s.Snapshot()
	assert.Equal(t, StepRecommendations, st.Step)
	require.NotNil(t, st.Suggestions)
	assert.Equal(t, goodSet(), *st.Suggestions)
	assert.Empty(t, st.Error)
	assert.False(t, st.CanAdvance)
	assert.False(t, st.CanRetreat)

	req := rec.last()
	assert.Equal(t, KindInitial, req.Kind)
	assert.Equal(t, "rice", req.Inputs.Ingredients)
	assert.Equal(t, ProteinAnimal, req.Protein)

	assert.ErrorIs(t, s.Advance(context.Background()), ErrInvalidTransition)
	assert.ErrorIs(t, s.Retreat(), ErrInvalidTransition)
	_, err := s.Toggle(FieldMood, "calm")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestGenerateFailureFallsBack(t *testing.T) {
	rec := &fakeRecommender{err: errors.New("dial tcp: connection refused")}
	s := NewSession(rec)
	answerAll(t, s)

	require.NoError(t, s.Advance(context.Background()))

	st := s.Snapshot()
	assert.Equal(t, StepRecommendations, st.Step)
	require.NotNil(t, st.Suggestions)
	assert.Equal(t, SelectFallback(nil).Suggestions, st.Suggestions.Suggestions)
	assert.Equal(t, MessageSingleFeeling, st.Suggestions.Message)
	assert.Equal(t, AdvisoryMessage, st.Error)
}

func TestMalformedResponseFallsBack(t *testing.T) {
	bad := goodSet()
	bad.Suggestions = bad.Suggestions[:1]
	s := NewSession(&fakeRecommender{set: bad}, WithProfile(&models.UserProfile{SavedDiet: "Vegan"}))
	answerAll(t, s)

	require.NoError(t, s.Advance(context.Background()))
	st := s.Snapshot()
	assert.Equal(t, "Protein-Packed Lentil Bowl", st.Suggestions.Suggestions[0].Title)
	assert.Equal(t, AdvisoryMessage, st.Error)
}

func TestMoreSuggestions(t *testing.T) {
	rec := &fakeRecommender{set: goodSet()}
	s := NewSession(rec)
	answerAll(t, s)

	assert.ErrorIs(t, s.MoreSuggestions(context.Background()), ErrInvalidTransition)
	require.NoError(t, s.Advance(context.Background()))

	more := models.SuggestionSet{
		Message: "ignored",
		Suggestions: []models.Suggestion{
			{Title: "Ramen"}, {Title: "Dal"}, {Title: "Risotto"},
		},
	}
	rec.mu.Lock()
	rec.set = more
	rec.mu.Unlock()

	require.NoError(t, s.MoreSuggestions(context.Background()))
	st := s.Snapshot()
	assert.Equal(t, goodSet().Message, st.Suggestions.Message)
	assert.Equal(t, more.Suggestions, st.Suggestions.Suggestions)
	assert.Equal(t, KindMore, rec.last().Kind)

	rec.mu.Lock()
	rec.err = errors.New("status 500")
	rec.mu.Unlock()
	require.NoError(t, s.MoreSuggestions(context.Background()))
	st = s.Snapshot()
	assert.Equal(t, SelectFallback(nil), *st.Suggestions)
	assert.Equal(t, AdvisoryMessage, st.Error)
}

func TestGeneratingRejectsNavigation(t *testing.T) {
	rec := &fakeRecommender{set: goodSet(), block: make(chan struct{})}
	s := NewSession(rec)
	answerAll(t, s)

	done := make(chan error, 1)
	go func() { done <- s.Advance(context.Background()) }()

	require.Eventually(t, func() bool { return s.Snapshot().Generating }, time.Second, 5*time.Millisecond)
	assert.ErrorIs(t, s.Advance(context.Background()), ErrGenerating)
	assert.ErrorIs(t, s.Retreat(), ErrGenerating)

	close(rec.block)
	require.NoError(t, <-done)
	assert.Equal(t, StepRecommendations, s.Step())
}

func TestProfileSeedingAndRestart(t *testing.T) {
	profile := &models.UserProfile{SavedDiet: "Vegetarian", SavedAllergies: []string{"Dairy"}}
	s := NewSession(&fakeRecommender{set: goodSet()}, WithProfile(profile))

	st := s.Snapshot()
	assert.Equal(t, []string{"Vegetarian"}, st.Answers.Protocols)
	assert.Equal(t, []string{"Dairy"}, st.Answers.Allergies)

	answerAll(t, s)
	_, err := s.Toggle(FieldProtocols, "Vegetarian")
	require.NoError(t, err)
	_, err = s.Toggle(FieldAllergies, "Other")
	require.NoError(t, err)
	require.NoError(t, s.SetText(TextOtherAllergy, "kiwi"))
	require.NoError(t, s.SetText(TextIngredients, "tofu"))
	require.NoError(t, s.Advance(context.Background()))

	s.Restart()
	st = s.Snapshot()
	assert.Equal(t, StepWelcome, st.Step)
	assert.Nil(t, st.Suggestions)
	assert.Empty(t, st.Error)
	want := Seed(profile)
	assert.Equal(t, want, st.Answers)
}

func TestAttachProfile(t *testing.T) {
	s := NewSession(&fakeRecommender{set: goodSet()})
	s.AttachProfile(&models.UserProfile{SavedDiet: "Keto", SavedAllergies: []string{"Eggs"}})
	assert.Equal(t, []string{"Keto"}, s.Snapshot().Answers.Protocols)

	require.NoError(t, s.Advance(context.Background()))
	s.AttachProfile(&models.UserProfile{SavedDiet: "Vegan"})
	assert.Equal(t, []string{"Keto"}, s.Snapshot().Answers.Protocols)

	s.Restart()
	assert.Equal(t, []string{"Vegan"}, s.Snapshot().Answers.Protocols)
}

func TestPhotoScanMergesIngredients(t *testing.T) {
	rec := &fakeRecommender{set: goodSet()}
	scanner := &fakeScanner{text: "eggs, milk", release: make(chan struct{})}
	results := make(chan ScanResult, 1)
	s := NewSession(rec, WithCamera(true), WithScanner(scanner),
		WithScanListener(func(r ScanResult) { results <- r }))

	require.NoError(t, s.Advance(context.Background()))
	require.NoError(t, s.CapturePhoto([]byte{0xff, 0xd8}))
	assert.Equal(t, StepMood, s.Step(), "capture must not wait for the scan")
	assert.True(t, s.Snapshot().Scanning)

	close(scanner.release)
	r := <-results
	require.NoError(t, r.Err)
	assert.Equal(t, "eggs, milk", s.Snapshot().Answers.DetectedIngredients)

	answerAll(t, s)
	require.NoError(t, s.SetText(TextIngredients, "spinach"))
	require.NoError(t, s.Advance(context.Background()))
	assert.Equal(t, "eggs, milk, spinach", rec.last().Inputs.Ingredients)
}

func TestGenerationWaitsForPendingScan(t *testing.T) {
	rec := &fakeRecommender{set: goodSet()}
	scanner := &fakeScanner{text: "leftover rice", release: make(chan struct{})}
	s := NewSession(rec, WithCamera(true), WithScanner(scanner), WithScanWait(2*time.Second))

	require.NoError(t, s.Advance(context.Background()))
	require.NoError(t, s.CapturePhoto([]byte("jpeg")))
	answerAll(t, s)

	go func() {
		time.Sleep(20 * time.Millisecond)
		close(scanner.release)
	}()
	require.NoError(t, s.Advance(context.Background()))
	assert.Equal(t, "leftover rice", rec.last().Inputs.Ingredients)
}

func TestScanFailureIsSilent(t *testing.T) {
	rec := &fakeRecommender{set: goodSet()}
	s := NewSession(rec, WithCamera(true), WithScanner(&fakeScanner{err: errors.New("vision down")}))

	require.NoError(t, s.Advance(context.Background()))
	require.NoError(t, s.CapturePhoto([]byte("jpeg")))
	answerAll(t, s)
	require.NoError(t, s.SetText(TextIngredients, "beans"))
	require.NoError(t, s.Advance(context.Background()))

	assert.Equal(t, "beans", rec.last().Inputs.Ingredients)
	assert.Empty(t, s.Snapshot().Error)
}

func TestSkipCamera(t *testing.T) {
	s := NewSession(&fakeRecommender{set: goodSet()}, WithCamera(true))
	assert.ErrorIs(t, s.Skip(), ErrInvalidTransition)

	require.NoError(t, s.Advance(context.Background()))
	assert.False(t, s.Snapshot().CanAdvance)
	assert.ErrorIs(t, s.Advance(context.Background()), ErrInvalidTransition)
	assert.Equal(t, StepCamera, s.Step())

	assert.ErrorIs(t, s.CapturePhoto([]byte("jpeg")), ErrNoScanner)
	require.NoError(t, s.Skip())

	st := s.Snapshot()
	assert.Equal(t, StepMood, st.Step)
	assert.True(t, st.PhotoSkipped)
}

func TestResolverLatestScanWins(t *testing.T) {
	first := make(chan struct{})
	sc := scannerFunc(func(ctx context.Context, image []byte) (string, error) {
		if string(image) == "first" {
			<-first
			return "stale", nil
		}
		return "fresh", nil
	})
	r := NewResolver(sc, time.Second, nil)

	require.NoError(t, r.Begin([]byte("first")))
	require.NoError(t, r.Begin([]byte("second")))
	require.True(t, r.Await(context.Background(), time.Second))
	close(first)

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, "fresh", r.Detected())

	r.Reset()
	assert.Empty(t, r.Detected())
	assert.True(t, r.Await(context.Background(), 0))
}

type scannerFunc func(ctx context.Context, image []byte) (string, error)

func (f scannerFunc) Scan(ctx context.Context, image []byte) (string, error) { return f(ctx, image) }
