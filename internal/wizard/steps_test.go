package wizard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSequencerOrder(t *testing.T) {
	tests := []struct {
		name   string
		camera bool
		want   []Step
	}{
		{"with camera", true, []Step{StepWelcome, StepCamera, StepMood, StepFlavor, StepTemperature,
			StepTexture, StepProtocols, StepAllergies, StepIngredients, StepRecommendations}},
		{"without camera", false, []Step{StepWelcome, StepMood, StepFlavor, StepTemperature,
			StepTexture, StepProtocols, StepAllergies, StepIngredients, StepRecommendations}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seq := NewSequencer(tt.camera)
			assert.Equal(t, tt.want, seq.Steps())
			assert.Equal(t, tt.camera, seq.HasCamera())
			assert.Equal(t, StepWelcome, seq.Current())
		})
	}
}

func TestSequencerWalk(t *testing.T) {
	seq := NewSequencer(true)

	_, err := seq.Fire(EventRetreat)
	require.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, StepWelcome, seq.Current())

	got, err := seq.Fire(EventAdvance)
	require.NoError(t, err)
	assert.Equal(t, StepCamera, got)

	// the photo step only offers a photo or skipping it
	assert.False(t, seq.Can(EventAdvance))
	_, err = seq.Fire(EventAdvance)
	require.ErrorIs(t, err, ErrInvalidTransition)
	got, err = seq.Fire(EventCapture)
	require.NoError(t, err)
	assert.Equal(t, StepMood, got)

	for _, want := range []Step{StepFlavor, StepTemperature,
		StepTexture, StepProtocols, StepAllergies, StepIngredients} {
		got, err := seq.Fire(EventAdvance)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	assert.True(t, seq.AtLastQuestion())
	_, err = seq.Fire(EventAdvance)
	require.ErrorIs(t, err, ErrInvalidTransition)

	got, err = seq.Fire(EventComplete)
	require.NoError(t, err)
	assert.Equal(t, StepRecommendations, got)
	assert.True(t, seq.Terminal())

	for _, ev := range []Event{EventAdvance, EventRetreat, EventSkip, EventCapture, EventComplete} {
		assert.False(t, seq.Can(ev), "terminal step must not accept %s", ev)
	}

	seq.Reset()
	assert.Equal(t, StepWelcome, seq.Current())
}

func TestSequencerSkipOnlyFromCamera(t *testing.T) {
	seq := NewSequencer(true)
	_, err := seq.Fire(EventSkip)
	require.ErrorIs(t, err, ErrInvalidTransition)

	_, err = seq.Fire(EventAdvance)
	require.NoError(t, err)
	got, err := seq.Fire(EventSkip)
	require.NoError(t, err)
	assert.Equal(t, StepMood, got)

	got, err = seq.Fire(EventRetreat)
	require.NoError(t, err)
	assert.Equal(t, StepCamera, got)
}

func TestRequiredField(t *testing.T) {
	gated := map[Step]Field{
		StepMood:        FieldMood,
		StepFlavor:      FieldFlavor,
		StepTemperature: FieldTemperature,
		StepTexture:     FieldTexture,
	}
	for _, step := range NewSequencer(true).Steps() {
		f, ok := RequiredField(step)
		want, gate := gated[step]
		assert.Equal(t, gate, ok, step)
		assert.Equal(t, want, f, step)
	}
}
