package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"MealVibe/internal/wizard"
)

type terminal struct {
	s     *wizard.Session
	in    *bufio.Scanner
	out   io.Writer
	photo string
}

type choice struct {
	value string
	label string
}

var questions = map[wizard.Step]string{
	wizard.StepWelcome:     "Welcome to MealVibe! Tell us how you feel and we'll suggest something to eat.",
	wizard.StepCamera:      "Want to scan your fridge?",
	wizard.StepMood:        "How are you feeling right now?",
	wizard.StepFlavor:      "What flavors are you craving?",
	wizard.StepTemperature: "Hot or cold?",
	wizard.StepTexture:     "What texture sounds good?",
	wizard.StepProtocols:   "Following any dietary protocols?",
	wizard.StepAllergies:   "Any allergies or intolerances?",
	wizard.StepIngredients: "Anything in the kitchen you want to use up?",
}

func (t *terminal) run(ctx context.Context) error {
	for {
		st := t.s.Snapshot()
		t.render(st)
		fmt.Fprint(t.out, "> ")

		if !t.in.Scan() {
			return t.in.Err()
		}
		quit, err := t.handle(ctx, st, strings.TrimSpace(t.in.Text()))
		if quit {
			return nil
		}
		if err != nil {
			fmt.Fprintf(t.out, "! %s\n", err)
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

func (t *terminal) handle(ctx context.Context, st wizard.State, line string) (bool, error) {
	switch line {
	case "q":
		return true, nil
	case "b":
		return false, t.s.Retreat()
	case "s":
		return false, t.s.Skip()
	case "r":
		t.s.Restart()
		return false, nil
	case "m":
		return false, t.s.MoreSuggestions(ctx)
	case "":
		if st.Step == wizard.StepCamera && t.photo != "" {
			image, err := os.ReadFile(t.photo)
			if err != nil {
				return false, err
			}
			return false, t.s.CapturePhoto(image)
		}
		if st.Step == wizard.StepIngredients {
			fmt.Fprintln(t.out, "Finding ideas...")
		}
		return false, t.s.Advance(ctx)
	}

	switch st.Step {
	case wizard.StepIngredients:
		return false, t.s.SetText(wizard.TextIngredients, line)
	case wizard.StepAllergies:
		if !isNumberList(line) {
			return false, t.s.SetText(wizard.TextOtherAllergy, line)
		}
	}

	f, ok := stepField(st.Step)
	if !ok {
		return false, fmt.Errorf("unknown command %q", line)
	}
	return false, t.toggle(f, line)
}

// toggle flips the options numbered in line, e.g. "1 3" or "2,4".
func (t *terminal) toggle(f wizard.Field, line string) error {
	options := choices(t.s.Catalog(), f)
	for _, tok := range strings.FieldsFunc(line, func(r rune) bool { return r == ',' || r == ' ' }) {
		n, err := strconv.Atoi(tok)
		if err != nil || n < 1 || n > len(options) {
			return fmt.Errorf("pick a number between 1 and %d", len(options))
		}
		if _, err := t.s.Toggle(f, options[n-1].value); err != nil {
			return err
		}
	}
	return nil
}

func (t *terminal) render(st wizard.State) {
	fmt.Fprintln(t.out)
	if st.Step == wizard.StepRecommendations {
		t.renderSuggestions(st)
		return
	}

	fmt.Fprintf(t.out, "[%d/%d] %s\n", slices.Index(st.Steps, st.Step)+1, len(st.Steps)-1, questions[st.Step])

	switch st.Step {
	case wizard.StepWelcome:
		fmt.Fprintln(t.out, "Press Enter to start, q to quit.")
		return
	case wizard.StepCamera:
		fmt.Fprintf(t.out, "Enter scans %s, s skips.\n", t.photo)
		return
	case wizard.StepIngredients:
		if st.Answers.DetectedIngredients != "" {
			fmt.Fprintf(t.out, "From your photo: %s\n", st.Answers.DetectedIngredients)
		} else if st.Scanning {
			fmt.Fprintln(t.out, "Still scanning your photo...")
		}
		if st.Answers.Ingredients != "" {
			fmt.Fprintf(t.out, "You added: %s\n", st.Answers.Ingredients)
		}
		fmt.Fprintln(t.out, "Type ingredients, then Enter on an empty line for ideas.")
		return
	}

	f, _ := stepField(st.Step)
	selected := st.Answers.Values(f)
	for i, c := range choices(t.s.Catalog(), f) {
		mark := " "
		if slices.Contains(selected, c.value) {
			mark = "x"
		}
		fmt.Fprintf(t.out, "  [%s] %d. %s\n", mark, i+1, c.label)
	}
	if st.Step == wizard.StepAllergies && slices.Contains(selected, wizard.OtherAllergy) {
		fmt.Fprintf(t.out, "Other: %q (type to change)\n", st.Answers.OtherAllergy)
	}
	fmt.Fprintln(t.out, "Numbers toggle, Enter continues, b goes back.")
}

func (t *terminal) renderSuggestions(st wizard.State) {
	if st.Error != "" {
		fmt.Fprintf(t.out, "! %s\n", st.Error)
	}
	if st.Suggestions == nil {
		return
	}
	fmt.Fprintln(t.out, st.Suggestions.Message)
	for i, s := range st.Suggestions.Suggestions {
		fmt.Fprintf(t.out, "\n%d. %s  (%s)\n   %s\n", i+1, s.Title, s.Vibe, s.Prep)
	}
	fmt.Fprintln(t.out, "\nm more ideas, r start over, q quit.")
}

func stepField(step wizard.Step) (wizard.Field, bool) {
	switch step {
	case wizard.StepMood:
		return wizard.FieldMood, true
	case wizard.StepFlavor:
		return wizard.FieldFlavor, true
	case wizard.StepTemperature:
		return wizard.FieldTemperature, true
	case wizard.StepTexture:
		return wizard.FieldTexture, true
	case wizard.StepProtocols:
		return wizard.FieldProtocols, true
	case wizard.StepAllergies:
		return wizard.FieldAllergies, true
	}
	return "", false
}

func choices(c *wizard.Catalog, f wizard.Field) []choice {
	if opts := c.Options(f); opts != nil {
		out := make([]choice, len(opts))
		for i, o := range opts {
			out[i] = choice{value: o.ID, label: o.Emoji + " " + o.Label}
		}
		return out
	}
	suggested := c.Suggested(f)
	out := make([]choice, len(suggested))
	for i, s := range suggested {
		out[i] = choice{value: s, label: s}
	}
	return out
}

func isNumberList(line string) bool {
	fields := strings.FieldsFunc(line, func(r rune) bool { return r == ',' || r == ' ' })
	if len(fields) == 0 {
		return false
	}
	for _, f := range fields {
		if _, err := strconv.Atoi(f); err != nil {
			return false
		}
	}
	return true
}
