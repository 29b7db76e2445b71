// SPDX-License-Identifier: MIT
/*
Package tuning maps trigger keys to string frequencies.

A Rule computes the frequency of the key at a given position of a keyboard
layout. Map applies a rule to every key of a layout once, at startup, and
returns the immutable key -> frequency table the string bank is built from.
*/
package tuning

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"
)

// DefaultKeyboard is the 37-key layout: two interleaved piano-style rows
// spanning three octaves, lowest note first.
const DefaultKeyboard = "q2we4r5ty7u8i9op-[=zxdcfvgbnjmk,.;/' "

const (
	ConcertA              = 440.0 // Reference pitch (Hz)
	DefaultReferenceIndex = 24    // Keyboard position that sounds the reference pitch
	DefaultStepsPerOctave = 12
)

var (
	ErrEmptyKeyboard     = errors.New("tuning: keyboard layout is empty")
	ErrDuplicateKey      = errors.New("tuning: keyboard layout repeats a key")
	ErrInvalidFrequency  = errors.New("tuning: rule produced a non-positive frequency")
	ErrInvalidReference  = errors.New("tuning: reference pitch must be positive")
	ErrUnknownRule       = errors.New("tuning: unknown rule")
	ErrInvalidScaleSteps = errors.New("tuning: steps per octave must be positive")
)

// Rule returns the frequency (Hz) of the key at index in a layout.
type Rule interface {
	Frequency(index int, key rune) (float64, error)
}

// RuleFunc adapts a plain function to the Rule interface.
type RuleFunc func(index int, key rune) (float64, error)

func (f RuleFunc) Frequency(index int, key rune) (float64, error) { return f(index, key) }

// EqualTemperament tunes key i to Reference * 2^((i - ReferenceIndex) / StepsPerOctave).
type EqualTemperament struct {
	Reference      float64
	ReferenceIndex int
	StepsPerOctave int
}

// NewEqualTemperament returns the twelve-tone rule with key 24 at reference.
func NewEqualTemperament(reference float64) EqualTemperament {
	return EqualTemperament{
		Reference:      reference,
		ReferenceIndex: DefaultReferenceIndex,
		StepsPerOctave: DefaultStepsPerOctave,
	}
}

func (e EqualTemperament) Frequency(index int, _ rune) (float64, error) {
	if e.Reference <= 0 || math.IsNaN(e.Reference) || math.IsInf(e.Reference, 0) {
		return 0, fmt.Errorf("%w: got %v", ErrInvalidReference, e.Reference)
	}
	if e.StepsPerOctave <= 0 {
		return 0, fmt.Errorf("%w: got %d", ErrInvalidScaleSteps, e.StepsPerOctave)
	}
	exp := float64(index-e.ReferenceIndex) / float64(e.StepsPerOctave)
	return e.Reference * math.Pow(2, exp), nil
}

// Map evaluates rule for every key of keyboard. Keys must be unique and every
// resulting frequency must be strictly positive and finite.
func Map(keyboard string, rule Rule) (map[rune]float64, error) {
	if keyboard == "" {
		return nil, ErrEmptyKeyboard
	}
	if !utf8.ValidString(keyboard) {
		return nil, fmt.Errorf("tuning: keyboard layout is not valid UTF-8")
	}

	freqs := make(map[rune]float64, utf8.RuneCountInString(keyboard))
	index := 0
	for _, key := range keyboard {
		if _, dup := freqs[key]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateKey, key)
		}
		f, err := rule.Frequency(index, key)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", key, err)
		}
		if f <= 0 || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("%w: key %q -> %v", ErrInvalidFrequency, key, f)
		}
		freqs[key] = f
		index++
	}
	return freqs, nil
}

// Options selects and parameterises a rule by name.
type Options struct {
	Rule           string  // "equal" or "lua"
	Reference      float64 // Reference pitch (Hz)
	ReferenceIndex int
	StepsPerOctave int
	Script         string // Lua source, required by the "lua" rule
}

// NewRule builds the rule named by opts.Rule. Rules that hold resources
// (the Lua interpreter) are released by the returned close function.
func NewRule(opts Options) (Rule, func(), error) {
	switch strings.ToLower(opts.Rule) {
	case "", "equal", "12tet":
		steps := opts.StepsPerOctave
		if steps == 0 {
			steps = DefaultStepsPerOctave
		}
		return EqualTemperament{
			Reference:      opts.Reference,
			ReferenceIndex: opts.ReferenceIndex,
			StepsPerOctave: steps,
		}, func() {}, nil
	case "lua":
		r, err := NewLuaRule(opts.Script, opts.Reference)
		if err != nil {
			return nil, nil, err
		}
		return r, r.Close, nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownRule, opts.Rule)
	}
}

// Build resolves opts into a key -> frequency table for keyboard.
func Build(keyboard string, opts Options) (map[rune]float64, error) {
	rule, closeRule, err := NewRule(opts)
	if err != nil {
		return nil, err
	}
	defer closeRule()
	return Map(keyboard, rule)
}

// NoteName returns the nearest twelve-tone note name for frequency, e.g. "A4".
func NoteName(frequency float64) string {
	if frequency <= 0 {
		return "?"
	}
	names := [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}
	midi := int(math.Round(69 + 12*math.Log2(frequency/ConcertA)))
	if midi < 0 {
		return "?"
	}
	return fmt.Sprintf("%s%d", names[midi%12], midi/12-1)
}
