// SPDX-License-Identifier: MIT
package synth

import (
	"errors"
	"math/rand/v2"
	"testing"

	"pluck/internal/karplus"
)

// sequenceSource yields Uint64 values that rand.Float64 maps back onto the
// listed floats, cycling when exhausted.
type sequenceSource struct {
	values []float64
	next   int
}

func (s *sequenceSource) Uint64() uint64 {
	v := s.values[s.next%len(s.values)]
	s.next++
	return uint64(v * (1 << 53))
}

func sequenceRand(values ...float64) *rand.Rand {
	return rand.New(&sequenceSource{values: values})
}

func TestNewBank(t *testing.T) {
	t.Run("keys sorted", func(t *testing.T) {
		b, err := NewBank(44100, map[rune]float64{'z': 220, 'a': 440, 'm': 330})
		if err != nil {
			t.Fatalf("NewBank() error = %v", err)
		}
		got := b.Keys()
		want := []rune{'a', 'm', 'z'}
		if len(got) != len(want) {
			t.Fatalf("Keys() = %q, want %q", got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("Keys() = %q, want %q", got, want)
			}
		}
		if b.Len() != 3 {
			t.Errorf("Len() = %d, want 3", b.Len())
		}
	})

	t.Run("invalid frequency", func(t *testing.T) {
		_, err := NewBank(44100, map[rune]float64{'a': 0})
		if !errors.Is(err, karplus.ErrInvalidFrequency) {
			t.Errorf("NewBank() error = %v, want %v", err, karplus.ErrInvalidFrequency)
		}
	})

	t.Run("empty bank is silent", func(t *testing.T) {
		b, err := NewBank(44100, nil)
		if err != nil {
			t.Fatalf("NewBank() error = %v", err)
		}
		if got := b.Mix(); got != 0 {
			t.Errorf("Mix() = %v, want 0", got)
		}
		b.Advance()
	})

	t.Run("keys copy", func(t *testing.T) {
		b, _ := NewBank(44100, map[rune]float64{'a': 440})
		keys := b.Keys()
		keys[0] = 'x'
		if _, ok := b.String('a'); !ok {
			t.Error("mutating Keys() result changed the bank")
		}
	})
}

func TestBankSilentUntilTriggered(t *testing.T) {
	b, err := NewBank(44100, map[rune]float64{'a': 440, 'b': 550}, WithSeed(1))
	if err != nil {
		t.Fatalf("NewBank() error = %v", err)
	}
	for range 1000 {
		if got := b.Mix(); got != 0 {
			t.Fatalf("Mix() = %v before any trigger, want 0", got)
		}
		b.Advance()
	}
}

func TestBankTriggerUnknownKey(t *testing.T) {
	b, _ := NewBank(44100, map[rune]float64{'a': 440}, WithSeed(1))
	if b.Trigger('!') {
		t.Error("Trigger('!') = true, want false")
	}
	if got := b.Mix(); got != 0 {
		t.Errorf("Mix() = %v after unknown trigger, want 0", got)
	}
	if !b.Trigger('a') {
		t.Error("Trigger('a') = false, want true")
	}
}

func TestBankSuperposition(t *testing.T) {
	freqs := map[rune]float64{'a': 220, 'b': 330, 'c': 440}
	tests := []struct {
		name    string
		trigger []rune
	}{
		{"single", []rune{'b'}},
		{"pair", []rune{'a', 'c'}},
		{"all", []rune{'a', 'b', 'c'}},
		{"repeat", []rune{'a', 'a'}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := NewBank(8000, freqs, WithSeed(7))
			if err != nil {
				t.Fatalf("NewBank() error = %v", err)
			}
			for _, k := range tt.trigger {
				b.Trigger(k)
			}
			for tic := range 500 {
				var want float64
				for _, k := range b.keys {
					s, _ := b.String(k)
					want += s.Sample()
				}
				if got := b.Mix(); got != want {
					t.Fatalf("tic %d: Mix() = %v, want %v", tic, got, want)
				}
				b.Advance()
			}
		})
	}
}

func TestBankTriggersOnlyTargetString(t *testing.T) {
	b, _ := NewBank(8000, map[rune]float64{'a': 220, 'b': 330}, WithSeed(3))
	b.Trigger('a')

	sa, _ := b.String('a')
	sb, _ := b.String('b')
	if sa.Sample() == 0 {
		t.Error("plucked string is silent")
	}
	buf := make([]float64, sb.Capacity())
	sb.SamplesInto(buf)
	for _, v := range buf {
		if v != 0 {
			t.Fatalf("untouched string has sample %v", v)
		}
	}
}

func TestBankAdvanceTicsEveryString(t *testing.T) {
	b, _ := NewBank(8000, map[rune]float64{'a': 220, 'b': 330}, WithSeed(3))
	for range 10 {
		b.Advance()
	}
	for _, k := range b.Keys() {
		s, _ := b.String(k)
		if s.Time() != 10 {
			t.Errorf("string %q Time() = %d, want 10", k, s.Time())
		}
	}
}

func TestBankMixZeroAlloc(t *testing.T) {
	b, _ := NewBank(44100, map[rune]float64{'a': 220, 'b': 330, 'c': 440}, WithSeed(1))
	b.Trigger('a')
	b.Trigger('c')
	allocs := testing.AllocsPerRun(1000, func() {
		_ = b.Mix()
		b.Advance()
	})
	if allocs != 0 {
		t.Errorf("Mix/Advance allocs = %v, want 0", allocs)
	}
}

func BenchmarkBankCycle(b *testing.B) {
	freqs := make(map[rune]float64, 37)
	for i, k := range []rune("q2we4r5ty7u8i9op-[=zxdcfvgbnjmk,.;/' ") {
		freqs[k] = 110 * float64(i+1)
	}
	bank, _ := NewBank(44100, freqs, WithSeed(1))
	for _, k := range bank.Keys() {
		bank.Trigger(k)
	}
	b.ReportAllocs()
	for b.Loop() {
		_ = bank.Mix()
		bank.Advance()
	}
}
