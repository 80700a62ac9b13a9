// Package timbre holds the static per-vowel voice colour used by the
// additive synthesizer. Tables are built once at start-up and only read
// afterwards, so they are safe to share between concurrent renders.
package timbre

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Profile is the harmonic series and formant set of one vowel.
type Profile struct {
	// Harmonics are relative amplitudes of the 1st..Nth partial.
	Harmonics []float64 `yaml:"harmonics"`
	// Formants are resonance centre frequencies in Hz.
	Formants []float64 `yaml:"formants"`
}

// DefaultVowel is used for graphemes with no known vowel.
const DefaultVowel = "a"

var builtin = map[string]Profile{
	"a": {Harmonics: []float64{1.0, 0.7, 0.5, 0.3, 0.2, 0.1}, Formants: []float64{950, 1400, 2800}},
	"e": {Harmonics: []float64{1.0, 0.5, 0.8, 0.4, 0.2, 0.1}, Formants: []float64{600, 2100, 2900}},
	"i": {Harmonics: []float64{1.0, 0.3, 0.9, 0.5, 0.3, 0.2}, Formants: []float64{350, 2600, 3400}},
	"o": {Harmonics: []float64{1.0, 0.9, 0.4, 0.6, 0.3, 0.2}, Formants: []float64{600, 1050, 2600}},
	"u": {Harmonics: []float64{1.0, 0.6, 0.2, 0.4, 0.5, 0.3}, Formants: []float64{350, 950, 2500}},
}

// Table maps vowels to profiles. The zero value is not usable; use Default or Load.
type Table struct {
	profiles map[string]Profile
}

// Default returns the built-in five-vowel table.
func Default() *Table {
	return &Table{profiles: cloneProfiles(builtin)}
}

type fileFormat struct {
	Profiles map[string]Profile `yaml:"profiles"`
}

// Load reads profile overrides from a YAML file on top of the built-in
// table. An empty path returns Default.
func Load(path string) (*Table, error) {
	table := Default()
	if path == "" {
		return table, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read timbre profiles: %w", err)
	}
	var file fileFormat
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse timbre profiles: %w", err)
	}
	for vowel, p := range file.Profiles {
		if err := validateProfile(p); err != nil {
			return nil, fmt.Errorf("timbre profile %q: %w", vowel, err)
		}
		table.profiles[vowel] = cloneProfile(p)
	}
	return table, nil
}

func validateProfile(p Profile) error {
	if len(p.Harmonics) == 0 {
		return fmt.Errorf("harmonics must not be empty")
	}
	if len(p.Formants) < 2 || len(p.Formants) > 3 {
		return fmt.Errorf("expected 2 or 3 formants, got %d", len(p.Formants))
	}
	for _, f := range p.Formants {
		if f <= 0 {
			return fmt.Errorf("formant frequencies must be positive")
		}
	}
	return nil
}

// Profile returns the profile for vowel, falling back to DefaultVowel.
// The returned slices must not be modified.
func (t *Table) Profile(vowel string) Profile {
	if p, ok := t.profiles[vowel]; ok {
		return p
	}
	return t.profiles[DefaultVowel]
}

// ForGrapheme resolves a lyric grapheme to its vowel profile.
func (t *Table) ForGrapheme(grapheme string) Profile {
	return t.Profile(VowelFor(grapheme))
}

// Vowels lists the vowels present in the table in sorted order.
func (t *Table) Vowels() []string {
	out := make([]string, 0, len(t.profiles))
	for v := range t.profiles {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func cloneProfiles(src map[string]Profile) map[string]Profile {
	out := make(map[string]Profile, len(src))
	for k, v := range src {
		out[k] = cloneProfile(v)
	}
	return out
}

func cloneProfile(p Profile) Profile {
	return Profile{
		Harmonics: append([]float64(nil), p.Harmonics...),
		Formants:  append([]float64(nil), p.Formants...),
	}
}
