package geotag

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"
)

//go:embed gazetteer.yaml
var gazetteerYAML []byte

// gazetteerFile mirrors the YAML layout of the embedded data file.
type gazetteerFile struct {
	StateCode   string            `yaml:"state_code"`
	Counties    []string          `yaml:"counties"`
	Cities      map[string]string `yaml:"cities"`
	OtherStates []string          `yaml:"other_states"`
}

// Gazetteer holds the place-name lookup tables used by the Tagger: the
// canonical county list, a city-to-county hint map, and the names of
// competing states.
type Gazetteer struct {
	stateCode   string
	counties    map[string]string // normalized name -> canonical name
	cities      map[string]string // normalized city -> canonical county
	otherStates []string          // normalized
}

// LoadGazetteer parses the embedded gazetteer data.
func LoadGazetteer() (*Gazetteer, error) {
	return parseGazetteer(gazetteerYAML)
}

func parseGazetteer(data []byte) (*Gazetteer, error) {
	var file gazetteerFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse gazetteer: %w", err)
	}

	if err := validateGazetteer(&file); err != nil {
		return nil, fmt.Errorf("gazetteer validation failed: %w", err)
	}

	g := &Gazetteer{
		stateCode:   file.StateCode,
		counties:    make(map[string]string, len(file.Counties)),
		cities:      make(map[string]string, len(file.Cities)),
		otherStates: make([]string, 0, len(file.OtherStates)),
	}
	for _, name := range file.Counties {
		g.counties[Normalize(name)] = name
	}
	for city, county := range file.Cities {
		g.cities[Normalize(city)] = county
	}
	for _, name := range file.OtherStates {
		g.otherStates = append(g.otherStates, Normalize(name))
	}
	return g, nil
}

// validateGazetteer checks the parsed data for internal consistency.
func validateGazetteer(file *gazetteerFile) error {
	if file.StateCode == "" {
		return fmt.Errorf("state_code is required")
	}

	if len(file.Counties) == 0 {
		return fmt.Errorf("counties list is empty")
	}

	known := make(map[string]bool, len(file.Counties))
	for _, name := range file.Counties {
		if name == "" {
			return fmt.Errorf("county name must not be empty")
		}
		if known[name] {
			return fmt.Errorf("duplicate county %q", name)
		}
		known[name] = true
	}

	// Every city hint must resolve to a county we know about.
	for city, county := range file.Cities {
		if !known[county] {
			return fmt.Errorf("city %q maps to unknown county %q", city, county)
		}
	}

	return nil
}

// StateCode returns the state the gazetteer covers.
func (g *Gazetteer) StateCode() string {
	return g.stateCode
}

// CountyCount returns the number of counties in the gazetteer.
func (g *Gazetteer) CountyCount() int {
	return len(g.counties)
}

// Counties returns the canonical county names in sorted order. The
// coverage alert and the Bing seeder diff feed coverage against it.
func (g *Gazetteer) Counties() []string {
	names := make([]string, 0, len(g.counties))
	for _, name := range g.counties {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CanonicalCounty resolves a county name in any casing or punctuation to
// its canonical spelling. The second return is false when the name is not
// a known county.
func (g *Gazetteer) CanonicalCounty(name string) (string, bool) {
	canonical, ok := g.counties[Normalize(name)]
	return canonical, ok
}

// CountyForCity returns the county a city belongs to.
func (g *Gazetteer) CountyForCity(city string) (string, bool) {
	county, ok := g.cities[Normalize(city)]
	return county, ok
}

// Normalize lowercases s and replaces punctuation with spaces so that
// "St. Matthews" and "st matthews" compare equal. Runs of whitespace
// collapse to a single space.
func Normalize(s string) string {
	mapped := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, s)
	return strings.Join(strings.Fields(mapped), " ")
}
