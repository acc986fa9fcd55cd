package models

import (
	"errors"
	"fmt"
	"strings"
)

var ErrDuplicateState = errors.New("state listed more than once")

// CityScope is the authorization for one state: every city, or only Cities
type CityScope struct {
	All    bool     `json:"all"`
	Cities []string `json:"cities"`
}

// AuthorizedCities maps a state code to its CityScope.
// A state missing from the map is open to every city.
type AuthorizedCities map[string]CityScope

// IsCityAuthorized reports whether city in state is inside the authorized territory
func IsCityAuthorized(m AuthorizedCities, state, city string) bool {
	scope, ok := m[state]
	if !ok || scope.All {
		return true
	}
	for _, c := range scope.Cities {
		if sameCity(c, city) {
			return true
		}
	}
	return false
}

// SetStateMode switches a state between all-cities and explicit-list mode.
// Turning all on clears the list; turning it off keeps any cities chosen earlier.
func SetStateMode(m AuthorizedCities, state string, all bool) AuthorizedCities {
	out := m.Clone()
	scope := out[state]
	scope.All = all
	if all {
		scope.Cities = []string{}
	} else if scope.Cities == nil {
		scope.Cities = []string{}
	}
	out[state] = scope
	return out
}

// Clone returns a deep copy of the map
func (m AuthorizedCities) Clone() AuthorizedCities {
	out := make(AuthorizedCities, len(m))
	for state, scope := range m {
		cities := make([]string, len(scope.Cities))
		copy(cities, scope.Cities)
		out[state] = CityScope{All: scope.All, Cities: cities}
	}
	return out
}

// Normalize upper-cases state keys and trims city names, dropping duplicates and blanks in
// first-seen order. Two keys naming the same state fail with ErrDuplicateState.
func (m AuthorizedCities) Normalize() (AuthorizedCities, error) {
	out := make(AuthorizedCities, len(m))
	for state, scope := range m {
		key := strings.ToUpper(strings.TrimSpace(state))
		if _, seen := out[key]; seen {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateState, key)
		}
		cities := []string{}
		for _, c := range scope.Cities {
			c = strings.TrimSpace(c)
			if c == "" || containsCity(cities, c) {
				continue
			}
			cities = append(cities, c)
		}
		if scope.All {
			cities = []string{}
		}
		out[key] = CityScope{All: scope.All, Cities: cities}
	}
	return out, nil
}

// Prune drops every state that is not in regions
func (m AuthorizedCities) Prune(regions []string) AuthorizedCities {
	out := make(AuthorizedCities, len(m))
	for state, scope := range m.Clone() {
		for _, r := range regions {
			if r == state {
				out[state] = scope
				break
			}
		}
	}
	return out
}

func containsCity(cities []string, city string) bool {
	for _, c := range cities {
		if sameCity(c, city) {
			return true
		}
	}
	return false
}

func sameCity(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
