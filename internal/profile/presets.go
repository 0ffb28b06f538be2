package profile

import (
	"sort"

	"github.com/KaramelBytes/citycluster-cli/internal/dataprep"
	"github.com/KaramelBytes/citycluster-cli/internal/pipeline"
)

var presets = map[string]func() *Profile{
	// City-level population data: encode the city name and cluster on it with population.
	"chennai": func() *Profile {
		p := NewProfile("chennai", "cluster cities by population and encoded name", "")
		p.Roles = pipeline.Roles{
			Categorical: []string{"City"},
			Numeric:     []string{"Population"},
			Encode:      "City",
			Features:    []string{"Population", "City_Encoded"},
		}
		return p
	},
	// Ward-level density and income; wards with no positive density are dropped.
	"density": func() *Profile {
		p := NewProfile("density", "cluster wards by population density and income", "")
		p.Roles = pipeline.Roles{
			Numeric:  []string{"population_density", "income"},
			Features: []string{"population_density", "income"},
		}
		p.Filters = []dataprep.Filter{{Column: "population_density", Op: dataprep.OpGT, Value: "0"}}
		return p
	},
}

// Preset returns a fresh copy of a built-in profile.
func Preset(name string) (*Profile, bool) {
	f, ok := presets[name]
	if !ok {
		return nil, false
	}
	return f(), true
}

// PresetNames lists the built-in profiles in name order.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for n := range presets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
