package category

import (
	"os"

	"gopkg.in/yaml.v3"

	perrs "saferoute/internal/platform/errors"
)

// fileEntry mirrors one row of the harm-weight table file on disk.
type fileEntry struct {
	ID         string  `yaml:"id"`
	HarmWeight float64 `yaml:"harm_weight"`
	ToD        struct {
		Night   float64 `yaml:"night"`
		Morning float64 `yaml:"morning"`
		Day     float64 `yaml:"day"`
		Evening float64 `yaml:"evening"`
	} `yaml:"time_of_day"`
}

// Load reads a harm-weight table from a YAML file at path, falling back to
// Default() entries for any category the file doesn't mention. An empty
// path returns Default() directly, matching "ship with calibrated defaults".
func Load(path string) (Table, error) {
	if path == "" {
		return Default(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Table{}, perrs.Wrapf(err, perrs.ErrorCodeDB, "category: read harm weight table %s", path)
	}
	var entries []fileEntry
	if err := yaml.Unmarshal(raw, &entries); err != nil {
		return Table{}, perrs.Wrapf(err, perrs.ErrorCodeInvalidArgument, "category: parse harm weight table %s", path)
	}
	if len(entries) == 0 {
		return Table{}, perrs.InvalidArgf("category: harm weight table %s is empty", path)
	}

	t := Default()
	for _, e := range entries {
		if e.ID == "" {
			return Table{}, perrs.InvalidArgf("category: harm weight entry missing id")
		}
		if e.HarmWeight < 0 {
			return Table{}, perrs.InvalidArgf("category: %s has negative harm_weight", e.ID)
		}
		t.byID[e.ID] = Category{
			ID:         e.ID,
			HarmWeight: e.HarmWeight,
			ToD: ToD{
				Night:   orOne(e.ToD.Night),
				Morning: orOne(e.ToD.Morning),
				Day:     orOne(e.ToD.Day),
				Evening: orOne(e.ToD.Evening),
			},
		}
	}
	return t, nil
}

// orOne treats an unset (zero) multiplier in the file as "no adjustment".
func orOne(v float64) float64 {
	if v == 0 {
		return 1
	}
	return v
}
