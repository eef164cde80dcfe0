package classifier

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/hermes-soc/filesorter/internal/core"
)

const NameHermes = "hermes"

const missionName = "hermes"

// instrumentAliases maps the target names used in raw (l0) filenames and the short names used in
// processed filenames to the canonical instrument name.
var instrumentAliases = map[string]string{
	"eea":     "eea",
	"nem":     "nemisis",
	"nemisis": "nemisis",
	"nemesis": "nemisis",
	"merit":   "merit",
	"mrt":     "merit",
	"spani":   "spani",
	"spn":     "spani",
}

// hermes_SPANI_l0_2023040-000018_v01.bin
var rawPattern = regexp.MustCompile(`(?i)^([a-z]+)_([a-z]+)_(l0)_(\d{4})(\d{3})-(\d{6})_v(\d+)(?:\.([a-z][a-z0-9]*))?$`)

// hermes_spn_2s_l3test_burst_20240406_120621_v2.4
var processedPattern = regexp.MustCompile(`(?i)^([a-z]+)_([a-z]+)_([a-z0-9]+)_(l[1-4]|ql)(test)?(?:_([a-z0-9-]+))?_(\d{8})_(\d{6})_v(\d+(?:\.\d+)*)(?:\.([a-z][a-z0-9]*))?$`)

// NewHermes returns the classifier for HERMES science filenames.
//
// Two forms are recognised:
//   - raw: hermes_<TARGET>_l0_<YYYYDDD>-<HHMMSS>_v<NN>[.<ext>]
//   - processed: hermes_<short>_<mode>_<level>[test][_<descriptor>]_<YYYYMMDD>_<HHMMSS>_v<X.Y.Z>[.<ext>]
//
// Instrument tokens without a known alias are passed through lowercased, so that resolution rather
// than parsing reports them as unknown.
func NewHermes() core.Classifier {
	return NewFunc(NameHermes, ParseHermes)
}

// ParseHermes parses the file name part of key.
func ParseHermes(key string) (*core.ParsedFilename, error) {
	name := core.FileName(key)
	if name == "" || name == "." || name == "/" {
		return nil, fmt.Errorf("%w: empty file name in key %q", core.ErrParse, key)
	}

	if m := rawPattern.FindStringSubmatch(name); m != nil {
		return parseRaw(name, m)
	}
	if m := processedPattern.FindStringSubmatch(name); m != nil {
		return parseProcessed(name, m)
	}

	return nil, fmt.Errorf("%w: %q does not follow the %s naming convention", core.ErrParse, name, missionName)
}

func parseRaw(name string, m []string) (*core.ParsedFilename, error) {
	if !strings.EqualFold(m[1], missionName) {
		return nil, fmt.Errorf("%w: %q is not a %s file", core.ErrParse, name, missionName)
	}

	year, _ := strconv.Atoi(m[4])
	yday, _ := strconv.Atoi(m[5])
	if yday < 1 || yday > 366 {
		return nil, fmt.Errorf("%w: day of year %d out of range in %q", core.ErrParse, yday, name)
	}
	clock, err := time.Parse("150405", m[6])
	if err != nil {
		return nil, fmt.Errorf("%w: invalid time in %q: %s", core.ErrParse, name, err.Error())
	}

	t := time.Date(year, time.January, 1, clock.Hour(), clock.Minute(), clock.Second(), 0, time.UTC).
		AddDate(0, 0, yday-1)
	if t.Year() != year {
		return nil, fmt.Errorf("%w: day of year %d out of range for %d in %q", core.ErrParse, yday, year, name)
	}

	return &core.ParsedFilename{
		Instrument: canonicalInstrument(m[2]),
		Level:      strings.ToLower(m[3]),
		Version:    m[7],
		Time:       t,
		Extension:  strings.ToLower(m[8]),
	}, nil
}

func parseProcessed(name string, m []string) (*core.ParsedFilename, error) {
	if !strings.EqualFold(m[1], missionName) {
		return nil, fmt.Errorf("%w: %q is not a %s file", core.ErrParse, name, missionName)
	}

	t, err := time.Parse("20060102150405", m[7]+m[8])
	if err != nil {
		return nil, fmt.Errorf("%w: invalid timestamp in %q: %s", core.ErrParse, name, err.Error())
	}

	return &core.ParsedFilename{
		Instrument: canonicalInstrument(m[2]),
		Mode:       strings.ToLower(m[3]),
		Level:      strings.ToLower(m[4]),
		Test:       m[5] != "",
		Descriptor: strings.ToLower(m[6]),
		Time:       t.UTC(),
		Version:    m[9],
		Extension:  strings.ToLower(m[10]),
	}, nil
}

func canonicalInstrument(token string) string {
	token = strings.ToLower(token)
	if name, ok := instrumentAliases[token]; ok {
		return name
	}
	return token
}
