// Package plan loads the YAML collection plan that decides which airports
// get collected and at which time offsets.
package plan

import (
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/skyward-data/flightwx-cli/internal/config"
	"github.com/skyward-data/flightwx-cli/internal/model"
	"github.com/skyward-data/flightwx-cli/internal/source"
)

// Plan is the top-level collection plan.
type Plan struct {
	Defaults Defaults      `yaml:"defaults"`
	Airports []AirportPlan `yaml:"airports"`
}

// Defaults holds plan-wide offset defaults, in hours relative to now.
type Defaults struct {
	RealtimeOffsetHrs int `yaml:"realtime_offset_hours"`
	PastOffsetHrs     int `yaml:"past_offset_hours"`
}

// AirportPlan configures collection for a single airport. Nil fields fall
// back to the plan defaults.
type AirportPlan struct {
	Code              string `yaml:"code"`
	Realtime          *bool  `yaml:"realtime,omitempty"`
	Past              *bool  `yaml:"past,omitempty"`
	RealtimeOffsetHrs *int   `yaml:"realtime_offset_hours,omitempty"`
	PastOffsetHrs     *int   `yaml:"past_offset_hours,omitempty"`
}

// Load reads a collection plan from a YAML file.
func Load(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "plan: read %s", path)
	}

	// The YAML has a top-level "plan" key
	var wrapper struct {
		Plan Plan `yaml:"plan"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrapf(err, "plan: parse %s", path)
	}

	p := &wrapper.Plan
	if err := p.validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// FromConfig builds a plan from the application config when no plan file
// is given: every configured airport, both passes, config offsets.
func FromConfig(cfg config.CollectConfig) *Plan {
	p := &Plan{
		Defaults: Defaults{
			RealtimeOffsetHrs: cfg.RealtimeOffsetHrs,
			PastOffsetHrs:     cfg.PastOffsetHrs,
		},
	}
	for _, code := range cfg.Airports {
		p.Airports = append(p.Airports, AirportPlan{Code: strings.ToUpper(code)})
	}
	return p
}

func (p *Plan) validate() error {
	if len(p.Airports) == 0 {
		return eris.New("plan: no airports configured")
	}
	seen := make(map[string]bool)
	for i := range p.Airports {
		code := strings.ToUpper(strings.TrimSpace(p.Airports[i].Code))
		if code == "" {
			return eris.Errorf("plan: airport %d has no code", i)
		}
		if seen[code] {
			return eris.Errorf("plan: duplicate airport %s", code)
		}
		seen[code] = true
		p.Airports[i].Code = code
	}
	return nil
}

// Codes returns the airport codes in plan order.
func (p *Plan) Codes() []string {
	codes := make([]string, len(p.Airports))
	for i, a := range p.Airports {
		codes[i] = a.Code
	}
	return codes
}

// Queries expands the plan into concrete collection queries, realtime
// before past, in plan order within each pass.
func (p *Plan) Queries(now time.Time) []source.CollectQuery {
	var queries []source.CollectQuery

	for _, a := range p.Airports {
		if a.Realtime == nil || *a.Realtime {
			offset := p.Defaults.RealtimeOffsetHrs
			if a.RealtimeOffsetHrs != nil {
				offset = *a.RealtimeOffsetHrs
			}
			queries = append(queries, source.CollectQuery{
				Airport:     a.Code,
				Type:        model.CollectionRealtime,
				OffsetHours: offset,
				Now:         now,
			})
		}
	}
	for _, a := range p.Airports {
		if a.Past == nil || *a.Past {
			offset := p.Defaults.PastOffsetHrs
			if a.PastOffsetHrs != nil {
				offset = *a.PastOffsetHrs
			}
			queries = append(queries, source.CollectQuery{
				Airport:     a.Code,
				Type:        model.CollectionPast,
				OffsetHours: offset,
				Now:         now,
			})
		}
	}
	return queries
}
