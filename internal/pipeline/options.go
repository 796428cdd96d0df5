package pipeline

import (
	"fmt"
	"strings"

	"github.com/CHRISHLOH/tmdb-etl/internal/discovery"
	etlerrors "github.com/CHRISHLOH/tmdb-etl/internal/errors"
)

// Stage names one unit of the pipeline.
type Stage string

const (
	StageDictionaries Stage = "dictionaries"
	StageMovies       Stage = "movies"
	StageSeries       Stage = "series"
	StagePersons      Stage = "persons"
	StageAll          Stage = "all"
)

// allStages is the dependency order: dictionaries feed the reference maps
// of every later stage, and persons may draw on loaded movies.
var allStages = []Stage{StageDictionaries, StageMovies, StageSeries, StagePersons}

// ParseStage expands a CLI stage name into the stages it runs.
func ParseStage(name string) ([]Stage, error) {
	stage := Stage(strings.ToLower(strings.TrimSpace(name)))
	switch stage {
	case StageAll:
		return append([]Stage(nil), allStages...), nil
	case StageDictionaries, StageMovies, StageSeries, StagePersons:
		return []Stage{stage}, nil
	}
	return nil, etlerrors.NewConfigurationError("stage", fmt.Sprintf("unknown stage %q", name))
}

// Person ID sources.
const (
	PersonsFromPopular = "popular"
	PersonsFromContent = "content"
)

// Options selects what one run harvests.
type Options struct {
	Stages         []Stage
	TargetCount    int
	MinVotes       int
	MinVoteAverage float64
	MinPopularity  float64
	Strategy       discovery.Kind
	YearFrom       int
	YearTo         int
	LoadEpisodes   bool
	PersonsSource  string
}

func (o Options) has(stage Stage) bool {
	for _, s := range o.Stages {
		if s == stage {
			return true
		}
	}
	return false
}

// Validate checks the options that do not depend on a strategy.
func (o Options) Validate() error {
	if len(o.Stages) == 0 {
		return etlerrors.NewConfigurationError("stage", "no stage selected")
	}
	if o.TargetCount <= 0 && (o.has(StageMovies) || o.has(StageSeries) || o.has(StagePersons)) {
		return etlerrors.NewConfigurationError("target-count", "must be positive")
	}
	if o.has(StagePersons) {
		switch o.PersonsSource {
		case PersonsFromPopular, PersonsFromContent:
		default:
			return etlerrors.NewConfigurationError("persons-source",
				fmt.Sprintf("must be %s or %s, got %q", PersonsFromPopular, PersonsFromContent, o.PersonsSource))
		}
	}
	return nil
}
