package scoring

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

type fileEntry struct {
	Sport  string  `mapstructure:"sport"`
	Weight float64 `mapstructure:"weight"`
}

type weightFile struct {
	Weights []fileEntry `mapstructure:"weights"`
}

// LoadTableFile reads a weight table from a YAML, JSON or TOML file:
//
//	weights:
//	  - sport: Run
//	    weight: 1.0
//
// Entries are a list rather than a map since viper folds map keys to lower
// case and sport labels are case sensitive.
func LoadTableFile(path string) (Table, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading weight file %s: %w", path, err)
	}

	var f weightFile
	if err := v.Unmarshal(&f); err != nil {
		return nil, fmt.Errorf("unmarshaling weight file: %w", err)
	}

	t := make(Table, len(f.Weights))
	for i, e := range f.Weights {
		key := normalizeSport(e.Sport)
		if key == "" {
			return nil, fmt.Errorf("entry %d: %w", i, ErrEmptySport)
		}
		if e.Weight < 0 {
			return nil, fmt.Errorf("entry %d (%s): %w", i, key, ErrNegativeWeight)
		}
		if _, dup := t[key]; dup {
			return nil, fmt.Errorf("entry %d: duplicate sport %s", i, key)
		}
		t[key] = decimal.NewFromFloat(e.Weight)
	}
	return t, nil
}
