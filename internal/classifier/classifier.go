package classifier

import (
	"fmt"
	"sort"
	"sync"

	"github.com/hermes-soc/filesorter/internal/core"
)

var (
	classifiers = map[string]core.Classifier{}
	mu          sync.RWMutex
)

// Register adds a classifier to the registry, replacing any classifier with the same name.
func Register(c core.Classifier) {
	mu.Lock()
	defer mu.Unlock()
	classifiers[c.Name()] = c
}

// Get returns the classifier registered under name.
func Get(name string) (core.Classifier, error) {
	mu.RLock()
	defer mu.RUnlock()
	if c, ok := classifiers[name]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("classifier %s not found", name)
}

// Names lists the registered classifier names in sorted order.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(classifiers))
	for name := range classifiers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Func adapts a plain parse function to the core.Classifier interface.
type Func struct {
	name  string
	parse func(key string) (*core.ParsedFilename, error)
}

// NewFunc wraps parse as a named classifier. Errors returned by parse that are not already
// classification errors are wrapped with core.ErrParse.
func NewFunc(name string, parse func(key string) (*core.ParsedFilename, error)) *Func {
	return &Func{name: name, parse: parse}
}

func (f *Func) Name() string {
	return f.name
}

func (f *Func) Classify(key string) core.ClassifyResult {
	parsed, err := f.parse(key)
	if err != nil {
		if !core.IsClassificationError(err) {
			err = fmt.Errorf("%w: %s", core.ErrParse, err.Error())
		}
		return core.ClassifyResult{Err: err}
	}
	if parsed == nil {
		return core.ClassifyResult{Err: fmt.Errorf("%w: no fields parsed from %q", core.ErrParse, key)}
	}
	parsed.RawKey = key
	return core.ClassifyResult{Parsed: parsed}
}
