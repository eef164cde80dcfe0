package classifier

import "sync"

// DefaultName is the classifier used when none is configured.
const DefaultName = NameHermes

var registerOnce sync.Once

func init() {
	registerOnce.Do(func() {
		Register(NewHermes())
	})
}
