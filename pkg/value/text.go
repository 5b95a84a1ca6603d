package value

import (
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// cases.Caser is stateful and not safe for concurrent use, so title casers
// are pooled. Rendering may run on many goroutines at once.
type caserWrapper struct {
	caser cases.Caser
}

var titleCaserPool = sync.Pool{
	New: func() any {
		return &caserWrapper{caser: cases.Title(language.Und)}
	},
}

// Title upper-cases the first letter of every word and lower-cases the rest.
func Title(s string) string {
	w := titleCaserPool.Get().(*caserWrapper)
	defer titleCaserPool.Put(w)
	w.caser.Reset()
	return w.caser.String(s)
}
