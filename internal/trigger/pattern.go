package trigger

import (
	"fmt"
	"sync"
	"time"

	"github.com/dlclark/regexp2"
)

// matchTimeout bounds a single regular expression evaluation.
const matchTimeout = 100 * time.Millisecond

var patterns sync.Map // pattern -> *regexp2.Regexp

// Compile compiles an author-supplied pattern with ECMAScript semantics,
// caching the result.
func Compile(pattern string) (*regexp2.Regexp, error) {
	if re, ok := patterns.Load(pattern); ok {
		return re.(*regexp2.Regexp), nil
	}
	re, err := regexp2.Compile(pattern, regexp2.ECMAScript)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}
	re.MatchTimeout = matchTimeout
	patterns.Store(pattern, re)
	return re, nil
}

// MatchString reports whether s contains a match of pattern. Invalid
// patterns and timeouts never match.
func MatchString(pattern, s string) bool {
	re, err := Compile(pattern)
	if err != nil {
		return false
	}
	ok, err := re.MatchString(s)
	return err == nil && ok
}
