package fixups

import (
	"regexp"

	"github.com/5342/C5SIGMA/pkg/cache"
)

// regexCache memoizes compiled patterns across rule-file loads; the working
// set of patterns in a fixups file is small and stable relative to the
// packet volume that ends up re-evaluating them indirectly through Engine.
var regexCache = mustNewRegexCache()

func mustNewRegexCache() cache.Cache[*regexp.Regexp] {
	c, err := cache.NewLRU[*regexp.Regexp](256)
	if err != nil {
		panic("fixups: failed to initialize regex cache: " + err.Error())
	}
	return c
}

func compileCached(pattern string) (*regexp.Regexp, error) {
	if re, ok := regexCache.Get(pattern); ok {
		return re, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	regexCache.Set(pattern, re)
	return re, nil
}
