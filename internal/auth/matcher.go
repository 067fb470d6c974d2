package auth

// Matcher decides whether a plaintext secret matches a stored secret reference.
type Matcher interface {
	Matches(plain []byte, stored string) bool
}

// MatcherFunc adapts a function to Matcher.
type MatcherFunc func(plain []byte, stored string) bool

func (f MatcherFunc) Matches(plain []byte, stored string) bool { return f(plain, stored) }

// ChainMatcher tries each matcher in order and accepts on the first match.
type ChainMatcher []Matcher

func (c ChainMatcher) Matches(plain []byte, stored string) bool {
	for _, m := range c {
		if m != nil && m.Matches(plain, stored) {
			return true
		}
	}
	return false
}

// DefaultMatcher checks the application's own hash formats first, then falls back to bcrypt.
func DefaultMatcher() Matcher {
	return ChainMatcher{DomainMatcher{}, BcryptMatcher{}}
}
