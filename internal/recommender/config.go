package recommender

import (
	"errors"
)

const (
	DefaultCount                = 18
	DefaultPersonalizedPoolSize = 15

	// similarityWeight + importanceWeight = 1.
	similarityWeight = 0.7
	importanceWeight = 0.3

	// editorialShare of an initial feed is filled from the editorial ranking.
	editorialShare = 0.4
)

type Config struct {
	// DefaultCount is used when a request leaves Count at zero.
	DefaultCount int

	// PersonalizedPoolSize is how many of the best scored candidates an
	// initial feed may draw from, independent of the requested count.
	PersonalizedPoolSize int
}

func DefaultConfig() *Config {
	return &Config{
		DefaultCount:         DefaultCount,
		PersonalizedPoolSize: DefaultPersonalizedPoolSize,
	}
}

func (c *Config) Validate() error {
	if c.DefaultCount <= 0 {
		return errors.New("default count must be positive")
	}
	if c.PersonalizedPoolSize <= 0 {
		return errors.New("personalized pool size must be positive")
	}
	return nil
}
