package store

import "github.com/rs/zerolog"

// Option customizes a Store at Open time
type Option func(*Store) error

// WithLogger sets the logger used inside the store package and its subclients
func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) error {
		s.Log = l
		return nil
	}
}
