package sprint

import "time"

// SetNowFunc overrides the service clock for deterministic tests.
func (s *Service) SetNowFunc(fn func() time.Time) { s.now = fn }
