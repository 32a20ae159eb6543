// Package stats maintains the LaunchpadStats singleton. Every function takes
// the aggregate explicitly; nothing here keeps state between calls.
package stats

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"launchpadIndexer/internal/model"
	"launchpadIndexer/internal/numeric"
)

const secondsPerDay = 24 * 60 * 60

// UserPolicy selects how totalUsers is counted.
type UserPolicy string

const (
	// UsersFirstLaunch sets totalUsers to 1 when the stats row is created and
	// never touches it again.
	UsersFirstLaunch UserPolicy = "first-launch"
	// UsersDistinct counts every User entity the reducers create.
	UsersDistinct UserPolicy = "distinct"
)

// ParseUserPolicy validates a policy name. Empty means UsersFirstLaunch.
func ParseUserPolicy(input string) (UserPolicy, error) {
	switch UserPolicy(strings.ToLower(strings.TrimSpace(input))) {
	case "", UsersFirstLaunch:
		return UsersFirstLaunch, nil
	case UsersDistinct:
		return UsersDistinct, nil
	default:
		return "", fmt.Errorf("unsupported users policy: %s", input)
	}
}

// Accumulator applies counter updates under a user policy.
type Accumulator struct {
	Users UserPolicy
}

// UTCDay returns the number of whole UTC days since the unix epoch.
func UTCDay(ts uint64) uint64 {
	return ts / secondsPerDay
}

// Init returns a fresh stats row stamped at ts.
func (a Accumulator) Init(ts uint64) *model.LaunchpadStats {
	s := &model.LaunchpadStats{
		ID:             model.StatsID,
		TotalVolumeUSD: numeric.Unpriced(),
		VolumeToday:    numeric.Unpriced(),
		LastUpdated:    ts,
	}
	if a.Users != UsersDistinct {
		s.TotalUsers = 1
	}
	return s
}

// Roll resets the day-scoped counters when ts falls on a later UTC day than
// the last update. It reports whether a reset happened.
func Roll(s *model.LaunchpadStats, ts uint64) bool {
	if UTCDay(ts) <= UTCDay(s.LastUpdated) {
		return false
	}
	s.TokensToday = 0
	s.TransactionsToday = 0
	s.VolumeToday = numeric.Unpriced()
	return true
}

// RecordLaunch counts a platform launch and its LAUNCH transaction.
func (a Accumulator) RecordLaunch(s *model.LaunchpadStats, ts uint64) {
	Roll(s, ts)
	s.TotalTokens++
	s.TokensToday++
	s.TotalTransactions++
	s.TransactionsToday++
	touch(s, ts)
}

// RecordExternalToken counts a discovered token. No transaction is involved.
func (a Accumulator) RecordExternalToken(s *model.LaunchpadStats, ts uint64) {
	Roll(s, ts)
	s.TotalTokens++
	s.TokensToday++
	touch(s, ts)
}

// RecordUser counts a newly created User. It reports whether s changed.
func (a Accumulator) RecordUser(s *model.LaunchpadStats, ts uint64) bool {
	if a.Users != UsersDistinct {
		return false
	}
	Roll(s, ts)
	s.TotalUsers++
	touch(s, ts)
	return true
}

// AddVolume adds a priced USD amount. Unpriced amounts leave s untouched and
// the call reports false.
func AddVolume(s *model.LaunchpadStats, amount decimal.NullDecimal, ts uint64) bool {
	if !amount.Valid {
		return false
	}
	Roll(s, ts)
	s.TotalVolumeUSD = numeric.AddUSD(s.TotalVolumeUSD, amount)
	s.VolumeToday = numeric.AddUSD(s.VolumeToday, amount)
	touch(s, ts)
	return true
}

// lastUpdated never moves backwards.
func touch(s *model.LaunchpadStats, ts uint64) {
	if ts > s.LastUpdated {
		s.LastUpdated = ts
	}
}
