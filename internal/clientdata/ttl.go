package clientdata

import "time"

// DefaultFeedTTL applies when a cache is wired but no TTL was configured.
// The upstream feed publishes once per trading day.
const DefaultFeedTTL = 4 * time.Hour
