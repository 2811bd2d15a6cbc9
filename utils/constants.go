// File: utils/constants.go
package utils

import "time"

// IdentityLockPrefix is the prefix used for Redis per-identity lock keys.
const IdentityLockPrefix = "lock:wa:"

// IdentityLockTTL bounds how long a crashed handler can hold a lock.
const IdentityLockTTL = 15 * time.Second
