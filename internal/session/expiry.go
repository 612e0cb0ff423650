// Copyright (c) 2026 FitGate. All rights reserved.
// Author: dev@openfit.io

package session

import (
	"math"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ComputeExpiry converts a server-issued duration code into an absolute
// expiry instant.
//
// # Format
//
// The trailing letter is the unit (s, m, h, d), the preceding digits the
// magnitude: "15m", "7d". Anything else (unknown unit, non-numeric
// magnitude, empty string) degrades to ok == false and the caller must
// treat the expiry as unknown. This function never panics.
func ComputeExpiry(now time.Time, durationToken string) (time.Time, bool) {
	if len(durationToken) < 2 {
		return time.Time{}, false
	}

	magnitude, err := strconv.ParseUint(durationToken[:len(durationToken)-1], 10, 32)
	if err != nil {
		return time.Time{}, false
	}

	var unit time.Duration
	switch durationToken[len(durationToken)-1] {
	case 's':
		unit = time.Second
	case 'm':
		unit = time.Minute
	case 'h':
		unit = time.Hour
	case 'd':
		unit = 24 * time.Hour
	default:
		return time.Time{}, false
	}

	// A magnitude large enough to overflow time.Duration would wrap into an
	// expiry in the past; degrade to unknown instead.
	if magnitude > uint64(math.MaxInt64)/uint64(unit) {
		return time.Time{}, false
	}

	return now.Add(time.Duration(magnitude) * unit), true
}

// expiryFromToken falls back to the access token's JWT "exp" claim when the
// provider's duration code was unusable.
//
// The signature is deliberately not verified: the gateway trusts the token it
// was just handed by the provider and only needs the timestamp. A token that
// is not a JWT, or carries no exp claim, resolves to ok == false.
func expiryFromToken(token string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}

	expiry, err := claims.GetExpirationTime()
	if err != nil || expiry == nil {
		return time.Time{}, false
	}
	return expiry.Time, true
}
