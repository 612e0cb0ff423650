// Copyright (c) 2026 FitGate. All rights reserved.
// Author: dev@openfit.io

package session

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

/*
TestComputeExpiry verifies the duration-code parser: every supported unit,
and every malformed shape degrading to "unknown" instead of panicking.
*/
func TestComputeExpiry(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		code    string
		want    time.Time
		wantOK  bool
	}{
		{name: "seconds", code: "45s", want: now.Add(45 * time.Second), wantOK: true},
		{name: "minutes", code: "15m", want: now.Add(15 * time.Minute), wantOK: true},
		{name: "hours", code: "2h", want: now.Add(2 * time.Hour), wantOK: true},
		{name: "days", code: "7d", want: now.Add(7 * 24 * time.Hour), wantOK: true},
		{name: "zero magnitude", code: "0m", want: now, wantOK: true},
		{name: "empty string", code: ""},
		{name: "unit only", code: "m"},
		{name: "unknown unit", code: "7w"},
		{name: "negative magnitude", code: "-5m"},
		{name: "fractional magnitude", code: "1.5h"},
		{name: "garbage", code: "soon"},
		{name: "unit before digits", code: "m15"},
		{name: "magnitude overflowing the duration", code: "4000000000h"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ComputeExpiry(now, tt.code)

			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			} else {
				assert.True(t, got.IsZero())
			}
		})
	}
}

/*
TestExpiryFromToken verifies the JWT exp-claim fallback used when the
provider's duration code was unusable.
*/
func TestExpiryFromToken(t *testing.T) {
	t.Run("reads exp claim without verifying the signature", func(t *testing.T) {
		expiry := time.Now().Add(30 * time.Minute).Truncate(time.Second)
		token := signedToken(t, jwt.MapClaims{"exp": expiry.Unix()})

		got, ok := expiryFromToken(token)

		require.True(t, ok)
		assert.True(t, got.Equal(expiry))
	})

	t.Run("token without exp claim", func(t *testing.T) {
		token := signedToken(t, jwt.MapClaims{"sub": "user-1"})

		_, ok := expiryFromToken(token)

		assert.False(t, ok)
	})

	t.Run("opaque non-JWT token", func(t *testing.T) {
		_, ok := expiryFromToken("not-a-jwt")

		assert.False(t, ok)
	})
}

// signedToken builds a real HS256 token so the parser exercises the same
// shape production tokens have.
func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}
