// Copyright (c) 2026 FitGate. All rights reserved.
// Author: dev@openfit.io

package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeRoles(t *testing.T) {
	tests := []struct {
		name   string
		legacy string
		roles  []string
		want   []Role
	}{
		{
			name:  "roles collection is authoritative",
			legacy: "customer",
			roles: []string{"coach", "admin"},
			want:  []Role{RoleCoach, RoleAdmin},
		},
		{
			name:   "legacy role becomes a one element set",
			legacy: "coach",
			want:   []Role{RoleCoach},
		},
		{
			name:  "duplicates collapse, order kept",
			roles: []string{"coach", "customer", "coach"},
			want:  []Role{RoleCoach, RoleCustomer},
		},
		{
			name:  "unknown roles pass through",
			roles: []string{"superstar"},
			want:  []Role{Role("superstar")},
		},
		{
			name:  "empty strings are dropped",
			roles: []string{"", "admin"},
			want:  []Role{RoleAdmin},
		},
		{
			name: "no roles at all",
			want: []Role{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeRoles(tt.legacy, tt.roles))
		})
	}
}

func TestPrimaryRole(t *testing.T) {
	tests := []struct {
		name  string
		roles []Role
		want  Role
	}{
		{name: "admin beats coach", roles: []Role{RoleCoach, RoleAdmin}, want: RoleAdmin},
		{name: "coach beats customer", roles: []Role{RoleCustomer, RoleCoach}, want: RoleCoach},
		{name: "single customer", roles: []Role{RoleCustomer}, want: RoleCustomer},
		{name: "order of input does not matter", roles: []Role{RoleAdmin, RoleCustomer}, want: RoleAdmin},
		{name: "unknown only set passes through", roles: []Role{Role("superstar")}, want: Role("superstar")},
		{name: "known role beats unknown", roles: []Role{Role("superstar"), RoleCustomer}, want: RoleCustomer},
		{name: "empty set", roles: nil, want: Role("")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PrimaryRole(tt.roles))
		})
	}
}

func TestHasAnyRole(t *testing.T) {
	coach := []Role{RoleCoach}

	assert.True(t, HasAnyRole(coach, []Role{RoleCoach, RoleAdmin}))
	assert.False(t, HasAnyRole(coach, []Role{RoleAdmin}))
	assert.True(t, HasAnyRole(coach, nil), "empty allowed set admits any signed-in user")
	assert.False(t, HasAnyRole(nil, []Role{RoleCustomer}))
}
