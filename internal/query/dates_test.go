package query

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/statbot-io/statbot/internal/errors"
)

func TestParseDateRange(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	now := time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name                  string
		aMonth, aYear         int
		bMonth, bYear         int
		wantErr               bool
		wantAfter, wantBefore *time.Time
	}{
		{name: "open range"},
		{
			name: "full range",
			aMonth: 1, aYear: 2024, bMonth: 6, bYear: 2024,
			wantAfter:  monthPtr(2024, time.January),
			wantBefore: monthPtr(2024, time.June),
		},
		{
			name: "year without month",
			aYear: 2024, bMonth: 6, bYear: 2024,
			wantErr: true,
		},
		{
			name: "month without year",
			aMonth: 3,
			wantErr: true,
		},
		{
			name: "after in the future",
			aMonth: 7, aYear: 2024,
			wantErr: true,
		},
		{
			name: "after later than before",
			aMonth: 5, aYear: 2024, bMonth: 2, bYear: 2024,
			wantErr: true,
		},
		{
			name: "month out of range",
			aMonth: 13, aYear: 2024,
			wantErr: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r, err := ParseDateRange(tc.aMonth, tc.aYear, tc.bMonth, tc.bYear, now, loc)
			if tc.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsValidation(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantAfter, r.After)
			assert.Equal(t, tc.wantBefore, r.Before)
		})
	}
}

func monthPtr(y int, m time.Month) *time.Time {
	t := time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestParsePrivacyModeDefaultsToExclude(t *testing.T) {
	m, err := ParsePrivacyMode("")
	require.NoError(t, err)
	assert.Equal(t, PrivacyExclude, m)

	_, err = ParsePrivacyMode("everything")
	require.Error(t, err)
}

func TestParseBotModeDefaultsToExclude(t *testing.T) {
	m, err := ParseBotMode("")
	require.NoError(t, err)
	assert.Equal(t, BotExclude, m)

	_, err = ParseBotMode("humans")
	require.Error(t, err)
}
