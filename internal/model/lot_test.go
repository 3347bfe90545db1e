package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLotStatus(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	days := func(n int) *time.Time {
		d := now.AddDate(0, 0, n)
		return &d
	}

	tests := []struct {
		name   string
		expiry *time.Time
		want   string
	}{
		{"no expiry", nil, LotStatusOK},
		{"well in the future", days(90), LotStatusOK},
		{"just outside the window", days(LotExpiringWindowDays + 1), LotStatusOK},
		{"inside the window", days(LotExpiringWindowDays - 1), LotStatusExpiringSoon},
		{"tomorrow", days(1), LotStatusExpiringSoon},
		{"expires this instant", &now, LotStatusExpired},
		{"already expired", days(-1), LotStatusExpired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lot := Lot{ExpiryDate: tt.expiry}
			assert.Equal(t, tt.want, lot.Status(now))
		})
	}
}
