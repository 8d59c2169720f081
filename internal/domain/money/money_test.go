package money

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAmount_Validate(t *testing.T) {
	tests := []struct {
		name    string
		amount  Amount
		wantErr bool
	}{
		{"valid NGN amount", Amount{Minor: 120_000_00, Currency: "NGN"}, false},
		{"one kobo", Amount{Minor: 1, Currency: "NGN"}, false},
		{"zero amount", Amount{Minor: 0, Currency: "NGN"}, true},
		{"negative amount", Amount{Minor: -500, Currency: "NGN"}, true},
		{"currency too short", Amount{Minor: 100, Currency: "NG"}, true},
		{"currency too long", Amount{Minor: 100, Currency: "NAIRA"}, true},
		{"empty currency", Amount{Minor: 100, Currency: ""}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.amount.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestAmount_Equal(t *testing.T) {
	a := Amount{Minor: 45_000_00, Currency: "NGN"}

	assert.True(t, a.Equal(Amount{Minor: 45_000_00, Currency: "NGN"}))
	assert.True(t, a.Equal(Amount{Minor: 45_000_00, Currency: "ngn"}), "currency compare is case-insensitive")
	assert.False(t, a.Equal(Amount{Minor: 45_000_01, Currency: "NGN"}))
	assert.False(t, a.Equal(Amount{Minor: 45_000_00, Currency: "USD"}))
}

func TestAmount_String(t *testing.T) {
	assert.Equal(t, "1200.00 NGN", Amount{Minor: 120_000, Currency: "NGN"}.String())
	assert.Equal(t, "0.05 NGN", Amount{Minor: 5, Currency: "NGN"}.String())
	assert.Equal(t, "10.50 NGN", Amount{Minor: 1050, Currency: "NGN"}.String())
}

func TestMajorToMinor(t *testing.T) {
	assert.Equal(t, int64(120_000_00), MajorToMinor(120_000))
	assert.Equal(t, int64(0), MajorToMinor(0))
}

func TestNewReference(t *testing.T) {
	ref := NewReference()
	assert.True(t, strings.HasPrefix(ref, "slt_"))
	assert.NotEqual(t, ref, NewReference(), "references are unique")
	assert.NotContains(t, ref, "-")
}
