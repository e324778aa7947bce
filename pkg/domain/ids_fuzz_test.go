//go:build go1.18

package domain

import (
	"testing"
)

// FuzzParseBloodType tests that parsing never panics on arbitrary input
// and always returns either a valid group or an error.
func FuzzParseBloodType(f *testing.F) {
	f.Add("")
	f.Add("O-")
	f.Add("ab+")
	f.Add("AB")
	f.Add("'; DROP TABLE donors;--")
	f.Add(string([]byte{0x00, 0x01, 0x02}))

	f.Fuzz(func(t *testing.T, input string) {
		bt, err := ParseBloodType(input)
		if err != nil {
			return
		}
		if !bt.IsValid() {
			t.Errorf("accepted invalid blood type %q from %q", bt, input)
		}
		roundTrip, err := ParseBloodType(bt.String())
		if err != nil || roundTrip != bt {
			t.Errorf("valid blood type %q failed round-trip", bt)
		}
	})
}

// FuzzParseUrgencyLevel ensures urgency parsing is total and idempotent.
func FuzzParseUrgencyLevel(f *testing.F) {
	f.Add("critical")
	f.Add("HIGH")
	f.Add("")

	f.Fuzz(func(t *testing.T, input string) {
		level, err := ParseUrgencyLevel(input)
		if err != nil {
			return
		}
		again, err := ParseUrgencyLevel(level.String())
		if err != nil || again != level {
			t.Errorf("urgency %q failed round-trip", level)
		}
	})
}
