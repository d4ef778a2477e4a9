package taxonomy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"AUDI Exteriér", "audi exterier"},
		{"  Vaňa   do kufra ", "vana do kufra"},
		{"ŠKODA", "skoda"},
		{"Poťahy – sedadiel", "potahy - sedadiel"},
		{"Deflektory—okien", "deflektory-okien"},
		{"", ""},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, Normalize(tc.in), "input %q", tc.in)
	}
}

func TestEqualNames(t *testing.T) {
	assert.True(t, EqualNames("AUDI Exteriér", "audi  exterier"))
	assert.True(t, EqualNames("Škoda", "SKODA"))
	assert.False(t, EqualNames("AUDI Exteriér", "AUDI Interiér"))
}
