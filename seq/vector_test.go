package seq

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReference(t *testing.T) {
	tests := []struct {
		name       string
		vec        []uint64
		wantRef    uint64
		wantBad    int
	}{
		{
			name:    "homogeneous",
			vec:     []uint64{7, 7, 7, 7},
			wantRef: 7,
			wantBad: 0,
		},
		{
			name:    "single element",
			vec:     []uint64{42},
			wantRef: 42,
			wantBad: 0,
		},
		{
			name:    "one corrupt element",
			vec:     []uint64{5, 5, 9, 5},
			wantRef: 5,
			wantBad: 1,
		},
		{
			name:    "all disagree with reference",
			vec:     []uint64{1, 2, 3, 4},
			wantRef: 1,
			wantBad: 3,
		},
		{
			name:    "empty",
			vec:     nil,
			wantRef: 0,
			wantBad: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, bad := Reference(tt.vec)
			assert.Equal(t, tt.wantRef, ref)
			assert.Equal(t, tt.wantBad, bad)
		})
	}
}
