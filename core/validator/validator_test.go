package validator

import (
	"testing"

	"github.com/stretchr/testify/require"

	"emberchain/core"
)

func TestQuorum(t *testing.T) {
	tests := []struct {
		size     int
		num, den uint64
		want     int
	}{
		{3, 2, 3, 2},
		{4, 2, 3, 3},
		{1, 2, 3, 1},
		{7, 2, 3, 5},
		{10, 1, 2, 5},
		{5, 1, 1, 5},
	}
	for _, tt := range tests {
		vs := make([]Validator, tt.size)
		for i := range vs {
			vs[i] = Validator{Address: string(rune('a' + i)), Stake: 1}
		}
		set, err := NewSet(vs)
		require.NoError(t, err)
		q, err := set.Quorum(tt.num, tt.den)
		require.NoError(t, err)
		require.Equal(t, tt.want, q, "size=%d t=%d/%d", tt.size, tt.num, tt.den)
	}
}

func TestQuorumRejectsBadFraction(t *testing.T) {
	set, err := NewSet([]Validator{{Address: "a"}})
	require.NoError(t, err)
	for _, f := range [][2]uint64{{0, 3}, {4, 3}, {1, 0}} {
		_, err := set.Quorum(f[0], f[1])
		require.ErrorIs(t, err, ErrBadQuorumFraction)
	}
}

func TestNewSet(t *testing.T) {
	_, err := NewSet(nil)
	require.ErrorIs(t, err, core.ErrBlockchain)

	_, err = NewSet([]Validator{{Address: "a"}, {Address: "a"}})
	require.ErrorIs(t, err, ErrDuplicateValidator)

	_, err = NewSet([]Validator{{Address: ""}})
	require.ErrorIs(t, err, core.ErrInputValidation)

	set, err := NewSet([]Validator{{Address: "b", Stake: 2}, {Address: "a", Stake: 1}})
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, set.Addresses())
	require.True(t, set.Contains("b"))
	v, ok := set.Get("b")
	require.True(t, ok)
	require.Equal(t, uint64(2), v.Stake)
	require.False(t, set.Contains("c"))
}
