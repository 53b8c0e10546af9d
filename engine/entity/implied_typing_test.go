package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseImplied(t *testing.T) {
	tests := []struct {
		in   string
		want any
	}{
		{"true", true},
		{"False", false},
		{"5", int32(5)},
		{"-12", int32(-12)},
		{"0x10", int32(16)},
		{"5000000000", int64(5000000000)},
		{"7u", uint32(7)},
		{"5000000000u", uint64(5000000000)},
		{"1.5", float32(1.5)},
		{"2f", float32(2)},
		{"1e3", float32(1000)},
		{".25", float32(0.25)},
		{"{1, 2, 3}", []int32{1, 2, 3}},
		{"{1, 2.5, 3}", []float32{1, 2.5, 3}},
		{"{1, two}", "{1, two}"},
		{"hello", "hello"},
		{"nan", "nan"},
		{"-", "-"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseImplied(tt.in).Raw())
		})
	}
}

func TestValueConversions(t *testing.T) {
	five := ParseImplied("5")
	n, ok := five.Int()
	assert.True(t, ok)
	assert.Equal(t, int64(5), n)
	f, ok := five.Float()
	assert.True(t, ok)
	assert.Equal(t, 5.0, f)
	_, ok = five.Bool()
	assert.False(t, ok)
	assert.Equal(t, "5", five.String())

	_, ok = ParseImplied("1.5").Int()
	assert.False(t, ok)

	vec, ok := ParseImplied("{1,2}").Vector()
	assert.True(t, ok)
	assert.Equal(t, []float32{1, 2}, vec)
	assert.Equal(t, "{1, 2}", ParseImplied("{1,2}").String())

	assert.True(t, ParseImplied("name").IsString())
	assert.False(t, ParseImplied("1").IsString())
	assert.Equal(t, "", Value{}.String())
}
