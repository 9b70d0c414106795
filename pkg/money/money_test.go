package money

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	a, err := Parse("20.00")
	require.NoError(t, err)
	assert.Equal(t, "20.00", a.String())

	_, err = Parse("not-money")
	require.Error(t, err)

	// Decimal precision survives arithmetic that would drift under float64.
	sum := Zero()
	for i := 0; i < 10; i++ {
		sum = sum.Add(MustParse("0.10"))
	}
	assert.True(t, sum.Equal(MustParse("1.00")), "got %s", sum)
}

func TestCentsRoundTrip(t *testing.T) {
	assert.Equal(t, int64(1050), MustParse("10.50").Cents())
	assert.Equal(t, int64(50), MustParse("0.50").Cents())
	assert.True(t, FromCents(250).Equal(MustParse("2.50")))
}

func TestMulInt(t *testing.T) {
	// 10 hours at $20.00/hour
	assert.Equal(t, "200.00", MustParse("20.00").MulInt(10).String())
}

func TestJSONRoundTrip(t *testing.T) {
	b, err := json.Marshal(MustParse("199.90"))
	require.NoError(t, err)
	assert.Equal(t, `"199.90"`, string(b))

	var a Amount
	require.NoError(t, json.Unmarshal([]byte(`"50.00"`), &a))
	assert.Equal(t, "50.00", a.String())

	// Bare numbers are accepted for producers that skip string encoding.
	require.NoError(t, json.Unmarshal([]byte(`12.5`), &a))
	assert.Equal(t, "12.50", a.String())

	assert.Error(t, json.Unmarshal([]byte(`{"amount":1}`), &a))
}

func TestOptionalDefaultsAtBoundaryOnly(t *testing.T) {
	var o Optional
	require.NoError(t, json.Unmarshal([]byte(`null`), &o))
	assert.False(t, o.Valid)
	assert.True(t, o.OrZero().IsZero())

	require.NoError(t, json.Unmarshal([]byte(`"garbage"`), &o))
	assert.False(t, o.Valid, "unparsable values are absent, not errors")

	require.NoError(t, json.Unmarshal([]byte(`"25.00"`), &o))
	assert.True(t, o.Valid)
	assert.Equal(t, "25.00", o.OrZero().String())
}

func TestSum(t *testing.T) {
	total := Sum(MustParse("1.10"), MustParse("2.20"), MustParse("3.30"))
	assert.Equal(t, "6.60", total.String())
	assert.True(t, Sum().IsZero())
}
