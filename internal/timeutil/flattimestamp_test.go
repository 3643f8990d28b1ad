package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var flattenTimestampTests = []struct {
	name  string
	input string
	value string
	error string
}{
	{
		name:  "simple timestamp",
		input: "2023-05-01T10:00:00Z",
		value: "2023-05-01 10:00:00",
		error: "",
	},
	{
		name:  "midnight",
		input: "2020-01-01T00:00:00Z",
		value: "2020-01-01 00:00:00",
		error: "",
	},
	{
		name:  "missing zone suffix",
		input: "2023-05-01T10:00:00",
		value: "",
		error: `timeutil.FlattenTimestamp: could not parse input value "2023-05-01T10:00:00"`,
	},
	{
		name:  "empty input",
		input: "",
		value: "",
		error: `timeutil.FlattenTimestamp: could not parse input value ""`,
	},
}

func TestFlattenTimestamp(t *testing.T) {
	for _, tc := range flattenTimestampTests {
		t.Run(tc.name, func(t *testing.T) {
			a := assert.New(t)

			s, err := FlattenTimestamp(tc.input)

			if tc.error != "" {
				a.ErrorContains(err, tc.error)
			} else {
				a.NoError(err)
				a.Equal(tc.value, s)
			}
		})
	}
}

func TestParseFlatTimestamp(t *testing.T) {
	a := assert.New(t)

	{
		v, err := ParseFlatTimestamp("2023-05-01 10:00:00")
		a.NoError(err)
		a.Equal(time.Date(2023, 5, 1, 10, 0, 0, 0, time.UTC), v)
	}

	{
		_, err := ParseFlatTimestamp("2023-05-01T10:00:00Z")
		a.Error(err)
	}
}
