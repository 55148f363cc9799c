package normalizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rosterwatch/internal/models"
)

func TestParseDate_Formats(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{"iso date", "2025-09-01", "2025-09-01"},
		{"iso datetime", "2025-09-04T15:30:00", "2025-09-04"},
		{"iso datetime with zone", "2025-09-04T15:30:00Z", "2025-09-04"},
		{"iso datetime with offset", "2025-09-04T15:30:00-05:00", "2025-09-04"},
		{"iso datetime space separated", "2025-09-04 15:30:00", "2025-09-04"},
		{"us slash", "09/01/2025", "2025-09-01"},
		{"us dash", "09-01-2025", "2025-09-01"},
		{"day first slash", "25/09/2025", "2025-09-25"},
		{"long month", "September 1, 2025", "2025-09-01"},
		{"long month no comma", "September 1 2025", "2025-09-01"},
		{"day first long month", "1 September 2025", "2025-09-01"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ParseDate(tc.input))
		})
	}
}

func TestParseDate_PlaceholdersAndGarbage(t *testing.T) {
	for _, input := range []string{"", "  ", "TBD", "tbd", "Unknown", "N/A", "n/a", "None", "pending review", "13/13/2025", "02/30/2025", "not a date"} {
		assert.Equal(t, "", ParseDate(input), "input %q", input)
	}
}

func TestNormalize_Success(t *testing.T) {
	record, rejection := Normalize(models.RawRecord{
		Name:        "  Smith,   John ",
		DateOfBirth: "01/01/1990",
		Sex:         "m",
		Race:        " w ",
		ArrestDate:  "2025-09-01T03:12:00",
		CellBlock:   "B-2",
		Charges:     "THEFT  3RD",
	})

	require.Nil(t, rejection)
	assert.Equal(t, "Smith, John", record.Name)
	assert.Equal(t, "SMITH, JOHN", record.NormalizedName)
	assert.Equal(t, "1990-01-01", record.DateOfBirth)
	assert.Equal(t, "M", record.Sex)
	assert.Equal(t, "W", record.Race)
	assert.Equal(t, "2025-09-01", record.ArrestDate)
	assert.Equal(t, "B-2", record.CellBlock)
	assert.Equal(t, "THEFT 3RD", record.Charges)
}

func TestNormalize_UnparseableDatesBecomeAbsent(t *testing.T) {
	record, rejection := Normalize(models.RawRecord{
		Name:        "DOE, JANE",
		DateOfBirth: "Unknown",
		ArrestDate:  "TBD",
	})

	require.Nil(t, rejection)
	assert.Equal(t, "", record.DateOfBirth)
	assert.Equal(t, "", record.ArrestDate)
}

func TestNormalize_MissingNameRejected(t *testing.T) {
	for _, name := range []string{"", "   ", "Unknown", "N/A"} {
		_, rejection := Normalize(models.RawRecord{Name: name, ArrestDate: "2025-09-01"})
		require.NotNil(t, rejection, "name %q", name)
		assert.Contains(t, rejection.Fields, "name")
	}
}

func TestNormalizeName_CaseAndWhitespaceInsensitive(t *testing.T) {
	assert.Equal(t, NormalizeName("Smith,  John"), NormalizeName("SMITH, JOHN "))
	assert.Equal(t, "SMITH, JOHN", NormalizeName("smith,\tjohn"))
}
