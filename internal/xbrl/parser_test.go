package xbrl

import (
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCompanyFacts = `{
  "cik": 320193,
  "entityName": "Apple Inc.",
  "facts": {
    "us-gaap": {
      "Revenues": {
        "label": "Revenues",
        "description": "Total revenue",
        "units": {
          "USD": [
            {
              "start": "2022-09-25",
              "end": "2023-09-30",
              "val": 383285000000,
              "accn": "0000320193-23-000106",
              "fy": 2023,
              "fp": "FY",
              "form": "10-K",
              "filed": "2023-11-03",
              "frame": "CY2023"
            },
            {
              "start": "2023-07-02",
              "end": "2023-09-30",
              "val": 89498000000,
              "accn": "0000320193-23-000106",
              "fy": 2023,
              "fp": "FY",
              "form": "10-K",
              "filed": "2023-11-03"
            }
          ]
        }
      },
      "Assets": {
        "label": "Assets",
        "description": "Total assets",
        "units": {
          "USD": [
            {
              "end": "2023-09-30",
              "val": 352583000000,
              "accn": "0000320193-23-000106",
              "fy": 2023,
              "fp": "FY",
              "form": "10-K",
              "filed": "2023-11-03",
              "frame": "CY2023Q3I"
            }
          ]
        }
      }
    },
    "dei": {
      "EntityNumberOfEmployees": {
        "label": "Entity Number of Employees",
        "description": "Total employees",
        "units": {
          "pure": [
            {
              "end": "2023-09-30",
              "val": 161000,
              "accn": "0000320193-23-000106",
              "fy": 2023,
              "fp": "FY",
              "form": "10-K",
              "filed": "2023-11-03"
            }
          ]
        }
      }
    }
  }
}`

func TestDecodeCompanyFacts(t *testing.T) {
	facts, err := DecodeCompanyFacts([]byte(sampleCompanyFacts))
	require.NoError(t, err)

	assert.Equal(t, 320193, facts.CIK)
	assert.Equal(t, "Apple Inc.", facts.EntityName)
	assert.Contains(t, facts.Facts, TaxonomyGAAP)
	assert.Contains(t, facts.Facts, TaxonomyDEI)

	rev := facts.Facts[TaxonomyGAAP]["Revenues"]
	require.Len(t, rev.Units["USD"], 2)
	assert.Equal(t, "2022-09-25", rev.Units["USD"][0].Start)
	assert.Equal(t, 383285000000.0, rev.Units["USD"][0].Val)
	assert.Equal(t, "CY2023", rev.Units["USD"][0].Frame)
	assert.Len(t, facts.Facts[TaxonomyGAAP], 2)
}

func TestDecodeCompanyFacts_Invalid(t *testing.T) {
	_, err := DecodeCompanyFacts([]byte("not json"))
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrMalformed))

	_, err = DecodeCompanyFacts([]byte(`{"facts": [`))
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrMalformed))
}

func TestParsedSample_QuarterInsideAnnualFilingIgnored(t *testing.T) {
	facts, err := DecodeCompanyFacts([]byte(sampleCompanyFacts))
	require.NoError(t, err)

	ex := NewExtractor(facts, DefaultPolicy())
	rev, concept := ex.Annual(MetricRevenue)
	assert.Equal(t, "Revenues", concept)
	assert.Equal(t, Series{2023: 383285000000}, rev)

	n, ok := ex.Employees()
	require.True(t, ok)
	assert.Equal(t, int64(161000), n)
}
