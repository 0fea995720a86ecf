package input

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/ecosim/internal/model"
)

const sample = `Model,Scenario,Region,Variable,Unit,Year,Value
SSP2,baseline,north,Population,billion,2020,1.0
SSP2,baseline,north,Population,billion,2030,1.2
SSP2,baseline,north,Population,billion,2040,1.3
SSP2,baseline,north,Emissions,GtCO2/yr,2020,10
SSP2,baseline,north,Emissions,GtCO2/yr,2030,8
SSP2,baseline,south,Population,billion,2020,3
SSP2,baseline,south,Population,billion,2030,
SSP1,baseline,south,Population,billion,2020,2.5
`

func TestRead(t *testing.T) {
	ds, err := Read(strings.NewReader(sample))
	require.NoError(t, err)
	assert.Equal(t, 4, ds.Len())

	s, err := ds.Lookup(Key{Model: "SSP2", Scenario: "baseline", Region: "north", Variable: "Population"})
	require.NoError(t, err)
	assert.Equal(t, "billion", s.Unit)
	require.Len(t, s.Points, 3)
	assert.Equal(t, 2040.0, s.Points[2].Year)
}

func TestLookupWildcard(t *testing.T) {
	ds, err := Read(strings.NewReader(sample))
	require.NoError(t, err)

	_, err = ds.Lookup(Key{Region: "north", Variable: "Emissions"})
	assert.NoError(t, err)

	_, err = ds.Lookup(Key{Region: "south", Variable: "Population"})
	assert.True(t, errors.Is(err, model.ErrConfiguration), "ambiguous lookup: %v", err)

	_, err = ds.Lookup(Key{Region: "east", Variable: "Population"})
	assert.True(t, errors.Is(err, model.ErrConfiguration))
}

func TestReadErrors(t *testing.T) {
	tests := map[string]string{
		"missing column": "model,scenario,region,variable,year,value\n",
		"bad year":       "model,scenario,region,variable,unit,year,value\nm,s,r,v,u,later,1\n",
		"bad value":      "model,scenario,region,variable,unit,year,value\nm,s,r,v,u,2020,lots\n",
		"duplicate year": "model,scenario,region,variable,unit,year,value\nm,s,r,v,u,2020,1\nm,s,r,v,u,2020,2\n",
	}
	for name, data := range tests {
		_, err := Read(strings.NewReader(data))
		assert.Error(t, err, name)
	}
}

func TestOnGrid(t *testing.T) {
	ds, err := Read(strings.NewReader(sample))
	require.NoError(t, err)
	dims := model.Dimensions{BeginYear: 2020, Dt: 5, Steps: 7, Regions: []string{"north"}}

	pop, err := ds.Lookup(Key{Region: "north", Variable: "Population"})
	require.NoError(t, err)
	got := pop.OnGrid(dims, "Population")
	require.Len(t, got, 7)
	assert.InDelta(t, 1.0, got[0], 1e-12)
	assert.InDelta(t, 1.1, got[1], 1e-12)
	assert.InDelta(t, 1.25, got[3], 1e-12)
	// growth continues past the data but slows down
	assert.Greater(t, got[6], got[4])
	assert.Less(t, got[6]-got[5], got[5]-got[4]+1e-12)

	emis, err := ds.Lookup(Key{Region: "north", Variable: "Emissions"})
	require.NoError(t, err)
	held := emis.OnGrid(dims, "Emissions")
	assert.InDelta(t, 8, held[6], 1e-12, "falling emissions are held")
}
