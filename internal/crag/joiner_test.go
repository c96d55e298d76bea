package crag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/crag-cast/internal/weather"
)

func TestJoinerFirstRowWins(t *testing.T) {
	j := NewJoiner([]WeatherRecord{
		{JoinKey: "52.9401_-4.1378", Temperature: fp(14)},
		{JoinKey: "52.9401_-4.1378", Temperature: fp(99)},
		{JoinKey: "", Temperature: fp(1)},
	})
	assert.Len(t, j.byKey, 1)

	snap, ok := j.WeatherFor(CragRecord{JoinKey: "52.9401_-4.1378"})
	require.True(t, ok)
	assert.Equal(t, 14.0, *snap.Temperature)
	assert.Equal(t, weather.SourceDataset, snap.Source)
}

func TestJoinerMisses(t *testing.T) {
	j := NewJoiner([]WeatherRecord{{JoinKey: "1.0000_2.0000"}})

	snap, ok := j.WeatherFor(CragRecord{JoinKey: ""})
	assert.False(t, ok)
	assert.Nil(t, snap)

	_, ok = j.WeatherFor(CragRecord{JoinKey: "1.0000_2.0001"})
	assert.False(t, ok)
}
