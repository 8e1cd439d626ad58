package readings

import (
	"math/rand"
	"testing"
	"time"

	"github.com/iulianpascalau/iot-sensor-dashboard/services/dashboard/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLatest(t *testing.T) {
	t.Parallel()

	t0 := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	t.Run("empty input should return an empty map", func(t *testing.T) {
		assert.Empty(t, Latest(nil))
	})
	t.Run("already latest input is returned unchanged", func(t *testing.T) {
		input := []common.Reading{
			{SensorID: "01", Metric: "Temp", Value: 1, Timestamp: t0},
			{SensorID: "01", Metric: "Pressure", Value: 2, Timestamp: t0.Add(time.Minute)},
			{SensorID: "02", Metric: "Temp", Value: 3, Timestamp: t0.Add(-time.Minute)},
		}

		latest := Latest(input)
		require.Len(t, latest, len(input))
		for _, r := range input {
			assert.Equal(t, r, latest[r.Key()])
		}
	})
	t.Run("should keep the max timestamp without sorted input", func(t *testing.T) {
		input := []common.Reading{
			{SensorID: "01", Metric: "Temp", Value: 2, Timestamp: t0.Add(2 * time.Minute)},
			{SensorID: "01", Metric: "Temp", Value: 3, Timestamp: t0.Add(3 * time.Minute)},
			{SensorID: "01", Metric: "Temp", Value: 1, Timestamp: t0.Add(time.Minute)},
		}

		latest := Latest(input)
		require.Len(t, latest, 1)
		assert.Equal(t, 3.0, latest[common.ReadingKey{SensorID: "01", Metric: "Temp"}].Value)
	})
	t.Run("ties should go to the last seen reading", func(t *testing.T) {
		input := []common.Reading{
			{SensorID: "01", Metric: "Temp", Value: 1, Timestamp: t0},
			{SensorID: "01", Metric: "Temp", Value: 2, Timestamp: t0},
		}

		assert.Equal(t, 2.0, Latest(input)[common.ReadingKey{SensorID: "01", Metric: "Temp"}].Value)
	})
	t.Run("should be independent of input order", func(t *testing.T) {
		input := make([]common.Reading, 0, 60)
		sensors := []string{"01", "02", "03"}
		metrics := []string{"Temp", "Pressure"}
		for i := 0; i < 10; i++ {
			for _, s := range sensors {
				for _, m := range metrics {
					input = append(input, common.Reading{
						SensorID:  s,
						Metric:    m,
						Value:     float64(i),
						Timestamp: t0.Add(time.Duration(i) * time.Second),
					})
				}
			}
		}

		expected := Latest(input)
		rnd := rand.New(rand.NewSource(42))
		for i := 0; i < 20; i++ {
			shuffled := make([]common.Reading, len(input))
			copy(shuffled, input)
			rnd.Shuffle(len(shuffled), func(a, b int) {
				shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
			})

			assert.Equal(t, expected, Latest(shuffled))
		}
		for _, r := range expected {
			assert.Equal(t, 9.0, r.Value)
		}
	})
}

func TestSorted(t *testing.T) {
	t.Parallel()

	t0 := time.Now()
	latest := Latest([]common.Reading{
		{SensorID: "02", Metric: "Temp", Timestamp: t0},
		{SensorID: "01", Metric: "Temp", Timestamp: t0},
		{SensorID: "01", Metric: "FlowRate", Timestamp: t0},
	})

	sorted := Sorted(latest)
	require.Len(t, sorted, 3)
	assert.Equal(t, common.ReadingKey{SensorID: "01", Metric: "FlowRate"}, sorted[0].Key())
	assert.Equal(t, common.ReadingKey{SensorID: "01", Metric: "Temp"}, sorted[1].Key())
	assert.Equal(t, common.ReadingKey{SensorID: "02", Metric: "Temp"}, sorted[2].Key())
}
