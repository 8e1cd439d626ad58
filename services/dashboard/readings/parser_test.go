package readings

import (
	"fmt"
	"testing"
	"time"

	"github.com/iulianpascalau/iot-sensor-dashboard/services/dashboard/common"
	"github.com/iulianpascalau/iot-sensor-dashboard/services/dashboard/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testMetrics = []config.MetricConfig{
	{Prefix: "Temp"},
	{Prefix: "Pressure"},
	{Prefix: "FlowRate"},
}

func createTestParser(t *testing.T, loc *time.Location) *parser {
	reg, err := NewMetricRegistry(testMetrics)
	require.Nil(t, err)

	p, err := NewParser(ArgsParser{
		Registry:       reg,
		TimestampField: "timestamp",
		SensorIDField:  "sensorID",
		Location:       loc,
	})
	require.Nil(t, err)

	return p
}

func TestNewParser(t *testing.T) {
	t.Parallel()

	reg, _ := NewMetricRegistry(testMetrics)

	t.Run("nil registry should error", func(t *testing.T) {
		p, err := NewParser(ArgsParser{TimestampField: "timestamp", Location: time.UTC})
		assert.Nil(t, p)
		assert.True(t, p.IsInterfaceNil())
		assert.Contains(t, err.Error(), "nil metric registry")
	})
	t.Run("empty timestamp field should error", func(t *testing.T) {
		p, err := NewParser(ArgsParser{Registry: reg, Location: time.UTC})
		assert.Nil(t, p)
		assert.Contains(t, err.Error(), "empty timestamp field")
	})
	t.Run("nil location should error", func(t *testing.T) {
		p, err := NewParser(ArgsParser{Registry: reg, TimestampField: "timestamp"})
		assert.Nil(t, p)
		assert.Contains(t, err.Error(), "nil location")
	})
	t.Run("should work", func(t *testing.T) {
		p, err := NewParser(ArgsParser{Registry: reg, TimestampField: "timestamp", Location: time.UTC})
		assert.Nil(t, err)
		assert.False(t, p.IsInterfaceNil())
	})
}

func TestParser_EmitsOneReadingPerMatchingField(t *testing.T) {
	t.Parallel()

	p := createTestParser(t, time.UTC)
	doc := common.RawDocument{
		ID: "doc1",
		Body: []byte(`{
			"timestamp": "2024-05-01T10:00:00Z",
			"Temp_01": 21.5,
			"Pressure_01": 1.2,
			"FlowRate_01": 30,
			"Temp_02": "19.25",
			"gateway": "gw-1",
			"Humidity_01": 40,
			"Temp_": 3,
			"battery": 88
		}`),
	}

	res := p.Parse(doc)
	require.Empty(t, res.Errors)
	require.Len(t, res.Readings, 4)

	expectedTs := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	expected := []common.Reading{
		{SensorID: "01", Metric: "Temp", Value: 21.5, Timestamp: expectedTs},
		{SensorID: "01", Metric: "Pressure", Value: 1.2, Timestamp: expectedTs},
		{SensorID: "01", Metric: "FlowRate", Value: 30, Timestamp: expectedTs},
		{SensorID: "02", Metric: "Temp", Value: 19.25, Timestamp: expectedTs},
	}
	for i, r := range res.Readings {
		assert.Equal(t, expected[i].SensorID, r.SensorID)
		assert.Equal(t, expected[i].Metric, r.Metric)
		assert.Equal(t, expected[i].Value, r.Value)
		assert.True(t, expectedTs.Equal(r.Timestamp))
	}
}

func TestParser_CountsMatchingFields(t *testing.T) {
	t.Parallel()

	p := createTestParser(t, time.UTC)
	for n := 0; n < 5; n++ {
		for m := 0; m < 3; m++ {
			body := `{"timestamp": 1714557600`
			for i := 0; i < n; i++ {
				body += fmt.Sprintf(`, "Temp_%d": %d`, i, i)
			}
			for i := 0; i < m; i++ {
				body += fmt.Sprintf(`, "other_%d": %d`, i, i)
			}
			body += "}"

			res := p.Parse(common.RawDocument{ID: "d", Body: []byte(body)})
			require.Len(t, res.Readings, n, "n=%d m=%d", n, m)
			for _, r := range res.Readings {
				assert.Equal(t, int64(1714557600), r.Timestamp.Unix())
			}
		}
	}
}

func TestParser_UnparseableValues(t *testing.T) {
	t.Parallel()

	p := createTestParser(t, time.UTC)
	doc := common.RawDocument{
		ID: "doc-bad",
		Body: []byte(`{
			"timestamp": "2024-05-01T10:00:00Z",
			"Temp_01": "n/a",
			"Temp_02": true,
			"Temp_03": null,
			"Temp_04": "NaN",
			"Temp_05": {"v": 1},
			"Temp_06": " 42 "
		}`),
	}

	res := p.Parse(doc)
	require.Len(t, res.Readings, 1)
	assert.Equal(t, "06", res.Readings[0].SensorID)
	assert.Equal(t, 42.0, res.Readings[0].Value)

	require.Len(t, res.Errors, 5)
	assert.Equal(t, "doc-bad", res.Errors[0].DocumentID)
	assert.Equal(t, "Temp_01", res.Errors[0].Field)
	assert.Equal(t, `"n/a"`, res.Errors[0].Raw)
	assert.Contains(t, res.Errors[0].Error(), "Temp_01")
}

func TestParser_InvalidDocuments(t *testing.T) {
	t.Parallel()

	p := createTestParser(t, time.UTC)

	t.Run("missing timestamp should record one error", func(t *testing.T) {
		res := p.Parse(common.RawDocument{ID: "a", Body: []byte(`{"Temp_01": 1}`)})
		assert.Empty(t, res.Readings)
		require.Len(t, res.Errors, 1)
		assert.Equal(t, "timestamp", res.Errors[0].Field)
	})
	t.Run("unparseable timestamp should record one error", func(t *testing.T) {
		res := p.Parse(common.RawDocument{ID: "a", Body: []byte(`{"timestamp": "yesterday", "Temp_01": 1}`)})
		assert.Empty(t, res.Readings)
		require.Len(t, res.Errors, 1)
	})
	t.Run("non object body should record one error", func(t *testing.T) {
		res := p.Parse(common.RawDocument{ID: "a", Body: []byte(`[1, 2]`)})
		assert.Empty(t, res.Readings)
		require.Len(t, res.Errors, 1)
		assert.Equal(t, "a", res.Errors[0].DocumentID)
	})
}

func TestParser_RowPerSensorDocument(t *testing.T) {
	t.Parallel()

	p := createTestParser(t, time.UTC)
	res := p.Parse(common.RawDocument{
		ID:   "row",
		Body: []byte(`{"sensorID": "PT-7", "pressure": 2.5, "timestamp": "2024-05-01T10:00:00Z", "status": "ok"}`),
	})

	require.Empty(t, res.Errors)
	require.Len(t, res.Readings, 1)
	assert.Equal(t, "PT-7", res.Readings[0].SensorID)
	assert.Equal(t, "Pressure", res.Readings[0].Metric)
	assert.Equal(t, 2.5, res.Readings[0].Value)
}

func TestParser_NormalizesTimezone(t *testing.T) {
	t.Parallel()

	sgt := time.FixedZone("SGT", 8*3600)
	p := createTestParser(t, sgt)

	res := p.Parse(common.RawDocument{
		ID:   "naive",
		Body: []byte(`{"timestamp": "2024-05-01 10:00:00", "Temp_01": 1}`),
	})
	require.Len(t, res.Readings, 1)

	ts := res.Readings[0].Timestamp
	assert.Equal(t, sgt, ts.Location())
	assert.Equal(t, 18, ts.Hour())
	assert.True(t, ts.Equal(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)))
}

func TestParser_DoesNotMutateInput(t *testing.T) {
	t.Parallel()

	p := createTestParser(t, time.UTC)
	body := []byte(`{"timestamp": "2024-05-01T10:00:00Z", "Temp_01": "abc", "Temp_02": 2}`)
	original := string(body)

	_ = p.Parse(common.RawDocument{ID: "x", Body: body})
	assert.Equal(t, original, string(body))
}

func TestMetricRegistry(t *testing.T) {
	t.Parallel()

	t.Run("empty registry should error", func(t *testing.T) {
		_, err := NewMetricRegistry(nil)
		assert.Error(t, err)
	})
	t.Run("prefix with separator should error", func(t *testing.T) {
		_, err := NewMetricRegistry([]config.MetricConfig{{Prefix: "Flow_Rate"}})
		assert.Error(t, err)
	})
	t.Run("duplicated prefix should error", func(t *testing.T) {
		_, err := NewMetricRegistry([]config.MetricConfig{{Prefix: "Temp"}, {Prefix: "Temp"}})
		assert.Error(t, err)
	})
	t.Run("longest prefix should win", func(t *testing.T) {
		reg, err := NewMetricRegistry([]config.MetricConfig{{Prefix: "Flow"}, {Prefix: "FlowRate"}})
		require.Nil(t, err)

		metric, sensorID, ok := reg.SplitField("FlowRate_01")
		assert.True(t, ok)
		assert.Equal(t, "FlowRate", metric)
		assert.Equal(t, "01", sensorID)

		metric, sensorID, ok = reg.SplitField("Flow_Rate_01")
		assert.True(t, ok)
		assert.Equal(t, "Flow", metric)
		assert.Equal(t, "Rate_01", sensorID)
	})
	t.Run("lookup should ignore case", func(t *testing.T) {
		reg, _ := NewMetricRegistry(testMetrics)

		metric, ok := reg.Lookup("flowrate")
		assert.True(t, ok)
		assert.Equal(t, "FlowRate", metric)

		_, ok = reg.Lookup("humidity")
		assert.False(t, ok)
		assert.True(t, reg.Has("Temp"))
		assert.False(t, reg.Has("temp"))
		assert.Len(t, reg.Metrics(), 3)
	})
}
