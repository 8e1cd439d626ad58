package export

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/iulianpascalau/iot-sensor-dashboard/services/dashboard/common"
	logger "github.com/multiversx/mx-chain-logger-go"
	"github.com/xuri/excelize/v2"
)

const (
	// SheetName is the worksheet holding the exported readings
	SheetName = "Readings"
	// TableContentType is the content type of the spreadsheet export
	TableContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	defaultSheet = "Sheet1"
)

var log = logger.GetOrCreate("export")

var columns = []string{"timestamp", "sensorId", "metric", "value"}

var columnWidths = []float64{34, 14, 14, 14}

// ToTable renders the readings as an xlsx workbook, one row per reading in the given order
func ToTable(readings []common.Reading, loc *time.Location) ([]byte, error) {
	if loc == nil {
		loc = time.UTC
	}

	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()

	err := f.SetSheetName(defaultSheet, SheetName)
	if err != nil {
		return nil, err
	}

	header := make([]interface{}, 0, len(columns))
	for _, c := range columns {
		header = append(header, c)
	}
	err = f.SetSheetRow(SheetName, "A1", &header)
	if err != nil {
		return nil, err
	}

	style, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#2F5597"}, Pattern: 1},
	})
	if err != nil {
		return nil, err
	}
	err = f.SetCellStyle(SheetName, "A1", "D1", style)
	if err != nil {
		return nil, err
	}

	for i, width := range columnWidths {
		col, errCol := excelize.ColumnNumberToName(i + 1)
		if errCol != nil {
			return nil, errCol
		}
		err = f.SetColWidth(SheetName, col, col, width)
		if err != nil {
			return nil, err
		}
	}

	for i, r := range readings {
		cell, errCell := excelize.CoordinatesToCellName(1, i+2)
		if errCell != nil {
			return nil, errCell
		}

		row := []interface{}{r.Timestamp.In(loc).Format(time.RFC3339Nano), r.SensorID, r.Metric, r.Value}
		err = f.SetSheetRow(SheetName, cell, &row)
		if err != nil {
			return nil, err
		}
	}

	buff, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}

	log.Debug("readings exported to table", "num readings", len(readings), "size", buff.Len())

	return buff.Bytes(), nil
}

// ParseTable reads back a workbook produced by ToTable
func ParseTable(data []byte) ([]common.Reading, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = f.Close()
	}()

	rows, err := f.GetRows(SheetName, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errors.New("missing header row")
	}

	readings := make([]common.Reading, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if len(row) < len(columns) {
			return nil, fmt.Errorf("row %d: expected %d columns, got %d", i+2, len(columns), len(row))
		}

		ts, errParse := time.Parse(time.RFC3339Nano, row[0])
		if errParse != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, errParse)
		}
		value, errParse := strconv.ParseFloat(row[3], 64)
		if errParse != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, errParse)
		}

		readings = append(readings, common.Reading{
			SensorID:  row[1],
			Metric:    row[2],
			Value:     value,
			Timestamp: ts,
		})
	}

	return readings, nil
}
