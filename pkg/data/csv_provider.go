package data

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// CSVProvider implements CandleProvider for CSV files
type CSVProvider struct {
	format CSVColumnMapping
}

// NewCSVProvider creates a new CSV provider with the default format
func NewCSVProvider() *CSVProvider {
	return &CSVProvider{format: DefaultCSVFormat}
}

// NewCSVProviderWithFormat creates a new CSV provider with a custom format
func NewCSVProviderWithFormat(format CSVColumnMapping) *CSVProvider {
	return &CSVProvider{format: format}
}

// GetName returns the name of the provider
func (p *CSVProvider) GetName() string {
	return "CSV Provider"
}

// LoadCandles reads a CSV file with a header row. Malformed rows are
// skipped and reported as warnings; the result is sorted by time with
// duplicate timestamps removed.
func (p *CSVProvider) LoadCandles(source string) ([]Candle, []string, error) {
	file, err := os.Open(source)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open candle file: %w", err)
	}
	defer file.Close()

	return p.ReadCandles(file)
}

// ReadCandles parses candles from r
func (p *CSVProvider) ReadCandles(r io.Reader) ([]Candle, []string, error) {
	format := p.format
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	if _, err := reader.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, errors.New("candle file is empty")
		}
		return nil, nil, fmt.Errorf("failed to read header: %w", err)
	}

	var (
		candles  []Candle
		warnings []string
	)
	lineNum := 1
	for {
		record, err := reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, warnings, fmt.Errorf("error reading CSV at line %d: %w", lineNum+1, err)
		}
		lineNum++

		if len(record) < format.MinColumns {
			warnings = append(warnings, fmt.Sprintf("line %d: expected %d columns, got %d", lineNum, format.MinColumns, len(record)))
			continue
		}

		c, err := parseRecord(record, format)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("line %d: %v", lineNum, err))
			continue
		}
		candles = append(candles, c)
	}

	return RemoveDuplicates(SortByTimestamp(candles)), warnings, nil
}

type column struct {
	name string
	col  int
	dst  *float64
}

func parseRecord(record []string, format CSVColumnMapping) (Candle, error) {
	ts, err := parseTimestamp(strings.TrimSpace(record[format.TimestampCol]), format.DateFormat)
	if err != nil {
		return Candle{}, fmt.Errorf("invalid timestamp %q", record[format.TimestampCol])
	}

	c := Candle{Timestamp: ts}
	columns := []column{
		{"open", format.OpenCol, &c.Open},
		{"high", format.HighCol, &c.High},
		{"low", format.LowCol, &c.Low},
		{"close", format.CloseCol, &c.Close},
		{"volume", format.VolumeCol, &c.Volume},
	}
	for _, f := range columns {
		v, err := strconv.ParseFloat(strings.TrimSpace(record[f.col]), 64)
		if err != nil {
			return Candle{}, fmt.Errorf("invalid %s %q", f.name, record[f.col])
		}
		*f.dst = v
	}

	if err := ValidateCandle(c); err != nil {
		return Candle{}, err
	}
	return c, nil
}

func parseTimestamp(raw, layout string) (time.Time, error) {
	if layout == EpochMillis {
		ms, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return time.Time{}, err
		}
		return time.UnixMilli(ms).UTC(), nil
	}
	return time.Parse(layout, raw)
}

// ValidateCandle rejects non-positive prices and inconsistent ranges
func ValidateCandle(c Candle) error {
	if c.Open <= 0 || c.High <= 0 || c.Low <= 0 || c.Close <= 0 {
		return errors.New("prices must be positive")
	}
	if c.High < c.Open || c.High < c.Close || c.High < c.Low {
		return errors.New("high is below another price")
	}
	if c.Low > c.Open || c.Low > c.Close {
		return errors.New("low is above another price")
	}
	return nil
}
