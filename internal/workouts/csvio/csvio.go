// Package csvio reads and writes logged sets in the CSV format used for bulk imports,
// exports and google drive backups:
//
//	date,weight,exercise,load,reps,sets,comment
//	2025/8/26,57,ダンベルチェストプレス,35,13,2,
//
// Embedded commas are not part of the format.
package csvio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.uber.org/multierr"

	"github.com/2beens/liftlog/internal/workouts/volume"
)

var (
	ErrBadHeader = errors.New("bad csv header")
	ErrBadRow    = errors.New("bad csv row")
)

var Header = []string{"date", "weight", "exercise", "load", "reps", "sets", "comment"}

const (
	colDate = iota
	colWeight
	colExercise
	colLoad
	colReps
	colSets
	colComment
)

// Read parses all the rows. Dates are kept as written, validation of the values
// is left to the entry layer. A blank weight means the default bodyweight.
// All bad rows are reported (with line numbers) in a single combined error.
func Read(r io.Reader) ([]volume.LoggedSet, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: empty input", ErrBadHeader)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadHeader, err)
	}
	if err := checkHeader(header); err != nil {
		return nil, err
	}

	sets := make([]volume.LoggedSet, 0)
	var rowErrs error
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			rowErrs = multierr.Append(rowErrs, fmt.Errorf("%w: line %d: %s", ErrBadRow, parseErr.Line, parseErr.Err))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}

		line, _ := reader.FieldPos(0)
		set, err := parseRecord(record)
		if err != nil {
			rowErrs = multierr.Append(rowErrs, fmt.Errorf("%w: line %d: %s", ErrBadRow, line, err))
			continue
		}
		sets = append(sets, set)
	}

	if rowErrs != nil {
		return nil, rowErrs
	}

	return sets, nil
}

// Write writes the header and one row per set.
func Write(w io.Writer, sets []volume.LoggedSet) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	record := make([]string, len(Header))
	for _, set := range sets {
		record[colDate] = set.Date
		record[colWeight] = formatFloat(set.BodyweightKg)
		record[colExercise] = set.Exercise
		record[colLoad] = formatFloat(set.Load)
		record[colReps] = strconv.Itoa(set.Reps)
		record[colSets] = strconv.Itoa(set.SetCount)
		record[colComment] = set.Comment
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write set %d: %w", set.ID, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

func checkHeader(header []string) error {
	if len(header) != len(Header) {
		return fmt.Errorf("%w: expected %d columns, got %d", ErrBadHeader, len(Header), len(header))
	}
	for i, column := range header {
		if i == 0 {
			// excel likes to prepend a BOM
			column = strings.TrimPrefix(column, "\ufeff")
		}
		if strings.ToLower(strings.TrimSpace(column)) != Header[i] {
			return fmt.Errorf("%w: expected column [%s] at position %d, got [%s]", ErrBadHeader, Header[i], i+1, column)
		}
	}
	return nil
}

func parseRecord(record []string) (volume.LoggedSet, error) {
	if len(record) != len(Header) {
		return volume.LoggedSet{}, fmt.Errorf("expected %d fields, got %d", len(Header), len(record))
	}

	set := volume.LoggedSet{
		Date:     strings.TrimSpace(record[colDate]),
		Exercise: strings.TrimSpace(record[colExercise]),
		Comment:  record[colComment],
	}
	if set.Date == "" {
		return volume.LoggedSet{}, errors.New("date empty")
	}
	if set.Exercise == "" {
		return volume.LoggedSet{}, errors.New("exercise empty")
	}

	var err error
	set.BodyweightKg = volume.DefaultBodyweightKg
	if weight := strings.TrimSpace(record[colWeight]); weight != "" {
		if set.BodyweightKg, err = strconv.ParseFloat(weight, 64); err != nil {
			return volume.LoggedSet{}, fmt.Errorf("weight [%s] NaN", weight)
		}
	}

	load := strings.TrimSpace(record[colLoad])
	if set.Load, err = strconv.ParseFloat(load, 64); err != nil {
		return volume.LoggedSet{}, fmt.Errorf("load [%s] NaN", load)
	}

	reps := strings.TrimSpace(record[colReps])
	if set.Reps, err = strconv.Atoi(reps); err != nil {
		return volume.LoggedSet{}, fmt.Errorf("reps [%s] NaN", reps)
	}

	setCount := strings.TrimSpace(record[colSets])
	if set.SetCount, err = strconv.Atoi(setCount); err != nil {
		return volume.LoggedSet{}, fmt.Errorf("sets [%s] NaN", setCount)
	}

	return set, nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
