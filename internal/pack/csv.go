package pack

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

var csvColumns = []string{
	"format", "category", "question",
	"option_a", "option_b", "option_c", "option_d",
	"correct_answer", "points", "time_limit",
}

// ParseCSV reads rows in the import template layout. The header row is
// required; column order is free and unknown columns are ignored.
func ParseCSV(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: empty file", ErrMalformedPack)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPack, err)
	}
	col := map[string]int{}
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	for _, c := range []string{"question", "option_a", "option_b", "correct_answer"} {
		if _, ok := col[c]; !ok {
			return nil, fmt.Errorf("%w: missing column %q", ErrMalformedPack, c)
		}
	}

	var rows []Row
	var errs []error
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedPack, err)
		}
		get := func(name string) string {
			i, ok := col[name]
			if !ok || i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}
		if strings.Join(rec, "") == "" {
			continue
		}
		row := Row{
			Line:          line,
			Format:        get("format"),
			Category:      get("category"),
			Question:      get("question"),
			CorrectAnswer: Answer(get("correct_answer")),
		}
		for _, c := range csvColumns[3:7] {
			row.Options = append(row.Options, get(c))
		}
		if row.Points, err = optionalInt(get("points")); err != nil {
			errs = append(errs, fmt.Errorf("line %d: points: %w", line, err))
		}
		if row.TimeLimit, err = optionalInt(get("time_limit")); err != nil {
			errs = append(errs, fmt.Errorf("line %d: time_limit: %w", line, err))
		}
		rows = append(rows, row)
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrMalformedPack, errors.Join(errs...))
	}
	return rows, nil
}

func optionalInt(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", s)
	}
	return n, nil
}
