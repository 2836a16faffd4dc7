package store

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jszwec/csvutil"

	"github.com/dsautocare/site/internal/submission"
)

// headerAliases maps squashed header names (see squash) onto canonical columns.
// It covers every schema the site has written: the very first name/email/message
// file, the init script's lowercase names, and the current header.
var headerAliases = map[string]string{
	"id":                       "id",
	"timestamp":                "Timestamp",
	"name":                     "Name",
	"email":                    "Email",
	"car":                      "Car",
	"phone":                    "Phone",
	"ismobile":                 "Is Mobile",
	"mobile":                   "Is Mobile",
	"contactmethod":            "Contact Method",
	"besttimetocall":           "Best Time to Call",
	"calltime":                 "Best Time to Call",
	"preferredappointmenttime": "Preferred Appointment Time",
	"appointmenttime":          "Preferred Appointment Time",
	"message":                  "Message",
	"vehicletype":              "Vehicle Type",
	"services":                 "Services",
	"total":                    "Total",
	"status":                   "Status",
}

// headerlessColumns is the positional layout of the original headerless file.
var headerlessColumns = []string{"Name", "Email", "Message"}

// utf8BOM is the byte order mark spreadsheet programs put in front of "CSV UTF-8" files.
const utf8BOM = "\ufeff"

// trimBOM strips a byte order mark from the first cell of a header row.
func trimBOM(row []string) []string {
	if len(row) > 0 {
		row[0] = strings.TrimPrefix(row[0], utf8BOM)
	}
	return row
}

// squash lowercases and drops spaces, underscores and hyphens.
func squash(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '_', '-', '\t':
			return -1
		}
		return r
	}, strings.ToLower(strings.TrimSpace(s)))
}

// schema describes how a file's columns map onto Submission.
type schema struct {
	header    []string // canonical names; unknown columns get unique placeholders
	headed    bool     // first row is a header
	hasStatus bool
	canonical bool // header is exactly submission.Header
}

// detectSchema inspects the first row of a file.
// The row is a header only when it reads like one: no cell holds an email
// address, and at least two cells (or every cell) name known columns. Any other
// row is data from the headerless legacy format.
func detectSchema(first []string) schema {
	header := make([]string, len(first))
	used := make(map[string]bool, len(first))
	named, hasAddress := 0, false
	for i, col := range first {
		if strings.Contains(col, "@") {
			hasAddress = true
		}
		canon, ok := headerAliases[squash(col)]
		if ok {
			named++
		}
		if !ok || used[canon] {
			header[i] = fmt.Sprintf("_unused_%d", i)
			continue
		}
		used[canon] = true
		header[i] = canon
	}

	if hasAddress || named == 0 || (named < 2 && named < len(first)) {
		cols := headerlessColumns
		if len(first) < len(cols) {
			cols = cols[:len(first)]
		}
		return schema{header: cols}
	}

	return schema{
		header:    header,
		headed:    true,
		hasStatus: used["Status"],
		canonical: equalHeader(first, submission.Header),
	}
}

func equalHeader(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// alignedReader pads short rows and truncates long ones to the header width,
// so legacy rows with missing trailing fields decode as empty strings.
type alignedReader struct {
	r     *csv.Reader
	width int
}

func (a *alignedReader) Read() ([]string, error) {
	row, err := a.r.Read()
	if err != nil {
		return nil, err
	}
	switch {
	case len(row) < a.width:
		row = append(row, make([]string, a.width-len(row))...)
	case len(row) > a.width:
		row = row[:a.width]
	}
	return row, nil
}

func newCSVReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	return cr
}

// decoded is the result of reading a store file.
type decoded struct {
	records []submission.Submission
	schema  schema
}

// decodeCSV parses data written under any known schema.
// Statuses are returned exactly as stored.
func decodeCSV(data []byte) (*decoded, error) {
	data = bytes.TrimPrefix(data, []byte(utf8BOM))
	cr := newCSVReader(bytes.NewReader(data))
	first, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return &decoded{records: []submission.Submission{}, schema: schema{headed: true, hasStatus: true, canonical: true}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	sc := detectSchema(first)
	if !sc.headed {
		// Start over so the first row is decoded as data
		cr = newCSVReader(bytes.NewReader(data))
	}

	dec, err := csvutil.NewDecoder(&alignedReader{r: cr, width: len(sc.header)}, sc.header...)
	if err != nil {
		return nil, fmt.Errorf("create decoder: %w", err)
	}

	records := make([]submission.Submission, 0)
	for {
		var s submission.Submission
		if err := dec.Decode(&s); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("decode row: %w", err)
		}
		records = append(records, s)
	}

	return &decoded{records: records, schema: sc}, nil
}

// encodeCSV writes the canonical header followed by one row per record.
func encodeCSV(w io.Writer, records []submission.Submission) error {
	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)
	enc.AutoHeader = false
	if err := enc.EncodeHeader(submission.Submission{}); err != nil {
		return fmt.Errorf("encode header: %w", err)
	}
	if err := encodeRows(enc, records); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

// encodeRows writes records without a header.
func encodeRows(enc *csvutil.Encoder, records []submission.Submission) error {
	for i := range records {
		if err := enc.Encode(records[i]); err != nil {
			return fmt.Errorf("encode row %d: %w", i, err)
		}
	}
	return nil
}

// EncodeCSV writes records in the canonical on-disk format.
func EncodeCSV(w io.Writer, records []submission.Submission) error {
	return encodeCSV(w, records)
}

// DecodeCSV reads records from any schema the site has written.
// Missing ids are left blank and statuses are not normalized.
func DecodeCSV(r io.Reader) ([]submission.Submission, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	d, err := decodeCSV(data)
	if err != nil {
		return nil, err
	}
	return d.records, nil
}
