package flow

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// TimestampLayout is millisecond wall-clock time without a zone.
const TimestampLayout = "2006-01-02T15:04:05.000"

var Header = []string{"timestamp", "action", "order_id", "symbol", "side", "price", "quantity", "order_type"}

// Record flattens ev into the eight CSV columns. CANCEL leaves the four
// term columns empty.
func Record(ev Event) []string {
	rec := []string{
		ev.Timestamp.Format(TimestampLayout),
		ev.Action.String(),
		strconv.FormatUint(ev.OrderID, 10),
		ev.Symbol,
		"", "", "", "",
	}
	if t := ev.Terms; t != nil {
		rec[4] = t.Side.String()
		rec[5] = t.Price.StringFixed(2)
		rec[6] = strconv.FormatInt(t.Quantity, 10)
		rec[7] = t.Type.String()
	}
	return rec
}

// CSVWriter is a Sink writing the header once followed by one row per event.
type CSVWriter struct {
	w           *csv.Writer
	wroteHeader bool
	rows        int
}

func NewCSVWriter(w io.Writer) *CSVWriter {
	return &CSVWriter{w: csv.NewWriter(w)}
}

func (c *CSVWriter) writeHeader() error {
	if c.wroteHeader {
		return nil
	}
	c.wroteHeader = true
	return c.w.Write(Header)
}

func (c *CSVWriter) Write(ev Event) error {
	if err := c.writeHeader(); err != nil {
		return err
	}
	if err := c.w.Write(Record(ev)); err != nil {
		return err
	}
	c.rows++
	return nil
}

// Flush writes the header if no event was written and flushes buffered rows.
func (c *CSVWriter) Flush() error {
	if err := c.writeHeader(); err != nil {
		return err
	}
	c.w.Flush()
	return c.w.Error()
}

func (c *CSVWriter) Rows() int { return c.rows }

// CSVReader parses the format written by CSVWriter. Timestamps are read
// in loc.
type CSVReader struct {
	r    *csv.Reader
	loc  *time.Location
	line int
}

func NewCSVReader(r io.Reader, loc *time.Location) (*CSVReader, error) {
	if loc == nil {
		loc = time.Local
	}
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(Header)
	head, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrMissingCSVHeader
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i, h := range Header {
		if head[i] != h {
			return nil, fmt.Errorf("%w: column %d is %q, want %q", ErrMissingCSVHeader, i, head[i], h)
		}
	}
	return &CSVReader{r: cr, loc: loc, line: 1}, nil
}

// Read returns the next event, or io.EOF at the end of input.
func (c *CSVReader) Read() (Event, error) {
	rec, err := c.r.Read()
	if err != nil {
		return Event{}, err
	}
	c.line++
	ev, err := parseRecord(rec, c.loc)
	if err != nil {
		return Event{}, fmt.Errorf("line %d: %w", c.line, err)
	}
	return ev, nil
}

// ReadAll drains the reader.
func (c *CSVReader) ReadAll() ([]Event, error) {
	var out []Event
	for {
		ev, err := c.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, ev)
	}
}

func parseRecord(rec []string, loc *time.Location) (Event, error) {
	ts, err := time.ParseInLocation(TimestampLayout, rec[0], loc)
	if err != nil {
		return Event{}, fmt.Errorf("%w: timestamp %q", ErrMalformedEvent, rec[0])
	}
	action, err := ParseAction(rec[1])
	if err != nil {
		return Event{}, err
	}
	id, err := strconv.ParseUint(rec[2], 10, 64)
	if err != nil || id == 0 {
		return Event{}, fmt.Errorf("%w: order id %q", ErrMalformedEvent, rec[2])
	}
	ev := Event{Timestamp: ts, Action: action, OrderID: id, Symbol: rec[3]}

	if action == ActionCancel {
		for _, f := range rec[4:] {
			if f != "" {
				return Event{}, fmt.Errorf("%w: CANCEL #%d carries order terms", ErrMalformedEvent, id)
			}
		}
		return ev, nil
	}

	side, err := ParseSide(rec[4])
	if err != nil {
		return Event{}, err
	}
	price, err := decimal.NewFromString(rec[5])
	if err != nil {
		return Event{}, fmt.Errorf("%w: price %q", ErrMalformedEvent, rec[5])
	}
	qty, err := strconv.ParseInt(rec[6], 10, 64)
	if err != nil || qty <= 0 {
		return Event{}, fmt.Errorf("%w: quantity %q", ErrMalformedEvent, rec[6])
	}
	typ, err := ParseOrderType(rec[7])
	if err != nil {
		return Event{}, err
	}
	ev.Terms = &Terms{Side: side, Price: price, Quantity: qty, Type: typ}
	return ev, nil
}
