package occurrence

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Record is one occurrence record. Fields keeps the order in which keys
// appeared in the response; JSON numbers are kept as json.Number.
type Record struct {
	Fields []string
	Values map[string]any
}

func (r Record) Get(field string) (any, bool) {
	v, ok := r.Values[field]
	return v, ok
}

// RawResult is the decoded body of an occurrence-search response.
type RawResult struct {
	// Count is the total number of matching records reported by the remote,
	// nil when the response carries no numeric count.
	Count   *int64
	Records []Record
	Body    map[string]any
}

func decodeRawResult(data []byte) (*RawResult, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, fmt.Errorf("decode body: %w", err)
	}
	if top == nil {
		return nil, errors.New("decode body: not a JSON object")
	}

	body := make(map[string]any, len(top))
	for key, raw := range top {
		v, err := decodeValue(raw)
		if err != nil {
			return nil, fmt.Errorf("decode field %q: %w", key, err)
		}
		body[key] = v
	}

	res := &RawResult{Body: body}

	if n, ok := body["count"].(json.Number); ok {
		if count, err := n.Int64(); err == nil {
			res.Count = &count
		}
	}

	if raw, ok := top["results"]; ok {
		records, err := decodeRecords(raw)
		if err != nil {
			return nil, fmt.Errorf("decode results: %w", err)
		}
		res.Records = records
	}

	return res, nil
}

func decodeValue(raw json.RawMessage) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}

	return v, nil
}

// decodeRecords returns the objects of a results array in order. A results
// value that is not an array yields no records, and non-object elements are
// skipped.
func decodeRecords(raw json.RawMessage) ([]Record, error) {
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil, nil //nolint:nilerr // Unexpected shapes surface as missing columns.
	}

	records := make([]Record, 0, len(elems))
	for i, elem := range elems {
		rec, ok, err := decodeRecord(elem)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		if !ok {
			continue
		}
		records = append(records, rec)
	}

	return records, nil
}

func decodeRecord(raw json.RawMessage) (Record, bool, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return Record{}, false, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return Record{}, false, nil
	}

	rec := Record{Values: make(map[string]any)}

	for dec.More() {
		tok, err = dec.Token()
		if err != nil {
			return Record{}, false, err
		}

		key, ok := tok.(string)
		if !ok {
			return Record{}, false, fmt.Errorf("unexpected object key %v", tok)
		}

		var v any
		if err = dec.Decode(&v); err != nil {
			return Record{}, false, fmt.Errorf("decode %q: %w", key, err)
		}

		if _, seen := rec.Values[key]; !seen {
			rec.Fields = append(rec.Fields, key)
		}
		rec.Values[key] = v
	}

	if _, err = dec.Token(); err != nil && !errors.Is(err, io.EOF) {
		return Record{}, false, err
	}

	return rec, true, nil
}
