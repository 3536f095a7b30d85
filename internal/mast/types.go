package mast

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Field describes one column of a Portal result.
type Field struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Row maps field names to values. Numbers are kept as json.Number so they
// render exactly as the archive sent them.
type Row map[string]any

// Table is an ordered set of fields with the rows that carry them.
type Table struct {
	Fields []Field
	Rows   []Row
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// HasField reports whether the table carries the named column.
func (t *Table) HasField(name string) bool {
	if t == nil {
		return false
	}
	for _, f := range t.Fields {
		if f.Name == name {
			return true
		}
	}
	return false
}

// FieldNames returns the column names in order.
func (t *Table) FieldNames() []string {
	if t == nil {
		return nil
	}
	names := make([]string, len(t.Fields))
	for i, f := range t.Fields {
		names[i] = f.Name
	}
	return names
}

// Value returns the cell as display text. Missing and null cells render as "--".
func (r Row) Value(name string) string {
	return FormatValue(r[name])
}

// FormatValue renders a decoded JSON value as display text.
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "--"
	case string:
		return val
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	}
}

// Coordinates is a resolved sky position in degrees.
type Coordinates struct {
	RA            float64 `json:"ra"`
	Dec           float64 `json:"decl"`
	CanonicalName string  `json:"canonicalName"`
}

// Criterion restricts one column to a value. Values containing "*" are
// matched as wildcard patterns.
type Criterion struct {
	Column string
	Value  string
}

// filter renders the criterion in the Portal filter format.
func (c Criterion) filter() map[string]any {
	if strings.Contains(c.Value, "*") {
		return map[string]any{
			"paramName": c.Column,
			"values":    []string{},
			"freeText":  strings.ReplaceAll(c.Value, "*", "%"),
		}
	}
	return map[string]any{
		"paramName": c.Column,
		"values":    []string{c.Value},
	}
}

// CriteriaQuery is a filtered observation search. When Target is set the
// search is limited to Radius degrees around the resolved target.
type CriteriaQuery struct {
	Target   string
	Radius   float64
	Criteria []Criterion
}

// ColumnInfo describes one column of a Portal service, as published by the
// Portal column configuration.
type ColumnInfo struct {
	Name        string
	Label       string
	Type        string
	Units       string
	Description string
}

// ServiceRequest is the JSON document posted to the Portal invoke endpoint.
type ServiceRequest struct {
	Service           string         `json:"service"`
	Params            map[string]any `json:"params"`
	Format            string         `json:"format"`
	PageSize          int            `json:"pagesize"`
	Page              int            `json:"page"`
	RemoveNullColumns bool           `json:"removenullcolumns"`
	Timeout           int            `json:"timeout"`
}

// Portal job states
const (
	StatusComplete  = "COMPLETE"
	StatusExecuting = "EXECUTING"
	StatusError     = "ERROR"
)

type envelope struct {
	Status string `json:"status"`
	Msg    string `json:"msg"`
}

type paging struct {
	Page          int `json:"page"`
	PageSize      int `json:"pageSize"`
	PagesFiltered int `json:"pagesFiltered"`
	Rows          int `json:"rows"`
	RowsFiltered  int `json:"rowsFiltered"`
	RowsTotal     int `json:"rowsTotal"`
}

type tableResponse struct {
	envelope
	Fields []Field `json:"fields"`
	Data   []Row   `json:"data"`
	Paging *paging `json:"paging"`
}

type extjsResponse struct {
	envelope
	Data struct {
		Tables []struct {
			Columns []extjsColumn `json:"Columns"`
		} `json:"Tables"`
	} `json:"data"`
}

type extjsColumn struct {
	Text               string `json:"text"`
	ExtendedProperties struct {
		HistObj map[string]json.RawMessage `json:"histObj"`
	} `json:"ExtendedProperties"`
}

type nameLookupResponse struct {
	Status             string        `json:"status"`
	ResolvedCoordinate []Coordinates `json:"resolvedCoordinate"`
}

type columnConfig struct {
	Text        string `json:"text"`
	Type        string `json:"type"`
	Unit        string `json:"unit"`
	Description string `json:"vot.description"`
}
