// Package graphdoc decodes flowchart graph documents into node records.
//
// A document is a JSON object with a "cells" array:
//
//	{"cells": [{"id": "n1", "type": "start", "props": {"label": "Begin"}}]}
//
// Every cell needs a string id and type. props and props.label are optional;
// any other field is ignored.
package graphdoc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"algoflow/internal/model"
)

// ErrMalformed matches every *ParseError with errors.Is.
var ErrMalformed = errors.New("malformed graph document")

// ParseError describes why a document could not be parsed.
type ParseError struct {
	// Cell is the index of the offending cell, or -1 for document-level errors.
	Cell   int
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	msg := "graph document: " + e.Reason
	if e.Cell >= 0 {
		msg = fmt.Sprintf("graph document: cell %d: %s", e.Cell, e.Reason)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ParseError) Unwrap() error { return e.Err }

// Is reports whether target is ErrMalformed.
func (e *ParseError) Is(target error) bool { return target == ErrMalformed }

// document is the typed shape of a graph document. Pointers tell a missing
// field apart from its zero value.
type document struct {
	Cells *[]json.RawMessage `json:"cells"`
}

type cell struct {
	ID    *string `json:"id"`
	Type  *string `json:"type"`
	Props *props  `json:"props"`
}

type props struct {
	Label *string `json:"label"`
}

// Parse returns one record per cell, in document order. Either every cell
// is returned or, on error, none.
func Parse(data []byte) ([]model.NodeRecord, error) {
	data, err := Normalize(data)
	if err != nil {
		return nil, err
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &ParseError{Cell: -1, Reason: "invalid JSON", Err: err}
	}
	if doc.Cells == nil {
		return nil, &ParseError{Cell: -1, Reason: "missing cells"}
	}

	records := make([]model.NodeRecord, 0, len(*doc.Cells))
	for i, raw := range *doc.Cells {
		var c cell
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, &ParseError{Cell: i, Reason: "invalid cell", Err: err}
		}
		if c.ID == nil {
			return nil, &ParseError{Cell: i, Reason: "missing id"}
		}
		if c.Type == nil {
			return nil, &ParseError{Cell: i, Reason: "missing type"}
		}

		rec := model.NodeRecord{NodeID: *c.ID, NodeType: *c.Type}
		if c.Props != nil && c.Props.Label != nil {
			rec.Label = *c.Props.Label
		}
		records = append(records, rec)
	}
	return records, nil
}

// Normalize returns the raw document. The editor saves the graph as a JSON
// string holding the serialized document, so one level of string encoding
// is unwrapped.
func Normalize(data []byte) ([]byte, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, &ParseError{Cell: -1, Reason: "empty document"}
	}
	if trimmed[0] != '"' {
		return trimmed, nil
	}

	var inner string
	if err := json.Unmarshal(trimmed, &inner); err != nil {
		return nil, &ParseError{Cell: -1, Reason: "invalid JSON string", Err: err}
	}
	return []byte(inner), nil
}
