package tracker

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Snapshot is a locally cached copy of a project board's field and
// option identifiers. It is an explicit, versioned value passed through
// every call; it may be stale, so every mutation re-validates the option
// id it is about to use. Refreshing the snapshot is an external
// maintenance operation, not something this package ever does.
type Snapshot struct {
	Version   int     `json:"version"`
	ProjectID string  `json:"project_id"`
	Fields    []Field `json:"fields"`
}

// Field is one project field with its single-select options, if any.
type Field struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Options []Option `json:"options,omitempty"`
}

// Option is one single-select option.
type Option struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// LoadSnapshot reads a snapshot file.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read project cache: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parse project cache %s: %w", path, err)
	}
	if snap.ProjectID == "" {
		return nil, fmt.Errorf("project cache %s: missing project_id", path)
	}
	return &snap, nil
}

// Field looks up a field by name.
func (s *Snapshot) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// OptionID looks up a single-select option id by name.
func (f Field) OptionID(name string) (string, bool) {
	for _, o := range f.Options {
		if o.Name == name {
			return o.ID, true
		}
	}
	return "", false
}

// ValueKind tags the closed set of project field value variants.
type ValueKind string

const (
	ValueNull         ValueKind = "null"
	ValueText         ValueKind = "text"
	ValueNumber       ValueKind = "number"
	ValueSingleSelect ValueKind = "single-select"
	ValueDate         ValueKind = "date"
	ValueIteration    ValueKind = "iteration"
)

// FieldValue is the uniform record a project field value decodes into.
// Exactly one of the payload fields is meaningful, selected by Kind.
type FieldValue struct {
	Kind   ValueKind `json:"kind"`
	Text   string    `json:"text,omitempty"`
	Number float64   `json:"number,omitempty"`
	Option string    `json:"option,omitempty"`
	Date   string    `json:"date,omitempty"`
	Title  string    `json:"title,omitempty"`
}

// String renders the value for comparison and display.
func (v FieldValue) String() string {
	switch v.Kind {
	case ValueText:
		return v.Text
	case ValueNumber:
		return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%f", v.Number), "0"), ".")
	case ValueSingleSelect:
		return v.Option
	case ValueDate:
		return v.Date
	case ValueIteration:
		return v.Title
	default:
		return ""
	}
}

// rawFieldValue mirrors the GraphQL union members. __typename selects
// which decoder applies.
type rawFieldValue struct {
	Typename string   `json:"__typename"`
	Text     *string  `json:"text"`
	Number   *float64 `json:"number"`
	Name     *string  `json:"name"`
	Date     *string  `json:"date"`
	Title    *string  `json:"title"`
}

// decodeFieldValue decodes one union member into a FieldValue. Unknown
// typenames decode to a null value rather than failing: the board can
// grow field types this binary predates.
func decodeFieldValue(raw json.RawMessage) FieldValue {
	if len(raw) == 0 || string(raw) == "null" {
		return FieldValue{Kind: ValueNull}
	}

	var rv rawFieldValue
	if err := json.Unmarshal(raw, &rv); err != nil {
		return FieldValue{Kind: ValueNull}
	}

	switch rv.Typename {
	case "ProjectV2ItemFieldTextValue":
		if rv.Text != nil {
			return FieldValue{Kind: ValueText, Text: *rv.Text}
		}
	case "ProjectV2ItemFieldNumberValue":
		if rv.Number != nil {
			return FieldValue{Kind: ValueNumber, Number: *rv.Number}
		}
	case "ProjectV2ItemFieldSingleSelectValue":
		if rv.Name != nil {
			return FieldValue{Kind: ValueSingleSelect, Option: *rv.Name}
		}
	case "ProjectV2ItemFieldDateValue":
		if rv.Date != nil {
			return FieldValue{Kind: ValueDate, Date: *rv.Date}
		}
	case "ProjectV2ItemFieldIterationValue":
		if rv.Title != nil {
			return FieldValue{Kind: ValueIteration, Title: *rv.Title}
		}
	}
	return FieldValue{Kind: ValueNull}
}
