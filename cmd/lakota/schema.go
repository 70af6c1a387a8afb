package main

import (
	"fmt"
	"strings"

	"github.com/lakota-db/lakota/schema"
)

// parseSchema implements the small schema DSL schema.go's own doc comment
// names as the CLI's job to own: comma-separated "name:type" or
// "name:type:index" fields, e.g. "timestamp:tss:index,value:float64". This
// is deliberately local to cmd/lakota rather than the schema package —
// schema string-parsing is an external collaborator's concern, not the
// storage engine's.
func parseSchema(spec string) (*schema.Schema, error) {
	fields := strings.Split(spec, ",")
	cols := make([]schema.Column, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		parts := strings.Split(f, ":")
		if len(parts) < 2 {
			return nil, fmt.Errorf("schema: malformed column %q, want name:type[:index]", f)
		}
		typ, err := parseType(parts[1])
		if err != nil {
			return nil, fmt.Errorf("schema: column %q: %w", parts[0], err)
		}
		col := schema.Column{Name: parts[0], Type: typ}
		if len(parts) > 2 && parts[2] == "index" {
			col.Index = true
		}
		cols = append(cols, col)
	}
	return schema.New(cols...)
}

func parseType(s string) (schema.Type, error) {
	switch s {
	case "int64":
		return schema.Int64, nil
	case "float64":
		return schema.Float64, nil
	case "bool":
		return schema.Bool, nil
	case "tsns":
		return schema.TimestampNS, nil
	case "tsus":
		return schema.TimestampUS, nil
	case "tsms":
		return schema.TimestampMS, nil
	case "tss":
		return schema.TimestampS, nil
	case "date":
		return schema.Date, nil
	case "string":
		return schema.String, nil
	case "bytes":
		return schema.Bytes, nil
	default:
		return 0, fmt.Errorf("unknown type %q", s)
	}
}
