package analysis

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xkilldash9x/testforge/api/schemas"
)

const (
	colID     = "id"
	colName   = "name"
	colModel  = "model_id:id"
	colGroup  = "group_id:id"
	colRead   = "perm_read"
	colWrite  = "perm_write"
	colCreate = "perm_create"
	colUnlink = "perm_unlink"
)

// ParseAccessRules reads an access control CSV and groups its rows by model
// external id, with any module prefix removed ("sale.model_sale_order" -> "model_sale_order").
func ParseAccessRules(content []byte) (map[string][]schemas.AccessRule, error) {
	r := csv.NewReader(bytes.NewReader(content))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return map[string][]schemas.AccessRule{}, nil
		}
		return nil, fmt.Errorf("failed to read access header: %w", err)
	}
	cols := map[string]int{}
	for i, h := range header {
		cols[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	if _, ok := cols[colModel]; !ok {
		return nil, fmt.Errorf("access file has no %q column", colModel)
	}

	get := func(row []string, col string) string {
		i, ok := cols[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	out := map[string][]schemas.AccessRule{}
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read access row: %w", err)
		}
		model := stripModule(get(row, colModel))
		if model == "" {
			continue
		}
		out[model] = append(out[model], schemas.AccessRule{
			ID:         get(row, colID),
			Name:       get(row, colName),
			Group:      get(row, colGroup),
			PermRead:   get(row, colRead) == "1",
			PermWrite:  get(row, colWrite) == "1",
			PermCreate: get(row, colCreate) == "1",
			PermUnlink: get(row, colUnlink) == "1",
		})
	}
	return out, nil
}

// accessModelID is the external id access rows use to reference an entity.
func accessModelID(entity string) string {
	return "model_" + strings.ReplaceAll(entity, ".", "_")
}

func stripModule(id string) string {
	if i := strings.LastIndex(id, "."); i >= 0 {
		return id[i+1:]
	}
	return id
}
