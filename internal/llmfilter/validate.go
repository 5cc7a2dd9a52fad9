package llmfilter

import (
	"encoding/csv"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/core-sentiment/pageviews-cli/internal/model"
)

// BatchVerdict is the tagged outcome of validating one classifier reply.
// Exactly one arm is populated: Records/CSV when Valid, Reason when not.
type BatchVerdict struct {
	Valid   bool
	Records []model.RawRecord
	CSV     string
	Reason  string
}

func invalid(reason string) BatchVerdict {
	return BatchVerdict{Reason: reason}
}

// ValidateResponse checks a raw classifier reply against the batch contract:
// a JSON object (possibly double-encoded as a JSON string) carrying a
// "json_output" list whose records hold domain/page_title/count_views. A
// missing or empty "csv_output" is synthesized from the records. Any
// structural violation yields an invalid verdict, never an error.
func ValidateResponse(raw string) BatchVerdict {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return invalid("empty response")
	}

	// Models sometimes return the object JSON-encoded as a string; unwrap one
	// level before parsing.
	var asString string
	if err := json.Unmarshal([]byte(trimmed), &asString); err == nil {
		trimmed = asString
	}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal([]byte(trimmed), &payload); err != nil {
		return invalid("response is not a JSON object: " + err.Error())
	}
	rawOutput, ok := payload["json_output"]
	if !ok {
		return invalid("response missing json_output key")
	}

	var rows []map[string]any
	if err := json.Unmarshal(rawOutput, &rows); err != nil {
		return invalid("json_output is not a list of records")
	}
	if len(rows) > 0 {
		for _, field := range []string{"domain", "page_title", "count_views"} {
			if _, ok := rows[0][field]; !ok {
				return invalid("records missing required field " + field)
			}
		}
	}

	records := make([]model.RawRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, model.RawRecord{
			Domain:    asText(row["domain"]),
			PageTitle: asText(row["page_title"]),
			Views:     asCount(row["count_views"]),
		})
	}

	var out string
	if rawCSV, ok := payload["csv_output"]; ok {
		_ = json.Unmarshal(rawCSV, &out)
	}
	if out == "" && len(records) > 0 {
		out = SynthesizeCSV(records)
	}
	return BatchVerdict{Valid: true, Records: records, CSV: out}
}

// SynthesizeCSV renders records as the contract CSV with header.
func SynthesizeCSV(records []model.RawRecord) string {
	var sb strings.Builder
	w := csv.NewWriter(&sb)
	_ = w.Write([]string{"domain", "page_title", "count_views"})
	for _, r := range records {
		_ = w.Write([]string{r.Domain, r.PageTitle, strconv.Itoa(r.Views)})
	}
	w.Flush()
	return sb.String()
}

func asText(v any) string {
	s, _ := v.(string)
	return s
}

// asCount coerces a count field that may arrive as a JSON number or a quoted
// numeric string. Anything else is 0.
func asCount(v any) int {
	switch n := v.(type) {
	case float64:
		if n < 0 {
			return 0
		}
		return int(n)
	case string:
		i, err := strconv.Atoi(n)
		if err != nil || i < 0 {
			return 0
		}
		return i
	default:
		return 0
	}
}
