package llm

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// NormalizeFilingJSON
// - Renames snake_case keys to the camelCase schema names
// - Coerces "$75,000.00" style strings to numbers in money sections
// - Coerces numeric personal fields (zip codes) to strings
// - Drops null leaves so they surface as missing fields
// - Removes unknown keys, including model-supplied totals
func NormalizeFilingJSON(raw []byte, logger *slog.Logger) ([]byte, []string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, nil, fmt.Errorf("sanitize: decode: %w", err)
	}

	changes := make([]string, 0, 8)
	camelKeys(m, "", &changes)

	for k := range m {
		if _, ok := moneySections[k]; !ok && k != "personalInfo" {
			delete(m, k)
			changes = append(changes, k+"(unknown)")
		}
	}

	if pi, ok := m["personalInfo"].(map[string]any); ok {
		normalizeStrings(pi, "personalInfo", personalFields, &changes)
		keepOnly(pi, "personalInfo", append([]string{"address"}, personalFields...), &changes)
		if addr, ok := pi["address"].(map[string]any); ok {
			normalizeStrings(addr, "personalInfo.address", addressFields, &changes)
			keepOnly(addr, "personalInfo.address", addressFields, &changes)
		}
	}

	for section, fields := range moneySections {
		sm, ok := m[section].(map[string]any)
		if !ok {
			continue
		}
		for _, f := range fields {
			path := section + "." + f
			v, present := sm[f]
			if !present {
				continue
			}
			switch t := v.(type) {
			case nil:
				delete(sm, f)
				changes = append(changes, path+"(null)")
			case string:
				s := strings.TrimSpace(t)
				if s == "" || strings.EqualFold(s, "null") {
					delete(sm, f)
					changes = append(changes, path+"(empty)")
					continue
				}
				if d, err := parseAmount(s); err == nil {
					sm[f] = d.InexactFloat64()
					changes = append(changes, path+"(string->number)")
				}
				// unparsable strings stay put and fail schema validation
			}
		}
		keepOnly(sm, section, fields, &changes)
	}

	if len(changes) > 0 {
		logger.Debug("llm.sanitize.applied", "changes", changes)
	}

	b, err := json.Marshal(m)
	if err != nil {
		return nil, nil, err
	}
	return b, changes, nil
}

func parseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "$")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, " ", "")
	return decimal.NewFromString(s)
}

func normalizeStrings(m map[string]any, prefix string, fields []string, changes *[]string) {
	for _, f := range fields {
		v, present := m[f]
		if !present {
			continue
		}
		switch t := v.(type) {
		case nil:
			delete(m, f)
			*changes = append(*changes, prefix+"."+f+"(null)")
		case float64:
			m[f] = strconv.FormatFloat(t, 'f', -1, 64)
			*changes = append(*changes, prefix+"."+f+"(number->string)")
		case string:
			m[f] = strings.TrimSpace(t)
		}
	}
}

func keepOnly(m map[string]any, prefix string, allowed []string, changes *[]string) {
	for k := range m {
		if !slices.Contains(allowed, k) {
			delete(m, k)
			*changes = append(*changes, prefix+"."+k+"(unknown)")
		}
	}
}

// camelKeys rewrites snake_case keys in place, recursing into objects. An
// existing camelCase key wins over its snake_case twin.
func camelKeys(m map[string]any, prefix string, changes *[]string) {
	for k, v := range m {
		ck := snakeToCamel(k)
		if ck != k {
			if _, exists := m[ck]; !exists {
				m[ck] = v
			}
			delete(m, k)
			*changes = append(*changes, prefix+k+"->"+ck)
		}
	}
	for k, v := range m {
		if child, ok := v.(map[string]any); ok {
			camelKeys(child, prefix+k+".", changes)
		}
	}
}

func snakeToCamel(s string) string {
	if !strings.Contains(s, "_") {
		return s
	}
	var b strings.Builder
	upper := false
	for _, r := range s {
		if r == '_' {
			upper = b.Len() > 0
			continue
		}
		if upper {
			b.WriteRune(unicode.ToUpper(r))
			upper = false
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
