package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// StringList — список e-mail получателей, хранится в TEXT как JSON-массив.
// Историческая колонка неоднородна: встречаются нативные массивы, массивы,
// завернутые в JSON-строку ('"[\"a@x\"]"'), и голые одиночные адреса.
// Нормализация живёт только здесь; наружу всегда выходит плоский []string.
type StringList []string

func (l *StringList) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*l = nil
		return nil
	case []byte:
		*l = normalizeRecipients(string(v))
	case string:
		*l = normalizeRecipients(v)
	default:
		return fmt.Errorf("stringlist: unsupported column type %T", value)
	}
	return nil
}

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		l = StringList{}
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *StringList) UnmarshalJSON(data []byte) error {
	*l = normalizeRecipients(string(data))
	return nil
}

func (l StringList) MarshalJSON() ([]byte, error) {
	if l == nil {
		l = StringList{}
	}
	return json.Marshal([]string(l))
}

// normalizeRecipients разворачивает любую из исторических форм в []string,
// фильтруя нестроковые элементы. Непарсящийся мусор даёт пустой список.
func normalizeRecipients(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return nil
	}

	var any interface{}
	if err := json.Unmarshal([]byte(raw), &any); err != nil {
		// не JSON вовсе — трактуем как одиночный адрес
		return []string{raw}
	}
	return flattenRecipients(any, 0)
}

func flattenRecipients(v interface{}, depth int) []string {
	if depth > 3 {
		return nil
	}
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return nil
		}
		// строка может сама содержать JSON-массив (двойная сериализация)
		if strings.HasPrefix(s, "[") {
			var inner interface{}
			if err := json.Unmarshal([]byte(s), &inner); err == nil {
				return flattenRecipients(inner, depth+1)
			}
		}
		return []string{s}
	case []interface{}:
		out := make([]string, 0, len(t))
		for _, e := range t {
			es, ok := e.(string)
			if !ok {
				continue // нестроковые элементы молча отбрасываем
			}
			if es = strings.TrimSpace(es); es != "" {
				out = append(out, es)
			}
		}
		return out
	default:
		return nil
	}
}
