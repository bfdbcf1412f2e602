package theme

import (
	"encoding/json"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// Normalize deep-merges a partial remote payload over the default template.
//
// Objects merge key by key, arrays are replaced wholesale and unknown keys are
// ignored. Leaves keep the incoming value whenever it is present and of the
// right type, so an explicit empty string survives while a missing key falls
// back to its default. A non-nil frame overrides whatever the payload carries.
func Normalize(raw []byte, frame *string) Config {
	cfg := Default()
	if len(raw) > 0 && gjson.ValidBytes(raw) {
		mergeValue(reflect.ValueOf(&cfg).Elem(), gjson.ParseBytes(raw), constraint{})
	}
	if frame != nil {
		cfg.Frame = StringPtr(*frame)
	}
	return cfg
}

// NormalizeValue is Normalize for payloads that are already decoded, such as
// a map read from a JSON column or a Config produced by an older client.
func NormalizeValue(value any, frame *string) Config {
	if value == nil {
		return Normalize(nil, frame)
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return Normalize(nil, frame)
	}
	return Normalize(raw, frame)
}

type constraint struct {
	enum []string
	min  *float64
	max  *float64
}

func parseConstraint(tag string) constraint {
	var c constraint
	if tag == "" {
		return c
	}
	for _, part := range strings.Split(tag, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch key {
		case "enum":
			c.enum = strings.Split(value, "|")
		case "min":
			if parsed, err := strconv.ParseFloat(value, 64); err == nil {
				c.min = &parsed
			}
		case "max":
			if parsed, err := strconv.ParseFloat(value, 64); err == nil {
				c.max = &parsed
			}
		}
	}
	return c
}

func jsonName(field reflect.StructField) string {
	tag := field.Tag.Get("json")
	if tag == "-" {
		return ""
	}
	name, _, _ := strings.Cut(tag, ",")
	if name == "" {
		return field.Name
	}
	return name
}

// mergeValue writes src into dst when src has a compatible shape and reports
// whether it did. dst must be addressable and already hold its default.
func mergeValue(dst reflect.Value, src gjson.Result, c constraint) bool {
	switch dst.Kind() {
	case reflect.Struct:
		if !src.IsObject() {
			return false
		}
		t := dst.Type()
		for i := 0; i < t.NumField(); i++ {
			field := t.Field(i)
			name := jsonName(field)
			if name == "" || !field.IsExported() {
				continue
			}
			child := src.Get(gjsonKey(name))
			if !child.Exists() {
				continue
			}
			mergeValue(dst.Field(i), child, parseConstraint(field.Tag.Get("theme")))
		}
		return true

	case reflect.Pointer:
		if dst.Type().Elem().Kind() != reflect.String {
			return false
		}
		switch src.Type {
		case gjson.Null:
			dst.Set(reflect.Zero(dst.Type()))
			return true
		case gjson.String:
			value := reflect.New(dst.Type().Elem())
			value.Elem().SetString(src.Str)
			dst.Set(value)
			return true
		}
		return false

	case reflect.String:
		if src.Type != gjson.String {
			return false
		}
		if len(c.enum) > 0 && !contains(c.enum, src.Str) {
			return false
		}
		dst.SetString(src.Str)
		return true

	case reflect.Bool:
		if src.Type != gjson.True && src.Type != gjson.False {
			return false
		}
		dst.SetBool(src.Bool())
		return true

	case reflect.Float64:
		if src.Type != gjson.Number {
			return false
		}
		value := src.Num
		if math.IsNaN(value) || math.IsInf(value, 0) {
			return false
		}
		if c.min != nil && value < *c.min {
			value = *c.min
		}
		if c.max != nil && value > *c.max {
			value = *c.max
		}
		dst.SetFloat(value)
		return true

	case reflect.Slice:
		if !src.IsArray() {
			return false
		}
		// The array replaces the default wholesale; each element is merged
		// over its zero value and elements of the wrong shape are skipped.
		replacement := reflect.MakeSlice(dst.Type(), 0, len(src.Array()))
		for _, item := range src.Array() {
			elem := reflect.New(dst.Type().Elem()).Elem()
			if mergeValue(elem, item, constraint{}) {
				replacement = reflect.Append(replacement, elem)
			}
		}
		dst.Set(replacement)
		return true
	}
	return false
}

func gjsonKey(name string) string {
	replacer := strings.NewReplacer(".", `\.`, "*", `\*`, "?", `\?`, "|", `\|`, "#", `\#`, "@", `\@`)
	return replacer.Replace(name)
}

func contains(values []string, target string) bool {
	for _, value := range values {
		if value == target {
			return true
		}
	}
	return false
}
