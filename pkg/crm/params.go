package crm

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/go-querystring/query"

	"github.com/fivetwenty-io/crm-client/internal/constants"
)

// Params holds request parameters. Keys are unique; values are cast to strings
// with FormatParam when the request is sent.
type Params map[string]any

// Clone returns a deep copy of the parameter map. Slices are copied so that a
// mutation on the copy never reaches the original.
func (p Params) Clone() Params {
	cloned := make(Params, len(p))
	for key, value := range p {
		switch typed := value.(type) {
		case []string:
			cloned[key] = append([]string(nil), typed...)
		case []int:
			cloned[key] = append([]int(nil), typed...)
		case []any:
			cloned[key] = append([]any(nil), typed...)
		default:
			cloned[key] = value
		}
	}

	return cloned
}

// Keys returns the parameter names in sorted order.
func (p Params) Keys() []string {
	keys := make([]string, 0, len(p))
	for key := range p {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	return keys
}

// FormatParam casts a parameter value to its wire representation. The second
// return value is false when the parameter must be omitted.
func FormatParam(value any, generation Generation) (string, bool) {
	switch typed := value.(type) {
	case nil:
		return "", false
	case string:
		return typed, true
	case bool:
		return strconv.FormatBool(typed), true
	case int:
		return strconv.Itoa(typed), true
	case int32:
		return strconv.FormatInt(int64(typed), 10), true
	case int64:
		return strconv.FormatInt(typed, 10), true
	case uint:
		return strconv.FormatUint(uint64(typed), 10), true
	case float32:
		return strconv.FormatFloat(float64(typed), 'f', -1, 32), true
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64), true
	case time.Time:
		if generation == GenerationLegacy {
			return typed.Format(constants.LegacyTimeLayout), true
		}

		return typed.Format(time.RFC3339), true
	case *time.Time:
		if typed == nil {
			return "", false
		}

		return FormatParam(*typed, generation)
	case []string:
		return strings.Join(typed, ","), true
	case []int:
		parts := make([]string, len(typed))
		for i, item := range typed {
			parts[i] = strconv.Itoa(item)
		}

		return strings.Join(parts, ","), true
	case []any:
		parts := make([]string, 0, len(typed))
		for _, item := range typed {
			if formatted, ok := FormatParam(item, generation); ok {
				parts = append(parts, formatted)
			}
		}

		return strings.Join(parts, ","), true
	case fmt.Stringer:
		return typed.String(), true
	default:
		return fmt.Sprint(typed), true
	}
}

// Values casts every parameter and returns them as url.Values.
func (p Params) Values(generation Generation) url.Values {
	values := url.Values{}

	for key, value := range p {
		if formatted, ok := FormatParam(value, generation); ok {
			values.Set(key, formatted)
		}
	}

	return values
}

// ListOptions are the optional query parameters of the modern list and search
// endpoints.
type ListOptions struct {
	Fields     []string `url:"fields,comma,omitempty"`
	SortBy     string   `url:"sort_by,omitempty"`
	SortOrder  string   `url:"sort_order,omitempty"`
	CustomView string   `url:"cvid,omitempty"`
	Converted  string   `url:"converted,omitempty"`
	Approved   string   `url:"approved,omitempty"`
	Criteria   string   `url:"criteria,omitempty"`
	Email      string   `url:"email,omitempty"`
	Phone      string   `url:"phone,omitempty"`
	Word       string   `url:"word,omitempty"`
	Type       string   `url:"type,omitempty"`
}

// Params encodes the options into request parameters.
func (o *ListOptions) Params() (Params, error) {
	params := Params{}
	if o == nil {
		return params, nil
	}

	values, err := query.Values(o)
	if err != nil {
		return nil, fmt.Errorf("encoding list options: %w", err)
	}

	for key := range values {
		params[key] = values.Get(key)
	}

	return params, nil
}
