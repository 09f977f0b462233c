package crm

import "net/http"

// RawResponse is what the transport returns for one call.
type RawResponse struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// BatchResult pairs one batch slot with its outcome.
type BatchResult struct {
	Response *RawResponse
	Err      error
}

// Response is the outcome of one execution, single or aggregated.
type Response struct {
	// Request is a copy of the request as the caller submitted it.
	Request *Request
	// Raw holds one body for a single call, or the ordered page bodies of an
	// aggregated paginated call.
	Raw [][]byte
	// Content is the transformed domain value, or the endpoint's empty value.
	Content any

	empty bool
}

// NewResponse creates a response. empty must reflect the transformer's
// no-data decision.
func NewResponse(req *Request, raw [][]byte, content any, empty bool) *Response {
	return &Response{
		Request: req,
		Raw:     raw,
		Content: content,
		empty:   empty,
	}
}

// IsEmpty reports whether the response carries no data.
func (r *Response) IsEmpty() bool {
	return r.empty
}

// Records returns the content as a record list. A single record yields a
// one-element list; non-record content yields nil.
func (r *Response) Records() []Record {
	switch content := r.Content.(type) {
	case []Record:
		return content
	case *Record:
		if content == nil {
			return nil
		}

		return []Record{*content}
	default:
		return nil
	}
}

// Record returns the content as a single record, or nil.
func (r *Response) Record() *Record {
	switch content := r.Content.(type) {
	case *Record:
		return content
	case []Record:
		if len(content) == 0 {
			return nil
		}

		return &content[0]
	default:
		return nil
	}
}

// IDs returns the content as a list of identifiers.
func (r *Response) IDs() []string {
	switch content := r.Content.(type) {
	case []string:
		return content
	case []Record:
		ids := make([]string, len(content))
		for i, record := range content {
			ids[i] = record.ID
		}

		return ids
	default:
		return nil
	}
}

// Len returns the number of items carried by the response.
func (r *Response) Len() int {
	return ItemCount(r.Content)
}

// ItemCount counts the items of a transformed content value.
func ItemCount(content any) int {
	switch typed := content.(type) {
	case nil:
		return 0
	case []Record:
		return len(typed)
	case []string:
		return len(typed)
	case *Record:
		if typed == nil {
			return 0
		}

		return 1
	default:
		return 1
	}
}
