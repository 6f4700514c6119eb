package mock

// Envelope is the {data, message, code} body the admin frontend expects.
// Business failures are carried in Code with HTTP 200.
type Envelope struct {
	Data    any    `json:"data"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// OK wraps data with code 200.
func OK(data any, message string) Envelope {
	return Envelope{Data: data, Message: message, Code: 200}
}

// Fail returns an envelope with null data and the given business code.
func Fail(code int, message string) Envelope {
	return Envelope{Message: message, Code: code}
}

// Page is the paginated list shape inside an envelope.
type Page[T any] struct {
	Data  []T `json:"data"`
	Total int `json:"total"`
	Page  int `json:"page"`
	Size  int `json:"size"`
}

// DefaultPageSize applies when a list request carries no usable size.
const DefaultPageSize = 10

// Paginate returns the 1-based page of items. Out-of-range pages are empty.
// A page below 1 is 1 and a size below 1 is DefaultPageSize.
func Paginate[T any](items []T, page, size int) Page[T] {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = DefaultPageSize
	}
	// Compare before multiplying so huge page or size values cannot overflow.
	if len(items) == 0 || page-1 > (len(items)-1)/size {
		return Page[T]{Data: []T{}, Total: len(items), Page: page, Size: size}
	}
	start := (page - 1) * size
	end := start + min(size, len(items)-start)
	data := make([]T, end-start)
	copy(data, items[start:end])
	return Page[T]{Data: data, Total: len(items), Page: page, Size: size}
}
