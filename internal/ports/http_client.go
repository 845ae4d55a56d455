package ports

import "net/http"

// HTTPClient abstracts HTTP request execution for the sink writer.
// The standard *http.Client satisfies this interface; tests swap in fakes.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}
