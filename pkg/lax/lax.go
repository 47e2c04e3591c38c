// Package lax implements tools for building easy JSON views.
//
//      ^ ^
//  ("\(-_-)/")
//  )(       )(
// ((...) (...))
//
// Take it easy!
package lax

import (
	"encoding/json"
	"log"
	"net/http"
)

// Request wraps http.Request to provide convenience methods.
type Request struct {
	*http.Request
}

// Query returns the first value for a key in the query string.
func (request *Request) Query(key string) string {
	return request.URL.Query().Get(key)
}

// Handler returns the data to encode for a request.
//
// Returning a *Response sets the status code. Returning an error responds
// with a 500 and logs the error.
type Handler = func(request *Request) interface{}

// View is a read-only JSON view. HEAD requests run Get without writing the body.
type View struct {
	Get Handler
}

// Response is data to encode with a status code.
type Response struct {
	Status int
	Data   interface{}
}

// IssueDescription is one problem with a request, created with Issue.
type IssueDescription struct {
	Path    string `json:"path"`
	Problem string `json:"problem"`
}

// Issue describes a problem with part of a request.
func Issue(path, problem string) IssueDescription {
	return IssueDescription{path, problem}
}

// MakeResponse creates a response with a status code and data.
func MakeResponse(status int, data interface{}) *Response {
	return &Response{status, data}
}

// MakeErrorListResponse creates a 400 response listing every issue.
func MakeErrorListResponse(issues ...IssueDescription) *Response {
	return &Response{http.StatusBadRequest, issues}
}

func run(view *View, request *Request) (*Response, error) {
	if view.Get == nil || (request.Method != http.MethodGet && request.Method != http.MethodHead) {
		return &Response{http.StatusMethodNotAllowed, "Method Not Allowed"}, nil
	}

	switch v := view.Get(request).(type) {
	case *Response:
		return v, nil
	case error:
		return nil, v
	default:
		return &Response{http.StatusOK, v}, nil
	}
}

// Wrap creates an HandlerFunc from a View.
func Wrap(view View) http.HandlerFunc {
	return func(writer http.ResponseWriter, httpRequest *http.Request) {
		request := &Request{httpRequest}
		response, err := run(&view, request)

		if err != nil {
			log.Printf("internal error: %+v\n", err)
			http.Error(writer, "Internal Server Error", http.StatusInternalServerError)

			return
		}

		content, err := json.Marshal(response.Data)

		if err != nil {
			log.Printf("json error: %+v\n", err)
			http.Error(writer, "Internal Server Error", http.StatusInternalServerError)

			return
		}

		writer.Header().Set("Content-Type", "application/json")

		if response.Status == http.StatusMethodNotAllowed {
			writer.Header().Set("Allow", "GET, HEAD")
		}

		writer.WriteHeader(response.Status)

		if request.Method != http.MethodHead {
			writer.Write(append(content, '\n'))
		}
	}
}
