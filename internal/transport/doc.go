// Package transport implements the single-shot HTTP/1.1 exchange used by
// signed requests: dial, write the head in a fixed order, stream the body in
// chunks and read the response from the same connection.
//
// Header names are written exactly as given. The response is parsed with
// net/http.ReadResponse.
package transport
