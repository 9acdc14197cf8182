// Package stream
// Author: momentics <momentics@gmail.com>
//
// Connected TCP streams and listeners over the socket operations layer.
// A Conn owns its handle: it remembers both endpoints, writes in bounded
// chunks and closes each direction at most once.
package stream
