// Package resolve
// Author: momentics <momentics@gmail.com>
//
// Best-effort name to IPv4 resolution. Results are host byte order
// addresses ready for api.Endpoint.
//
// IPv4ForName uses the system resolver. A Resolver with a Nameserver set
// sends its own A queries with github.com/miekg/dns and never consults the
// system configuration.
package resolve
