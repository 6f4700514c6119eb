// Package id generates the identifiers featmock hands out: random UUIDs for
// request ids and time-ordered numeric ids for records created through mock
// endpoints.
package id
