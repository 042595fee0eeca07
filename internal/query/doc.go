// Package query holds the immutable query-parameter record sent with every
// API request, plus paging and sorting helpers shared by the engine views.
//
// This package contains:
//   - Params: page, limit, sort field, sort order, filter codes and path variables
//   - Meta: the API's page_metadata block
//   - Sorter: field-validated client-side sorting for views that page locally
//
// Params are compared by value; the fetch controller uses Equal to decide
// whether a new request is needed.
package query
