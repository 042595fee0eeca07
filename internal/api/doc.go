// Package api is the client side of the spending data API: endpoint
// templates, response models, an HTTP implementation of fetch.Transport, a
// caching decorator and the formatting helpers views use to render rows.
package api
