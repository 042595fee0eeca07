package api

import "github.com/spendview/spendview/internal/query"

// PublicationDateSorter sorts submission history rows by publication or
// certification date.
var PublicationDateSorter = query.NewSorter(map[string]query.Less[PublicationDate]{ //nolint:gochecknoglobals // stateless
	SortPublicationDate: func(a, b PublicationDate) bool {
		return a.PublicationDate.Before(b.PublicationDate.Time)
	},
	SortCertificationDate: func(a, b PublicationDate) bool {
		return a.CertificationDate.Before(b.CertificationDate.Time)
	},
})
