// Package cache stores raw API responses with TTL expiration.
//
// Two backends implement Store:
//   - FileStore keeps one JSON file per entry under ~/.spendview/cache/.
//   - RedisStore keeps entries in Redis under a key prefix so several
//     processes can share them.
//
// Keys come from GenerateKey, a SHA-256 of the normalized endpoint, path
// variables, filters and paging. The TTL defaults to one hour and can be set in
// the config file, the SPENDVIEW_CACHE_TTL_SECONDS variable or --cache-ttl.
package cache
