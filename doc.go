// Package identity provides token based authentication and a cache-aside
// read path for the User aggregate.
//
// Token flows:
//   - Auther mints stateless access+refresh JWT pairs at login, rotates
//     them on refresh, and resolves access tokens back to live users.
//     Token kinds are explicit in the payload; a refresh token is never
//     accepted where an access token is expected.
//   - Validation failures are deliberately uniform: signature, structure,
//     expiry, and kind mismatches all surface as the same invalid-token
//     error, with the detail reaching only the logger.
//
// User reads and writes:
//   - UserService fronts the Users repository with a redis cache of
//     compressed snapshots. Reads populate the cache lazily; every write
//     removes the entry rather than updating it, so a concurrent reader
//     can only repopulate from the store. A reader racing a writer can
//     resurrect the previous snapshot for at most one TTL window; that
//     bounded staleness is accepted rather than locked away.
//   - Soft deleted users are indistinguishable from absent ones to every
//     caller, before and after their tokens expire.
package identity
