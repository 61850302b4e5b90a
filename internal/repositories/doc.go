// Package repositories implements SQLite persistence for local state.
//
// The client keeps almost nothing locally: the backend owns every record. What does live on disk is
// the auth session, so that separate invocations share a sign-in and a refreshed token.
//
// Key Implementations:
//   - [SessionRepository] : auth sessions, scoped to the backend URL that issued them
//
// Repositories soft delete via deleted_at timestamps and exclude deleted rows from queries.
package repositories
