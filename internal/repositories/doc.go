// Package repositories implements persistence for learner profiles and local credentials.
//
// Key Implementations:
//   - [ProfileRepository] : SQLite profiles with INSERT ... ON CONFLICT merges
//   - [PostgresProfileRepository] : the same table on PostgreSQL through a pgx pool
//   - [RESTProfileRepository] : a hosted PostgREST profiles table, authorized with the caller's token
//   - [UserRepository] : email/password logins and revoked tokens for the self-hosted auth provider
//
// Every profile write goes through [profileColumns], so fields the caller did not set are never part of the statement.
// That is what keeps a later partial save (e.g. onboarded=true) from erasing an earlier one (e.g. full_name).
package repositories
