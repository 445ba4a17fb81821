// Package auth sequences sign-in flows against the auth backend and the profile store.
//
// [Bootstrap] handles the return leg of a third-party sign-in: it captures the
// authorization code from the callback URL exactly once, exchanges it, makes
// sure a profile row exists and picks the first route (login, onboarding or
// dashboard). [Service] covers the remaining flows: signup, password login,
// sign-out and profile reads and writes.
package auth
