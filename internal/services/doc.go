// Package services implements the network collaborators behind modulearn's three interfaces.
//
// # Authentication
//
// [AuthService] has two implementations:
//   - [SupabaseAuth] talks to a hosted GoTrue server. Third-party sign-in uses PKCE: [SupabaseAuth.AuthURL]
//     returns a verifier the caller keeps (the server puts it in a cookie) and presents again to
//     [SupabaseAuth.ExchangeCode] when the browser comes back with ?code=.
//   - [LocalAuth] needs no hosted backend. Google sign-in goes through [oauth2], passwords are bcrypt
//     hashed in the local users table, and sessions are HS256 tokens revoked on sign-out.
//
// # Completion
//
// [CompletionService] is a single-turn LLM call. [GroqService] uses the OpenAI-compatible chat
// completions endpoint; [GeminiService] uses the genai SDK. Both report an empty completion as
// [shared.ErrMissingContent] so callers can tell it apart from a transport failure.
//
// # Video search
//
// [YouTubeSearch] wraps the YouTube Data API search endpoint.
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrNotConfigured] : missing URL or API key
//   - [shared.ErrRateLimited] : HTTP 429 or a rate-limit message from the backend
//   - [shared.ErrNotAuthenticated] : rejected or revoked token
//   - [shared.ErrAPIRequest] : any other non-2xx response
package services
