// Package server provides HTTP routing, middleware and handlers for the browser app and the CLI sign-in.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
// Routes may carry their own middleware, which runs inside the router-wide stack.
//
// The [BasicRouter] implementation uses [http.ServeMux] method patterns ("POST /auth/login").
//
// # Session Bootstrap
//
// [AppHandler] owns "/". When the request carries ?code= it runs an [auth.Bootstrap]:
// the code is exchanged exactly once (a replay ledger refuses codes already seen), a session
// cookie is set and the browser is redirected with 303 to the stripped URL plus the route
// fragment (#/login, #/onboarding or #/app). Without a code the static shell is served.
//
// # API
//
// [Session] resolves a bearer token or session cookie to an identity and forwards the token
// to the profile store. [RequireOnboarded] answers 403 with route /onboarding until the profile
// is complete. Errors are written as {"error", "kind", "route"} JSON; see [ErrorBody].
//
// # CLI Sign-in
//
// [CallbackHandler] serves /callback on a temporary localhost server during `modulearn auth login`.
// It only processes one callback and sends the outcome through a channel.
package server
