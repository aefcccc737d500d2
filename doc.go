// Package auth provides the authentication and authorization core of the
// civic issue API: principals and their roles, bcrypt credentials, HS256
// bearer tokens, route access rules and the HTTP error contract.
//
// Principals:
//   - A Principal is CITIZEN or ADMIN. Registration over HTTP always yields
//     CITIZEN; administrators are created through CredentialService.CreateAdmin.
//   - Usernames and emails are unique. The unique indexes are authoritative,
//     so concurrent registrations with the same identity produce exactly one
//     principal and ErrDuplicateIdentity for the rest.
//
// Tokens:
//   - TokenService mints tokens whose subject is the username. Only the
//     subject is trusted when a token comes back; the role is re-read from
//     the principal store on every request.
//   - A token is valid up to and including its expiry instant.
//
// Authorization:
//   - Policy evaluates RouteRule patterns by specificity. Denials for
//     anonymous requests render 401, denials for authenticated ones 403.
//
// Activity sinks:
//   - ActivitySink is a best effort audit emitter used by CredentialService.
//     Sink errors are logged and never fail the operation.
package auth
