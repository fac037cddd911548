// Package auth holds the identity types shared by the authentication
// packages: the closed set of roles and the Principal an authenticated
// request acts as.
//
// Subpackages:
//
//   - auth/password: bcrypt hashing and verification
//   - auth/jwt: access/refresh token issuance and verification
//   - auth/authctx: principal propagation through request contexts
package auth
