// Package auth guards the bridge admin API with signed bearer tokens.
//
// Tokens are HS256 JWTs carrying a subject and a Role. There is no user
// store: tokens are issued offline with `toonbridge token` using the same
// secret the server is configured with, and validated by signature alone.
//
// Roles are ordered (viewer < operator < admin) and each admin endpoint
// requires one Permission, mapped to roles in a static table.
package auth
