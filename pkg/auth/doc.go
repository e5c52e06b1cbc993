// Package auth authenticates web requests against imported directory users.
//
// The middleware trusts a front-end web server to have authenticated the
// request and to forward the account name in a header (Remote-User by
// default). It resolves that name to a local user record, optionally
// importing unknown users from the directory on first sight, and can issue
// short-lived JWTs for downstream APIs.
package auth
