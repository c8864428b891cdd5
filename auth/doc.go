// Package auth holds the credential state shared by clients and
// connections, and renews the bearer token when it is about to expire.
//
// A [Store] persists the bearer token, its expiry and an opaque auth state
// used by a [Refresher] to obtain a new token. [Renewer] applies the renewal
// policy: when the stored expiry is at most two minutes away it asks the
// refresher for a token and, if it changed, writes the new token and its
// expiry back to the store.
//
//	store := auth.NewMemoryStore()
//	r := auth.NewRenewer(store, auth.NewTokenRefresher(http.DefaultClient, store))
//	outcome, err := r.Renew(ctx)
package auth
