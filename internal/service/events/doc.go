// Package events implements the delivery-event pipeline: normalizing
// provider notifications into canonical webhook events and applying them to
// persistent delivery state.
//
// The provider redelivers notifications at least once and in no particular
// order, so every state mutation here is an idempotent upsert or an
// append, and the idempotency ledger is consulted before and recorded after
// each successful application. Events that exhaust the retry budget are
// preserved in the dead-letter sink, never dropped.
//
// The service layer depends only on the repository interfaces defined in
// repository.go. It never imports net/http or database/sql directly.
package events
