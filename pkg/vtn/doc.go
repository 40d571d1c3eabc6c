// Package vtn assembles the notifier service: configuration, the chi router
// with its middleware, and the mapping from verified access tokens to
// notifier clients.
package vtn
