// Quota Ledger - Event-Sourced Usage Accounting Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/quotaledger

/*
Package api provides the quota ledger's HTTP surface: account creation,
usage recording, suspension and reinstatement, and read access to an
account's current state and event history. Plan changes and period
resets have no HTTP route. Routing is chi-based; handlers translate domain errors into
the status codes callers depend on (404 for an unknown account, 409 for
a rejected command) and otherwise stay a thin layer over
internal/accountservice.
*/
package api
