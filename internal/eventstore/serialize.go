// Quota Ledger - Event-Sourced Usage Accounting Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/quotaledger

package eventstore

import (
	"fmt"

	"github.com/goccy/go-json"

	"github.com/tomtom215/quotaledger/internal/domain"
)

// encodePayload marshals an event's payload to JSON for storage.
func encodePayload(e domain.Event) ([]byte, error) {
	return json.Marshal(e)
}

// decodePayload reconstructs the concrete Event type for a stored row,
// dispatching on the (event_type, event_schema_version) pair recorded
// alongside the payload.
func decodePayload(eventType domain.EventType, schemaVersion int, raw []byte) (domain.Event, error) {
	switch eventType {
	case domain.EventAccountCreated:
		var p domain.AccountCreatedPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		return p, nil

	case domain.EventPlanChanged:
		var p domain.PlanChangedPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		return p, nil

	case domain.EventUsageRecorded:
		switch schemaVersion {
		case 1:
			var p domain.UsageRecordedPayloadV1
			if err := json.Unmarshal(raw, &p); err != nil {
				return nil, err
			}
			return p, nil
		default:
			var p domain.UsageRecordedPayload
			if err := json.Unmarshal(raw, &p); err != nil {
				return nil, err
			}
			return p, nil
		}

	case domain.EventPeriodReset:
		var p domain.PeriodResetPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		return p, nil

	case domain.EventAccountSuspended:
		var p domain.AccountSuspendedPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		return p, nil

	case domain.EventAccountReinstated:
		var p domain.AccountReinstatedPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		return p, nil

	default:
		return nil, fmt.Errorf("unknown event type %q", eventType)
	}
}
