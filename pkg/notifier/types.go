package notifier

import (
	"fmt"
	"slices"
	"strings"
)

// ClientID identifies an authenticated VEN or business-logic client.
type ClientID string

func (id ClientID) String() string { return string(id) }

// Notification is a server-originated message for one client.
// It is serialized when the forwarding loop dequeues it, not when it is published.
type Notification struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Policy selects what a full client buffer does with new notifications.
type Policy uint8

const (
	DropNewest Policy = iota
	DropOldest
	BlockProducer
)

var policyNames = [...]string{
	DropNewest:    "drop_newest",
	DropOldest:    "drop_oldest",
	BlockProducer: "block_producer",
}

func (p Policy) String() string {
	if int(p) < len(policyNames) {
		return policyNames[p]
	}
	return fmt.Sprintf("policy(%d)", uint8(p))
}

// ParsePolicy converts a configuration value into a Policy.
func ParsePolicy(s string) (Policy, error) {
	for i, name := range policyNames {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return Policy(i), nil
		}
	}
	return DropNewest, fmt.Errorf("%w: %q", ErrInvalidPolicy, s)
}

// MarshalText implements encoding.TextMarshaler.
func (p Policy) MarshalText() ([]byte, error) {
	if int(p) >= len(policyNames) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPolicy, uint8(p))
	}
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler so Policy can be read from
// environment variables and YAML files.
func (p *Policy) UnmarshalText(text []byte) error {
	v, err := ParsePolicy(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// RegisterOutcome is the result of a registry admission.
type RegisterOutcome uint8

const (
	Admitted RegisterOutcome = iota
	Conflict
	// Closed means the registry is shutting down and admits nothing.
	Closed
)

func (o RegisterOutcome) String() string {
	switch o {
	case Admitted:
		return "admitted"
	case Conflict:
		return "conflict"
	case Closed:
		return "closed"
	}
	return "unknown"
}

// PublishOutcome reports what happened to a single published notification.
// Delivered means the notification reached the client's buffer, not the client.
type PublishOutcome uint8

const (
	Delivered PublishOutcome = iota
	NoSuchClient
	BufferFull
)

func (o PublishOutcome) String() string {
	switch o {
	case Delivered:
		return "delivered_to_buffer"
	case NoSuchClient:
		return "no_such_client"
	case BufferFull:
		return "buffer_full"
	}
	return "unknown"
}

// BroadcastResult aggregates the outcomes of a fan-out.
type BroadcastResult struct {
	Accepted     int `json:"accepted"`
	NoSuchClient int `json:"no_such_client"`
	Dropped      int `json:"dropped"`
}

func (r *BroadcastResult) add(o PublishOutcome) {
	switch o {
	case Delivered:
		r.Accepted++
	case NoSuchClient:
		r.NoSuchClient++
	case BufferFull:
		r.Dropped++
	}
}

// Total is the number of recipients the notification was offered to.
func (r BroadcastResult) Total() int {
	return r.Accepted + r.NoSuchClient + r.Dropped
}

// Filter selects broadcast recipients.
type Filter func(ClientID) bool

// All matches every bound client.
func All() Filter {
	return func(ClientID) bool { return true }
}

// Only matches the listed clients.
func Only(ids ...ClientID) Filter {
	set := make(map[ClientID]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return func(id ClientID) bool {
		_, ok := set[id]
		return ok
	}
}

// Except matches every client not listed.
func Except(ids ...ClientID) Filter {
	only := Only(ids...)
	return func(id ClientID) bool { return !only(id) }
}

// Prefix matches clients whose ID starts with p.
func Prefix(p string) Filter {
	return func(id ClientID) bool { return strings.HasPrefix(string(id), p) }
}

func sortedIDs(ids []ClientID) []ClientID {
	slices.Sort(ids)
	return ids
}
