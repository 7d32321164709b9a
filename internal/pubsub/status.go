// Package pubsub is a polled publish/subscribe client with MQTT (paho) and
// NATS transports. Publishing and subscription changes never block; inbound
// traffic is taken one event per Poll.
package pubsub

import "fmt"

// Status is the outcome of a Client operation. Connection acknowledgement
// codes share the enumeration.
type Status int

const (
	StatusOK Status = iota
	StatusRefusedProtocolVersion
	StatusBadClientID
	StatusServiceUnavailable
	StatusBadUserNamePassword
	StatusNotAuthorized
	StatusInvalidString
	StatusInvalidClient
	StatusClientError
	StatusDisconnected
	StatusNetworkTimeout
	StatusFlushTimeout
	StatusConnectionRefused
	StatusConnectionReset
	StatusConnectionError
)

var statusNames = [...]string{
	StatusOK:                     "ok",
	StatusRefusedProtocolVersion: "refused protocol version",
	StatusBadClientID:            "bad client id",
	StatusServiceUnavailable:     "service unavailable",
	StatusBadUserNamePassword:    "bad user name or password",
	StatusNotAuthorized:          "not authorized",
	StatusInvalidString:          "invalid string",
	StatusInvalidClient:          "invalid client",
	StatusClientError:            "client error",
	StatusDisconnected:           "disconnected",
	StatusNetworkTimeout:         "network timeout",
	StatusFlushTimeout:           "flush timeout",
	StatusConnectionRefused:      "connection refused",
	StatusConnectionReset:        "connection reset",
	StatusConnectionError:        "connection error",
}

func (s Status) String() string {
	if s >= 0 && int(s) < len(statusNames) {
		return statusNames[s]
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// QoS is the delivery guarantee requested for a publish or subscription.
type QoS byte

const (
	AtMostOnce QoS = iota
	AtLeastOnce
	ExactlyOnce
)

// ParseQoS accepts 0, 1 and 2.
func ParseQoS(n int) (QoS, error) {
	if n < 0 || n > 2 {
		return AtMostOnce, fmt.Errorf("qos must be 0, 1 or 2, got %d", n)
	}
	return QoS(n), nil
}
