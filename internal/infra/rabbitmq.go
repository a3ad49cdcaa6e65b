package infra

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	amqp "github.com/rabbitmq/amqp091-go"
)

// NewAMQPConnection dials the broker behind url after normalising it.
func NewAMQPConnection(raw string) (*amqp.Connection, error) {
	if raw == "" {
		return nil, fmt.Errorf("rabbitmq url is required")
	}

	clean, err := sanitizeAMQPURL(raw)
	if err != nil {
		return nil, fmt.Errorf("parse rabbitmq url: %w", err)
	}

	conn, err := amqp.Dial(clean)
	if err != nil {
		return nil, fmt.Errorf("connect rabbitmq: %w", err)
	}
	return conn, nil
}

func sanitizeAMQPURL(raw string) (string, error) {
	clean := strings.Trim(strings.TrimSpace(raw), "\"'")
	u, err := url.Parse(clean)
	if err != nil {
		return "", err
	}
	if u.Scheme != "amqp" && u.Scheme != "amqps" {
		return "", errors.New("scheme must be amqp:// or amqps://")
	}
	if u.Path == "" {
		clean += "/"
	}
	return clean, nil
}
