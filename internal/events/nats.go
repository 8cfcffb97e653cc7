package events

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"
)

type NATSPublisher struct {
	conn *nats.Conn
}

func NewNATSPublisher(url string) (*NATSPublisher, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return &NATSPublisher{conn: conn}, nil
}

func (p *NATSPublisher) Publish(_ context.Context, subject string, msg []byte) error {
	return p.conn.Publish(subject, msg)
}

func (p *NATSPublisher) Close() error {
	p.conn.Close()
	return nil
}
