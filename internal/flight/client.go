package flight

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/flight"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/23skdu/longbow-lens/internal/export"
	"github.com/23skdu/longbow-lens/internal/records"
)

// Client fetches record sets from a lens Flight server.
type Client struct {
	client  flight.Client
	addr    string
	timeout time.Duration
}

// Dial connects to addr without TLS. maxMessageBytes bounds a single
// received batch.
func Dial(ctx context.Context, addr string, maxMessageBytes int) (*Client, error) {
	c, err := flight.NewClientWithMiddlewareCtx(ctx, addr, nil, nil,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.MaxCallRecvMsgSize(maxMessageBytes)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Flight client: %w", err)
	}
	return &Client{client: c, addr: addr, timeout: 30 * time.Second}, nil
}

func (c *Client) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// List returns the ticket names the server advertises.
func (c *Client) List(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	stream, err := c.client.ListFlights(ctx, &flight.Criteria{})
	if err != nil {
		return nil, fmt.Errorf("failed to list flights: %w", err)
	}
	var names []string
	for {
		info, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return names, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list flights: %w", err)
		}
		for _, ep := range info.GetEndpoint() {
			names = append(names, string(ep.GetTicket().GetTicket()))
		}
	}
}

// GetSchema retrieves the schema of one ticket.
func (c *Client) GetSchema(ctx context.Context, ticket string) (*arrow.Schema, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	res, err := c.client.GetSchema(ctx, &flight.FlightDescriptor{
		Type: flight.DescriptorPATH,
		Path: []string{ticket},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get schema: %w", err)
	}
	return flight.DeserializeSchema(res.GetSchema(), memory.DefaultAllocator)
}

// doGet streams every batch of a ticket through fn.
func (c *Client) doGet(ctx context.Context, ticket string, fn func(arrow.Record) error) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	stream, err := c.client.DoGet(ctx, &flight.Ticket{Ticket: []byte(ticket)})
	if err != nil {
		return fmt.Errorf("failed to DoGet %s: %w", ticket, err)
	}
	rdr, err := flight.NewRecordReader(stream)
	if err != nil {
		return fmt.Errorf("failed to read %s stream: %w", ticket, err)
	}
	defer rdr.Release()

	for rdr.Next() {
		if err := fn(rdr.Record()); err != nil {
			return err
		}
	}
	if err := rdr.Err(); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to read %s stream: %w", ticket, err)
	}
	return nil
}

// Fetch downloads the full record set.
func (c *Client) Fetch(ctx context.Context) (records.Set, error) {
	var set records.Set
	err := c.doGet(ctx, TicketTensors, func(rec arrow.Record) error {
		ts, err := export.Tensors(rec)
		set.Tensors = append(set.Tensors, ts...)
		return err
	})
	if err != nil {
		return records.Set{}, err
	}
	err = c.doGet(ctx, TicketMetadata, func(rec arrow.Record) error {
		md, err := export.Metadata(rec)
		set.Metadata = append(set.Metadata, md...)
		return err
	})
	if err != nil {
		return records.Set{}, err
	}
	return set, nil
}
