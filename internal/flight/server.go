// Package flight serves a loaded record set over Arrow Flight and fetches
// it back from a remote instance.
package flight

import (
	"context"
	"fmt"
	"net"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/flight"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/23skdu/longbow-lens/internal/export"
	"github.com/23skdu/longbow-lens/internal/logger"
	"github.com/23skdu/longbow-lens/internal/metrics"
	"github.com/23skdu/longbow-lens/internal/records"
)

// Ticket names, also used as the single path element of descriptors.
const (
	TicketTensors  = "tensors"
	TicketMetadata = "metadata"
)

var tickets = []string{TicketTensors, TicketMetadata}

// Server holds an immutable record set and streams it to clients.
type Server struct {
	flight.BaseFlightServer

	set records.Set
	mem memory.Allocator
	srv flight.Server
}

func NewServer(set records.Set, maxMessageBytes int) *Server {
	s := &Server{
		set: set,
		mem: memory.NewGoAllocator(),
	}
	s.srv = flight.NewServerWithMiddleware(nil,
		grpc.MaxSendMsgSize(maxMessageBytes),
		grpc.MaxRecvMsgSize(maxMessageBytes),
	)
	s.srv.RegisterFlightService(s)
	return s
}

// Listen binds addr. Use "localhost:0" for an ephemeral port.
func (s *Server) Listen(addr string) error {
	if err := s.srv.Init(addr); err != nil {
		return fmt.Errorf("flight: listening on %s: %w", addr, err)
	}
	return nil
}

func (s *Server) Addr() net.Addr { return s.srv.Addr() }

// Serve blocks until Shutdown is called or the listener fails.
func (s *Server) Serve() error {
	logger.Log.Info("flight server listening", "addr", s.Addr().String(),
		"tensors", len(s.set.Tensors), "metadata", len(s.set.Metadata))
	return s.srv.Serve()
}

func (s *Server) Shutdown() { s.srv.Shutdown() }

func (s *Server) record(ticket string) (arrow.Record, error) {
	switch ticket {
	case TicketTensors:
		return export.TensorRecord(s.mem, export.TensorSchema(), s.set.Tensors), nil
	case TicketMetadata:
		return export.MetadataRecord(s.mem, s.set.Metadata), nil
	}
	return nil, status.Errorf(codes.NotFound, "unknown ticket %q", ticket)
}

func (s *Server) schema(ticket string) (*arrow.Schema, error) {
	switch ticket {
	case TicketTensors:
		return export.TensorSchema(), nil
	case TicketMetadata:
		return export.MetadataSchema(), nil
	}
	return nil, status.Errorf(codes.NotFound, "unknown ticket %q", ticket)
}

func (s *Server) rows(ticket string) int64 {
	if ticket == TicketTensors {
		return int64(len(s.set.Tensors))
	}
	return int64(len(s.set.Metadata))
}

func (s *Server) info(ticket string) (*flight.FlightInfo, error) {
	sc, err := s.schema(ticket)
	if err != nil {
		return nil, err
	}
	return &flight.FlightInfo{
		Schema: flight.SerializeSchema(sc, s.mem),
		FlightDescriptor: &flight.FlightDescriptor{
			Type: flight.DescriptorPATH,
			Path: []string{ticket},
		},
		Endpoint: []*flight.FlightEndpoint{{
			Ticket: &flight.Ticket{Ticket: []byte(ticket)},
		}},
		TotalRecords: s.rows(ticket),
		TotalBytes:   -1,
	}, nil
}

func descriptorTicket(desc *flight.FlightDescriptor) (string, error) {
	if desc == nil || desc.Type != flight.DescriptorPATH || len(desc.Path) != 1 {
		return "", status.Error(codes.InvalidArgument, "descriptor must be a single-element path")
	}
	return desc.Path[0], nil
}

func (s *Server) ListFlights(_ *flight.Criteria, stream flight.FlightService_ListFlightsServer) error {
	metrics.RecordFlightRequest("ListFlights", "")
	for _, t := range tickets {
		info, err := s.info(t)
		if err != nil {
			return err
		}
		if err := stream.Send(info); err != nil {
			return err
		}
	}
	return nil
}

func (s *Server) GetFlightInfo(_ context.Context, desc *flight.FlightDescriptor) (*flight.FlightInfo, error) {
	t, err := descriptorTicket(desc)
	if err != nil {
		return nil, err
	}
	metrics.RecordFlightRequest("GetFlightInfo", t)
	return s.info(t)
}

func (s *Server) GetSchema(_ context.Context, desc *flight.FlightDescriptor) (*flight.SchemaResult, error) {
	t, err := descriptorTicket(desc)
	if err != nil {
		return nil, err
	}
	metrics.RecordFlightRequest("GetSchema", t)
	sc, err := s.schema(t)
	if err != nil {
		return nil, err
	}
	return &flight.SchemaResult{Schema: flight.SerializeSchema(sc, s.mem)}, nil
}

func (s *Server) DoGet(tkt *flight.Ticket, stream flight.FlightService_DoGetServer) error {
	t := string(tkt.GetTicket())
	metrics.RecordFlightRequest("DoGet", t)

	rec, err := s.record(t)
	if err != nil {
		return err
	}
	defer rec.Release()

	w := flight.NewRecordWriter(stream, ipc.WithSchema(rec.Schema()), ipc.WithAllocator(s.mem))
	if err := w.Write(rec); err != nil {
		_ = w.Close()
		return fmt.Errorf("flight: writing %s: %w", t, err)
	}
	logger.Log.Debug("served ticket", "ticket", t, "rows", rec.NumRows())
	return w.Close()
}
