package flight

import (
	"context"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/flight"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/23skdu/longbow-lens/internal/export"
	"github.com/23skdu/longbow-lens/internal/metrics"
	"github.com/23skdu/longbow-lens/internal/records"
)

func sampleSet() records.Set {
	return records.Set{
		Tensors: []records.Tensor{
			{Name: "blk.0.ffn_up.weight", DType: "Q6_K", Shape: []uint64{4096, 11008}, Size: 36986880, Elements: 45088768},
			{Name: "token_embd.weight", DType: "F16", Shape: []uint64{4096, 32000}, Size: 262144000, Elements: 131072000},
		},
		Metadata: []records.Metadata{
			{Key: "general.name", Value: `"tiny"`, Type: "string"},
		},
	}
}

func startServer(t *testing.T, set records.Set) (*Server, *Client) {
	t.Helper()
	srv := NewServer(set, 4<<20)
	require.NoError(t, srv.Listen("localhost:0"))
	go func() { _ = srv.Serve() }()
	t.Cleanup(srv.Shutdown)

	c, err := Dial(context.Background(), srv.Addr().String(), 4<<20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return srv, c
}

func TestFetchRoundTrip(t *testing.T) {
	set := sampleSet()
	_, c := startServer(t, set)

	before := testutil.ToFloat64(metrics.FlightRequests.WithLabelValues("DoGet", TicketTensors))
	got, err := c.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, set, got)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.FlightRequests.WithLabelValues("DoGet", TicketTensors))-before)
}

func TestFetchEmptySet(t *testing.T) {
	_, c := startServer(t, records.Set{})
	got, err := c.Fetch(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got.Tensors)
	assert.Empty(t, got.Metadata)
}

func TestList(t *testing.T) {
	_, c := startServer(t, sampleSet())
	names, err := c.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{TicketTensors, TicketMetadata}, names)
}

func TestGetSchema(t *testing.T) {
	_, c := startServer(t, sampleSet())
	sc, err := c.GetSchema(context.Background(), TicketMetadata)
	require.NoError(t, err)
	assert.True(t, sc.Equal(export.MetadataSchema()))

	_, err = c.GetSchema(context.Background(), "weights")
	require.Error(t, err)
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestGetFlightInfo(t *testing.T) {
	srv := NewServer(sampleSet(), 1<<20)
	info, err := srv.GetFlightInfo(context.Background(), &flight.FlightDescriptor{
		Type: flight.DescriptorPATH,
		Path: []string{TicketTensors},
	})
	require.NoError(t, err)
	assert.EqualValues(t, 2, info.TotalRecords)
	require.Len(t, info.Endpoint, 1)
	assert.Equal(t, TicketTensors, string(info.Endpoint[0].Ticket.Ticket))

	_, err = srv.GetFlightInfo(context.Background(), &flight.FlightDescriptor{Type: flight.DescriptorCMD, Cmd: []byte("x")})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestDoGetUnknownTicket(t *testing.T) {
	_, c := startServer(t, sampleSet())
	err := c.doGet(context.Background(), "weights", nil)
	require.Error(t, err)
}
