package app_test

import (
	"math/rand"
	"testing"

	"github.com/ccicconetti/qnetsim/internal/app"
	"github.com/ccicconetti/qnetsim/internal/event"
	"github.com/stretchr/testify/require"
)

func TestPingerIssuesUpToMaxRequests(t *testing.T) {
	p := app.NewPinger(0, 1, 2, 1, 2, 0)
	events, _ := p.Initial()
	require.Len(t, events, 1)
	firstReq := events[0].Data.(event.EprRequestApp)
	require.Equal(t, uint64(0), firstReq.Epr.RequestID)

	cell := event.MemoryCellID{Peer: 2, Role: event.Master, LocalPairID: 7}
	events, samples := p.Handle(100, event.EprResponse{Epr: firstReq.Epr, IsSource: true, MemoryCell: &cell})
	require.Len(t, samples, 1)
	require.Equal(t, "round-trip-time", samples[0].Name)

	var sawFidelity, sawSecondRequest bool
	for _, ev := range events {
		switch d := ev.Data.(type) {
		case event.EprFidelity:
			sawFidelity = true
			require.Equal(t, uint64(7), d.LocalPairID)
		case event.EprRequestApp:
			sawSecondRequest = true
			require.Equal(t, uint64(1), d.Epr.RequestID)
		}
	}
	require.True(t, sawFidelity)
	require.True(t, sawSecondRequest)

	// Second (and final) response: MaxRequests==2, so no third request.
	events, _ = p.Handle(200, event.EprResponse{Epr: event.FiveTuple{SourceNode: 0, SourcePort: 1, TargetNode: 2, TargetPort: 1, RequestID: 1}, IsSource: true})
	for _, ev := range events {
		_, isReq := ev.Data.(event.EprRequestApp)
		require.False(t, isReq, "no third request should be issued")
	}
}

func TestPingerPanicsOnTargetSideResponse(t *testing.T) {
	p := app.NewPinger(0, 1, 2, 1, 1, 0)
	require.Panics(t, func() {
		p.Handle(0, event.EprResponse{IsSource: false})
	})
}

func TestClientServerTwoSidedCompletion(t *testing.T) {
	client := app.NewClient(0, 1, 2, 1, 10, 1, rand.New(rand.NewSource(1)), 0)
	server := app.NewServer(2, 1, 1, rand.New(rand.NewSource(2)), 0)

	epr := event.FiveTuple{SourceNode: 0, SourcePort: 1, TargetNode: 2, TargetPort: 1, RequestID: 0}
	initEvents, _ := client.Initial()
	require.NotEmpty(t, initEvents)
	// The first request is issued when the initial Poisson tick fires.
	_, _ = client.Handle(50, initEvents[0].Data)

	clientCell := event.MemoryCellID{Peer: 2, Role: event.Master, LocalPairID: 5}
	events, _ := client.Handle(100, event.EprResponse{Epr: epr, IsSource: true, MemoryCell: &clientCell})
	require.Len(t, events, 1)
	localTimer := events[0].Data.(event.LocalComplete)

	serverCell := event.MemoryCellID{Peer: 0, Role: event.Slave, LocalPairID: 5}
	events, _ = server.Handle(100, event.EprResponse{Epr: epr, IsSource: false, MemoryCell: &serverCell})
	require.Len(t, events, 1)
	serverTimer := events[0].Data.(event.LocalComplete)

	events, _ = server.Handle(150, serverTimer)
	var remoteComplete event.RemoteComplete
	for _, ev := range events {
		if d, ok := ev.Data.(event.RemoteComplete); ok {
			remoteComplete = d
		}
	}
	require.Equal(t, epr, remoteComplete.Epr)

	// Client finishes only once both LocalComplete and RemoteComplete
	// have been observed.
	events, samples := client.Handle(150, event.LocalComplete{Epr: localTimer.Epr})
	require.Len(t, events, 1) // release event only, no latency sample yet
	require.Empty(t, samples)

	events, samples = client.Handle(160, remoteComplete)
	require.Empty(t, events)
	require.Len(t, samples, 1)
	require.Equal(t, "epr-request-duration", samples[0].Name)
}
