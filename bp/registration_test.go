package bp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dcp-vardis/dcpd/wiretypes"
)

type fakeHandle struct {
	id       wiretypes.BPProtocolId
	name     string
	maxSize  uint16
	mode     QueueingMode
	confirms bool
	active   bool
	closed   bool
	outbound [][]byte
	inbound  [][]byte
	confirmN int
}

func (f *fakeHandle) ProtocolId() wiretypes.BPProtocolId  { return f.id }
func (f *fakeHandle) ProtocolName() string                { return f.name }
func (f *fakeHandle) MaxPayloadSize() uint16              { return f.maxSize }
func (f *fakeHandle) QueueingMode() QueueingMode          { return f.mode }
func (f *fakeHandle) GenerateTxConfirms() bool            { return f.confirms }
func (f *fakeHandle) Active() bool                        { return f.active }
func (f *fakeHandle) SetActive(v bool)                    { f.active = v }
func (f *fakeHandle) Close() error                        { f.closed = true; return nil }
func (f *fakeHandle) PushTxConfirm(context.Context) error { f.confirmN++; return nil }
func (f *fakeHandle) ShmName() string                     { return f.name }
func (f *fakeHandle) ChunkSize() int                      { return int(f.maxSize) }

func (f *fakeHandle) PopTxRequest(context.Context) ([]byte, bool, error) {
	if len(f.outbound) == 0 {
		return nil, false, nil
	}
	p := f.outbound[0]
	f.outbound = f.outbound[1:]
	return p, true, nil
}

func (f *fakeHandle) PushRxIndication(_ context.Context, payload []byte) error {
	f.inbound = append(f.inbound, payload)
	return nil
}

func newFakeHandle(id wiretypes.BPProtocolId) *fakeHandle {
	return &fakeHandle{id: id, name: "proto", maxSize: 100, mode: QueueingOnce}
}

func TestRegisterRejectsDuplicateProtocol(t *testing.T) {
	r := NewRegistry()
	require.Equal(t, StatusOK, r.Register(newFakeHandle(1)))
	require.Equal(t, StatusProtocolAlreadyRegistered, r.Register(newFakeHandle(1)))
}

func TestRegisterRejectsIllegalMaxPayloadSize(t *testing.T) {
	r := NewRegistry()
	h := newFakeHandle(1)
	h.maxSize = 0
	require.Equal(t, StatusIllegalMaxPayloadSize, r.Register(h))
}

func TestRegisterRejectsUnknownQueueingMode(t *testing.T) {
	r := NewRegistry()
	h := newFakeHandle(1)
	h.mode = QueueingMode(99)
	require.Equal(t, StatusUnknownQueueingMode, r.Register(h))
}

func TestDeregisterClosesHandle(t *testing.T) {
	r := NewRegistry()
	h := newFakeHandle(1)
	require.Equal(t, StatusOK, r.Register(h))
	require.Equal(t, StatusOK, r.Deregister(1))
	require.True(t, h.closed)
	_, exists := r.Get(1)
	require.False(t, exists)
}

func TestDeregisterUnknownProtocol(t *testing.T) {
	r := NewRegistry()
	require.Equal(t, StatusUnknownProtocol, r.Deregister(7))
}

func TestListPreservesRegistrationOrder(t *testing.T) {
	r := NewRegistry()
	require.Equal(t, StatusOK, r.Register(newFakeHandle(3)))
	require.Equal(t, StatusOK, r.Register(newFakeHandle(1)))
	require.Equal(t, StatusOK, r.Register(newFakeHandle(2)))
	require.Equal(t, []wiretypes.BPProtocolId{3, 1, 2}, r.List())
}

func TestActiveHandlesExcludesInactiveAndDeregistered(t *testing.T) {
	r := NewRegistry()
	a := newFakeHandle(1)
	b := newFakeHandle(2)
	require.Equal(t, StatusOK, r.Register(a))
	require.Equal(t, StatusOK, r.Register(b))
	require.Equal(t, StatusOK, r.SetActive(1, true))

	active := r.activeHandles()
	require.Len(t, active, 1)
	require.Equal(t, wiretypes.BPProtocolId(1), active[0].ProtocolId())
}

func TestShutDownClosesAllClients(t *testing.T) {
	r := NewRegistry()
	a := newFakeHandle(1)
	b := newFakeHandle(2)
	require.Equal(t, StatusOK, r.Register(a))
	require.Equal(t, StatusOK, r.Register(b))
	r.ShutDown()
	require.True(t, a.closed)
	require.True(t, b.closed)
	require.Empty(t, r.List())
}
