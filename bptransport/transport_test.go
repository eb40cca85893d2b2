package bptransport

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestChannelTransportBroadcastsToPeers(t *testing.T) {
	nodes := NewChannelNetwork(3, 4)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, nodes[0].WriteFrame(ctx, []byte{0xAA}))

	for i := 1; i < 3; i++ {
		frame, err := nodes[i].ReadFrame(ctx)
		require.NoError(t, err)
		require.Equal(t, []byte{0xAA}, frame)
	}
}

func TestChannelTransportReadRespectsCancellation(t *testing.T) {
	nodes := NewChannelNetwork(2, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := nodes[0].ReadFrame(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestMockTransportRecordsExpectedCalls(t *testing.T) {
	ctrl := gomock.NewController(t)
	mock := NewMockTransport(ctrl)

	ctx := context.Background()
	mock.EXPECT().WriteFrame(ctx, []byte{0x01, 0x02}).Return(nil)
	mock.EXPECT().ReadFrame(ctx).Return([]byte{0x03}, nil)

	require.NoError(t, mock.WriteFrame(ctx, []byte{0x01, 0x02}))
	frame, err := mock.ReadFrame(ctx)
	require.NoError(t, err)
	require.Equal(t, []byte{0x03}, frame)
}
