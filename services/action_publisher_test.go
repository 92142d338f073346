package services

import (
	"context"
	"dot-catcher/errors"
	"dot-catcher/mocks"
	"encoding/json"
	"fmt"
	"log/slog"
	"testing"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestActionPublisher_Publish_Writes_One_Caught_Event(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	writer := mocks.NewMockLogWriter(ctrl)

	// Then exactly one append lands on the actions topic, under the single game key
	writer.EXPECT().
		Write(gomock.Any(), "actions", []byte("game"), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, _, value []byte) error {
			req.JSONEq(`{"event_type":"dot_caught","position":[1,2],"timestamp":1700000000}`, string(value))
			return nil
		}).
		Times(1)

	publisher := NewActionPublisher(log, writer, "actions")
	err := publisher.Publish(context.Background(), json.RawMessage(`[1,2]`), json.RawMessage(`1700000000`))

	req.NoError(err)
}

func TestActionPublisher_Publish_Without_Writer(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	err := NewActionPublisher(log, nil, "actions").Publish(context.Background(), json.RawMessage(`1`), json.RawMessage(`1`))
	req.ErrorIs(err, errors.ErrPublisherNotReady)

	var publisher *ActionPublisher
	err = publisher.Publish(context.Background(), json.RawMessage(`1`), json.RawMessage(`1`))
	req.ErrorIs(err, errors.ErrPublisherNotReady)
}

func TestActionPublisher_Publish_Failure(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	writer := mocks.NewMockLogWriter(ctrl)
	brokerErr := fmt.Errorf("not enough replicas")
	writer.EXPECT().Write(gomock.Any(), "actions", ActionKey, gomock.Any()).Return(brokerErr)

	err := NewActionPublisher(log, writer, "actions").
		Publish(context.Background(), json.RawMessage(`[0,0]`), json.RawMessage(`1`))

	req.ErrorIs(err, errors.ErrPublishFailed)
	req.ErrorIs(err, brokerErr)
}
