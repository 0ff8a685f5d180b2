package centrifuge

import (
	"context"

	"github.com/centrifugal/gocent/v3"
	"github.com/pkg/errors"

	"bitbucket.org/novatechnologies/stocks/infra"
	"bitbucket.org/novatechnologies/stocks/infra/logger"
)

type MessageData struct {
	Channel string `json:"channel"`
	Data    string `json:"data"`
}

type Centrifuge interface {
	BatchPublish(ctx context.Context, messages []MessageData) error
	Publish(ctx context.Context, message MessageData) error
}

type centrifuge struct {
	Client *gocent.Client
}

func New(cfg infra.CentrifugeConfig) *centrifuge {
	clientConfig := gocent.Config{
		Addr: "http://" + cfg.Host + "/api",
		Key:  cfg.Token,
	}
	client := gocent.New(clientConfig)

	return &centrifuge{
		Client: client,
	}
}

func (c centrifuge) Publish(ctx context.Context, message MessageData) error {
	log := logger.FromContext(ctx).WithField("channel", message.Channel)
	result, err := c.Client.Publish(ctx, message.Channel, []byte(message.Data))
	if err != nil {
		return errors.Wrapf(err, "can't publish into channel %s", message.Channel)
	}
	log.Debugf("Publish successful, stream position {offset: %d, epoch: %s}", result.Offset, result.Epoch)
	return nil
}

// BatchPublish sends all messages in one HTTP request using a Centrifugo pipe.
func (c centrifuge) BatchPublish(ctx context.Context, messages []MessageData) error {
	log := logger.FromContext(ctx)
	pipe := c.Client.Pipe()
	for _, message := range messages {
		if err := pipe.AddPublish(message.Channel, []byte(message.Data)); err != nil {
			return errors.Wrapf(err, "can't add publish into channel %s", message.Channel)
		}
	}
	replies, err := c.Client.SendPipe(ctx, pipe)
	if err != nil {
		return errors.Wrap(err, "can't send pipe")
	}
	for i, reply := range replies {
		if reply.Error != nil {
			log.WithField("command", i).Errorf("Error in pipe reply: %v", reply.Error)
		}
	}
	log.Debugf("Sent %d publish commands in one HTTP request", len(replies))
	return nil
}
