// Package notify delivers realtime messages to member devices over PubNub.
// Delivery is best effort: a dropped notification must never fail the
// operation that triggered it.
package notify

import (
	"log/slog"

	pubnub "github.com/pubnub/go"

	"club-system/config"
	"club-system/monitoring"
)

// AdminChannel carries events every signed in admin device subscribes to.
const AdminChannel = "admins"

// Publisher is the transport behind the notification service.
// Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(channel string, message map[string]any) error
}

type PubNubPublisher struct {
	pn *pubnub.PubNub
}

func NewPubNub(cfg *config.Config) *PubNubPublisher {
	pnConfig := pubnub.NewConfig()
	pnConfig.PublishKey = cfg.PubNubPublishKey
	pnConfig.SubscribeKey = cfg.PubNubSubscribeKey
	pnConfig.SecretKey = cfg.PubNubSecretKey

	return &PubNubPublisher{pn: pubnub.NewPubNub(pnConfig)}
}

func (p *PubNubPublisher) Publish(channel string, message map[string]any) error {
	_, _, err := p.pn.Publish().
		Channel(channel).
		Message(message).
		Execute()
	return err
}

type Service struct {
	pub     Publisher
	monitor *monitoring.Monitor
	logger  *slog.Logger
}

// NewService wires the notification fanout. pub may be nil when no PubNub
// keys are configured, which turns every send into a no-op.
func NewService(pub Publisher, monitor *monitoring.Monitor, logger *slog.Logger) *Service {
	return &Service{pub: pub, monitor: monitor, logger: logger}
}

func UserChannel(userID string) string {
	return "user-" + userID
}

func (s *Service) ToUser(userID string, message map[string]any) {
	s.send("user", UserChannel(userID), message)
}

func (s *Service) ToAdmins(message map[string]any) {
	s.send("admin", AdminChannel, message)
}

func (s *Service) send(kind, channel string, message map[string]any) {
	if s.pub == nil {
		return
	}
	if err := s.pub.Publish(channel, message); err != nil {
		s.logger.Warn("notification publish failed", "channel", channel, "error", err)
		s.track(kind, "error")
		return
	}
	s.track(kind, "ok")
}

func (s *Service) track(kind, result string) {
	if s.monitor != nil {
		s.monitor.TrackNotification(kind, result)
	}
}
