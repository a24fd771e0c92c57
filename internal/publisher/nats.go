package publisher

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"blueway/internal/livetrip"
)

// conn is the part of *nats.Conn the publisher uses.
type conn interface {
	Publish(subject string, data []byte) error
}

type NATSPublisher struct {
	nc          *nats.Conn
	conn        conn
	prefix      string
	logSubjects bool
	metrics     PublisherMetrics
	log         *slog.Logger
}

type PublisherMetrics interface {
	NATSPublishedInc()
	NATSPublishErrInc()
	PublishObserve(d time.Duration)
	NATSSetConnected(connected bool)
}

func NewNATSPublisher(url, prefix string, logSubjects bool, m PublisherMetrics) (*NATSPublisher, error) {
	log := slog.Default().With("component", "publisher")
	nc, err := nats.Connect(url,
		nats.Name("blueway"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if m != nil {
				m.NATSSetConnected(false)
			}
			log.Warn("nats disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(true)
			}
			log.Info("nats reconnected", "url", c.ConnectedUrl())
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(false)
			}
			log.Info("nats closed")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("publisher.NewNATSPublisher: %w", err)
	}
	if m != nil {
		m.NATSSetConnected(true)
	}
	p := newPublisher(nc, prefix, logSubjects, m, log)
	p.nc = nc
	return p, nil
}

func newPublisher(c conn, prefix string, logSubjects bool, m PublisherMetrics, log *slog.Logger) *NATSPublisher {
	if strings.TrimSpace(prefix) == "" {
		prefix = "blueway"
	}
	return &NATSPublisher{conn: c, prefix: subjectToken(prefix), logSubjects: logSubjects, metrics: m, log: log}
}

func (p *NATSPublisher) Close() {
	if p.nc != nil {
		if err := p.nc.Drain(); err != nil {
			p.log.Warn("nats drain failed", "error", err)
		}
		p.nc.Close()
	}
}

// PositionMessage is one van position of a passenger ride session.
type PositionMessage struct {
	SessionID string    `json:"sessionId"`
	RouteID   string    `json:"routeId"`
	Stage     string    `json:"stage"`
	Timestamp time.Time `json:"timestamp"`
	Lat       float64   `json:"lat"`
	Lon       float64   `json:"lon"`
	Heading   float64   `json:"heading"`
	Bearing   float64   `json:"bearing"`
	SpeedMps  float64   `json:"speedMps"`
}

// TripSubject is <prefix>.trips.<event>.
func TripSubject(prefix string, t livetrip.EventType) string {
	return fmt.Sprintf("%s.trips.%s", subjectToken(prefix), subjectToken(string(t)))
}

// RideSubject is <prefix>.rides.<session>.position.
func RideSubject(prefix, sessionID string) string {
	return fmt.Sprintf("%s.rides.%s.position", subjectToken(prefix), subjectToken(sessionID))
}

func (p *NATSPublisher) PublishRidePosition(sessionID string, msg PositionMessage) error {
	return p.publish(RideSubject(p.prefix, sessionID), msg)
}

// PublishTripEvent forwards a registry event as JSON.
func (p *NATSPublisher) PublishTripEvent(ev livetrip.Event) error {
	return p.publish(TripSubject(p.prefix, ev.Type), ev)
}

// TripEventHandler adapts PublishTripEvent for Registry.SubscribeAll.
func (p *NATSPublisher) TripEventHandler() livetrip.Handler {
	return func(ev livetrip.Event) {
		if err := p.PublishTripEvent(ev); err != nil {
			p.log.Warn("publish trip event failed", "event", ev.Type, "error", err)
		}
	}
}

func (p *NATSPublisher) publish(subject string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("publisher.publish %s: %w", subject, err)
	}
	if p.logSubjects {
		p.log.Info("nats publish", "subject", subject, "bytes", len(b))
	}
	start := time.Now()
	err = p.conn.Publish(subject, b)
	if p.metrics != nil {
		p.metrics.PublishObserve(time.Since(start))
		if err != nil {
			p.metrics.NATSPublishErrInc()
		} else {
			p.metrics.NATSPublishedInc()
		}
	}
	if err != nil {
		return fmt.Errorf("publisher.publish %s: %w", subject, err)
	}
	return nil
}

func subjectToken(s string) string {
	s = strings.TrimSpace(s)
	// NATS token cannot contain spaces, '>', '*', or trailing '.'
	repl := strings.NewReplacer(" ", "_", ".", "_", ">", "_", "*", "_", "/", "_", "\t", "_")
	s = repl.Replace(s)
	if s == "" {
		s = "_"
	}
	return s
}
