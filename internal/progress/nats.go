package progress

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// NATSSink mirrors progress events onto a NATS bus. Events for a job go
// to intake.jobs.{job_id}.{stage} so consumers can subscribe to one job
// (intake.jobs.abc.*) or one stage across jobs (intake.jobs.*.completed).
type NATSSink struct {
	nc *nats.Conn
}

// ConnectSink dials NATS and returns a sink over the connection.
func ConnectSink(url string) (*NATSSink, error) {
	nc, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(1*time.Second),
	)
	if err != nil {
		return nil, eris.Wrapf(err, "progress: connect nats at %s", url)
	}
	zap.L().Info("connected to nats", zap.String("url", url))
	return &NATSSink{nc: nc}, nil
}

// NewNATSSink wraps an existing connection.
func NewNATSSink(nc *nats.Conn) *NATSSink {
	return &NATSSink{nc: nc}
}

func (s *NATSSink) Publish(ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return eris.Wrap(err, "progress: marshal event")
	}
	subject := fmt.Sprintf("intake.jobs.%s.%s", ev.JobID, ev.Stage)
	if err := s.nc.Publish(subject, data); err != nil {
		return eris.Wrapf(err, "progress: publish %s", subject)
	}
	return nil
}

func (s *NATSSink) Close() {
	s.nc.Close()
}
