// Package jobs provides the durable aggregation job queue and the worker
// pool consuming it. Jobs travel over MQTT between the scheduler and the
// workers; results land in a shared cache.
package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/afetops/coordcore/core/jobqueue"
	"github.com/afetops/coordcore/infra/logger"
)

// MQTTConf defines the connection parameters for the Paho MQTT client.
type MQTTConf struct {
	Broker      string `json:"broker" koanf:"broker"`
	ClientID    string `json:"client_id" koanf:"client_id"`
	Username    string `json:"username" koanf:"username"`
	Password    string `json:"password" koanf:"password"`
	TopicPrefix string `json:"topic_prefix" koanf:"topic_prefix"`
	QoS         byte   `json:"qos" koanf:"qos"`
}

const defaultTopicPrefix = "coordcore/jobs"

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// MQTTQueue implements jobqueue.Queue on top of an MQTT broker. Each job
// type gets its own topic under the prefix; Run consumes the whole subtree.
type MQTTQueue struct {
	cli    pahoClient
	prefix string
	qos    byte
	log    logger.Logger
}

// NewMQTTQueue connects to the broker.
func NewMQTTQueue(conf MQTTConf) (*MQTTQueue, error) {
	if conf.Broker == "" {
		return nil, fmt.Errorf("jobs: broker is required")
	}
	if conf.TopicPrefix == "" {
		conf.TopicPrefix = defaultTopicPrefix
	}
	log := logger.New("job_queue")
	opts := paho.NewClientOptions().AddBroker(conf.Broker).SetClientID(conf.ClientID)
	opts.AutoReconnect = true
	if conf.Username != "" {
		opts.SetUsername(conf.Username)
	}
	if conf.Password != "" {
		opts.SetPassword(conf.Password)
	}
	opts.OnConnect = func(paho.Client) {
		log.Infof("MQTT connected")
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	cli := newMQTTClient(opts)
	if token := cli.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	return &MQTTQueue{cli: cli, prefix: conf.TopicPrefix, qos: conf.QoS, log: log}, nil
}

func (q *MQTTQueue) topic(t jobqueue.JobType) string {
	return q.prefix + "/" + string(t)
}

func (q *MQTTQueue) EnqueueAggregation(_ context.Context, job jobqueue.Job) error {
	if !job.Type.Valid() {
		return fmt.Errorf("jobs: unknown job type %q", job.Type)
	}
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("jobs: marshal job: %w", err)
	}
	token := q.cli.Publish(q.topic(job.Type), q.qos, false, payload)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("jobs: publish job: %w", token.Error())
	}
	return nil
}

// Run subscribes to the job topics and delivers decoded jobs to the handler
// until the context is canceled. Malformed payloads are logged and dropped.
func (q *MQTTQueue) Run(ctx context.Context, handle func(context.Context, jobqueue.Job) error) error {
	token := q.cli.Subscribe(q.prefix+"/#", q.qos, func(_ paho.Client, msg paho.Message) {
		var job jobqueue.Job
		if err := json.Unmarshal(msg.Payload(), &job); err != nil {
			q.log.Errorf("drop malformed job on %s: %v", msg.Topic(), err)
			return
		}
		if !job.Type.Valid() {
			q.log.Errorf("drop job with unknown type %q on %s", job.Type, msg.Topic())
			return
		}
		if err := handle(ctx, job); err != nil {
			q.log.Errorf("job %s for disaster %s failed: %v", job.Type, job.DisasterID, err)
		}
	})
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("jobs: subscribe: %w", token.Error())
	}
	<-ctx.Done()
	return ctx.Err()
}

func (q *MQTTQueue) Close() error {
	q.cli.Disconnect(250)
	return nil
}
