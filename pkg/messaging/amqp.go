package messaging

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/streadway/amqp"

	"voiceauth-server/pkg/errors"
)

// DetectionMessage is the payload published for each completed detection.
type DetectionMessage struct {
	RequestID      string    `json:"request_id"`
	Language       string    `json:"language"`
	Classification string    `json:"classification"`
	Confidence     float64   `json:"confidence"`
	Timestamp      time.Time `json:"timestamp"`
}

// AMQPConfig holds AMQP client configuration
type AMQPConfig struct {
	URL       string
	QueueName string
}

// AMQPClient publishes detection results to a message queue. Publishing is
// best effort: failures are logged and never fail the originating request.
type AMQPClient struct {
	logger    *logrus.Logger
	config    AMQPConfig
	conn      *amqp.Connection
	channel   *amqp.Channel
	connected bool
	connMutex sync.RWMutex
}

// NewAMQPClient creates a new AMQP client
func NewAMQPClient(logger *logrus.Logger, config AMQPConfig) *AMQPClient {
	return &AMQPClient{
		logger: logger,
		config: config,
	}
}

// Connect establishes the connection and declares the queue.
func (c *AMQPClient) Connect() error {
	c.connMutex.Lock()
	defer c.connMutex.Unlock()

	conn, err := amqp.Dial(c.config.URL)
	if err != nil {
		return errors.Wrap(err, "failed to connect to AMQP broker")
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return errors.Wrap(err, "failed to open AMQP channel")
	}

	_, err = channel.QueueDeclare(
		c.config.QueueName,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return errors.Wrap(err, "failed to declare AMQP queue").
			WithField("queue", c.config.QueueName)
	}

	c.conn = conn
	c.channel = channel
	c.connected = true

	// Reconnect on broker-initiated close.
	closeChan := make(chan *amqp.Error, 1)
	conn.NotifyClose(closeChan)
	go c.watchConnection(closeChan)

	c.logger.WithField("queue", c.config.QueueName).Info("Connected to AMQP broker")
	return nil
}

func (c *AMQPClient) watchConnection(closeChan chan *amqp.Error) {
	err, ok := <-closeChan
	if !ok {
		return
	}

	c.connMutex.Lock()
	c.connected = false
	c.connMutex.Unlock()

	c.logger.WithField("error", err).Warn("AMQP connection lost, reconnecting")

	for {
		time.Sleep(5 * time.Second)
		if connectErr := c.Connect(); connectErr == nil {
			return
		}
	}
}

// IsConnected reports whether the client currently holds a live connection.
func (c *AMQPClient) IsConnected() bool {
	c.connMutex.RLock()
	defer c.connMutex.RUnlock()
	return c.connected
}

// PublishDetection sends a detection result to the queue.
func (c *AMQPClient) PublishDetection(msg DetectionMessage) error {
	c.connMutex.RLock()
	defer c.connMutex.RUnlock()

	if !c.connected {
		return errors.Wrap(errors.ErrUnavailable, "AMQP client not connected")
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return errors.Wrap(err, "failed to encode detection message")
	}

	err = c.channel.Publish(
		"", // default exchange
		c.config.QueueName,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    msg.Timestamp,
			Body:         body,
		},
	)
	if err != nil {
		return errors.Wrap(err, "failed to publish detection message")
	}
	return nil
}

// Close shuts down the channel and connection.
func (c *AMQPClient) Close() {
	c.connMutex.Lock()
	defer c.connMutex.Unlock()

	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		c.conn.Close()
	}
	c.connected = false
}
