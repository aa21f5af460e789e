package handlers

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/Shopify/sarama"
	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
	"github.com/streadway/amqp"

	"sehat-box/gateway/backend"
	"sehat-box/gateway/config"
	"sehat-box/gateway/orderflow"
	"sehat-box/gateway/session"
)

type Server struct {
	config   *config.Config
	backend  *backend.Client
	sessions *session.Store
	rdb      *redis.Client
	rabbitmq *amqp.Connection
	kafka    sarama.SyncProducer

	mu         sync.Mutex
	selections map[string]*orderflow.Selection
}

func New(cfg *config.Config) *Server {
	return &Server{
		config: cfg,
		backend: backend.New(
			cfg.Backend.BaseURL,
			cfg.Backend.AdminPrefix,
			cfg.Backend.ServiceToken,
			cfg.Backend.Timeout,
		),
		selections: make(map[string]*orderflow.Selection),
	}
}

func (s *Server) Sessions() *session.Store { return s.sessions }

// Connect brings up Redis, RabbitMQ and Kafka. RabbitMQ gets a few retries
// because it tends to come up last in compose environments.
func (s *Server) Connect() error {
	s.rdb = redis.NewClient(&redis.Options{
		Addr:     s.config.Redis.Addr,
		Password: s.config.Redis.Password,
		DB:       s.config.Redis.DB,
	})

	s.sessions = session.NewStore(
		s.rdb,
		s.config.JWT.SecretKey,
		s.config.Links.PublicBaseURL,
		s.config.JWT.CustomerTTL,
		s.config.JWT.AdminTTL,
		s.config.Links.MagicKeyTTL,
	)

	var conn *amqp.Connection
	var err error
	for i := 0; i < 5; i++ {
		log.Printf("Attempting to connect to RabbitMQ (attempt %d/5)...", i+1)
		conn, err = amqp.Dial(s.config.RabbitMQ.URL)
		if err == nil {
			break
		}
		if i < 4 {
			log.Printf("Failed to connect to RabbitMQ: %v. Retrying in 5 seconds...", err)
			time.Sleep(5 * time.Second)
		}
	}
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ after 5 attempts: %v", err)
	}
	s.rabbitmq = conn

	kafkaConfig := sarama.NewConfig()
	kafkaConfig.Producer.Return.Successes = true
	producer, err := sarama.NewSyncProducer(s.config.Kafka.Brokers, kafkaConfig)
	if err != nil {
		return fmt.Errorf("failed to create Kafka producer: %v", err)
	}
	s.kafka = producer

	return nil
}

// selectionFor returns the viewer's workflow, creating it on first touch.
func (s *Server) selectionFor(userUUID string) *orderflow.Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	sel, ok := s.selections[userUUID]
	if !ok {
		sel = orderflow.NewSelection(s.backend, userUUID, userUUID)
		s.selections[userUUID] = sel
	}
	return sel
}

// logEvent appends an event to the order log topic. Event logging is best
// effort; it never fails a request.
func (s *Server) logEvent(event map[string]interface{}) {
	if s.kafka == nil {
		return
	}
	event["timestamp"] = time.Now().Unix()
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("Failed to encode event: %v", err)
		return
	}
	_, _, err = s.kafka.SendMessage(&sarama.ProducerMessage{
		Topic: s.config.Kafka.Topic,
		Value: sarama.StringEncoder(data),
	})
	if err != nil {
		log.Printf("Failed to log event: %v", err)
	}
}

// notify publishes a message to the notifications queue for the delivery
// side (SMS/print workers consume it).
func (s *Server) notify(payload interface{}) {
	if s.rabbitmq == nil {
		return
	}
	ch, err := s.rabbitmq.Channel()
	if err != nil {
		log.Printf("Failed to open RabbitMQ channel: %v", err)
		return
	}
	defer ch.Close()

	if _, err := ch.QueueDeclare(s.config.RabbitMQ.QueueName, true, false, false, false, nil); err != nil {
		log.Printf("Failed to declare queue: %v", err)
		return
	}

	body, err := json.Marshal(payload)
	if err != nil {
		log.Printf("Failed to encode notification: %v", err)
		return
	}
	err = ch.Publish("", s.config.RabbitMQ.QueueName, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
	if err != nil {
		log.Printf("Failed to publish notification: %v", err)
	}
}

// ErrorHandler renders every error as the {"error": ...} shape the clients
// expect. Backend rejections keep their own status and message.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}
	if e, ok := err.(*backend.APIError); ok {
		code = e.Status
	}
	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}

func HealthCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "ok",
		"time":   time.Now(),
	})
}
