package handler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/furniro/storefront/internal/domain/checkout"
	"github.com/furniro/storefront/internal/domain/collection"
	"github.com/furniro/storefront/internal/domain/shared"
	"github.com/furniro/storefront/internal/interfaces/http/dto"
	"github.com/furniro/storefront/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const sseMessageBufferSize = 32

// EventEncoder serializes a domain event for the stream
type EventEncoder interface {
	Serialize(event shared.DomainEvent) ([]byte, error)
}

// SSEClient is one connected event stream
type SSEClient struct {
	ID    string
	Owner string
	Chan  chan SSEMessage
}

// SSEMessage is a single server-sent event
type SSEMessage struct {
	Event string `json:"event"`
	Data  string `json:"data"`
	ID    string `json:"id,omitempty"`
}

// EventStreamHandler pushes collection and checkout events to the devices
// they belong to, so open pages can re-render after a mutation. It is
// subscribed to the event bus as a shared.EventHandler.
type EventStreamHandler struct {
	BaseHandler
	encoder    EventEncoder
	logger     *zap.Logger
	clients    sync.Map // map[string]*SSEClient
	count      atomic.Int64
	ctx        context.Context
	cancel     context.CancelFunc
	heartbeat  time.Duration
	maxClients int
	started    bool
	startMu    sync.Mutex
	wg         sync.WaitGroup
}

// EventStreamOption is a functional option for configuring the handler
type EventStreamOption func(*EventStreamHandler)

// WithSSELogger sets the logger for the handler
func WithSSELogger(logger *zap.Logger) EventStreamOption {
	return func(h *EventStreamHandler) {
		h.logger = logger
	}
}

// WithSSEHeartbeat sets the heartbeat interval
func WithSSEHeartbeat(interval time.Duration) EventStreamOption {
	return func(h *EventStreamHandler) {
		if interval > 0 {
			h.heartbeat = interval
		}
	}
}

// WithSSEMaxClients caps concurrent streams; zero means unlimited
func WithSSEMaxClients(max int) EventStreamOption {
	return func(h *EventStreamHandler) {
		h.maxClients = max
	}
}

// NewEventStreamHandler creates a new event stream handler
func NewEventStreamHandler(encoder EventEncoder, opts ...EventStreamOption) *EventStreamHandler {
	ctx, cancel := context.WithCancel(context.Background())
	h := &EventStreamHandler{
		encoder:    encoder,
		logger:     zap.NewNop(),
		ctx:        ctx,
		cancel:     cancel,
		heartbeat:  30 * time.Second,
		maxClients: 1000,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes returns the event stream route group
func (h *EventStreamHandler) Routes() *router.DomainGroup {
	return router.NewDomainGroup("/collections").
		GET("/events", h.Stream)
}

// Start begins sending heartbeats
func (h *EventStreamHandler) Start() error {
	h.startMu.Lock()
	defer h.startMu.Unlock()

	if h.started {
		return fmt.Errorf("event stream handler already started")
	}

	h.wg.Add(1)
	go h.sendHeartbeats()

	h.started = true
	h.logger.Info("Event stream handler started")
	return nil
}

// Stop disconnects every client and waits for the heartbeat loop to exit
func (h *EventStreamHandler) Stop() {
	h.cancel()
	h.wg.Wait()
	h.logger.Info("Event stream handler stopped")
}

// EventTypes implements shared.EventHandler
func (h *EventStreamHandler) EventTypes() []string {
	return []string{
		collection.EventTypeCollectionChanged,
		checkout.EventTypeCheckoutStarted,
		checkout.EventTypeCheckoutCompleted,
	}
}

// Handle implements shared.EventHandler. The event is delivered only to the
// streams of the owning device.
func (h *EventStreamHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	data, err := h.encoder.Serialize(event)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", event.EventType(), err)
	}

	h.sendTo(event.OwnerID(), SSEMessage{
		Event: streamEventName(event.EventType()),
		Data:  string(data),
		ID:    event.EventID().String(),
	})
	return nil
}

// streamEventName turns "collection.changed" into "collection_changed"
func streamEventName(eventType string) string {
	return strings.ReplaceAll(eventType, ".", "_")
}

func (h *EventStreamHandler) sendTo(owner string, msg SSEMessage) {
	h.clients.Range(func(_, value any) bool {
		client := value.(*SSEClient)
		if owner != "" && client.Owner != owner {
			return true
		}
		select {
		case client.Chan <- msg:
		default:
			h.logger.Warn("Client channel full, dropping message",
				zap.String("client_id", client.ID),
				zap.String("event", msg.Event))
		}
		return true
	})
}

func (h *EventStreamHandler) sendHeartbeats() {
	defer h.wg.Done()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			return
		case <-ticker.C:
			h.sendTo("", SSEMessage{
				Event: "heartbeat",
				Data:  fmt.Sprintf(`{"timestamp":%d}`, time.Now().Unix()),
			})
		}
	}
}

// Stream godoc
// @Summary      Subscribe to collection changes
// @Description  Server-Sent Events stream of collection and checkout events for the caller's device
// @Tags         collections
// @Produce      text/event-stream
// @Success      200 {string} string "SSE stream"
// @Failure      503 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /collections/events [get]
func (h *EventStreamHandler) Stream(c *gin.Context) {
	if h.ctx.Err() != nil {
		h.Error(c, http.StatusServiceUnavailable, dto.ErrCodeTooManyListeners, "Event stream is shutting down")
		return
	}
	if n := h.count.Add(1); h.maxClients > 0 && n > int64(h.maxClients) {
		h.count.Add(-1)
		h.Error(c, http.StatusServiceUnavailable, dto.ErrCodeTooManyListeners, "Maximum number of event streams reached")
		return
	}
	defer h.count.Add(-1)

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
	// Streams outlive the server write timeout
	_ = http.NewResponseController(c.Writer).SetWriteDeadline(time.Time{})

	client := &SSEClient{
		ID:    uuid.NewString(),
		Owner: ownerID(c),
		Chan:  make(chan SSEMessage, sseMessageBufferSize),
	}
	h.clients.Store(client.ID, client)
	defer h.clients.Delete(client.ID)

	h.logger.Info("SSE client connected",
		zap.String("client_id", client.ID),
		zap.String("device_id", client.Owner))

	writeEvent(c.Writer, SSEMessage{
		Event: "connected",
		Data:  fmt.Sprintf(`{"client_id":%q,"timestamp":%d}`, client.ID, time.Now().Unix()),
	})
	c.Writer.Flush()

	reqCtx := c.Request.Context()
	for {
		select {
		case <-reqCtx.Done():
			h.logger.Info("SSE client disconnected", zap.String("client_id", client.ID))
			return
		case <-h.ctx.Done():
			return
		case msg := <-client.Chan:
			writeEvent(c.Writer, msg)
			c.Writer.Flush()
		}
	}
}

// writeEvent writes msg in the text/event-stream format
func writeEvent(w io.Writer, msg SSEMessage) {
	if msg.Event != "" {
		fmt.Fprintf(w, "event: %s\n", msg.Event)
	}
	if msg.ID != "" {
		fmt.Fprintf(w, "id: %s\n", msg.ID)
	}
	fmt.Fprintf(w, "data: %s\n\n", msg.Data)
}

// SubscriberCount returns the number of connected streams
func (h *EventStreamHandler) SubscriberCount() int {
	return int(h.count.Load())
}

var _ shared.EventHandler = (*EventStreamHandler)(nil)
