package ws

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AppFeed/backend/internal/domain/generator"
	"github.com/GriffinCanCode/AppFeed/backend/internal/sandbox"
	"github.com/GriffinCanCode/AppFeed/backend/internal/shared/types"
	"github.com/GriffinCanCode/AppFeed/backend/internal/shared/utils"
)

const (
	generateTimeout  = 2 * time.Minute
	maxSubscriptions = 100

	errGenerationBusy = "a generation is already in progress"
)

// Handler manages WebSocket connections
type Handler struct {
	hub       *Hub
	generator *generator.Service
	sandbox   *sandbox.Registry
	upgrader  websocket.Upgrader
	logger    *zap.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(hub *Hub, gen *generator.Service, registry *sandbox.Registry, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		hub:       hub,
		generator: gen,
		sandbox:   registry,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		logger: logger,
	}
}

// HandleConnection handles WebSocket upgrade and messages
func (h *Handler) HandleConnection(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	cl := newClient(uuid.NewString(), conn)
	h.hub.register(cl)
	defer h.hub.unregister(cl)
	go cl.writePump()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cl.jobs.Wait()
	defer cancel()

	welcome := newMessage(TypeConnected)
	welcome.ConnectionID = cl.id
	h.send(cl, welcome)

	conn.SetReadLimit(maxMessage)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug("websocket read error", zap.String("conn_id", cl.id), zap.Error(err))
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		var msg types.WSMessage
		if err := sonic.Unmarshal(data, &msg); err != nil {
			h.send(cl, errorMessage("invalid message"))
			continue
		}
		h.record("in", msg.Type)

		switch msg.Type {
		case TypePing:
			h.send(cl, newMessage(TypePong))
		case TypeSubscribe:
			h.handleSubscribe(cl, msg)
		case TypeGenerate:
			h.handleGenerate(ctx, cl, msg)
		case TypeSandboxEvent:
			h.handleSandboxEvent(cl, msg)
		default:
			h.send(cl, errorMessage("unknown message type"))
		}
	}
}

func (h *Handler) handleSubscribe(cl *client, msg types.WSMessage) {
	if len(msg.AppIDs) > maxSubscriptions {
		h.send(cl, errorMessage(fmt.Sprintf("at most %d app ids per subscription", maxSubscriptions)))
		return
	}
	for _, appID := range msg.AppIDs {
		if err := utils.ValidateID(appID, "appId", true); err != nil {
			h.send(cl, errorMessage(err.Error()))
			return
		}
	}
	cl.subscribe(msg.AppIDs)

	reply := newMessage(TypeSubscribed)
	reply.AppIDs = msg.AppIDs
	h.send(cl, reply)
}

// handleGenerate validates on the read loop and generates in the background
// so pings and pongs keep flowing while a slow provider works.
func (h *Handler) handleGenerate(ctx context.Context, cl *client, msg types.WSMessage) {
	req := generator.Request{Prompt: msg.Prompt, History: msg.History}
	if err := generator.Validate(req); err != nil {
		h.send(cl, errorMessage(generateError(err)))
		return
	}
	if !cl.generating.CompareAndSwap(false, true) {
		h.send(cl, errorMessage(errGenerationBusy))
		return
	}

	started := newMessage(TypeGenerationStarted)
	started.Message = "Generating your app..."
	h.send(cl, started)

	cl.jobs.Add(1)
	go func() {
		defer cl.jobs.Done()
		defer cl.generating.Store(false)
		h.generate(ctx, cl, req)
	}()
}

func (h *Handler) generate(ctx context.Context, cl *client, req generator.Request) {
	ctx, cancel := context.WithTimeout(ctx, generateTimeout)
	defer cancel()

	result, err := h.generator.Generate(ctx, req)
	if err != nil {
		if ctx.Err() != nil && errors.Is(err, context.Canceled) {
			h.logger.Debug("generation cancelled", zap.String("conn_id", cl.id))
			return
		}
		h.send(cl, errorMessage(generateError(err)))
		return
	}

	done := newMessage(TypeGenerationComplete)
	done.App = result.App
	done.Message = result.Message
	done.Safety = result.Safety
	h.send(cl, done)
}

func generateError(err error) string {
	if errors.Is(err, generator.ErrEmptyPrompt) {
		return "Prompt is required"
	}
	return "Failed to generate app: " + err.Error()
}

func (h *Handler) handleSandboxEvent(cl *client, msg types.WSMessage) {
	raw, err := sonic.Marshal(msg.Payload)
	if err != nil {
		h.send(cl, errorMessage("invalid sandbox payload"))
		return
	}
	decoded, err := sandbox.Decode(raw)
	if err != nil {
		h.send(cl, errorMessage(err.Error()))
		return
	}

	session, ok := h.sandbox.Get(decoded.Channel)
	if !ok {
		h.send(cl, errorMessage(sandbox.ErrSessionNotFound.Error()))
		return
	}
	if msg.AppID != "" && session.AppID() != msg.AppID {
		h.send(cl, errorMessage(sandbox.ErrChannelMismatch.Error()))
		return
	}

	_, transition, err := h.sandbox.Handle(decoded)
	if err != nil {
		h.send(cl, errorMessage(err.Error()))
		return
	}

	info := session.Info()
	reply := newMessage(TypeSandboxState)
	reply.Channel = decoded.Channel
	reply.Transition = &transition
	reply.Session = &info
	h.send(cl, reply)
}

func (h *Handler) send(cl *client, msg *ServerMessage) {
	data, err := sonic.Marshal(msg)
	if err != nil {
		h.logger.Error("failed to encode message", zap.String("type", msg.Type), zap.Error(err))
		return
	}
	if !cl.enqueue(data) {
		h.logger.Warn("dropping message for slow client",
			zap.String("conn_id", cl.id),
			zap.String("type", msg.Type))
		return
	}
	h.record("out", msg.Type)
}

func (h *Handler) record(direction, msgType string) {
	if h.hub.metrics != nil {
		h.hub.metrics.RecordWSMessage(direction, msgType)
	}
}
