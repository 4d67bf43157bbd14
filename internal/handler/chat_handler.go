package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"portfolio-assistant/internal/middleware"
	"portfolio-assistant/internal/service"
	"portfolio-assistant/pkg/log"
	"portfolio-assistant/pkg/token"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var (
	upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true // 允许所有来源
		},
	}
)

// frameQueueSize 是单个连接排队等待处理的消息上限。
const frameQueueSize = 32

// WebSocket 消息类型
const (
	frameMessage     = "message"
	frameQuickAction = "quick_action"
	frameShare       = "share"
	frameGreeting    = "greeting"
	frameHistory     = "history"
	frameTyping      = "typing"
	frameReply       = "reply"
	frameFile        = "file"
	frameError       = "error"
)

// clientFrame 是浏览器发来的 WebSocket 消息。
type clientFrame struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
	Index   int    `json:"index,omitempty"`
	Kind    string `json:"kind,omitempty"`
}

// serverFrame 是推送给浏览器的 WebSocket 消息。
type serverFrame struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Message   string      `json:"message,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// ChatHandler 负责聊天面板的 HTTP 接口和 WebSocket 连接。
type ChatHandler struct {
	chatService service.ChatService
	jwtManager  *token.JWTManager
}

// NewChatHandler 创建一个新的 ChatHandler。
func NewChatHandler(chatService service.ChatService, jwtManager *token.JWTManager) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
		jwtManager:  jwtManager,
	}
}

// SendMessageRequest 是发送消息的请求体。
type SendMessageRequest struct {
	Message string `json:"message" binding:"required"`
}

// OpenSession 打开聊天面板，返回问候语和已有对话。
func (h *ChatHandler) OpenSession(c *gin.Context) {
	visitorID := middleware.VisitorID(c)
	sess := h.chatService.OpenSession(c.Request.Context(), visitorID)
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": gin.H{
		"state":    sess.State().String(),
		"greeting": h.chatService.Greeting(),
		"history":  sess.Store().Turns(),
	}})
}

// CloseSession 关闭聊天面板，正在进行的回复会被丢弃。仍有 WebSocket 连接时返回 409。
func (h *ChatHandler) CloseSession(c *gin.Context) {
	if err := h.chatService.CloseSession(c.Request.Context(), middleware.VisitorID(c)); err != nil {
		writeChatError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": nil})
}

// SendMessage 提交一条消息并同步返回助手回复。
func (h *ChatHandler) SendMessage(c *gin.Context) {
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "无效的请求负载：message 不能为空", "data": nil})
		return
	}

	reply, err := h.chatService.SendMessage(c.Request.Context(), middleware.VisitorID(c), req.Message)
	if err != nil {
		writeChatError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": reply})
}

// QuickActions 返回快捷按钮列表。
func (h *ChatHandler) QuickActions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": h.chatService.QuickActions()})
}

// SendQuickAction 以快捷按钮对应的消息提交。
func (h *ChatHandler) SendQuickAction(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "无效的快捷按钮下标", "data": nil})
		return
	}

	reply, err := h.chatService.SendQuickAction(c.Request.Context(), middleware.VisitorID(c), index)
	if err != nil {
		writeChatError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": reply})
}

// Suggestions 返回输入框的候选问题。
func (h *ChatHandler) Suggestions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": h.chatService.Suggestions(c.Query("q"))})
}

// ShareFile 在对话中分享简历等文件。
func (h *ChatHandler) ShareFile(c *gin.Context) {
	result, err := h.chatService.ShareFile(c.Request.Context(), middleware.VisitorID(c), c.Param("kind"))
	if err != nil {
		writeChatError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": result})
}

func writeChatError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrEmptyMessage):
		c.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "消息不能为空", "data": nil})
	case errors.Is(err, service.ErrUnknownQuickAction), errors.Is(err, service.ErrUnknownSharedFile):
		c.JSON(http.StatusNotFound, gin.H{"code": http.StatusNotFound, "message": err.Error(), "data": nil})
	case errors.Is(err, service.ErrSessionClosed):
		c.JSON(http.StatusConflict, gin.H{"code": http.StatusConflict, "message": "会话已关闭", "data": nil})
	case errors.Is(err, service.ErrSessionInUse):
		c.JSON(http.StatusConflict, gin.H{"code": http.StatusConflict, "message": "会话正被其他连接使用", "data": nil})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusRequestTimeout, gin.H{"code": http.StatusRequestTimeout, "message": "请求已取消", "data": nil})
	default:
		log.Errorf("chat request failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"code": http.StatusInternalServerError, "message": "服务器内部错误", "data": nil})
	}
}

// Handle 处理一个传入的 WebSocket 连接：连接即登记为会话持有者，断开即注销。
// 同一访客的多个连接共享一个会话，最后一个连接断开时会话才关闭。
func (h *ChatHandler) Handle(c *gin.Context) {
	claims, err := h.jwtManager.VerifyToken(c.Param("token"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"code": http.StatusUnauthorized, "message": "无效的 token", "data": nil})
		return
	}
	visitorID := claims.VisitorID

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("WebSocket 升级失败", err)
		return
	}
	defer conn.Close()

	// connCtx 随连接结束而取消，本连接排队和进行中的解析随之放弃
	connCtx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()
	sess := h.chatService.AttachSession(connCtx, visitorID)
	log.Infof("WebSocket 连接已建立，访客: %s", visitorID)

	w := &frameWriter{conn: conn}
	w.send(frameGreeting, h.chatService.Greeting(), "")
	w.send(frameHistory, sess.Store().Turns(), "")

	// 单个 worker 按到达顺序处理本连接的消息，读循环只负责入队
	frames := make(chan clientFrame, frameQueueSize)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for frame := range frames {
			if connCtx.Err() != nil {
				continue
			}
			h.dispatch(connCtx, sess, frame, w)
		}
	}()

	defer func() {
		cancel()
		close(frames)
		<-done
		h.chatService.DetachSession(context.WithoutCancel(c.Request.Context()), visitorID)
		log.Infof("WebSocket 连接已断开，访客: %s", visitorID)
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warnf("从 WebSocket 读取消息失败: %v", err)
			}
			return
		}

		var frame clientFrame
		if len(raw) > 0 && raw[0] == '{' {
			if err := json.Unmarshal(raw, &frame); err != nil {
				w.send(frameError, nil, "无法解析消息")
				continue
			}
		} else {
			// 纯文本视为普通消息
			frame = clientFrame{Type: frameMessage, Content: string(raw)}
		}

		select {
		case frames <- frame:
		default:
			w.send(frameError, nil, "消息过多，请稍后再试")
		}
	}
}

// dispatch 处理一条消息。任何失败都以 error 帧告知浏览器，面板随后仍可继续提问。
func (h *ChatHandler) dispatch(ctx context.Context, sess *service.ChatSession, frame clientFrame, w *frameWriter) {
	switch frame.Type {
	case frameMessage, frameQuickAction:
		text := frame.Content
		if frame.Type == frameQuickAction {
			actions := h.chatService.QuickActions()
			if frame.Index < 0 || frame.Index >= len(actions) {
				w.send(frameError, nil, service.ErrUnknownQuickAction.Error())
				return
			}
			text = actions[frame.Index].Message
		}

		w.send(frameTyping, nil, "")
		reply, err := sess.SendMessage(ctx, text)
		if err != nil {
			w.send(frameError, nil, frameErrorMessage(err))
			return
		}
		w.send(frameReply, reply, "")
	case frameShare:
		result, err := h.chatService.ShareInSession(ctx, sess, frame.Kind)
		if err != nil {
			w.send(frameError, nil, frameErrorMessage(err))
			return
		}
		w.send(frameFile, result, "")
	default:
		w.send(frameError, nil, "未知的消息类型: "+frame.Type)
	}
}

func frameErrorMessage(err error) string {
	if errors.Is(err, service.ErrSessionClosed) {
		return "会话已关闭，请刷新页面后重试"
	}
	return err.Error()
}

// frameWriter 串行化对同一连接的写入，gorilla/websocket 不支持并发写。
type frameWriter struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (w *frameWriter) send(frameType string, data interface{}, message string) {
	b, err := json.Marshal(serverFrame{Type: frameType, Data: data, Message: message, Timestamp: time.Now().UnixMilli()})
	if err != nil {
		log.Errorf("序列化 WebSocket 消息失败: %v", err)
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.conn.WriteMessage(websocket.TextMessage, b); err != nil {
		log.Warnf("写入 WebSocket 消息失败: %v", err)
	}
}
