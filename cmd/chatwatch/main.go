// Command chatwatch follows a conversation through the companion server: it
// prints messages as they arrive and sends every line typed on stdin.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/cx-tal-miterani/trip-planner/internal/chat"
	"github.com/cx-tal-miterani/trip-planner/internal/config"
	"github.com/cx-tal-miterani/trip-planner/internal/logger"
	"github.com/cx-tal-miterani/trip-planner/shared/models"
	"go.uber.org/zap"
)

func main() {
	server := flag.String("server", "http://localhost:"+config.DefaultPort, "companion server base URL")
	sessionID := flag.String("session", os.Getenv("PLANNER_SESSION"), "session id returned by /api/auth/login")
	conversation := flag.Int64("conversation", 0, "conversation id to follow")
	poll := flag.Duration("poll", config.DefaultChatPollInterval, "poll interval when the push stream is unavailable")
	flag.Parse()

	if *sessionID == "" || *conversation <= 0 {
		flag.Usage()
		os.Exit(2)
	}
	if err := logger.Init("warn", "console"); err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	log := logger.Named("chatwatch")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	header := http.Header{}
	header.Set("Authorization", "Bearer "+*sessionID)

	printer := newPrinter()
	sess := chat.NewSession(
		&chat.CompanionBackend{BaseURL: *server, SessionID: *sessionID},
		chat.WithDialer(chat.WebSocketDialer(*server, header)),
		chat.WithPollInterval(*poll),
		chat.OnUpdate(func(_ int64, msgs []models.Message) { printer.print(msgs) }),
	)
	defer sess.Close()

	if err := sess.Select(ctx, *conversation); err != nil {
		log.Fatal("Failed to open conversation", zap.Int64("conversation_id", *conversation), zap.Error(err))
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			content := strings.TrimSpace(line)
			if content == "" {
				continue
			}
			if _, err := sess.Send(ctx, content); err != nil {
				log.Warn("Send failed", zap.Error(err))
			}
		}
	}
}

// printer writes each message once
type printer struct {
	mu   sync.Mutex
	seen map[int64]bool
}

func newPrinter() *printer {
	return &printer{seen: make(map[int64]bool)}
}

func (p *printer) print(msgs []models.Message) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, m := range msgs {
		if p.seen[m.MessageID] {
			continue
		}
		p.seen[m.MessageID] = true
		fmt.Printf("[%s] %d: %s\n", m.CreatedAt, m.SenderID, m.Content)
	}
}
